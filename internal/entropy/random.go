// Package entropy provides the randomness sources for the pricing and event
// engines. Engines never call math/rand directly: they draw from an injected
// Source (event rolls) or NoiseFunc (price jitter), so tests and replays can
// substitute deterministic implementations.
//
// True randomness via random.org is available for event draws when an API key
// is configured; it falls back to crypto/rand when the API is unavailable.
// See design doc Section 7.2.
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/json"
	"hash/fnv"
	"io"
	"log/slog"
	mathrand "math/rand"
	"net/http"
	"sync"
	"time"
)

// Source yields uniform floats in [0, 1). Implementations must be safe for
// concurrent use.
type Source interface {
	Float() float64
}

// seeded is a mutex-guarded math/rand source for deterministic runs.
type seeded struct {
	mu  sync.Mutex
	rng *mathrand.Rand
}

// NewSeeded returns a deterministic Source. Two sources with the same seed
// produce the same draw sequence.
func NewSeeded(seed int64) Source {
	return &seeded{rng: mathrand.New(mathrand.NewSource(seed))}
}

func (s *seeded) Float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// cryptoSource draws from crypto/rand on every call.
type cryptoSource struct{}

// Crypto returns a Source backed by crypto/rand.
func Crypto() Source { return cryptoSource{} }

func (cryptoSource) Float() float64 { return cryptoRandFloat() }

// Client provides true random numbers from random.org with a local pool.
type Client struct {
	apiKey string
	client *http.Client

	mu   sync.Mutex
	pool []float64
}

// NewClient creates a random.org client. Returns nil if apiKey is empty; a
// nil Client still satisfies Float by falling back to crypto/rand.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey: apiKey,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Float returns a random float64 in [0, 1). Uses the pool, refilling from
// random.org when low. Falls back to crypto/rand on API failure.
func (c *Client) Float() float64 {
	if c == nil {
		return cryptoRandFloat()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) < 10 {
		c.refill()
	}

	if len(c.pool) == 0 {
		return cryptoRandFloat()
	}

	val := c.pool[0]
	c.pool = c.pool[1:]
	return val
}

func (c *Client) refill() {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateDecimalFractions",
		"params": map[string]any{
			"apiKey":        c.apiKey,
			"n":             100,
			"decimalPlaces": 6,
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		slog.Debug("random.org marshal failed", "error", err)
		return
	}

	resp, err := c.client.Post("https://api.random.org/json-rpc/4/invoke", "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Debug("random.org fetch failed", "error", err)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Debug("random.org read failed", "error", err)
		return
	}

	var result struct {
		Result struct {
			Random struct {
				Data []float64 `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		slog.Debug("random.org parse failed", "error", err)
		return
	}

	if result.Error != nil {
		slog.Debug("random.org API error", "error", result.Error.Message)
		return
	}

	c.pool = append(c.pool, result.Result.Random.Data...)
	slog.Debug("random.org pool refilled", "count", len(result.Result.Random.Data))
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// cryptoRandFloat generates a random float64 using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// This should never happen but return 0.5 as a safe default.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// keyHash folds a string key and a week number into a 64-bit value.
func keyHash(key string, week int) uint64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	var wk [8]byte
	binary.LittleEndian.PutUint64(wk[:], uint64(week))
	h.Write(wk[:])
	return h.Sum64()
}
