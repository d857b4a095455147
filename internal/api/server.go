// Package api provides the HTTP API for a running trading session.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
// See design doc Section 9.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/talgya/crossroads-trader/internal/catalog"
	"github.com/talgya/crossroads-trader/internal/engine"
	"github.com/talgya/crossroads-trader/internal/events"
	"github.com/talgya/crossroads-trader/internal/notify"
	"github.com/talgya/crossroads-trader/internal/persistence"
	"github.com/talgya/crossroads-trader/internal/session"
)

// Server serves session state over HTTP.
type Server struct {
	Session  *session.Session
	Eng      *engine.Engine
	Catalog  *catalog.Catalog
	DB       *persistence.DB
	Hub      *notify.Hub
	Port     int
	SaveSlot string
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
}

// Start begins serving the HTTP API in a goroutine.
func (s *Server) Start() {
	// History hits the database; keep casual pollers off it.
	historyLimiter := NewRateLimiter(120, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/goods", s.handleGoods)
	mux.HandleFunc("/api/v1/locations", s.handleLocations)
	mux.HandleFunc("/api/v1/prices", s.handlePrices)
	mux.HandleFunc("/api/v1/prices/", s.handlePrices)
	mux.HandleFunc("/api/v1/player", s.handlePlayer)
	mux.HandleFunc("/api/v1/event", s.handlePendingEvent)
	mux.HandleFunc("/api/v1/history", RateLimitMiddleware(historyLimiter, s.handleHistory))

	// Websocket observer stream.
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Admin endpoints.
	mux.HandleFunc("/api/v1/resolve", s.adminOnly(s.handleResolve))
	mux.HandleFunc("/api/v1/advance", s.adminOnly(s.handleAdvance))
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	addr := fmt.Sprintf(":%d", s.Port)
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		handler := corsMiddleware(mux)
		if err := http.ListenAndServe(addr, handler); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra origins; localhost
// dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// checkBearerToken returns true if the request carries the admin token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through for endpoints that support both.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no TRADESIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	hits, misses := s.Session.CacheStats()
	_, hasPending := s.Session.PendingEvent()
	week := s.Session.CurrentWeek()

	writeJSON(w, map[string]any{
		"session_id":    s.Session.SessionID(),
		"week":          week,
		"week_label":    engine.WeekLabel(week),
		"speed":         s.Eng.Speed(),
		"running":       s.Eng.Running(),
		"pending_event": hasPending,
		"cache": map[string]uint64{
			"hits":   hits,
			"misses": misses,
		},
	})
}

func (s *Server) handleGoods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Catalog.Goods)
}

func (s *Server) handleLocations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Catalog.Locations)
}

// handlePrices serves either every location's table (GET /api/v1/prices)
// or a single location's (GET /api/v1/prices/:location_id).
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	locID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/prices"), "/")
	if locID == "" {
		out := make(map[string]any, len(s.Catalog.Locations))
		for _, loc := range s.Catalog.Locations {
			if t, ok := s.Session.PriceTable(loc.ID); ok {
				out[loc.ID] = t
			}
		}
		writeJSON(w, out)
		return
	}

	if _, ok := s.Catalog.LocationsByID[locID]; !ok {
		http.Error(w, "location not found", http.StatusNotFound)
		return
	}
	t, ok := s.Session.PriceTable(locID)
	if !ok {
		// No tick has run yet.
		writeJSON(w, map[string]any{})
		return
	}
	writeJSON(w, t)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Session.PlayerView())
}

func (s *Server) handlePendingEvent(w http.ResponseWriter, r *http.Request) {
	def, ok := s.Session.PendingEvent()
	if !ok {
		writeJSON(w, map[string]any{"pending": false})
		return
	}

	type optionView struct {
		Index int    `json:"index"`
		Text  string `json:"text"`
	}
	opts := make([]optionView, 0, len(def.Options))
	for i, o := range def.Options {
		opts = append(opts, optionView{Index: i, Text: o.Text})
	}

	writeJSON(w, map[string]any{
		"pending":     true,
		"event_id":    def.ID,
		"title":       def.Title,
		"description": def.Description,
		"category":    def.Category,
		"options":     opts,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	if s.DB != nil {
		rows, err := s.DB.RecentHistory(s.SaveSlot, limit)
		if err == nil {
			writeJSON(w, rows)
			return
		}
		slog.Error("history query failed", "error", err)
	}

	// Fall back to the in-memory record.
	writeJSON(w, s.Session.HistoryTail(limit))
}

// handleStream upgrades to a websocket observer connection.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	if s.Hub == nil {
		http.Error(w, "streaming not enabled", http.StatusServiceUnavailable)
		return
	}
	notify.ServeWs(s.Hub, w, r)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Option int `json:"option"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	res, err := s.Session.ResolvePending(req.Option)
	switch {
	case errors.Is(err, session.ErrNoPendingEvent):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case errors.Is(err, events.ErrInvalidOption), errors.Is(err, events.ErrOptionUnavailable):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("resolution failed", "error", err)
		http.Error(w, "resolution failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Step through the engine so its week counter and autosave cadence stay
	// in step with the session.
	s.Eng.Advance()
	week := s.Session.CurrentWeek()
	writeJSON(w, map[string]any{
		"week":       week,
		"week_label": engine.WeekLabel(week),
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	writeJSON(w, map[string]float64{"speed": s.Eng.Speed()})
}

// handleSnapshot exports the current save state as a compressed snapshot
// file on the server's filesystem.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		http.Error(w, "path required", http.StatusBadRequest)
		return
	}

	st := s.Session.SaveState()
	if err := persistence.WriteSnapshot(req.Path, st); err != nil {
		slog.Error("snapshot failed", "error", err, "path", req.Path)
		http.Error(w, "snapshot failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"path": req.Path, "week": st.Week})
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}
