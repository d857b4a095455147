package persistence

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"

	"github.com/talgya/crossroads-trader/internal/session"
)

// snapshotVersion guards the export format. Bump on incompatible changes.
const snapshotVersion = 1

type snapshotEnvelope struct {
	Version int                `json:"version"`
	State   *session.SaveState `json:"state"`
}

// WriteSnapshot exports a save state as a zstd-compressed JSON file,
// suitable for backups and transfer between machines.
func WriteSnapshot(path string, st *session.SaveState) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	defer f.Close()

	zw, err := zstd.NewWriter(f)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}

	env := snapshotEnvelope{Version: snapshotVersion, State: st}
	if err := json.NewEncoder(zw).Encode(&env); err != nil {
		zw.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush snapshot: %w", err)
	}
	return f.Sync()
}

// ReadSnapshot imports a save state written by WriteSnapshot.
func ReadSnapshot(path string) (*session.SaveState, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("zstd reader: %w", err)
	}
	defer zr.Close()

	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var env snapshotEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", env.Version)
	}
	if env.State == nil {
		return nil, fmt.Errorf("snapshot holds no state")
	}
	return env.State, nil
}
