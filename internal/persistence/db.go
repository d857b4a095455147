// Package persistence provides SQLite-based save storage plus portable
// compressed snapshots.
// See design doc Section 8.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/crossroads-trader/internal/events"
	"github.com/talgya/crossroads-trader/internal/session"
)

// ErrNoSave is returned when no save exists for the requested slot.
var ErrNoSave = errors.New("no save found")

// DB wraps a SQLite connection for session persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS saves (
		slot TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		week INTEGER NOT NULL,
		catalog_digest TEXT NOT NULL,
		state_json TEXT NOT NULL,
		saved_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS event_history (
		id TEXT PRIMARY KEY,
		slot TEXT NOT NULL,
		event_id TEXT NOT NULL,
		week INTEGER NOT NULL,
		option_index INTEGER NOT NULL,
		option_text TEXT,
		applied_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_history_slot_week ON event_history(slot, week);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveSession writes a session snapshot into the slot (full replace) and
// mirrors its resolved-event history into a queryable table.
func (db *DB) SaveSession(slot string, st *session.SaveState) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal save state: %w", err)
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT OR REPLACE INTO saves
		(slot, session_id, week, catalog_digest, state_json, saved_at)
		VALUES (?, ?, ?, ?, ?, datetime('now'))`,
		slot, st.SessionID, st.Week, st.CatalogDigest, string(raw),
	)
	if err != nil {
		return fmt.Errorf("insert save: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM event_history WHERE slot = ?", slot); err != nil {
		return err
	}
	if st.Runtime != nil {
		stmt, err := tx.Preparex(`INSERT INTO event_history
			(id, slot, event_id, week, option_index, option_text, applied_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, h := range st.Runtime.History {
			appliedJSON, _ := json.Marshal(h.Applied)
			if _, err := stmt.Exec(h.ID, slot, h.EventID, h.Week, h.OptionIndex, h.OptionText, string(appliedJSON)); err != nil {
				return fmt.Errorf("insert history %s: %w", h.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("session saved", "slot", slot, "week", st.Week)
	return nil
}

// LoadSession reads the snapshot stored in the slot.
func (db *DB) LoadSession(slot string) (*session.SaveState, error) {
	var raw string
	err := db.conn.Get(&raw, "SELECT state_json FROM saves WHERE slot = ?", slot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSave
	}
	if err != nil {
		return nil, fmt.Errorf("load save: %w", err)
	}

	var st session.SaveState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decode save state: %w", err)
	}
	return &st, nil
}

// HasSave reports whether the slot holds a save.
func (db *DB) HasSave(slot string) (bool, error) {
	var n int
	if err := db.conn.Get(&n, "SELECT COUNT(*) FROM saves WHERE slot = ?", slot); err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveMeta stores a key-value pair.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM meta WHERE key = ?", key)
	return value, err
}

type historyRow struct {
	ID          string `db:"id"`
	EventID     string `db:"event_id"`
	Week        int    `db:"week"`
	OptionIndex int    `db:"option_index"`
	OptionText  string `db:"option_text"`
	AppliedJSON string `db:"applied_json"`
}

// RecentHistory returns the most recent resolved events for a slot, newest
// first.
func (db *DB) RecentHistory(slot string, limit int) ([]events.HistoryEntry, error) {
	var rows []historyRow
	err := db.conn.Select(&rows,
		"SELECT id, event_id, week, option_index, option_text, applied_json FROM event_history WHERE slot = ? ORDER BY week DESC LIMIT ?",
		slot, limit,
	)
	if err != nil {
		return nil, err
	}

	out := make([]events.HistoryEntry, 0, len(rows))
	for _, r := range rows {
		h := events.HistoryEntry{
			ID:          r.ID,
			EventID:     r.EventID,
			Week:        r.Week,
			OptionIndex: r.OptionIndex,
			OptionText:  r.OptionText,
		}
		if err := json.Unmarshal([]byte(r.AppliedJSON), &h.Applied); err != nil {
			return nil, fmt.Errorf("decode history %s: %w", r.ID, err)
		}
		out = append(out, h)
	}
	return out, nil
}
