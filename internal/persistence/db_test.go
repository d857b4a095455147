package persistence

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/talgya/crossroads-trader/internal/events"
	"github.com/talgya/crossroads-trader/internal/session"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleState() *session.SaveState {
	rt := events.NewRuntimeState()
	rt.History = append(rt.History,
		events.HistoryEntry{ID: "h1", EventID: "rain", Week: 2, OptionIndex: 0, OptionText: "wait",
			Applied: events.AppliedSummary{Money: -50}},
		events.HistoryEntry{ID: "h2", EventID: "windfall", Week: 5, OptionIndex: 1,
			Applied: events.AppliedSummary{Money: 500, MarketEffects: 1}},
	)
	return &session.SaveState{
		SessionID:     "sess-1",
		Week:          6,
		CatalogDigest: "abc",
		Player:        nil,
		Runtime:       rt,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	db := openTestDB(t)
	st := sampleState()

	if err := db.SaveSession("default", st); err != nil {
		t.Fatal(err)
	}

	got, err := db.LoadSession("default")
	if err != nil {
		t.Fatal(err)
	}
	if got.SessionID != "sess-1" || got.Week != 6 || got.CatalogDigest != "abc" {
		t.Fatalf("loaded state wrong: %+v", got)
	}
	if got.Runtime == nil || len(got.Runtime.History) != 2 {
		t.Fatalf("runtime history lost: %+v", got.Runtime)
	}
}

func TestSaveOverwritesSlot(t *testing.T) {
	db := openTestDB(t)
	st := sampleState()

	if err := db.SaveSession("default", st); err != nil {
		t.Fatal(err)
	}
	st.Week = 10
	if err := db.SaveSession("default", st); err != nil {
		t.Fatal(err)
	}

	got, err := db.LoadSession("default")
	if err != nil {
		t.Fatal(err)
	}
	if got.Week != 10 {
		t.Fatalf("week %d, want the later save", got.Week)
	}
}

func TestLoadMissingSlot(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.LoadSession("empty"); !errors.Is(err, ErrNoSave) {
		t.Fatalf("got %v, want ErrNoSave", err)
	}
}

func TestHasSave(t *testing.T) {
	db := openTestDB(t)

	ok, err := db.HasSave("default")
	if err != nil || ok {
		t.Fatalf("fresh db claims a save: %v, %v", ok, err)
	}
	if err := db.SaveSession("default", sampleState()); err != nil {
		t.Fatal(err)
	}
	ok, err = db.HasSave("default")
	if err != nil || !ok {
		t.Fatalf("saved slot not found: %v, %v", ok, err)
	}
}

func TestRecentHistory(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveSession("default", sampleState()); err != nil {
		t.Fatal(err)
	}

	hist, err := db.RecentHistory("default", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Fatalf("history rows %d, want 2", len(hist))
	}
	// Newest first.
	if hist[0].EventID != "windfall" || hist[0].Applied.Money != 500 {
		t.Fatalf("newest entry wrong: %+v", hist[0])
	}
	if hist[1].EventID != "rain" || hist[1].Applied.Money != -50 {
		t.Fatalf("oldest entry wrong: %+v", hist[1])
	}

	limited, err := db.RecentHistory("default", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].EventID != "windfall" {
		t.Fatalf("limit ignored: %+v", limited)
	}
}

func TestHistoryReplacedOnResave(t *testing.T) {
	db := openTestDB(t)
	st := sampleState()
	if err := db.SaveSession("default", st); err != nil {
		t.Fatal(err)
	}

	st.Runtime.History = st.Runtime.History[:1]
	if err := db.SaveSession("default", st); err != nil {
		t.Fatal(err)
	}

	hist, err := db.RecentHistory("default", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 {
		t.Fatalf("stale history rows survived the resave: %d", len(hist))
	}
}

func TestMetaRoundTrip(t *testing.T) {
	db := openTestDB(t)
	if err := db.SaveMeta("schema_note", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("schema_note", "v2"); err != nil {
		t.Fatal(err)
	}
	got, err := db.GetMeta("schema_note")
	if err != nil || got != "v2" {
		t.Fatalf("meta %q, %v", got, err)
	}
}
