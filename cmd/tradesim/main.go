// Command tradesim runs the Crossroads Trader market simulation.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talgya/crossroads-trader/internal/api"
	"github.com/talgya/crossroads-trader/internal/catalog"
	"github.com/talgya/crossroads-trader/internal/engine"
	"github.com/talgya/crossroads-trader/internal/entropy"
	"github.com/talgya/crossroads-trader/internal/notify"
	"github.com/talgya/crossroads-trader/internal/persistence"
	"github.com/talgya/crossroads-trader/internal/session"
	"github.com/talgya/crossroads-trader/internal/tuning"
)

const saveSlot = "default"

func main() {
	var (
		tuningPath  = flag.String("tuning", "configs/tuning.yaml", "tuning file")
		catalogDir  = flag.String("catalog", "configs", "catalogue directory")
		dbPath      = flag.String("db", "data/tradesim.db", "save database")
		apiPort     = flag.Int("port", 8080, "HTTP API port")
		importPath  = flag.String("import", "", "import a snapshot file and exit")
		exportPath  = flag.String("export", "", "export a snapshot file and exit")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Crossroads Trader — market simulation")

	// ── Tuning + Catalogue ───────────────────────────────────────────
	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		slog.Warn("tuning load failed, using defaults", "path", *tuningPath, "error", err)
		tune = tuning.Default()
	}

	cat, err := catalog.Load(*catalogDir)
	if err != nil {
		slog.Error("catalogue load failed", "dir", *catalogDir, "error", err)
		os.Exit(1)
	}
	slog.Info("catalogue loaded",
		"goods", len(cat.Goods),
		"locations", len(cat.Locations),
		"events", len(cat.Events),
		"digest", cat.Digest[:12],
	)

	// ── Database ─────────────────────────────────────────────────────
	os.MkdirAll("data", 0755)
	db, err := persistence.Open(*dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", *dbPath)

	// ── Entropy ──────────────────────────────────────────────────────
	var rng entropy.Source
	if tune.Seed != 0 {
		rng = entropy.NewSeeded(tune.Seed)
		slog.Info("seeded entropy", "seed", tune.Seed)
	} else if c := entropy.NewClient(os.Getenv("TRADESIM_RANDOM_ORG_KEY")); c.Enabled() {
		rng = c
		slog.Info("random.org entropy enabled")
	} else {
		rng = entropy.Crypto()
	}

	var noise entropy.NoiseFunc
	switch tune.PriceNoise {
	case "hash":
		noise = entropy.HashNoise(tune.Seed)
	default:
		noise = entropy.SimplexNoise(tune.Seed, tune.NoiseStep)
	}

	// ── Session ──────────────────────────────────────────────────────
	hub := notify.NewHub()
	go hub.Run()

	bus := notify.NewBus()
	bus.AttachHub(hub)

	sess, err := session.New(session.Config{
		Catalog: cat,
		Tuning:  tune,
		Rng:     rng,
		Noise:   noise,
		Bus:     bus,
	})
	if err != nil {
		slog.Error("session setup failed", "error", err)
		os.Exit(1)
	}

	// Snapshot import replaces whatever the database holds.
	if *importPath != "" {
		st, err := persistence.ReadSnapshot(*importPath)
		if err != nil {
			slog.Error("snapshot import failed", "error", err)
			os.Exit(1)
		}
		if err := sess.LoadSaveState(st); err != nil {
			slog.Error("snapshot state invalid", "error", err)
			os.Exit(1)
		}
		if err := db.SaveSession(saveSlot, sess.SaveState()); err != nil {
			slog.Error("save after import failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Imported snapshot %s at week %d.\n", *importPath, sess.Week)
		return
	}

	// Restore a prior playthrough when one exists.
	st, err := db.LoadSession(saveSlot)
	switch {
	case err == nil:
		if err := sess.LoadSaveState(st); err != nil {
			slog.Error("saved state invalid", "error", err)
			os.Exit(1)
		}
		slog.Info("session restored", "week", sess.Week, "label", engine.WeekLabel(sess.Week))
	case errors.Is(err, persistence.ErrNoSave):
		slog.Info("no save found, starting fresh")
		if err := db.SaveSession(saveSlot, sess.SaveState()); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	default:
		slog.Error("save load failed", "error", err)
		os.Exit(1)
	}

	if *exportPath != "" {
		if err := persistence.WriteSnapshot(*exportPath, sess.SaveState()); err != nil {
			slog.Error("snapshot export failed", "error", err)
			os.Exit(1)
		}
		fmt.Printf("Exported snapshot to %s at week %d.\n", *exportPath, sess.Week)
		return
	}

	// ── Engine ───────────────────────────────────────────────────────
	eng := engine.NewEngine(time.Duration(tune.TickIntervalMs) * time.Millisecond)
	eng.SetWeek(sess.CurrentWeek())
	if tune.TickIntervalMs <= 0 {
		// Manual mode: the loop idles until the speed or advance endpoint
		// wakes it up.
		eng.SetSpeed(0)
	}
	eng.OnWeek = func(week int) {
		sess.AdvanceWeek()
	}
	eng.OnAutosave = func(week int) {
		if err := db.SaveSession(saveSlot, sess.SaveState()); err != nil {
			slog.Error("autosave failed", "error", err, "week", week)
		}
	}

	// ── HTTP API ─────────────────────────────────────────────────────
	adminKey := os.Getenv("TRADESIM_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("TRADESIM_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		Session:  sess,
		Eng:      eng,
		Catalog:  cat,
		DB:       db,
		Hub:      hub,
		Port:     *apiPort,
		SaveSlot: saveSlot,
		AdminKey: adminKey,
	}
	apiServer.Start()

	// ── Start ────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\n%s open for trade: %d goods across %d locations.\n",
		tune.SimName, len(cat.Goods), len(cat.Locations))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", *apiPort)
	if week := sess.CurrentWeek(); week > 0 {
		fmt.Printf("Resuming from %s\n", engine.WeekLabel(week))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run()

	slog.Info("final save...")
	if err := db.SaveSession(saveSlot, sess.SaveState()); err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Simulation stopped. Session saved.")
}
