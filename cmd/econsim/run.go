package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/talgya/hamlet/internal/api"
	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/journal"
)

var (
	flagSpeed    float64
	flagPort     int
	flagAutosave int64
	flagJournal  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live economy with the HTTP API",
	Long: `Run the economy in real time. State is restored from the database
if present, saved every --autosave ticks and again on shutdown.

Set HAMLET_ADMIN_KEY (or api.admin_key) to enable POST endpoints.`,
	Args: cobra.NoArgs,
	RunE: runLive,
}

func init() {
	runCmd.Flags().Float64Var(&flagSpeed, "speed", 1, "Time multiplier (0 = paused)")
	runCmd.Flags().IntVar(&flagPort, "port", 0, "HTTP port (overrides api.port; -1 disables the API)")
	runCmd.Flags().Int64Var(&flagAutosave, "autosave", 30, "Save state every N ticks (0 = only on shutdown)")
	runCmd.Flags().StringVar(&flagJournal, "journal", "", "Directory for the compressed tick journal (overrides journal.dir)")
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagPort != 0 {
		cfg.API.Port = flagPort
	}
	if flagJournal != "" {
		cfg.Journal.Dir = flagJournal
	}
	if key := os.Getenv("HAMLET_ADMIN_KEY"); key != "" {
		cfg.API.AdminKey = key
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Database ──────────────────────────────────────────────────────
	db, err := openDB(flagDBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	// ── Economy ───────────────────────────────────────────────────────
	s, err := openSimulation(cfg, db)
	if err != nil {
		return err
	}
	startTick := s.Sched.Tick()
	if startTick == 0 {
		if err := db.SaveWorldState(s); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	eng := engine.NewEngine(s.Sched)
	eng.FrameRate = cfg.Scheduler.FrameRate
	eng.Speed = flagSpeed

	// Reports every tick, full state every autosave interval.
	s.Sched.AddObserver(engine.ObserverFuncs{OnTick: func(r *engine.TickReport) {
		if err := db.SaveReport(r); err != nil {
			slog.Error("report save failed", "tick", r.Tick, "error", err)
		}
		if flagAutosave > 0 && r.Tick%flagAutosave == 0 {
			if err := db.SaveWorldState(s); err != nil {
				slog.Error("autosave failed", "tick", r.Tick, "error", err)
			}
		}
	}})

	// ── Journal ───────────────────────────────────────────────────────
	if cfg.Journal.Dir != "" {
		jw := journal.NewWriter(cfg.Journal.Dir, s.RunID)
		s.Sched.AddObserver(jw)
		defer func() {
			if err := jw.Close(); err != nil {
				slog.Error("journal close failed", "error", err)
			}
		}()
		slog.Info("journal enabled", "dir", cfg.Journal.Dir)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.API.Port > 0 {
		if cfg.API.AdminKey == "" {
			slog.Warn("HAMLET_ADMIN_KEY not set, admin POST endpoints will be disabled")
		}
		srv := api.NewServer(s, eng, db, cfg.API)
		srv.Start(ctx)
	}

	// ── Start ─────────────────────────────────────────────────────────
	fmt.Printf("\nHamlet is alive: %d residents in %d houses, %d producers.\n",
		s.Stats.Population, s.Stats.Houses, s.Stats.Producers)
	if cfg.API.Port > 0 {
		fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
	}
	if startTick > 0 {
		fmt.Printf("Resuming from tick %d (%s)\n", startTick, engine.SimTime(startTick))
	}
	fmt.Println("Starting economy... (Ctrl+C to stop)")

	eng.Run(ctx)

	// Final save on shutdown. The loop has returned so nothing else
	// touches the economy; finish any tick left in flight first.
	if s.Sched.InFlight() {
		s.Sched.RunTick()
	}
	slog.Info("final save...")
	if err := db.SaveWorldState(s); err != nil {
		return fmt.Errorf("final save: %w", err)
	}

	fmt.Println("Economy stopped. State saved.")
	return nil
}
