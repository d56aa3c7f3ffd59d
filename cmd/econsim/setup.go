package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/persistence"
	"github.com/talgya/hamlet/internal/sim"
)

func openDB(path string) (*persistence.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := persistence.Open(path)
	if err != nil {
		return nil, err
	}
	slog.Info("database opened", "path", path)
	return db, nil
}

// openSimulation builds the economy and restores the saved state if db
// has one, otherwise places the configured scenario.
func openSimulation(cfg config.Config, db *persistence.DB) (*sim.Simulation, error) {
	s, err := sim.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("build economy: %w", err)
	}

	if db != nil {
		st, err := db.LoadState()
		if err != nil {
			return nil, fmt.Errorf("load state: %w", err)
		}
		if st != nil {
			if err := s.Restore(st); err != nil {
				return nil, fmt.Errorf("restore state: %w", err)
			}
			slog.Info("economy restored",
				"run", s.RunID,
				"tick", st.Tick,
				"sim_time", engine.SimTime(st.Tick),
				"producers", len(st.Producers),
				"houses", len(st.Houses),
			)
			return s, nil
		}
	}

	slog.Info("no saved state found, placing scenario", "seed", cfg.Scenario.Seed)
	if err := s.Seed(cfg.Scenario); err != nil {
		return nil, err
	}
	return s, nil
}
