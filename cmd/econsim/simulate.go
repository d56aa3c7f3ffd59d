package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/journal"
	"github.com/talgya/hamlet/internal/persistence"
)

var (
	flagTicks int64
	flagEvery int64
	flagSave  bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run a fixed number of ticks headless",
	Long: `Run the economy as fast as possible for --ticks ticks and print a
summary. With --save the run starts from and writes back to the database.

Examples:
  econsim simulate --ticks 120
  econsim simulate --ticks 600 --every 60 --save`,
	Args: cobra.NoArgs,
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().Int64Var(&flagTicks, "ticks", engine.TicksPerYear, "Ticks to run")
	simulateCmd.Flags().Int64Var(&flagEvery, "every", engine.TicksPerSeason, "Print one summary row every N ticks")
	simulateCmd.Flags().BoolVar(&flagSave, "save", false, "Resume from and save to the database")
	simulateCmd.Flags().StringVar(&flagJournal, "journal", "", "Directory for the compressed tick journal")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	if flagTicks < 1 {
		return fmt.Errorf("--ticks must be at least 1")
	}
	if flagEvery < 1 {
		flagEvery = 1
	}
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}

	var db *persistence.DB
	if flagSave {
		if db, err = openDB(flagDBPath); err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
	}

	s, err := openSimulation(cfg, db)
	if err != nil {
		return err
	}

	dir := flagJournal
	if dir == "" {
		dir = cfg.Journal.Dir
	}
	if dir != "" {
		jw := journal.NewWriter(dir, s.RunID)
		s.Sched.AddObserver(jw)
		defer jw.Close()
	}

	start := s.Ledger.Snapshot()
	var rows []engine.TickReport
	for i := int64(0); i < flagTicks; i++ {
		r := s.Sched.RunTick()
		if db != nil {
			if err := db.SaveReport(r); err != nil {
				slog.Error("report save failed", "tick", r.Tick, "error", err)
			}
		}
		if r.Tick%flagEvery == 0 || i == flagTicks-1 {
			rows = append(rows, *r)
		}
	}

	if db != nil {
		if err := db.SaveWorldState(s); err != nil {
			return fmt.Errorf("save: %w", err)
		}
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("Hamlet run %s: %d ticks, now %s",
		s.RunID, flagTicks, engine.SimTime(s.Sched.Tick()))))
	fmt.Println(reportTable(rows))
	fmt.Println(resourceTable(start, s.Ledger.Snapshot()))
	fmt.Printf("Population %d, mood %.0f, %d/%d producers active, %d/%d workers free\n",
		s.Stats.Population, s.Stats.AvgMood, s.Stats.ActiveProds, s.Stats.Producers,
		s.Stats.WorkersFree, s.Stats.WorkersTotal)
	return nil
}
