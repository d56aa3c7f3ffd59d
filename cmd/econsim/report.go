package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/talgya/hamlet/internal/engine"
)

var (
	flagLimit  int
	flagEvents bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show recent tick reports from the database",
	Long: `Display the most recent tick reports saved by run or simulate --save,
oldest first.

Examples:
  econsim report
  econsim report --limit 60 --events`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntVar(&flagLimit, "limit", 20, "Number of reports to show")
	reportCmd.Flags().BoolVar(&flagEvents, "events", false, "Also list recent events")
}

func runReport(cmd *cobra.Command, args []string) error {
	db, err := openDB(flagDBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	reports, err := db.RecentReports(flagLimit)
	if err != nil {
		return fmt.Errorf("read reports: %w", err)
	}
	if len(reports) == 0 {
		fmt.Println("No reports recorded yet.")
		fmt.Println()
		fmt.Println("Run 'econsim run' or 'econsim simulate --save' first.")
		return nil
	}
	slices.Reverse(reports)

	runID, _ := db.GetMeta("run_id")
	last := reports[len(reports)-1]
	fmt.Println(titleStyle.Render(fmt.Sprintf("Hamlet run %s, %s", runID, engine.SimTime(last.Tick))))
	fmt.Println(reportTable(reports))
	fmt.Println(resourceTable(reports[0].Start, last.Resources))

	if flagEvents {
		events, err := db.RecentEvents(flagLimit)
		if err != nil {
			return fmt.Errorf("read events: %w", err)
		}
		for _, e := range events {
			fmt.Printf("%s  %-10s %s\n", dimStyle.Render(engine.SimTime(e.Tick)), e.Category, e.Description)
		}
	}
	return nil
}
