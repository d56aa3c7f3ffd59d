package main

import (
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
)

// setupLogging routes slog through a charm logger on stderr.
func setupLogging(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "hamlet",
		Level:           lvl,
	})
	slog.SetDefault(slog.New(logger))
	return nil
}
