package main

import (
	"strings"
	"testing"

	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/engine"
)

func TestReportTable(t *testing.T) {
	out := reportTable([]engine.TickReport{
		{Tick: 1, Population: 12, Mood: 80, Houses: 6, HousesNeedsMet: 4, Producers: map[string]int{"active": 5}},
		{Tick: 31, Population: 14, Houses: 6},
	})
	for _, want := range []string{"Spring Day 2, Year 1", "Summer Day 2, Year 1", "4/6", "12"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in table:\n%s", want, out)
		}
	}
}

func TestResourceTable(t *testing.T) {
	out := resourceTable(
		map[economy.ResourceID]int64{"wood": 10, "bread": 5},
		map[economy.ResourceID]int64{"wood": 4, "bread": 9},
	)
	if !strings.Contains(out, "+4") || !strings.Contains(out, "-6") {
		t.Errorf("Expected signed changes in table:\n%s", out)
	}
	if strings.Index(out, "bread") > strings.Index(out, "wood") {
		t.Error("Expected resources sorted by id")
	}
}

func TestSetupLogging(t *testing.T) {
	if err := setupLogging("debug"); err != nil {
		t.Errorf("setupLogging(debug) failed: %v", err)
	}
	if err := setupLogging("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}
