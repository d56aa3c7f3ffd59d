package main

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/entity"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

// reportTable renders tick reports in the order given.
func reportTable(reports []engine.TickReport) string {
	t := newTable("Tick", "Date", "Pop", "Mood", "Needs met", "Active", "Upgrades", "Downgrades")
	for _, r := range reports {
		t.Row(
			fmt.Sprint(r.Tick),
			engine.SimTime(r.Tick),
			fmt.Sprint(r.Population),
			fmt.Sprintf("%.0f", r.Mood),
			fmt.Sprintf("%d/%d", r.HousesNeedsMet, r.Houses),
			fmt.Sprint(r.Producers[entity.ReasonActive.String()]),
			fmt.Sprint(r.UpgradesTotal()),
			fmt.Sprint(r.Downgrades),
		)
	}
	return t.Render()
}

// resourceTable renders closing amounts alongside the change over a run.
func resourceTable(start, end map[economy.ResourceID]int64) string {
	ids := make([]economy.ResourceID, 0, len(end))
	for id := range end {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	t := newTable("Resource", "Amount", "Change")
	for _, id := range ids {
		delta := end[id] - start[id]
		change := fmt.Sprintf("%+d", delta)
		if delta < 0 {
			change = warnStyle.Render(change)
		}
		t.Row(string(id), fmt.Sprint(end[id]), change)
	}
	return t.Render()
}
