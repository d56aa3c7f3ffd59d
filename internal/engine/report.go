package engine

import (
	"github.com/talgya/hamlet/internal/economy"
)

// TickReport summarizes one completed tick for observers.
type TickReport struct {
	Tick  int64 `json:"tick"`
	Steps int   `json:"steps"` // Advance calls the tick took

	// Producers counts outcomes by inactive reason ("active" included).
	Producers  map[string]int `json:"producers"`
	GraceRuns  int            `json:"grace_runs"`
	Downgrades int            `json:"downgrades"`

	Houses         int                          `json:"houses"`
	HousesNeedsMet int                          `json:"houses_needs_met"`
	Reserved       int                          `json:"reserved"`
	Upgrades       [4]int                       `json:"upgrades"` // committed per stage bucket 1→2 .. 4→5
	Mood           float64                      `json:"mood"`
	Population     uint32                       `json:"population"`
	Start          map[economy.ResourceID]int64 `json:"start"`
	Produced       economy.Basket               `json:"produced"`
	ProducerSpend  economy.Basket               `json:"producer_spend"`
	HouseSpend     economy.Basket               `json:"house_spend"`
	Resources      map[economy.ResourceID]int64 `json:"resources"`
}

func newTickReport(tick int64, l Ledger) *TickReport {
	return &TickReport{
		Tick:      tick,
		Producers: make(map[string]int),
		Start:     snapshot(l),
	}
}

// UpgradesTotal sums committed house upgrades across buckets.
func (r *TickReport) UpgradesTotal() int {
	n := 0
	for _, u := range r.Upgrades {
		n += u
	}
	return n
}
