package engine

import (
	"log/slog"

	"github.com/talgya/hamlet/internal/economy"
)

// seedHouses snapshots the ledger after the producer write-back and clears
// last tick's house diagnostics.
func (s *Scheduler) seedHouses() {
	s.pool = snapshot(s.ledger)
	s.houseSpend = make(economy.Basket)
	for _, h := range s.arena.houses {
		h.MissingResources = nil
	}
}

// houseNeedsBatch feeds up to HousesPerBatch houses from the pool. A house
// either gets its whole basket or nothing. When the cursor reaches the end
// the accumulated spend is written to the ledger in one call.
func (s *Scheduler) houseNeedsBatch() {
	houses := s.arena.houses
	end := min(s.cursor+s.settings.HousesPerBatch, len(houses))
	for ; s.cursor < end; s.cursor++ {
		h := houses[s.cursor]
		if h.Destroyed() {
			continue
		}
		s.report.Houses++
		need := h.Consumption()
		if short := need.FirstShortfall(s.pool); short != "" {
			h.NeedsMet = false
			h.MissingResources = []economy.ResourceID{short}
			continue
		}
		for id, v := range need {
			s.pool[id] -= v
			s.houseSpend[id] += v
		}
		h.NeedsMet = true
		s.report.HousesNeedsMet++
	}
	if s.cursor < len(houses) {
		return
	}

	if err := s.ledger.SpendBulk(s.houseSpend); err != nil {
		slog.Error("house spend rejected", "tick", s.tick, "error", err)
	}
	s.report.HouseSpend = s.houseSpend
	s.enter(PhaseUpgradesPrepare)
}
