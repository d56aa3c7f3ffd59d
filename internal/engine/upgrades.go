package engine

import (
	"log/slog"

	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/entity"
)

// prepareUpgrades computes the long-run surplus from the ledger's rate
// registries. Only positive entries are kept.
func (s *Scheduler) prepareUpgrades() {
	s.surplus = make(map[economy.ResourceID]float64)
	for _, id := range s.ledger.ResourceIDs() {
		if d := s.ledger.ProductionRate(id) - s.ledger.ConsumptionRate(id); d > 0 {
			s.surplus[id] = d
		}
	}
	for i := range s.buckets {
		s.buckets[i] = s.buckets[i][:0]
	}
	s.enter(PhaseUpgradesScan)
}

// CanAutoUpgrade reports whether h qualifies for its next stage this tick,
// before surplus is considered.
func (s *Scheduler) CanAutoUpgrade(h *entity.House) bool {
	next := h.Next()
	if next == nil || !h.NeedsMet {
		return false
	}
	if !s.env.IsEligible(h) {
		return false
	}
	return h.Access.HasAll(next.Services) && s.research.IsUnlocked(next.Research)
}

// scanUpgradesBatch reserves surplus for up to UpgradeScanBatch houses.
// Houses still reserved from an earlier tick rejoin their bucket without a
// new claim.
func (s *Scheduler) scanUpgradesBatch() {
	houses := s.arena.houses
	end := min(s.cursor+s.settings.UpgradeScanBatch, len(houses))
	for ; s.cursor < end; s.cursor++ {
		h := houses[s.cursor]
		if h.Destroyed() || h.Stage >= entity.MaxHouseStage {
			continue
		}
		if h.Reserved {
			s.buckets[h.Stage-1] = append(s.buckets[h.Stage-1], h)
			continue
		}
		if !s.CanAutoUpgrade(h) {
			continue
		}
		if s.reserve(h.UpgradeDelta()) {
			h.Reserved = true
			s.buckets[h.Stage-1] = append(s.buckets[h.Stage-1], h)
			s.report.Reserved++
		}
	}
	if s.cursor >= len(houses) {
		s.enter(PhaseUpgradesApply)
	}
}

// reserve claims need against the surplus only if every entry fits.
func (s *Scheduler) reserve(need economy.Basket) bool {
	keys := need.Keys()
	for _, id := range keys {
		if s.surplus[id] < float64(need[id]) {
			return false
		}
	}
	for _, id := range keys {
		s.surplus[id] -= float64(need[id])
	}
	return true
}

// applyUpgrades commits at most UpgradesPerStage reserved houses from each
// stage bucket. The rest stay reserved for the next tick.
func (s *Scheduler) applyUpgrades() {
	for b := range s.buckets {
		committed := 0
		for _, h := range s.buckets[b] {
			if committed >= s.settings.UpgradesPerStage {
				break
			}
			if h.Destroyed() {
				continue
			}
			h.Stage++
			h.Reserved = false
			s.syncRates(h.ID, nil, h.Consumption())
			committed++
			slog.Debug("house upgraded", "id", h.ID, "stage", h.Stage, "tick", s.tick)
		}
		s.report.Upgrades[b] = committed
	}
	s.enter(PhaseFinish)
}
