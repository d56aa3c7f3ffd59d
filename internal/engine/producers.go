package engine

import (
	"log/slog"

	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/entity"
)

// rateEntry is what one building currently has registered with the ledger.
type rateEntry struct {
	produce economy.Basket
	consume economy.Basket
}

// producerOutcome is the result of resolving one producer this tick.
type producerOutcome struct {
	reason     entity.InactiveReason
	missing    economy.ResourceID
	grace      bool
	downgraded bool
	produce    economy.Basket
	consume    economy.Basket
}

// resolvePass carries the tick's pool and the totals written back once.
type resolvePass struct {
	pool     map[economy.ResourceID]int64
	produced economy.Basket
	spend    economy.Basket
}

// resolveProducers runs every producer against one pool seeded from the
// ledger. Output is credited to the pool as soon as a producer runs, so a
// consumer registered after its supplier resolves in the same tick. A
// second sweep retries producers that only lacked inputs, which catches
// suppliers registered after their consumers. Grace and downgrade fallbacks
// are left to that second sweep.
func (s *Scheduler) resolveProducers() {
	pass := &resolvePass{
		pool:     snapshot(s.ledger),
		produced: make(economy.Basket),
		spend:    make(economy.Basket),
	}

	producers := s.arena.producers
	outcomes := make([]producerOutcome, len(producers))
	for i, p := range producers {
		if p.Destroyed() {
			continue
		}
		outcomes[i] = s.resolveProducer(p, pass, false)
	}
	for i, p := range producers {
		if p.Destroyed() || outcomes[i].reason != entity.ReasonMissingResources {
			continue
		}
		outcomes[i] = s.resolveProducer(p, pass, true)
	}

	if err := s.ledger.AddBulk(pass.produced); err != nil {
		slog.Error("producer output rejected", "tick", s.tick, "error", err)
	}
	if err := s.ledger.SpendBulk(pass.spend); err != nil {
		slog.Error("producer spend rejected", "tick", s.tick, "error", err)
	}
	s.report.Produced = pass.produced
	s.report.ProducerSpend = pass.spend

	for i, p := range producers {
		if p.Destroyed() {
			continue
		}
		s.finalizeProducer(p, outcomes[i])
	}
}

// resolveProducer decides whether p runs this tick and, if it does, moves its
// inputs and outputs through the pool. Only the final sweep may fall back to
// the pre-upgrade tier or step the producer down. A producer idled for any
// reason but workers gives its workers back at once.
func (s *Scheduler) resolveProducer(p *entity.Producer, pass *resolvePass, final bool) producerOutcome {
	idle := func(reason entity.InactiveReason, missing economy.ResourceID) producerOutcome {
		s.workers.Release(uint64(p.ID))
		return producerOutcome{reason: reason, missing: missing}
	}
	if p.Paused {
		return idle(entity.ReasonPaused, "")
	}
	if !s.env.IsEligible(p) {
		return idle(entity.ReasonIneligible, "")
	}

	var out producerOutcome
	consume, produce, workers := p.Consumption, p.Production, p.WorkersRequired
	if short := consume.FirstShortfall(pass.pool); short != "" {
		inGrace := p.InGrace(s.tick)
		switch {
		case !final:
			return idle(entity.ReasonMissingResources, short)
		case inGrace && p.PrevConsumption.FirstShortfall(pass.pool) == "":
			consume, produce, workers = p.PrevConsumption, p.PrevProduction, p.PrevWorkers
			out.grace = true
		case !inGrace && p.Stage > 1 && p.ShortageTicks+1 >= s.settings.DowngradeAfterTicks:
			from := p.Stage
			p.Downgrade()
			out.downgraded = true
			slog.Warn("producer downgraded", "id", p.ID, "kind", p.Kind.Name, "from", from, "to", p.Stage, "short", short, "tick", s.tick)
			consume, produce, workers = p.Consumption, p.Production, p.WorkersRequired
			if short = consume.FirstShortfall(pass.pool); short != "" {
				out = idle(entity.ReasonMissingResources, short)
				out.downgraded = true
				return out
			}
		default:
			return idle(entity.ReasonMissingResources, short)
		}
	}

	if !s.holdWorkers(p.ID, workers) {
		out.reason, out.grace = entity.ReasonNoWorkers, false
		return out
	}

	for id, v := range consume {
		pass.pool[id] -= v
		pass.spend[id] += v
	}
	for id, v := range produce {
		pass.pool[id] += v
		pass.produced[id] += v
	}
	out.reason = entity.ReasonActive
	out.produce, out.consume = produce, consume
	return out
}

// holdWorkers keeps a standing allocation that matches n, otherwise asks
// the pool afresh.
func (s *Scheduler) holdWorkers(id entity.ID, n uint32) bool {
	holder := uint64(id)
	if cur, ok := s.workers.Assigned(holder); ok && cur == n {
		return true
	}
	s.workers.Release(holder)
	if n == 0 {
		return true
	}
	return s.workers.TryAllocate(holder, n)
}

func (s *Scheduler) finalizeProducer(p *entity.Producer, out producerOutcome) {
	p.Active = out.reason == entity.ReasonActive
	p.Reason = out.reason
	p.RanOnGrace = out.grace
	p.MissingResources = nil
	if out.missing != "" {
		p.MissingResources = []economy.ResourceID{out.missing}
	}

	if p.Active {
		s.syncRates(p.ID, out.produce, out.consume)
	} else {
		s.clearRates(p.ID)
	}

	switch {
	case out.downgraded:
		p.ShortageTicks = 0
	case out.reason == entity.ReasonMissingResources:
		p.ShortageTicks++
	default:
		p.ShortageTicks = 0
	}

	s.report.Producers[out.reason.String()]++
	if out.grace {
		s.report.GraceRuns++
	}
	if out.downgraded {
		s.report.Downgrades++
	}
}

// syncRates replaces a building's rate registrations when they changed.
func (s *Scheduler) syncRates(id entity.ID, produce, consume economy.Basket) {
	cur, ok := s.rates[id]
	if ok && cur.produce.Equal(produce) && cur.consume.Equal(consume) {
		return
	}
	s.clearRates(id)
	for _, r := range produce.Keys() {
		s.ledger.RegisterProducer(r, float64(produce[r]))
	}
	for _, r := range consume.Keys() {
		s.ledger.RegisterConsumer(r, float64(consume[r]))
	}
	s.rates[id] = rateEntry{produce: produce.Clone(), consume: consume.Clone()}
}

func (s *Scheduler) clearRates(id entity.ID) {
	cur, ok := s.rates[id]
	if !ok {
		return
	}
	for _, r := range cur.produce.Keys() {
		s.ledger.UnregisterProducer(r, float64(cur.produce[r]))
	}
	for _, r := range cur.consume.Keys() {
		s.ledger.UnregisterConsumer(r, float64(cur.consume[r]))
	}
	delete(s.rates, id)
}
