package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/hamlet/internal/entity"
	"github.com/talgya/hamlet/internal/world"
)

// arena holds every placed building under a stable id. The slices keep
// registration order; removals only happen between ticks.
type arena struct {
	nextID      entity.ID
	producers   []*entity.Producer
	houses      []*entity.House
	producerIdx map[entity.ID]*entity.Producer
	houseIdx    map[entity.ID]*entity.House
}

func newArena() arena {
	return arena{
		nextID:      1,
		producerIdx: make(map[entity.ID]*entity.Producer),
		houseIdx:    make(map[entity.ID]*entity.House),
	}
}

func (a *arena) allocID() entity.ID {
	id := a.nextID
	a.nextID++
	return id
}

// reserveID keeps fresh ids above one that was restored from a save.
func (a *arena) reserveID(id entity.ID) {
	if id >= a.nextID {
		a.nextID = id + 1
	}
}

func (a *arena) contains(id entity.ID) bool {
	_, p := a.producerIdx[id]
	_, h := a.houseIdx[id]
	return p || h
}

func (a *arena) addProducer(p *entity.Producer) {
	a.producers = append(a.producers, p)
	a.producerIdx[p.ID] = p
}

func (a *arena) addHouse(h *entity.House) {
	a.houses = append(a.houses, h)
	a.houseIdx[h.ID] = h
}

// sweep drops destroyed buildings, returning them so the caller can release
// what they hold.
func (a *arena) sweep() (gone []entity.ID) {
	keptP := a.producers[:0]
	for _, p := range a.producers {
		if p.Destroyed() {
			delete(a.producerIdx, p.ID)
			gone = append(gone, p.ID)
			continue
		}
		keptP = append(keptP, p)
	}
	a.producers = keptP

	keptH := a.houses[:0]
	for _, h := range a.houses {
		if h.Destroyed() {
			delete(a.houseIdx, h.ID)
			gone = append(gone, h.ID)
			continue
		}
		keptH = append(keptH, h)
	}
	a.houses = keptH
	return gone
}

// command is a structural change held back until the tick in flight ends.
type command func(s *Scheduler)

// schedule runs c now when idle, otherwise at the end of the tick in flight.
func (s *Scheduler) schedule(c command) {
	if s.inFlight {
		s.pending = append(s.pending, c)
		return
	}
	c(s)
}

func (s *Scheduler) applyPending() {
	pending := s.pending
	s.pending = nil
	for _, c := range pending {
		c(s)
	}
	s.removeDestroyed()
}

func (s *Scheduler) removeDestroyed() {
	for _, id := range s.arena.sweep() {
		s.workers.Release(uint64(id))
		s.clearRates(id)
	}
}

// PlaceProducer creates a producer under a fresh id and registers it.
func (s *Scheduler) PlaceProducer(kind *entity.ProducerKind, at world.HexCoord, stage uint8) *entity.Producer {
	p := entity.NewProducer(s.arena.allocID(), kind, at, stage)
	s.schedule(func(s *Scheduler) { s.arena.addProducer(p) })
	return p
}

// PlaceHouse creates a house under a fresh id and registers it. Its
// consumption is registered with the ledger at once.
func (s *Scheduler) PlaceHouse(catalog *entity.HouseCatalog, at world.HexCoord, stage uint8) *entity.House {
	h := entity.NewHouse(s.arena.allocID(), catalog, at, stage)
	s.schedule(func(s *Scheduler) { s.registerHouse(h) })
	return h
}

// AdoptProducer registers a producer built elsewhere, keeping its id.
func (s *Scheduler) AdoptProducer(p *entity.Producer) error {
	if s.arena.contains(p.ID) {
		return fmt.Errorf("adopt producer #%d: id in use", p.ID)
	}
	s.arena.reserveID(p.ID)
	s.schedule(func(s *Scheduler) { s.arena.addProducer(p) })
	return nil
}

// AdoptHouse registers a house built elsewhere, keeping its id.
func (s *Scheduler) AdoptHouse(h *entity.House) error {
	if s.arena.contains(h.ID) {
		return fmt.Errorf("adopt house #%d: id in use", h.ID)
	}
	s.arena.reserveID(h.ID)
	s.schedule(func(s *Scheduler) { s.registerHouse(h) })
	return nil
}

func (s *Scheduler) registerHouse(h *entity.House) {
	s.arena.addHouse(h)
	s.syncRates(h.ID, nil, h.Consumption())
}

// Demolish marks a building destroyed at once so batches in flight skip it.
// Its workers and rate registrations are released between ticks.
func (s *Scheduler) Demolish(id entity.ID) error {
	if p, ok := s.arena.producerIdx[id]; ok {
		p.MarkDestroyed()
	} else if h, ok := s.arena.houseIdx[id]; ok {
		h.MarkDestroyed()
	} else {
		return fmt.Errorf("demolish #%d: %w", id, ErrUnknownEntity)
	}
	if !s.inFlight {
		s.removeDestroyed()
	}
	return nil
}

// SetPaused pauses or resumes a producer from the next tick on.
func (s *Scheduler) SetPaused(id entity.ID, paused bool) error {
	p, ok := s.arena.producerIdx[id]
	if !ok {
		return fmt.Errorf("pause #%d: %w", id, ErrUnknownEntity)
	}
	s.schedule(func(*Scheduler) { p.Paused = paused })
	return nil
}

// UpgradeProducer moves a producer one tier up at the end of the current
// tick, or at once when idle. The tick after the upgrade is its grace tick.
func (s *Scheduler) UpgradeProducer(id entity.ID) error {
	p, ok := s.arena.producerIdx[id]
	if !ok || p.Destroyed() {
		return fmt.Errorf("upgrade #%d: %w", id, ErrUnknownEntity)
	}
	next := p.NextTier()
	if next == nil {
		return fmt.Errorf("upgrade #%d: %w", id, ErrMaxStage)
	}
	if !s.research.IsUnlocked(next.Research) {
		return fmt.Errorf("upgrade #%d needs %q: %w", id, next.Research, ErrLocked)
	}
	s.schedule(func(s *Scheduler) {
		if p.Destroyed() || !p.Upgrade(s.tick) {
			return
		}
		if p.Active {
			s.syncRates(p.ID, p.Production, p.Consumption)
		}
		slog.Debug("producer upgraded", "id", p.ID, "kind", p.Kind.Name, "stage", p.Stage, "tick", s.tick)
	})
	return nil
}
