package sim

import (
	"errors"
	"fmt"

	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/entity"
	"github.com/talgya/hamlet/internal/world"
)

// ErrInFlight is returned when capturing or restoring mid-tick.
var ErrInFlight = errors.New("sim: tick in flight")

// State is everything a save round-trips.
type State struct {
	RunID       string
	Tick        int64
	WorkerTotal uint32
	Resources   map[economy.ResourceID]int64
	Research    []string
	Producers   []ProducerState
	Houses      []HouseState
}

// ProducerState is the persisted part of a producer.
type ProducerState struct {
	ID              uint64
	Kind            string
	At              world.HexCoord
	Stage           uint8
	Paused          bool
	LastUpgradeTick int64
	ShortageTicks   int
}

// HouseState is the persisted part of a house.
type HouseState struct {
	ID       uint64
	At       world.HexCoord
	Stage    uint8
	Reserved bool
}

// Capture snapshots the economy between ticks.
func (s *Simulation) Capture() (*State, error) {
	if s.Sched.InFlight() {
		return nil, ErrInFlight
	}
	st := &State{
		RunID:       s.RunID,
		Tick:        s.Sched.Tick(),
		WorkerTotal: s.Workers.Total(),
		Resources:   s.Ledger.Snapshot(),
		Research:    s.Research.Unlocked(),
	}
	for _, p := range s.Sched.Producers() {
		if p.Destroyed() {
			continue
		}
		st.Producers = append(st.Producers, ProducerState{
			ID:              uint64(p.ID),
			Kind:            p.Kind.Name,
			At:              p.Location,
			Stage:           p.Stage,
			Paused:          p.Paused,
			LastUpgradeTick: p.LastUpgradeTick,
			ShortageTicks:   p.ShortageTicks,
		})
	}
	for _, h := range s.Sched.Houses() {
		if h.Destroyed() {
			continue
		}
		st.Houses = append(st.Houses, HouseState{
			ID:       uint64(h.ID),
			At:       h.Location,
			Stage:    h.Stage,
			Reserved: h.Reserved,
		})
	}
	return st, nil
}

// Restore loads a saved state into a freshly built, empty simulation.
func (s *Simulation) Restore(st *State) error {
	if s.Sched.InFlight() {
		return ErrInFlight
	}
	if st.RunID != "" {
		s.RunID = st.RunID
	}
	for id, amount := range st.Resources {
		if err := s.Ledger.SetAmount(id, amount); err != nil {
			return fmt.Errorf("restore resource: %w", err)
		}
	}
	s.Workers.Resize(st.WorkerTotal)
	for _, id := range st.Research {
		s.Research.Unlock(id)
	}

	for _, ps := range st.Producers {
		kind, ok := s.Kinds[ps.Kind]
		if !ok {
			return fmt.Errorf("restore producer #%d: unknown kind %q", ps.ID, ps.Kind)
		}
		p := entity.NewProducer(entity.ID(ps.ID), kind, ps.At, ps.Stage)
		p.Paused = ps.Paused
		p.LastUpgradeTick = ps.LastUpgradeTick
		p.ShortageTicks = ps.ShortageTicks
		if err := s.Env.Occupy(ps.At, p.ID); err != nil {
			return fmt.Errorf("restore producer #%d: %w", ps.ID, err)
		}
		if err := s.Sched.AdoptProducer(p); err != nil {
			return err
		}
	}
	for _, hs := range st.Houses {
		h := entity.NewHouse(entity.ID(hs.ID), s.Houses, hs.At, hs.Stage)
		h.Reserved = hs.Reserved
		if err := s.Env.Occupy(hs.At, h.ID); err != nil {
			return fmt.Errorf("restore house #%d: %w", hs.ID, err)
		}
		if err := s.Sched.AdoptHouse(h); err != nil {
			return err
		}
	}

	s.Sched.SetTick(st.Tick)
	s.refresh()
	return nil
}
