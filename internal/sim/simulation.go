// Package sim ties the economy together: map, placement, ledger, workers,
// research and the scheduler, built from configuration.
package sim

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/entity"
	"github.com/talgya/hamlet/internal/placement"
	"github.com/talgya/hamlet/internal/research"
	"github.com/talgya/hamlet/internal/world"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// Simulation holds the complete economy state and wires systems together.
type Simulation struct {
	RunID    string
	WorldMap *world.Map
	Env      *placement.Environment
	Ledger   *economy.Ledger
	Workers  *economy.WorkerPool
	Research *research.Registry
	Sched    *engine.Scheduler

	Kinds  map[string]*entity.ProducerKind
	Houses *entity.HouseCatalog

	Events []Event // Recorded since the last drain, oldest first

	// Statistics refreshed after every tick.
	Stats SimStats
}

// Event is a notable occurrence in the economy.
type Event struct {
	Tick        int64  `json:"tick"`
	Description string `json:"description"`
	Category    string `json:"category"` // "upgrade", "downgrade", "population", "build", etc.
}

// SimStats tracks aggregate economy statistics.
type SimStats struct {
	Population     uint32  `json:"population"`
	AvgMood        float64 `json:"avg_mood"`
	Producers      int     `json:"producers"`
	ActiveProds    int     `json:"active_producers"`
	Houses         int     `json:"houses"`
	HousesNeedsMet int     `json:"houses_needs_met"`
	WorkersFree    uint32  `json:"workers_free"`
	WorkersTotal   uint32  `json:"workers_total"`
}

// New builds an empty economy from configuration: the map is generated and
// roads laid, but no buildings are placed.
func New(cfg config.Config) (*Simulation, error) {
	gen, err := cfg.GenConfig()
	if err != nil {
		return nil, err
	}
	kinds, err := cfg.BuildProducerKinds()
	if err != nil {
		return nil, err
	}
	houses, err := cfg.BuildHouseCatalog()
	if err != nil {
		return nil, err
	}

	m := world.Generate(gen)
	env := placement.NewEnvironment(m)
	for _, road := range cfg.Scenario.Roads {
		laid := env.LayLine(road.From, road.Direction, road.Length)
		if laid < road.Length {
			slog.Warn("road partly laid", "from", road.From, "want", road.Length, "laid", laid)
		}
	}

	s := &Simulation{
		RunID:    uuid.NewString(),
		WorldMap: m,
		Env:      env,
		Ledger:   cfg.BuildLedger(),
		Workers:  economy.NewWorkerPool(cfg.Workers.Total),
		Research: research.NewRegistry(cfg.Research.Unlocked...),
		Kinds:    kinds,
		Houses:   houses,
	}
	s.Sched = engine.New(cfg.SchedulerSettings(), engine.Deps{
		Ledger:   s.Ledger,
		Workers:  s.Workers,
		Env:      env,
		Research: s.Research,
	})
	s.Sched.AddObserver(engine.ObserverFuncs{
		OnTick:       s.onTick,
		OnPopulation: s.onPopulation,
	})
	return s, nil
}

// Seed places the configured starting buildings.
func (s *Simulation) Seed(sc config.ScenarioConfig) error {
	for _, p := range sc.Producers {
		if _, err := s.PlaceProducer(p.Kind, p.At, p.Stage); err != nil {
			return fmt.Errorf("seed producer %s: %w", p.Kind, err)
		}
	}
	for _, h := range sc.Houses {
		if _, err := s.PlaceHouse(h.At, h.Stage); err != nil {
			return fmt.Errorf("seed house: %w", err)
		}
	}
	s.refresh()
	slog.Info("scenario placed",
		"producers", len(sc.Producers),
		"houses", len(sc.Houses),
		"roads", len(s.Env.Roads()),
	)
	return nil
}

// PlaceProducer builds a producer of the named kind on a free hex.
func (s *Simulation) PlaceProducer(kind string, at world.HexCoord, stage uint8) (*entity.Producer, error) {
	k, ok := s.Kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown producer kind %q", kind)
	}
	if err := s.Env.CheckSite(at); err != nil {
		return nil, err
	}
	p := s.Sched.PlaceProducer(k, at, stage)
	if err := s.claim(p, at); err != nil {
		return nil, err
	}
	s.record(s.Sched.Tick(), "build", fmt.Sprintf("%s #%d placed at %s", kind, p.ID, at))
	return p, nil
}

// PlaceHouse builds a house on a free hex.
func (s *Simulation) PlaceHouse(at world.HexCoord, stage uint8) (*entity.House, error) {
	if err := s.Env.CheckSite(at); err != nil {
		return nil, err
	}
	h := s.Sched.PlaceHouse(s.Houses, at, stage)
	if err := s.claim(h, at); err != nil {
		return nil, err
	}
	s.record(s.Sched.Tick(), "build", fmt.Sprintf("house #%d placed at %s", h.ID, at))
	return h, nil
}

type placed interface {
	EntityID() entity.ID
	MarkDestroyed()
}

// claim occupies at for a building just handed to the scheduler. When the
// hex cannot be taken the building is withdrawn again.
func (s *Simulation) claim(b placed, at world.HexCoord) error {
	if err := s.Env.Occupy(at, b.EntityID()); err != nil {
		b.MarkDestroyed()
		if !s.Sched.InFlight() {
			_ = s.Sched.Demolish(b.EntityID())
		}
		return err
	}
	return nil
}

// Demolish removes a building and frees its hex.
func (s *Simulation) Demolish(id entity.ID) error {
	var site world.HexCoord
	if p, ok := s.Sched.Producer(id); ok {
		site = p.Location
	} else if h, ok := s.Sched.House(id); ok {
		site = h.Location
	}
	if err := s.Sched.Demolish(id); err != nil {
		return err
	}
	s.Env.Vacate(site, id)
	s.record(s.Sched.Tick(), "build", fmt.Sprintf("#%d demolished", id))
	return nil
}

func (s *Simulation) onTick(r *engine.TickReport) {
	s.refresh()
	if r.Downgrades > 0 {
		s.record(r.Tick, "downgrade", fmt.Sprintf("%d producer(s) stepped down a tier", r.Downgrades))
	}
	if n := r.UpgradesTotal(); n > 0 {
		s.record(r.Tick, "upgrade", fmt.Sprintf("%d house(s) upgraded", n))
	}
}

func (s *Simulation) onPopulation(tick int64, population uint32) {
	s.record(tick, "population", fmt.Sprintf("population now %d", population))
}

// refresh recomputes coverage and statistics between ticks.
func (s *Simulation) refresh() {
	producers := s.Sched.Producers()
	houses := s.Sched.Houses()
	placement.RefreshCoverage(producers, houses)
	s.updateStats(producers, houses)
}

func (s *Simulation) updateStats(producers []*entity.Producer, houses []*entity.House) {
	st := SimStats{
		Population:   s.Sched.Population(),
		AvgMood:      s.Sched.Mood(),
		Producers:    len(producers),
		Houses:       len(houses),
		WorkersFree:  s.Workers.Free(),
		WorkersTotal: s.Workers.Total(),
	}
	for _, p := range producers {
		if p.Active {
			st.ActiveProds++
		}
	}
	for _, h := range houses {
		if h.NeedsMet {
			st.HousesNeedsMet++
		}
	}
	s.Stats = st
}

func (s *Simulation) record(tick int64, category, desc string) {
	s.Events = append(s.Events, Event{Tick: tick, Description: desc, Category: category})
	// Trim old events to prevent unbounded growth.
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
}

// DrainEvents returns and clears the events recorded since the last drain.
func (s *Simulation) DrainEvents() []Event {
	out := s.Events
	s.Events = nil
	return out
}
