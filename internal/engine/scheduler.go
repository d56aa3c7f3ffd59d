// Package engine runs the settlement economy: a phased tick scheduler that
// resolves producers and houses against a shared resource pool, and a host
// loop that drives it frame by frame.
package engine

import (
	"errors"
	"log/slog"
	"time"

	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/entity"
)

var (
	// ErrUnknownEntity is returned for commands naming an id that is not placed.
	ErrUnknownEntity = errors.New("engine: unknown entity")
	// ErrMaxStage is returned when upgrading a producer already at its top tier.
	ErrMaxStage = errors.New("engine: already at top tier")
	// ErrLocked is returned when the next tier's research is not unlocked.
	ErrLocked = errors.New("engine: research locked")
)

// Phase is a step of the tick state machine.
type Phase uint8

const (
	PhaseIdle Phase = iota
	PhaseHousesNeeds
	PhaseUpgradesPrepare
	PhaseUpgradesScan
	PhaseUpgradesApply
	PhaseFinish
)

var phaseNames = [...]string{
	PhaseIdle:            "idle",
	PhaseHousesNeeds:     "houses_needs",
	PhaseUpgradesPrepare: "upgrades_prepare",
	PhaseUpgradesScan:    "upgrades_scan",
	PhaseUpgradesApply:   "upgrades_apply",
	PhaseFinish:          "finish",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Settings are the scheduler's tuning knobs.
type Settings struct {
	TickInterval        time.Duration
	HousesPerBatch      int
	UpgradeScanBatch    int
	UpgradesPerStage    int    // per-tick cap for each stage bucket
	DowngradeAfterTicks int    // consecutive shortage ticks before a producer steps down
	WorkersPerResident  uint32 // 0 leaves the worker pool size alone
	ReportEvery         int64  // log a tick summary every N ticks; 0 disables
}

// DefaultSettings returns the knobs used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		TickInterval:        time.Second,
		HousesPerBatch:      16,
		UpgradeScanBatch:    16,
		UpgradesPerStage:    2,
		DowngradeAfterTicks: 1,
		ReportEvery:         60,
	}
}

// normalized clamps knobs that would stall the machine.
func (st Settings) normalized() Settings {
	clamp := func(name string, v *int) {
		if *v < 1 {
			slog.Warn("scheduler knob clamped", "knob", name, "value", *v, "now", 1)
			*v = 1
		}
	}
	clamp("houses_per_batch", &st.HousesPerBatch)
	clamp("upgrade_scan_batch", &st.UpgradeScanBatch)
	clamp("upgrades_per_stage", &st.UpgradesPerStage)
	clamp("downgrade_after_ticks", &st.DowngradeAfterTicks)
	if st.TickInterval <= 0 {
		slog.Warn("scheduler knob clamped", "knob", "tick_interval", "value", st.TickInterval, "now", time.Second)
		st.TickInterval = time.Second
	}
	return st
}

// Deps are the collaborators the scheduler calls into. Env and Research may
// be nil, in which case every building is eligible and every tier unlocked.
type Deps struct {
	Ledger   Ledger
	Workers  Workers
	Env      Environment
	Research Research
}

// Scheduler owns the tick state machine. It is not safe for concurrent use;
// a single driver calls Advance and issues commands between calls.
type Scheduler struct {
	settings Settings
	ledger   Ledger
	workers  Workers
	env      Environment
	research Research

	observers []Observer
	arena     arena
	rates     map[entity.ID]rateEntry

	phase    Phase
	inFlight bool
	accum    time.Duration
	tick     int64 // tick in flight, or the last one completed
	cursor   int

	pool       map[economy.ResourceID]int64
	houseSpend economy.Basket
	surplus    map[economy.ResourceID]float64
	buckets    [entity.MaxHouseStage - 1][]*entity.House

	pending    []command
	report     *TickReport
	last       *TickReport
	population uint32
	mood       float64
}

// New creates an idle scheduler.
func New(settings Settings, deps Deps) *Scheduler {
	s := &Scheduler{
		settings: settings.normalized(),
		ledger:   deps.Ledger,
		workers:  deps.Workers,
		env:      deps.Env,
		research: deps.Research,
		arena:    newArena(),
		rates:    make(map[entity.ID]rateEntry),
	}
	if s.env == nil {
		s.env = allEligible{}
	}
	if s.research == nil {
		s.research = allUnlocked{}
	}
	return s
}

// AddObserver subscribes o to tick notifications.
func (s *Scheduler) AddObserver(o Observer) {
	s.observers = append(s.observers, o)
}

// Advance feeds elapsed host time. When idle and a full interval has
// accumulated a tick starts; while a tick is in flight each call performs
// one phase or one batch.
func (s *Scheduler) Advance(dt time.Duration) {
	if dt > 0 {
		s.accum = min(s.accum+dt, s.settings.TickInterval)
	}
	if s.inFlight {
		s.step()
		return
	}
	if s.accum >= s.settings.TickInterval {
		s.accum -= s.settings.TickInterval
		s.begin()
	}
}

// RunTick completes a tick synchronously, starting one if none is in flight,
// and returns its report.
func (s *Scheduler) RunTick() *TickReport {
	if !s.inFlight {
		s.begin()
	}
	for s.inFlight {
		s.step()
	}
	return s.last
}

// begin performs the Idle→HousesNeeds transition.
func (s *Scheduler) begin() {
	s.inFlight = true
	s.tick++
	s.report = newTickReport(s.tick, s.ledger)
	s.report.Steps = 1

	s.resolveProducers()
	s.seedHouses()
	s.enter(PhaseHousesNeeds)
}

func (s *Scheduler) step() {
	s.report.Steps++
	switch s.phase {
	case PhaseHousesNeeds:
		s.houseNeedsBatch()
	case PhaseUpgradesPrepare:
		s.prepareUpgrades()
	case PhaseUpgradesScan:
		s.scanUpgradesBatch()
	case PhaseUpgradesApply:
		s.applyUpgrades()
	case PhaseFinish:
		s.finish()
	}
}

func (s *Scheduler) enter(next Phase) {
	slog.Debug("economy phase", "tick", s.tick, "from", s.phase, "to", next)
	s.phase = next
	s.cursor = 0
}

// finish clamps the ledger, recomputes derived stats, applies deferred
// commands and returns to idle before notifying observers.
func (s *Scheduler) finish() {
	s.ledger.ApplyCapacityClamp()

	prevPopulation := s.population
	s.population, s.mood = s.houseStats()
	if s.settings.WorkersPerResident > 0 {
		s.workers.Resize(s.population * s.settings.WorkersPerResident)
	}

	s.applyPending()

	r := s.report
	r.Mood = s.mood
	r.Population = s.population
	r.Resources = snapshot(s.ledger)
	s.last, s.report = r, nil
	s.pool, s.houseSpend, s.surplus = nil, nil, nil

	s.enter(PhaseIdle)
	s.inFlight = false

	if s.settings.ReportEvery > 0 && r.Tick%s.settings.ReportEvery == 0 {
		slog.Info("economy tick",
			"tick", r.Tick,
			"active", r.Producers[entity.ReasonActive.String()],
			"houses_met", r.HousesNeedsMet,
			"houses", r.Houses,
			"population", r.Population,
			"mood", r.Mood,
		)
	}

	for _, o := range s.observers {
		o.TickCompleted(r)
	}
	if s.population != prevPopulation {
		for _, o := range s.observers {
			o.PopulationChanged(r.Tick, s.population)
		}
	}
}

// houseStats sums residents and averages mood over standing houses.
func (s *Scheduler) houseStats() (uint32, float64) {
	var pop uint32
	var mood float64
	n := 0
	for _, h := range s.arena.houses {
		if h.Destroyed() {
			continue
		}
		pop += h.Residents()
		mood += h.Mood()
		n++
	}
	if n == 0 {
		return pop, 0
	}
	return pop, mood / float64(n)
}

// Phase returns the current phase.
func (s *Scheduler) Phase() Phase { return s.phase }

// InFlight reports whether a tick is in progress.
func (s *Scheduler) InFlight() bool { return s.inFlight }

// Tick returns the tick in flight, or the last completed tick.
func (s *Scheduler) Tick() int64 { return s.tick }

// SetTick restores the tick counter. Ignored while a tick is in flight.
func (s *Scheduler) SetTick(t int64) {
	if !s.inFlight {
		s.tick = t
	}
}

// Settings returns the normalized knobs in use.
func (s *Scheduler) Settings() Settings { return s.settings }

// Population returns the resident total computed at the last Finish.
func (s *Scheduler) Population() uint32 { return s.population }

// Mood returns the average house mood computed at the last Finish.
func (s *Scheduler) Mood() float64 { return s.mood }

// LastReport returns the most recent completed tick's report, or nil.
func (s *Scheduler) LastReport() *TickReport { return s.last }

// Producers returns the registered producers in registration order.
func (s *Scheduler) Producers() []*entity.Producer {
	return append([]*entity.Producer(nil), s.arena.producers...)
}

// Houses returns the registered houses in registration order.
func (s *Scheduler) Houses() []*entity.House {
	return append([]*entity.House(nil), s.arena.houses...)
}

// Producer looks up a registered producer.
func (s *Scheduler) Producer(id entity.ID) (*entity.Producer, bool) {
	p, ok := s.arena.producerIdx[id]
	return p, ok
}

// House looks up a registered house.
func (s *Scheduler) House(id entity.ID) (*entity.House, bool) {
	h, ok := s.arena.houseIdx[id]
	return h, ok
}

func snapshot(l Ledger) map[economy.ResourceID]int64 {
	ids := l.ResourceIDs()
	out := make(map[economy.ResourceID]int64, len(ids))
	for _, id := range ids {
		out[id] = l.Amount(id)
	}
	return out
}
