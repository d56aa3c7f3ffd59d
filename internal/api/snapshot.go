package api

import (
	"sync"

	"github.com/talgya/hamlet/internal/engine"
	"github.com/talgya/hamlet/internal/sim"
	"github.com/talgya/hamlet/internal/world"
)

const snapshotEvents = 50

// Snapshot is a read-only copy of economy state taken between ticks on the
// engine goroutine. Handlers only ever read snapshots.
type Snapshot struct {
	RunID     string             `json:"run_id"`
	Tick      int64              `json:"tick"`
	SimTime   string             `json:"sim_time"`
	Phase     string             `json:"phase"`
	Speed     float64            `json:"speed"`
	Stats     sim.SimStats       `json:"stats"`
	Research  []string           `json:"research"`
	Resources []resourceView     `json:"resources"`
	Producers []producerView     `json:"producers"`
	Houses    []houseView        `json:"houses"`
	Map       []hexView          `json:"-"`
	Events    []sim.Event        `json:"-"` // newest first
	Report    *engine.TickReport `json:"-"`
}

type hexView struct {
	Q        int     `json:"q"`
	R        int     `json:"r"`
	Terrain  string  `json:"terrain"`
	Road     bool    `json:"road,omitempty"`
	Building *uint64 `json:"building,omitempty"`
}

type resourceView struct {
	ID        string  `json:"id"`
	Amount    int64   `json:"amount"`
	Capacity  *int64  `json:"capacity,omitempty"`
	Producing float64 `json:"producing"`
	Consuming float64 `json:"consuming"`
}

type producerView struct {
	ID       uint64         `json:"id"`
	Kind     string         `json:"kind"`
	At       world.HexCoord `json:"at"`
	Stage    uint8          `json:"stage"`
	Tiers    int            `json:"tiers"`
	Active   bool           `json:"active"`
	Paused   bool           `json:"paused"`
	Reason   string         `json:"reason"`
	Missing  []string       `json:"missing,omitempty"`
	Workers  uint32         `json:"workers"`
	Shortage int            `json:"shortage_ticks"`
}

type houseView struct {
	ID        uint64         `json:"id"`
	At        world.HexCoord `json:"at"`
	Stage     uint8          `json:"stage"`
	Residents uint32         `json:"residents"`
	NeedsMet  bool           `json:"needs_met"`
	Reserved  bool           `json:"reserved"`
	Mood      float64        `json:"mood"`
	Services  []string       `json:"services"`
	Missing   []string       `json:"missing,omitempty"`
	InNoise   bool           `json:"in_noise"`
}

// capture builds a snapshot. Call only from the engine goroutine or
// before the engine starts.
func capture(s *sim.Simulation, speed float64) *Snapshot {
	snap := &Snapshot{
		RunID:    s.RunID,
		Tick:     s.Sched.Tick(),
		SimTime:  engine.SimTime(s.Sched.Tick()),
		Phase:    s.Sched.Phase().String(),
		Speed:    speed,
		Stats:    s.Stats,
		Research: s.Research.Unlocked(),
		Report:   s.Sched.LastReport(),
	}

	for _, id := range s.Ledger.ResourceIDs() {
		rv := resourceView{
			ID:        string(id),
			Amount:    s.Ledger.Amount(id),
			Producing: s.Ledger.ProductionRate(id),
			Consuming: s.Ledger.ConsumptionRate(id),
		}
		if c, ok := s.Ledger.Capacity(id); ok {
			rv.Capacity = &c
		}
		snap.Resources = append(snap.Resources, rv)
	}

	for _, p := range s.Sched.Producers() {
		if p.Destroyed() {
			continue
		}
		pv := producerView{
			ID:       uint64(p.ID),
			Kind:     p.Kind.Name,
			At:       p.Location,
			Stage:    p.Stage,
			Tiers:    len(p.Kind.Tiers),
			Active:   p.Active,
			Paused:   p.Paused,
			Reason:   p.Reason.String(),
			Workers:  p.WorkersRequired,
			Shortage: p.ShortageTicks,
		}
		for _, id := range p.MissingResources {
			pv.Missing = append(pv.Missing, string(id))
		}
		snap.Producers = append(snap.Producers, pv)
	}

	for _, h := range s.Sched.Houses() {
		if h.Destroyed() {
			continue
		}
		hv := houseView{
			ID:        uint64(h.ID),
			At:        h.Location,
			Stage:     h.Stage,
			Residents: h.Residents(),
			NeedsMet:  h.NeedsMet,
			Reserved:  h.Reserved,
			Mood:      h.Mood(),
			Services:  h.Access.Names(),
			InNoise:   h.InNoise,
		}
		for _, id := range h.MissingResources {
			hv.Missing = append(hv.Missing, string(id))
		}
		snap.Houses = append(snap.Houses, hv)
	}

	for _, c := range s.WorldMap.Coords() {
		hv := hexView{Q: c.Q, R: c.R, Terrain: s.WorldMap.Get(c).Terrain.String(), Road: s.Env.HasRoad(c)}
		if id, ok := s.Env.OccupiedBy(c); ok {
			b := uint64(id)
			hv.Building = &b
		}
		snap.Map = append(snap.Map, hv)
	}

	n := len(s.Events)
	for i := n - 1; i >= 0 && n-i <= snapshotEvents; i-- {
		snap.Events = append(snap.Events, s.Events[i])
	}
	return snap
}

// store holds the latest snapshot and a ring of recent tick reports.
type store struct {
	mu      sync.RWMutex
	latest  *Snapshot
	history []*engine.TickReport
	limit   int
}

func newStore(limit int) *store {
	return &store{limit: limit}
}

func (st *store) set(snap *Snapshot) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.latest = snap
}

func (st *store) push(r *engine.TickReport) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.history = append(st.history, r)
	if len(st.history) > st.limit {
		st.history = st.history[len(st.history)-st.limit:]
	}
}

func (st *store) get() *Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.latest
}

// recent returns up to n reports, newest first.
func (st *store) recent(n int) []*engine.TickReport {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*engine.TickReport, 0, n)
	for i := len(st.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, st.history[i])
	}
	return out
}
