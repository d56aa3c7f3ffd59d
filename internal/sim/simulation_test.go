package sim

import (
	"testing"

	"github.com/talgya/hamlet/internal/config"
	"github.com/talgya/hamlet/internal/entity"
	"github.com/talgya/hamlet/internal/world"
)

func newSeeded(t *testing.T) (*Simulation, config.Config) {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if err := s.Seed(cfg.Scenario); err != nil {
		t.Fatalf("Seed() failed: %v", err)
	}
	return s, cfg
}

func TestScenarioRuns(t *testing.T) {
	s, cfg := newSeeded(t)
	if s.Stats.Producers != len(cfg.Scenario.Producers) || s.Stats.Houses != len(cfg.Scenario.Houses) {
		t.Fatalf("Unexpected stats after seed: %+v", s.Stats)
	}

	for i := 0; i < 5; i++ {
		s.Sched.RunTick()
	}

	if s.Stats.ActiveProds == 0 {
		t.Error("Expected some producers active in the starting village")
	}
	if s.Stats.Population == 0 {
		t.Error("Expected a resident population")
	}
	for _, h := range s.Sched.Houses() {
		if !h.Access.Has(entity.ServiceWater) {
			t.Errorf("House #%d at %s has no water coverage", h.ID, h.Location)
		}
	}
	for id, amount := range s.Ledger.Snapshot() {
		if amount < 0 {
			t.Errorf("Resource %s negative: %d", id, amount)
		}
	}
}

func TestPlaceRejectsTakenSite(t *testing.T) {
	s, _ := newSeeded(t)
	if _, err := s.PlaceHouse(world.HexCoord{Q: 0, R: 1}, 1); err == nil {
		t.Error("Expected error placing on an occupied hex")
	}
	if _, err := s.PlaceHouse(world.HexCoord{Q: 0, R: 0}, 1); err == nil {
		t.Error("Expected error placing on a road")
	}
	if _, err := s.PlaceProducer("castle", world.HexCoord{Q: 0, R: 2}, 1); err == nil {
		t.Error("Expected error for unknown kind")
	}
}

func TestUnclaimedSiteWithdrawsBuilding(t *testing.T) {
	s, _ := newSeeded(t)
	taken := world.HexCoord{Q: 0, R: 1}
	owner, ok := s.Env.OccupiedBy(taken)
	if !ok {
		t.Fatal("Expected a house at (0,1)")
	}
	houses := len(s.Sched.Houses())

	h := s.Sched.PlaceHouse(s.Houses, taken, 1)
	if err := s.claim(h, taken); err == nil {
		t.Fatal("Expected claim on an occupied hex to fail")
	}
	if _, ok := s.Sched.House(h.ID); ok || len(s.Sched.Houses()) != houses {
		t.Error("Expected the house withdrawn from the scheduler")
	}

	s.Sched.Advance(s.Sched.Settings().TickInterval)
	if !s.Sched.InFlight() {
		t.Fatal("Expected a tick in flight")
	}
	p := s.Sched.PlaceProducer(s.Kinds["well"], taken, 1)
	if err := s.claim(p, taken); err == nil {
		t.Fatal("Expected claim on an occupied hex to fail mid-tick")
	}
	s.Sched.RunTick()
	if _, ok := s.Sched.Producer(p.ID); ok {
		t.Error("Expected the deferred producer dropped when the tick ends")
	}
	if id, _ := s.Env.OccupiedBy(taken); id != owner {
		t.Errorf("Expected #%d to keep the hex, got #%d", owner, id)
	}
}

func TestDemolishFreesSite(t *testing.T) {
	s, _ := newSeeded(t)
	site := world.HexCoord{Q: 0, R: 1}
	id, ok := s.Env.OccupiedBy(site)
	if !ok {
		t.Fatal("Expected a house at (0,1)")
	}
	if err := s.Demolish(id); err != nil {
		t.Fatalf("Demolish() failed: %v", err)
	}
	if _, ok := s.Env.OccupiedBy(site); ok {
		t.Error("Expected site freed")
	}
	if _, err := s.PlaceHouse(site, 1); err != nil {
		t.Errorf("Expected rebuild to succeed: %v", err)
	}
	if len(s.DrainEvents()) == 0 {
		t.Error("Expected build events recorded")
	}
	if len(s.Events) != 0 {
		t.Error("Drain should clear events")
	}
}

func TestCaptureRestoreRoundTrip(t *testing.T) {
	s, cfg := newSeeded(t)
	for i := 0; i < 4; i++ {
		s.Sched.RunTick()
	}
	houses := s.Sched.Houses()
	houses[0].Reserved = true
	producers := s.Sched.Producers()
	if err := s.Sched.SetPaused(producers[0].ID, true); err != nil {
		t.Fatal(err)
	}

	st, err := s.Capture()
	if err != nil {
		t.Fatalf("Capture() failed: %v", err)
	}

	restored, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := restored.Restore(st); err != nil {
		t.Fatalf("Restore() failed: %v", err)
	}

	if restored.RunID != s.RunID || restored.Sched.Tick() != s.Sched.Tick() {
		t.Errorf("Run/tick mismatch: %s/%d vs %s/%d", restored.RunID, restored.Sched.Tick(), s.RunID, s.Sched.Tick())
	}
	for id, v := range s.Ledger.Snapshot() {
		if restored.Ledger.Amount(id) != v {
			t.Errorf("Resource %s mismatch: %d vs %d", id, restored.Ledger.Amount(id), v)
		}
	}
	rh := restored.Sched.Houses()
	if len(rh) != len(houses) || !rh[0].Reserved || rh[0].Stage != houses[0].Stage {
		t.Errorf("House state not restored: %+v", rh[0])
	}
	rp, ok := restored.Sched.Producer(producers[0].ID)
	if !ok || !rp.Paused || rp.Stage != producers[0].Stage {
		t.Errorf("Producer state not restored: %+v", rp)
	}

	// Fresh ids must not collide with restored ones.
	h, err := restored.PlaceHouse(world.HexCoord{Q: 0, R: 2}, 1)
	if err != nil {
		t.Fatalf("PlaceHouse() failed: %v", err)
	}
	if _, ok := restored.Sched.Producer(h.ID); ok {
		t.Errorf("New house id %d collides with a producer", h.ID)
	}
}
