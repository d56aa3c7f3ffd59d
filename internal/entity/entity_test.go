package entity

import (
	"testing"

	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/world"
)

func testKind() *ProducerKind {
	return &ProducerKind{
		Name: "bakery",
		Tiers: []Tier{
			{Consumption: economy.Basket{"flour": 2}, Production: economy.Basket{"bread": 4}, Workers: 2},
			{Consumption: economy.Basket{"flour": 4}, Production: economy.Basket{"bread": 9}, Workers: 3, Research: "ovens"},
			{Consumption: economy.Basket{"flour": 6, "salt": 1}, Production: economy.Basket{"bread": 15}, Workers: 4},
		},
		RequiresRoad: true,
	}
}

func TestProducerUpgradeSnapshotsPrevious(t *testing.T) {
	p := NewProducer(1, testKind(), world.HexCoord{}, 1)
	if p.LastUpgradeTick != -1 {
		t.Fatalf("Expected LastUpgradeTick -1, got %d", p.LastUpgradeTick)
	}
	if !p.Upgrade(7) {
		t.Fatal("Upgrade from tier 1 should succeed")
	}
	if p.Stage != 2 || p.Consumption["flour"] != 4 || p.WorkersRequired != 3 {
		t.Errorf("Unexpected tier 2 state: stage=%d flour=%d workers=%d", p.Stage, p.Consumption["flour"], p.WorkersRequired)
	}
	if p.PrevConsumption["flour"] != 2 || p.PrevProduction["bread"] != 4 || p.PrevWorkers != 2 {
		t.Errorf("Previous tier not snapshotted: %v %v %d", p.PrevConsumption, p.PrevProduction, p.PrevWorkers)
	}
	if !p.InGrace(8) {
		t.Error("Tick after upgrade should be the grace tick")
	}
	if p.InGrace(7) || p.InGrace(9) {
		t.Error("Only the tick right after the upgrade is a grace tick")
	}
}

func TestProducerUpgradeAtTopFails(t *testing.T) {
	p := NewProducer(1, testKind(), world.HexCoord{}, 3)
	if p.NextTier() != nil {
		t.Error("Top tier should have no next tier")
	}
	if p.Upgrade(1) {
		t.Error("Upgrade at top tier should fail")
	}
}

func TestProducerDowngradeOneTier(t *testing.T) {
	p := NewProducer(1, testKind(), world.HexCoord{}, 3)
	p.ShortageTicks = 4
	if !p.Downgrade() {
		t.Fatal("Downgrade from tier 3 should succeed")
	}
	if p.Stage != 2 || p.Consumption["flour"] != 4 || p.Consumption["salt"] != 0 {
		t.Errorf("Expected tier 2 maps, got stage=%d consumption=%v", p.Stage, p.Consumption)
	}
	if p.ShortageTicks != 0 {
		t.Errorf("Expected shortage counter reset, got %d", p.ShortageTicks)
	}
	if !p.Downgrade() || p.Stage != 1 {
		t.Fatalf("Expected second downgrade to tier 1, got %d", p.Stage)
	}
	if p.PrevConsumption != nil {
		t.Error("Tier 1 has no previous requirement")
	}
	if p.Downgrade() {
		t.Error("Downgrade at tier 1 should fail")
	}
}

func TestProducerStageClamped(t *testing.T) {
	if p := NewProducer(1, testKind(), world.HexCoord{}, 0); p.Stage != 1 {
		t.Errorf("Stage 0 should clamp to 1, got %d", p.Stage)
	}
	if p := NewProducer(1, testKind(), world.HexCoord{}, 9); p.Stage != 3 {
		t.Errorf("Stage 9 should clamp to 3, got %d", p.Stage)
	}
}

func TestProducerTierMapsAreIndependent(t *testing.T) {
	kind := testKind()
	p := NewProducer(1, kind, world.HexCoord{}, 1)
	p.Consumption["flour"] = 99
	if kind.Tiers[0].Consumption["flour"] != 2 {
		t.Error("Mutating a producer must not change the catalog")
	}
}

func testCatalog() *HouseCatalog {
	return &HouseCatalog{Stages: [MaxHouseStage]HouseStage{
		{Residents: 2, Consumption: economy.Basket{"water": 1}},
		{Residents: 4, Consumption: economy.Basket{"water": 1, "bread": 1}, Services: []Service{ServiceWater}},
		{Residents: 6, Consumption: economy.Basket{"water": 2, "bread": 2}, Services: []Service{ServiceWater, ServiceMarket}, Research: "pottery"},
		{Residents: 8, Consumption: economy.Basket{"water": 2, "bread": 3, "cloth": 1}},
		{Residents: 10, Consumption: economy.Basket{"water": 3, "bread": 3, "cloth": 2}},
	}}
}

func TestHouseUpgradeDelta(t *testing.T) {
	h := NewHouse(1, testCatalog(), world.HexCoord{}, 2)
	delta := h.UpgradeDelta()
	if len(delta) != 2 || delta["water"] != 1 || delta["bread"] != 1 {
		t.Errorf("Unexpected delta %v", delta)
	}
	h.Stage = MaxHouseStage
	if h.Next() != nil || h.UpgradeDelta() != nil {
		t.Error("Top stage has no next stage")
	}
}

func TestHouseMood(t *testing.T) {
	h := NewHouse(1, testCatalog(), world.HexCoord{}, 1)
	tests := []struct {
		met, noise bool
		want       float64
	}{
		{true, false, 100},
		{true, true, 80},
		{false, false, 0},
		{false, true, 0},
	}
	for _, tt := range tests {
		h.NeedsMet, h.InNoise = tt.met, tt.noise
		if got := h.Mood(); got != tt.want {
			t.Errorf("Mood(met=%v, noise=%v) = %v, want %v", tt.met, tt.noise, got, tt.want)
		}
	}
}

func TestServiceSet(t *testing.T) {
	var ss ServiceSet
	ss = ss.With(ServiceWater).With(ServiceTemple)
	if !ss.Has(ServiceWater) || ss.Has(ServiceMarket) {
		t.Errorf("Unexpected set membership: %v", ss.Names())
	}
	if !ss.HasAll(nil) || !ss.HasAll([]Service{ServiceNone, ServiceTemple}) {
		t.Error("HasAll should accept empty and none")
	}
	if ss.HasAll([]Service{ServiceWater, ServiceDoctor}) {
		t.Error("HasAll should fail on missing doctor")
	}
	if got := ss.Names(); len(got) != 2 || got[0] != "water" || got[1] != "temple" {
		t.Errorf("Unexpected names %v", got)
	}
}

func TestParseService(t *testing.T) {
	s, err := ParseService("Bathhouse")
	if err != nil || s != ServiceBathhouse {
		t.Errorf("ParseService(Bathhouse) = %v, %v", s, err)
	}
	if s, err := ParseService(""); err != nil || s != ServiceNone {
		t.Errorf("ParseService(\"\") = %v, %v", s, err)
	}
	if _, err := ParseService("arena"); err == nil {
		t.Error("Expected error for unknown service")
	}
}
