package entity

import (
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/world"
)

// HouseStage describes one house tier. Consumption is cumulative: the full
// basket a house at this stage draws each tick.
type HouseStage struct {
	Residents   uint32
	Consumption economy.Basket
	Services    []Service // required to upgrade into this stage
	Research    string    // unlock required to upgrade into this stage
}

// HouseCatalog holds the five house stages.
type HouseCatalog struct {
	Stages [MaxHouseStage]HouseStage
}

// House is a population unit that consumes a tiered basket every tick.
type House struct {
	ID       ID
	Catalog  *HouseCatalog
	Location world.HexCoord

	Stage uint8 // 1..MaxHouseStage

	// Reserved is set by the upgrade scan and cleared only when the upgrade
	// is committed.
	Reserved bool
	NeedsMet bool

	MissingResources []economy.ResourceID

	Access  ServiceSet
	InNoise bool

	destroyed bool
}

// NewHouse places a house at the given stage (clamped to 1..5).
func NewHouse(id ID, catalog *HouseCatalog, at world.HexCoord, stage uint8) *House {
	stage = max(stage, 1)
	stage = min(stage, MaxHouseStage)
	return &House{
		ID:       id,
		Catalog:  catalog,
		Location: at,
		Stage:    stage,
	}
}

// Consumption returns the basket drawn at the current stage.
func (h *House) Consumption() economy.Basket {
	return h.Catalog.Stages[h.Stage-1].Consumption
}

// Residents returns the population living here at the current stage.
func (h *House) Residents() uint32 {
	return h.Catalog.Stages[h.Stage-1].Residents
}

// Next returns the stage an upgrade would move to, or nil at the top.
func (h *House) Next() *HouseStage {
	if h.Stage >= MaxHouseStage {
		return nil
	}
	return &h.Catalog.Stages[h.Stage]
}

// UpgradeDelta is the incremental consumption the next stage adds.
func (h *House) UpgradeDelta() economy.Basket {
	next := h.Next()
	if next == nil {
		return nil
	}
	return h.Consumption().Delta(next.Consumption)
}

// Mood scores the house 0..100: satisfied needs count fully, noise costs 20.
func (h *House) Mood() float64 {
	mood := 0.0
	if h.NeedsMet {
		mood = 100
	}
	if h.InNoise {
		mood -= 20
	}
	return max(mood, 0)
}

// MarkDestroyed flags the house as demolished. In-flight batches skip it.
func (h *House) MarkDestroyed() { h.destroyed = true }

// Destroyed reports whether the house has been demolished.
func (h *House) Destroyed() bool { return h.destroyed }

func (h *House) EntityID() ID                 { return h.ID }
func (h *House) Site() world.HexCoord         { return h.Location }
func (h *House) NeedsRoad() bool              { return true }
func (h *House) NearTerrain() []world.Terrain { return nil }
