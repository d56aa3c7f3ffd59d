package entity

import (
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/world"
)

// Tier is one upgrade level of a producer kind.
type Tier struct {
	Consumption economy.Basket
	Production  economy.Basket
	Workers     uint32
	Research    string // unlock required to reach this tier; "" = none
}

// ProducerKind is the catalog entry shared by every producer of one type.
type ProducerKind struct {
	Name          string
	Tiers         []Tier
	RequiresRoad  bool
	NearTerrain   []world.Terrain
	Service       Service
	ServiceRadius int
	Noisy         bool
}

// Producer is a placed building that turns inputs into outputs each tick.
type Producer struct {
	ID       ID
	Kind     *ProducerKind
	Location world.HexCoord

	Stage           uint8 // 1-based tier
	Consumption     economy.Basket
	Production      economy.Basket
	WorkersRequired uint32

	Paused bool
	Active bool
	Reason InactiveReason

	// MissingResources lists, in declared-key order, the resource that
	// blocked the last resolution. Cleared every tick.
	MissingResources []economy.ResourceID

	// LastUpgradeTick is the tick whose end committed the last upgrade, -1 if never.
	LastUpgradeTick int64
	PrevConsumption economy.Basket
	PrevProduction  economy.Basket
	PrevWorkers     uint32

	// ShortageTicks counts consecutive ticks lost to missing resources.
	ShortageTicks int
	// RanOnGrace is set when the last tick ran on the pre-upgrade requirement.
	RanOnGrace bool

	destroyed bool
}

// NewProducer builds a producer at the given tier. Stages outside the
// catalog are clamped.
func NewProducer(id ID, kind *ProducerKind, at world.HexCoord, stage uint8) *Producer {
	p := &Producer{
		ID:              id,
		Kind:            kind,
		Location:        at,
		LastUpgradeTick: -1,
		Reason:          ReasonUnresolved,
	}
	stage = max(stage, 1)
	stage = min(stage, uint8(len(kind.Tiers)))
	p.loadTier(stage)
	if stage > 1 {
		prev := kind.Tiers[stage-2]
		p.PrevConsumption = prev.Consumption.Clone()
		p.PrevProduction = prev.Production.Clone()
		p.PrevWorkers = prev.Workers
	}
	return p
}

func (p *Producer) loadTier(stage uint8) {
	t := p.Kind.Tiers[stage-1]
	p.Stage = stage
	p.Consumption = t.Consumption.Clone()
	p.Production = t.Production.Clone()
	p.WorkersRequired = t.Workers
}

// NextTier returns the tier an upgrade would move to, or nil at the top.
func (p *Producer) NextTier() *Tier {
	if int(p.Stage) >= len(p.Kind.Tiers) {
		return nil
	}
	return &p.Kind.Tiers[p.Stage]
}

// Upgrade moves one tier up, snapshotting the current requirement for the
// one-tick grace fallback. Reports false at the top tier.
func (p *Producer) Upgrade(tick int64) bool {
	if p.NextTier() == nil {
		return false
	}
	p.PrevConsumption = p.Consumption.Clone()
	p.PrevProduction = p.Production.Clone()
	p.PrevWorkers = p.WorkersRequired
	p.loadTier(p.Stage + 1)
	p.LastUpgradeTick = tick
	p.ShortageTicks = 0
	return true
}

// Downgrade steps exactly one tier down, restoring the previous tier's maps.
// Reports false at tier 1.
func (p *Producer) Downgrade() bool {
	if p.Stage <= 1 {
		return false
	}
	p.loadTier(p.Stage - 1)
	if p.Stage > 1 {
		prev := p.Kind.Tiers[p.Stage-2]
		p.PrevConsumption = prev.Consumption.Clone()
		p.PrevProduction = prev.Production.Clone()
		p.PrevWorkers = prev.Workers
	} else {
		p.PrevConsumption, p.PrevProduction, p.PrevWorkers = nil, nil, 0
	}
	p.LastUpgradeTick = -1
	p.ShortageTicks = 0
	return true
}

// InGrace reports whether tick is the single grace tick after an upgrade.
func (p *Producer) InGrace(tick int64) bool {
	return p.Stage > 1 && p.LastUpgradeTick >= 0 && tick == p.LastUpgradeTick+1
}

// MarkDestroyed flags the producer as demolished. In-flight batches skip it.
func (p *Producer) MarkDestroyed() { p.destroyed = true }

// Destroyed reports whether the producer has been demolished.
func (p *Producer) Destroyed() bool { return p.destroyed }

func (p *Producer) EntityID() ID                 { return p.ID }
func (p *Producer) Site() world.HexCoord         { return p.Location }
func (p *Producer) NeedsRoad() bool              { return p.Kind.RequiresRoad }
func (p *Producer) NearTerrain() []world.Terrain { return p.Kind.NearTerrain }
