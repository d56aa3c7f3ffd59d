package engine

import (
	"github.com/talgya/hamlet/internal/economy"
	"github.com/talgya/hamlet/internal/entity"
)

// Ledger is the resource store the scheduler reads from and writes back to.
// *economy.Ledger satisfies it.
type Ledger interface {
	Amount(id economy.ResourceID) int64
	ResourceIDs() []economy.ResourceID
	SpendBulk(spend economy.Basket) error
	AddBulk(add economy.Basket) error
	RegisterProducer(id economy.ResourceID, rate float64)
	UnregisterProducer(id economy.ResourceID, rate float64)
	RegisterConsumer(id economy.ResourceID, rate float64)
	UnregisterConsumer(id economy.ResourceID, rate float64)
	ProductionRate(id economy.ResourceID) float64
	ConsumptionRate(id economy.ResourceID) float64
	ApplyCapacityClamp()
}

// Workers is the shared worker allocation service. *economy.WorkerPool
// satisfies it.
type Workers interface {
	TryAllocate(holder uint64, n uint32) bool
	Release(holder uint64)
	Assigned(holder uint64) (uint32, bool)
	Free() uint32
	Resize(total uint32) uint32
}

// Environment judges road access and adjacency for a building.
type Environment interface {
	IsEligible(b entity.Building) bool
}

// Research gates tiers behind unlocks.
type Research interface {
	IsUnlocked(id string) bool
}

// Observer is notified at the end of every tick.
type Observer interface {
	TickCompleted(r *TickReport)
	PopulationChanged(tick int64, population uint32)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnTick       func(r *TickReport)
	OnPopulation func(tick int64, population uint32)
}

func (o ObserverFuncs) TickCompleted(r *TickReport) {
	if o.OnTick != nil {
		o.OnTick(r)
	}
}

func (o ObserverFuncs) PopulationChanged(tick int64, population uint32) {
	if o.OnPopulation != nil {
		o.OnPopulation(tick, population)
	}
}

// allEligible is used when no environment is wired.
type allEligible struct{}

func (allEligible) IsEligible(entity.Building) bool { return true }

// allUnlocked is used when no research registry is wired.
type allUnlocked struct{}

func (allUnlocked) IsUnlocked(string) bool { return true }
