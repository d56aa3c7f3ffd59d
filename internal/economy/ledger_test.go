package economy

import (
	"errors"
	"testing"
)

func newTestLedger() *Ledger {
	l := NewLedger()
	l.Define("wood", 10, 50)
	l.Define("stone", 5, 0)
	l.Define("bread", 0, 20)
	return l
}

func TestResourceIDsSorted(t *testing.T) {
	l := newTestLedger()
	ids := l.ResourceIDs()
	want := []ResourceID{"bread", "stone", "wood"}
	if len(ids) != len(want) {
		t.Fatalf("Expected %d ids, got %d", len(want), len(ids))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestSpendBulkAllOrNothing(t *testing.T) {
	l := newTestLedger()

	err := l.SpendBulk(Basket{"wood": 4, "stone": 6})
	if !errors.Is(err, ErrInsufficient) {
		t.Fatalf("Expected ErrInsufficient, got %v", err)
	}
	if l.Amount("wood") != 10 || l.Amount("stone") != 5 {
		t.Errorf("Failed spend mutated ledger: wood=%d stone=%d", l.Amount("wood"), l.Amount("stone"))
	}

	if err := l.SpendBulk(Basket{"wood": 4, "stone": 5}); err != nil {
		t.Fatalf("SpendBulk() failed: %v", err)
	}
	if l.Amount("wood") != 6 || l.Amount("stone") != 0 {
		t.Errorf("Unexpected amounts after spend: wood=%d stone=%d", l.Amount("wood"), l.Amount("stone"))
	}
}

func TestSpendUnknownResource(t *testing.T) {
	l := newTestLedger()
	if err := l.SpendBulk(Basket{"gold": 1}); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("Expected ErrUnknownResource, got %v", err)
	}
	if err := l.AddBulk(Basket{"gold": 1}); !errors.Is(err, ErrUnknownResource) {
		t.Errorf("Expected ErrUnknownResource from AddBulk, got %v", err)
	}
}

func TestCapacityClamp(t *testing.T) {
	l := newTestLedger()
	if err := l.AddBulk(Basket{"wood": 100, "stone": 100}); err != nil {
		t.Fatalf("AddBulk() failed: %v", err)
	}
	if l.Amount("wood") != 110 {
		t.Errorf("Expected wood to exceed capacity before clamp, got %d", l.Amount("wood"))
	}

	l.ApplyCapacityClamp()

	if l.Amount("wood") != 50 {
		t.Errorf("Expected wood clamped to 50, got %d", l.Amount("wood"))
	}
	if l.Amount("stone") != 105 {
		t.Errorf("Unbounded stone should not clamp, got %d", l.Amount("stone"))
	}
}

func TestSurplusKeepsPositiveOnly(t *testing.T) {
	l := newTestLedger()
	l.RegisterProducer("wood", 5)
	l.RegisterConsumer("wood", 2)
	l.RegisterProducer("stone", 1)
	l.RegisterConsumer("stone", 3)
	l.RegisterProducer("bread", 2)
	l.RegisterConsumer("bread", 2)

	s := l.Surplus()
	if len(s) != 1 {
		t.Fatalf("Expected 1 surplus entry, got %v", s)
	}
	if s["wood"] != 3 {
		t.Errorf("Expected wood surplus 3, got %v", s["wood"])
	}
}

func TestUnregisterSettlesToZero(t *testing.T) {
	l := newTestLedger()
	l.RegisterProducer("wood", 0.1)
	l.RegisterProducer("wood", 0.2)
	l.UnregisterProducer("wood", 0.1)
	l.UnregisterProducer("wood", 0.2)
	if l.ProductionRate("wood") != 0 {
		t.Errorf("Expected production rate to settle to 0, got %v", l.ProductionRate("wood"))
	}
}

func TestSetAmountRejectsNegative(t *testing.T) {
	l := newTestLedger()
	if err := l.SetAmount("wood", -1); !errors.Is(err, ErrInsufficient) {
		t.Errorf("Expected ErrInsufficient, got %v", err)
	}
	if err := l.SetAmount("wood", 30); err != nil {
		t.Fatalf("SetAmount() failed: %v", err)
	}
	if l.Amount("wood") != 30 {
		t.Errorf("Expected 30, got %d", l.Amount("wood"))
	}
}

func TestBasketDelta(t *testing.T) {
	cur := Basket{"water": 1, "bread": 1}
	next := Basket{"water": 2, "bread": 1, "cloth": 1}

	d := cur.Delta(next)
	if len(d) != 2 || d["water"] != 1 || d["cloth"] != 1 {
		t.Errorf("Unexpected delta: %v", d)
	}
	if r := next.FirstShortfall(map[ResourceID]int64{"water": 5, "bread": 0, "cloth": 9}); r != "bread" {
		t.Errorf("Expected bread shortfall, got %q", r)
	}
}
