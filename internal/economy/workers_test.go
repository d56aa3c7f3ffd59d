package economy

import "testing"

func assertWorkerInvariant(t *testing.T, w *WorkerPool) {
	t.Helper()
	var sum uint32
	for _, n := range w.assigned {
		sum += n
	}
	if w.Free()+sum != w.Total() {
		t.Fatalf("free(%d) + assigned(%d) != total(%d)", w.Free(), sum, w.Total())
	}
}

func TestWorkerAllocateRelease(t *testing.T) {
	w := NewWorkerPool(10)

	if !w.TryAllocate(1, 6) {
		t.Fatal("Expected first allocation to succeed")
	}
	assertWorkerInvariant(t, w)

	if w.TryAllocate(2, 5) {
		t.Error("Expected allocation beyond free workers to fail")
	}
	if _, ok := w.Assigned(2); ok {
		t.Error("Failed allocation must not leave a record")
	}
	assertWorkerInvariant(t, w)

	w.Release(1)
	if w.Free() != 10 {
		t.Errorf("Expected 10 free after release, got %d", w.Free())
	}
	w.Release(1)
	assertWorkerInvariant(t, w)
}

func TestWorkerReallocateKeepsOldOnFailure(t *testing.T) {
	w := NewWorkerPool(5)
	w.TryAllocate(1, 3)

	if w.TryAllocate(1, 6) {
		t.Fatal("Expected oversized reallocation to fail")
	}
	if n, ok := w.Assigned(1); !ok || n != 3 {
		t.Errorf("Expected original allocation of 3 to survive, got %d (%v)", n, ok)
	}
	assertWorkerInvariant(t, w)

	if !w.TryAllocate(1, 5) {
		t.Fatal("Expected reallocation within total to succeed")
	}
	if w.Free() != 0 {
		t.Errorf("Expected 0 free, got %d", w.Free())
	}
	assertWorkerInvariant(t, w)
}

func TestWorkerResizeNeverBelowAssigned(t *testing.T) {
	w := NewWorkerPool(10)
	w.TryAllocate(1, 7)

	if got := w.Resize(4); got != 7 {
		t.Errorf("Expected resize to floor at 7 assigned, got %d", got)
	}
	if w.Free() != 0 {
		t.Errorf("Expected 0 free, got %d", w.Free())
	}
	assertWorkerInvariant(t, w)

	w.Resize(20)
	if w.Free() != 13 {
		t.Errorf("Expected 13 free, got %d", w.Free())
	}
	assertWorkerInvariant(t, w)
}
