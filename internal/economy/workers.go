package economy

// WorkerPool tracks the finite labour force shared by producers.
// free + sum(assigned) == total holds between calls.
type WorkerPool struct {
	total    uint32
	free     uint32
	assigned map[uint64]uint32
}

// NewWorkerPool creates a pool with every worker free.
func NewWorkerPool(total uint32) *WorkerPool {
	return &WorkerPool{
		total:    total,
		free:     total,
		assigned: make(map[uint64]uint32),
	}
}

// TryAllocate assigns n workers to holder iff n are free. A holder that
// already has an allocation gets it replaced: the old one is returned to the
// pool first and restored if the new request cannot be met.
func (w *WorkerPool) TryAllocate(holder uint64, n uint32) bool {
	prev, had := w.assigned[holder]
	if had {
		w.free += prev
		delete(w.assigned, holder)
	}
	if w.free < n {
		if had {
			w.free -= prev
			w.assigned[holder] = prev
		}
		return false
	}
	w.free -= n
	w.assigned[holder] = n
	return true
}

// Release returns the holder's workers to the pool. Releasing a holder with
// no allocation is a no-op.
func (w *WorkerPool) Release(holder uint64) {
	n, ok := w.assigned[holder]
	if !ok {
		return
	}
	w.free += n
	delete(w.assigned, holder)
}

// Assigned returns the holder's standing allocation.
func (w *WorkerPool) Assigned(holder uint64) (uint32, bool) {
	n, ok := w.assigned[holder]
	return n, ok
}

// Free returns the number of unassigned workers.
func (w *WorkerPool) Free() uint32 { return w.free }

// Total returns the size of the labour force.
func (w *WorkerPool) Total() uint32 { return w.total }

// Resize changes the labour force. The total never drops below what is
// currently assigned; the effective total is returned.
func (w *WorkerPool) Resize(total uint32) uint32 {
	busy := w.total - w.free
	if total < busy {
		total = busy
	}
	w.total = total
	w.free = total - busy
	return total
}
