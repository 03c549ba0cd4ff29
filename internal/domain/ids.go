package domain

import (
	"go.uber.org/atomic"
)

// DefaultIDBase is the first id handed out by a fresh allocator.
const DefaultIDBase AccountID = 1000

// IDAllocator hands out strictly increasing account ids. It is owned by a
// ledger instance; two ledgers never share one unless the caller injects it.
type IDAllocator struct {
	next *atomic.Int64
}

// NewIDAllocator returns an allocator whose first id is base. A non-positive
// base falls back to DefaultIDBase.
func NewIDAllocator(base AccountID) *IDAllocator {
	if base <= 0 {
		base = DefaultIDBase
	}
	return &IDAllocator{next: atomic.NewInt64(int64(base) - 1)}
}

// NextID returns a fresh id. Safe for concurrent use.
func (g *IDAllocator) NextID() AccountID {
	return AccountID(g.next.Inc())
}

// Peek returns the id the next call to NextID will return.
func (g *IDAllocator) Peek() AccountID {
	return AccountID(g.next.Load() + 1)
}
