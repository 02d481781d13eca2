// Package dedupe remembers recently ingested race row IDs so that a row
// delivered twice is only aggregated once.
package dedupe

import (
	"context"
	"sync"
)

const defaultCapacity = 50000

// Deduper records seen row IDs.
type Deduper interface {
	// SeenAndRecord reports whether id was already recorded and records it if
	// not. The check and the write happen atomically.
	SeenAndRecord(ctx context.Context, id string) bool

	// Forget removes id so that a later delivery is accepted again. Used when a
	// row was recorded but could not be enqueued.
	Forget(ctx context.Context, id string)

	// Len returns the number of remembered IDs.
	Len() int
}

// ringDeduper keeps at most capacity IDs in a ring and evicts the oldest
// first. A capacity <= 0 disables eviction.
type ringDeduper struct {
	mu       sync.Mutex
	capacity int
	slots    map[string]int // id -> ring slot, -1 in unbounded mode
	ring     []string
	present  []bool
	next     int // slot the next id is written to
	count    int
}

// NewRowDeduper creates a deduper. The default capacity is 50000 IDs.
func NewRowDeduper(opts ...Option) Deduper {
	d := &ringDeduper{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(d)
	}
	d.slots = make(map[string]int)
	if d.capacity > 0 {
		d.ring = make([]string, d.capacity)
		d.present = make([]bool, d.capacity)
	}
	return d
}

func (d *ringDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.slots[id]; ok {
		return true
	}
	if d.capacity <= 0 {
		d.slots[id] = -1
		d.count++
		return false
	}

	// The slot under next is always the oldest live entry once the ring is full.
	if d.present[d.next] {
		delete(d.slots, d.ring[d.next])
		d.count--
	}
	d.ring[d.next] = id
	d.present[d.next] = true
	d.slots[id] = d.next
	d.next = (d.next + 1) % d.capacity
	d.count++
	return false
}

func (d *ringDeduper) Forget(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	slot, ok := d.slots[id]
	if !ok {
		return
	}
	delete(d.slots, id)
	if slot >= 0 {
		d.ring[slot] = ""
		d.present[slot] = false
	}
	d.count--
}

func (d *ringDeduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}
