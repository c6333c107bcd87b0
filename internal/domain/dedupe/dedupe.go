// Package dedupe defines the interface for idempotency tracking.
//
// Detection events can arrive more than once: NATS delivers at least once,
// and camera firmware retries webhooks on slow responses. Re-running
// inference on a replayed detection wastes the extractor and can skew the
// cooldown bookkeeping, so the service records each detection id the first
// time it is accepted.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen detection IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen set, allowing it to be retried.
	// Used when a detection was marked as seen but failed to be queued.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

const defaultMaxSize = 10_000

// inMemoryDeduper is a bounded seen-set over detection ids. Entries are kept
// in a ring in insertion order; when the set is full the oldest entry is
// overwritten. Old detection ids never come back, so FIFO is the right
// eviction order here.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]int // id -> ring slot
	ring    []string
	next    int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]int, d.maxSize)
	d.ring = make([]string, d.maxSize)

	return d
}

// SeenAndRecord atomically checks if id was seen and records it if not.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if old := d.ring[d.next]; old != "" {
		delete(d.seen, old)
		d.size.Add(-1)
	}
	d.ring[d.next] = id
	d.seen[id] = d.next
	d.next = (d.next + 1) % d.maxSize
	d.size.Add(1)
	return false
}

// Unrecord removes an ID from the seen set, allowing it to be retried.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if slot, exists := d.seen[id]; exists {
		d.ring[slot] = ""
		delete(d.seen, id)
		d.size.Add(-1)
	}
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
