// Package dedupe tracks attempt IDs so each attempt is evaluated at most once.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 50000

// Deduper records seen attempt IDs.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it if
	// not. It returns true when id was already present.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id so a rejected submission can be retried.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// InMemoryDeduper keeps the most recent IDs. When bounded, the oldest ID is
// evicted to make room for a new one.
type InMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front is oldest
	maxSize int        // <= 0 means unbounded
}

// NewInMemoryDeduper creates a deduper holding up to 50000 IDs by default.
func NewInMemoryDeduper(opts ...Option) *InMemoryDeduper {
	d := &InMemoryDeduper{
		seen:    make(map[string]*list.Element),
		order:   list.New(),
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SeenAndRecord implements Deduper.
func (d *InMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}
	if d.maxSize > 0 {
		for d.order.Len() >= d.maxSize {
			oldest := d.order.Front()
			d.order.Remove(oldest)
			delete(d.seen, oldest.Value.(string))
		}
	}
	d.seen[id] = d.order.PushBack(id)
	return false
}

// Unrecord implements Deduper.
func (d *InMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[id]; ok {
		d.order.Remove(el)
		delete(d.seen, id)
	}
}

// Size returns the number of remembered IDs.
func (d *InMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
