package dedup

import (
	"sync"
)

const DefaultMaxSize = 1000

// Deduplicator is a bounded set of recently applied event ids. Eviction
// is strict FIFO by insertion order: the use case is transient
// re-delivery, not hot-key reuse, so LRU bookkeeping buys nothing. A
// duplicate delayed past the retention window will be re-applied; the
// router's upsert-by-id mutations are the second line of defense.
type Deduplicator struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string
	head    int
	count   int
	maxSize int
}

type Stats struct {
	Size     int `json:"size"`
	Capacity int `json:"capacity"`
}

func New(maxSize int) *Deduplicator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Deduplicator{
		seen:    make(map[string]struct{}, maxSize),
		ring:    make([]string, maxSize),
		maxSize: maxSize,
	}
}

// Seen reports whether the id was already recorded. On first sight the
// id is recorded and false is returned; recording evicts the single
// oldest id when the window is full.
func (d *Deduplicator) Seen(eventID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[eventID]; ok {
		return true
	}

	d.record(eventID)
	return false
}

func (d *Deduplicator) record(eventID string) {
	if d.count == d.maxSize {
		oldest := d.ring[d.head]
		delete(d.seen, oldest)
		d.head = (d.head + 1) % d.maxSize
		d.count--
	}

	tail := (d.head + d.count) % d.maxSize
	d.ring[tail] = eventID
	d.seen[eventID] = struct{}{}
	d.count++
}

func (d *Deduplicator) GetStats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	return Stats{
		Size:     d.count,
		Capacity: d.maxSize,
	}
}

func (d *Deduplicator) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seen = make(map[string]struct{}, d.maxSize)
	d.ring = make([]string, d.maxSize)
	d.head = 0
	d.count = 0
}

// ids returns the recorded ids in insertion order. Used by the snapshot
// path; callers must hold the lock.
func (d *Deduplicator) ids() []string {
	out := make([]string, 0, d.count)
	for i := 0; i < d.count; i++ {
		out = append(out, d.ring[(d.head+i)%d.maxSize])
	}
	return out
}
