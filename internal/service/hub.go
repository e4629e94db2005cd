package service

import (
	"maps"
	"sync"
)

// Hub fans task counter snapshots out to live subscribers. Each subscriber
// holds at most one pending snapshot; a slow reader only ever sees the
// latest one.
type Hub struct {
	mu     sync.Mutex
	counts map[string]int64
	subs   map[chan map[string]int64]struct{}

	// gen increases on every Publish; published records the generation at
	// which each task was last published.
	gen       uint64
	published map[string]uint64
}

func NewHub() *Hub {
	return &Hub{
		counts:    make(map[string]int64),
		subs:      make(map[chan map[string]int64]struct{}),
		published: make(map[string]uint64),
	}
}

// Generation returns a marker to take before reading counts from the
// store. Pass it to Merge with the result.
func (h *Hub) Generation() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.gen
}

// Merge folds a store read taken at generation since into the known counts
// and notifies subscribers. Tasks published after since keep their newer
// value.
func (h *Hub) Merge(counts map[string]int64, since uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for taskID, n := range counts {
		if h.published[taskID] > since {
			continue
		}
		h.counts[taskID] = n
	}
	h.broadcastLocked()
}

// Publish records a new value for one task and notifies subscribers.
func (h *Hub) Publish(taskID string, count int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.gen++
	h.published[taskID] = h.gen
	h.counts[taskID] = count
	h.broadcastLocked()
}

// Subscribe returns a channel that immediately yields the current snapshot
// and then every later one. Call cancel to unsubscribe.
func (h *Hub) Subscribe() (<-chan map[string]int64, func()) {
	ch := make(chan map[string]int64, 1)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	ch <- maps.Clone(h.counts)
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Snapshot returns a copy of the latest counts.
func (h *Hub) Snapshot() map[string]int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return maps.Clone(h.counts)
}

func (h *Hub) broadcastLocked() {
	for ch := range h.subs {
		snap := maps.Clone(h.counts)
		select {
		case ch <- snap:
		default:
			// Replace the stale pending snapshot.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
