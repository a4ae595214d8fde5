package otel

import (
	"sync"
	"time"
)

// DefaultRingSize is the default ring buffer capacity.
const DefaultRingSize = 512

// RingBuffer keeps the most recent events. Goroutine-safe.
type RingBuffer struct {
	mu     sync.Mutex
	events []Event
	total  uint64 // events ever pushed; total % len(events) is the next slot
}

// NewRingBuffer creates a ring buffer holding size events.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{events: make([]Event, size)}
}

// Push stores e, evicting the oldest event when full. Extra is copied so
// the caller may reuse its map.
func (r *RingBuffer) Push(e Event) {
	if len(e.Extra) > 0 {
		extra := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			extra[k] = v
		}
		e.Extra = extra
	}
	r.mu.Lock()
	r.events[r.total%uint64(len(r.events))] = e
	r.total++
	r.mu.Unlock()
}

func (r *RingBuffer) lenLocked() int {
	if r.total < uint64(len(r.events)) {
		return int(r.total)
	}
	return len(r.events)
}

// lastLocked copies the n newest events, oldest first.
func (r *RingBuffer) lastLocked(n int) []Event {
	size := uint64(len(r.events))
	out := make([]Event, n)
	first := r.total - uint64(n)
	for i := range out {
		out[i] = r.events[(first+uint64(i))%size]
	}
	return out
}

// Snapshot returns every buffered event, oldest first.
func (r *RingBuffer) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.lenLocked()
	if n == 0 {
		return nil
	}
	return r.lastLocked(n)
}

// Last returns up to n of the newest events, oldest first.
func (r *RingBuffer) Last(n int) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if avail := r.lenLocked(); n > avail {
		n = avail
	}
	if n <= 0 {
		return nil
	}
	return r.lastLocked(n)
}

// Len returns the number of buffered events.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lenLocked()
}

// Cap returns the capacity.
func (r *RingBuffer) Cap() int {
	return len(r.events)
}

// RequestStats summarizes request events currently in the buffer.
type RequestStats struct {
	Started   int
	Completed int
	Failed    int
	Stale     int
	NotFound  int
	AvgDur    time.Duration // mean over completed requests
}

// InFlight estimates requests started but not yet resolved. Only
// meaningful while the buffer has not evicted their start events.
func (s RequestStats) InFlight() int {
	n := s.Started - s.Completed - s.Failed - s.Stale - s.NotFound
	if n < 0 {
		return 0
	}
	return n
}

// Stats tallies request lifecycle events.
func (r *RingBuffer) Stats() RequestStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s RequestStats
	var total time.Duration
	for _, e := range r.lastLocked(r.lenLocked()) {
		switch e.Kind {
		case KindRequestStart:
			s.Started++
		case KindRequestComplete:
			s.Completed++
			total += e.Dur
		case KindRequestError:
			s.Failed++
		case KindRequestStale:
			s.Stale++
		case KindRequestNotFound:
			s.NotFound++
		}
	}
	if s.Completed > 0 {
		s.AvgDur = total / time.Duration(s.Completed)
	}
	return s
}
