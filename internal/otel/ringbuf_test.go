package otel

import (
	"sync"
	"testing"
	"time"
)

func gens(events []Event) []uint64 {
	out := make([]uint64, len(events))
	for i, e := range events {
		out[i] = e.Gen
	}
	return out
}

func equalGens(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestRingPartialFill(t *testing.T) {
	r := NewRingBuffer(8)
	for i := 1; i <= 3; i++ {
		r.Push(Event{Gen: uint64(i)})
	}
	if got := gens(r.Snapshot()); !equalGens(got, []uint64{1, 2, 3}) {
		t.Errorf("Snapshot = %v", got)
	}
	if r.Len() != 3 || r.Cap() != 8 {
		t.Errorf("Len/Cap = %d/%d", r.Len(), r.Cap())
	}
}

func TestRingEvictsOldest(t *testing.T) {
	r := NewRingBuffer(4)
	for i := 1; i <= 10; i++ {
		r.Push(Event{Gen: uint64(i)})
	}
	if got := gens(r.Snapshot()); !equalGens(got, []uint64{7, 8, 9, 10}) {
		t.Errorf("Snapshot = %v", got)
	}
	if got := gens(r.Last(2)); !equalGens(got, []uint64{9, 10}) {
		t.Errorf("Last(2) = %v", got)
	}
	if got := gens(r.Last(100)); !equalGens(got, []uint64{7, 8, 9, 10}) {
		t.Errorf("Last(100) = %v", got)
	}
}

func TestRingEmpty(t *testing.T) {
	r := NewRingBuffer(0)
	if r.Cap() != DefaultRingSize {
		t.Errorf("Cap = %d", r.Cap())
	}
	if r.Snapshot() != nil || r.Last(5) != nil || r.Last(0) != nil {
		t.Error("empty buffer should return nil")
	}
}

func TestRingCopiesExtra(t *testing.T) {
	r := NewRingBuffer(2)
	extra := map[string]any{"k": 1}
	r.Push(Event{Extra: extra})
	extra["k"] = 2
	if r.Snapshot()[0].Extra["k"] != 1 {
		t.Error("Push must copy Extra")
	}
}

func TestRingStats(t *testing.T) {
	r := NewRingBuffer(16)
	for _, e := range []Event{
		{Kind: KindRequestStart}, {Kind: KindRequestStart}, {Kind: KindRequestStart},
		{Kind: KindRequestStart}, {Kind: KindRequestStart},
		{Kind: KindRequestComplete, Dur: 100 * time.Millisecond},
		{Kind: KindRequestComplete, Dur: 300 * time.Millisecond},
		{Kind: KindRequestError},
		{Kind: KindRequestStale},
		{Kind: KindModeSwitch},
	} {
		r.Push(e)
	}
	s := r.Stats()
	if s.Started != 5 || s.Completed != 2 || s.Failed != 1 || s.Stale != 1 || s.NotFound != 0 {
		t.Errorf("stats = %+v", s)
	}
	if s.AvgDur != 200*time.Millisecond {
		t.Errorf("AvgDur = %v", s.AvgDur)
	}
	if s.InFlight() != 1 {
		t.Errorf("InFlight = %d", s.InFlight())
	}
}

func TestRingConcurrent(t *testing.T) {
	r := NewRingBuffer(32)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Push(Event{Kind: KindRequestStart})
				_ = r.Last(4)
			}
		}()
	}
	wg.Wait()
	if r.Len() != 32 {
		t.Errorf("Len = %d", r.Len())
	}
	if r.Stats().Started != 32 {
		t.Errorf("Started = %d", r.Stats().Started)
	}
}
