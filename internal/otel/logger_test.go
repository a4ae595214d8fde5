package otel

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEmitWritesJSONL(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	l.Emit(Event{Kind: KindRequestStart, Level: LevelInfo, Comp: "orchestrator", Op: "chat", Team: "alpha", Gen: 3})
	l.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	want := map[string]any{"kind": "request.start", "op": "chat", "team": "alpha", "gen": float64(3), "comp": "orchestrator"}
	for k, v := range want {
		if decoded[k] != v {
			t.Errorf("%s = %v, want %v", k, decoded[k], v)
		}
	}
}

func TestEmitStampsTimeAndSession(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	before := time.Now()
	l.Emit(Event{Kind: KindStartup})
	l.Close()

	var ev Event
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Time.Before(before) {
		t.Errorf("time %v before emit", ev.Time)
	}
	if ev.SessionID != l.SessionID() || len(ev.SessionID) != 16 {
		t.Errorf("session_id = %q", ev.SessionID)
	}
}

func TestDurRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindRequestComplete, Dur: 1500 * time.Millisecond})
	l.Close()

	if !strings.Contains(buf.String(), `"dur_ms":1500`) {
		t.Errorf("dur_ms missing: %s", buf.String())
	}
	events, skipped, err := ReadEvents(&buf)
	if err != nil || skipped != 0 || len(events) != 1 {
		t.Fatalf("ReadEvents = %d events, %d skipped, %v", len(events), skipped, err)
	}
	if events[0].Dur != 1500*time.Millisecond {
		t.Errorf("Dur = %v", events[0].Dur)
	}
}

func TestOmitEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Emit(Event{Kind: KindShutdown})
	l.Close()

	line := buf.String()
	for _, field := range []string{"dur_ms", "op", "token", "gen", "team", "member", "status", "err", "msg", "extra"} {
		if strings.Contains(line, `"`+field+`"`) {
			t.Errorf("field %q should be omitted: %s", field, line)
		}
	}
}

func TestConcurrentEmitAndClose(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Emit(Event{Kind: KindRequestStart})
		}()
	}
	wg.Wait()
	l.Close()

	if n := strings.Count(buf.String(), "\n"); n != 50 {
		t.Errorf("expected 50 lines, got %d", n)
	}

	l.Emit(Event{Kind: KindRequestStart})
	if l.Dropped() != 1 {
		t.Errorf("emit after close: dropped = %d, want 1", l.Dropped())
	}
	l.Close()
}

func TestRingBufferAttached(t *testing.T) {
	l := NewNullLogger()
	rb := NewRingBuffer(4)
	l.SetRingBuffer(rb)

	l.Info(KindModeSwitch, "ui", "conversation -> analysis")
	l.Warn(KindRequestStale, "orchestrator", "gen 1 != 2")
	l.Close()

	snap := rb.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("ring has %d events, want 2", len(snap))
	}
	if snap[0].Kind != KindModeSwitch || snap[1].Level != LevelWarn {
		t.Errorf("snap = %+v", snap)
	}
}

func TestErrorNil(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf)
	l.Error(KindRequestError, "orchestrator", nil)
	l.Close()
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Errorf("missing level: %s", buf.String())
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events", "today.jsonl")
	l, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	l.Emit(Event{Kind: KindStartup, Msg: "hello"})
	l.Close()

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	events, _, err := ReadEvents(f)
	if err != nil || len(events) != 1 || events[0].Msg != "hello" {
		t.Errorf("events = %+v, err = %v", events, err)
	}
}

func TestReadEventsSkipsGarbage(t *testing.T) {
	in := strings.NewReader("{\"kind\":\"sys.startup\",\"t\":\"2026-01-02T03:04:05Z\"}\nnot json\n\n{\"kind\":\"sys.shutdown\",\"t\":\"2026-01-02T03:05:05Z\"}\n")
	events, skipped, err := ReadEvents(in)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 || skipped != 1 {
		t.Errorf("got %d events, %d skipped", len(events), skipped)
	}
}

func TestSummary(t *testing.T) {
	e := Event{Kind: KindRequestError, Op: "memberinfo", Team: "t", Member: "m", Status: 500, Err: "boom"}
	got := e.Summary()
	for _, want := range []string{"request.error", "memberinfo", "team=t", "member=m", "status=500", "err=boom"} {
		if !strings.Contains(got, want) {
			t.Errorf("Summary() = %q, missing %q", got, want)
		}
	}
}
