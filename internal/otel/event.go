// Package otel records structured events about the session: request
// lifecycle, stale discards, mode switches and view changes.
//
// Events are serialized as JSONL by an async Logger. A RingBuffer attached
// to the Logger keeps the most recent events in memory for the debug overlay.
package otel

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Level defines event severity for filtering.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// EventKind identifies the category of an event.
// Dot-delimited: "<subsystem>.<action>".
type EventKind string

const (
	// Request lifecycle
	KindRequestStart    EventKind = "request.start"
	KindRequestComplete EventKind = "request.complete"
	KindRequestError    EventKind = "request.error"
	KindRequestStale    EventKind = "request.stale"
	KindRequestNotFound EventKind = "request.not_found"

	// Session
	KindModeSwitch   EventKind = "mode.switch"
	KindModeDeclined EventKind = "mode.declined"
	KindViewSelect   EventKind = "view.select"

	// Journal
	KindJournalError EventKind = "journal.error"

	// UI
	KindKeyPress EventKind = "ui.key"

	// System
	KindStartup  EventKind = "sys.startup"
	KindShutdown EventKind = "sys.shutdown"

	// Trace (STAGEWATCH_TRACE only)
	KindMsgReceived EventKind = "trace.msg_received"
)

// Event is one JSONL record. Everything except Kind and Time is optional.
type Event struct {
	Time      time.Time      `json:"t"`
	Level     Level          `json:"level,omitempty"`
	Kind      EventKind      `json:"kind"`
	Comp      string         `json:"comp,omitempty"`       // "orchestrator", "ui", "main"
	SessionID string         `json:"session_id,omitempty"` // same for the whole run
	Op        string         `json:"op,omitempty"`         // chat, analyze, analyze_file, teaminfo, memberinfo, reset
	Token     string         `json:"token,omitempty"`      // pending-placeholder correlation token
	Gen       uint64         `json:"gen,omitempty"`        // session generation at issue time
	Team      string         `json:"team,omitempty"`
	Member    string         `json:"member,omitempty"`
	Status    int            `json:"status,omitempty"` // HTTP status on API errors
	Dur       time.Duration  `json:"-"`
	DurMs     float64        `json:"dur_ms,omitempty"` // filled from Dur when marshalling
	Err       string         `json:"err,omitempty"`
	Msg       string         `json:"msg,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// MarshalJSON converts Dur to DurMs.
func (e Event) MarshalJSON() ([]byte, error) {
	type plain Event
	p := plain(e)
	if e.Dur > 0 {
		p.DurMs = float64(e.Dur) / float64(time.Millisecond)
	}
	return json.Marshal(p)
}

// UnmarshalJSON restores Dur from DurMs.
func (e *Event) UnmarshalJSON(data []byte) error {
	type plain Event
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*e = Event(p)
	if e.DurMs > 0 {
		e.Dur = time.Duration(e.DurMs * float64(time.Millisecond))
	}
	return nil
}

// Summary renders the event on one line for the debug overlay and the
// events command.
func (e Event) Summary() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Op != "" {
		b.WriteString(" " + e.Op)
	}
	if e.Team != "" {
		b.WriteString(" team=" + e.Team)
	}
	if e.Member != "" {
		b.WriteString(" member=" + e.Member)
	}
	if e.Gen > 0 {
		fmt.Fprintf(&b, " gen=%d", e.Gen)
	}
	if e.Status > 0 {
		fmt.Fprintf(&b, " status=%d", e.Status)
	}
	if e.Dur > 0 {
		fmt.Fprintf(&b, " %s", e.Dur.Round(time.Millisecond))
	}
	if e.Msg != "" {
		b.WriteString(" " + e.Msg)
	}
	if e.Err != "" {
		b.WriteString(" err=" + e.Err)
	}
	return b.String()
}

// ReadEvents decodes a JSONL event stream. Malformed lines are skipped
// and counted.
func ReadEvents(r io.Reader) (events []Event, skipped int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		var ev Event
		if json.Unmarshal([]byte(line), &ev) != nil {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	if err := sc.Err(); err != nil {
		return events, skipped, fmt.Errorf("read events: %w", err)
	}
	return events, skipped, nil
}
