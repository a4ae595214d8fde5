package otel

// Goroutine safety:
// The drain goroutine is the only reader of l.ch and the only writer to l.w.
// l.mu guards the closed flag and the channel close, so Emit never sends on
// a closed channel. The ring buffer has its own lock.

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

// queueSize bounds the async write queue. Emit drops events beyond it
// rather than blocking the UI goroutine.
const queueSize = 2048

type queued struct {
	line []byte
	ev   Event
}

// Logger writes events as JSONL from a background goroutine.
// Goroutine-safe.
type Logger struct {
	mu     sync.RWMutex
	closed bool
	ch     chan queued
	done   chan struct{}

	w         io.Writer
	closer    io.Closer // set when the Logger owns the file
	sessionID string
	ring      atomic.Pointer[RingBuffer]
	dropped   atomic.Uint64
}

// NewLogger creates a Logger writing to w. Call Close to flush.
func NewLogger(w io.Writer) *Logger {
	var sid [8]byte
	_, _ = rand.Read(sid[:])

	l := &Logger{
		ch:        make(chan queued, queueSize),
		done:      make(chan struct{}),
		w:         w,
		sessionID: fmt.Sprintf("%x", sid[:]),
	}
	go l.drain()
	return l
}

// NewNullLogger discards everything except what reaches an attached ring
// buffer.
func NewNullLogger() *Logger {
	return NewLogger(io.Discard)
}

// DefaultPath returns ~/.stagewatch/events/events-YYYY-MM-DD.jsonl.
func DefaultPath(now time.Time) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home directory: %w", err)
	}
	return filepath.Join(home, ".stagewatch", "events", "events-"+now.Format("2006-01-02")+".jsonl"), nil
}

// OpenFile appends to the JSONL file at path, creating parent directories.
// Close also closes the file.
func OpenFile(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create event dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	l := NewLogger(f)
	l.closer = f
	return l, nil
}

func (l *Logger) drain() {
	defer close(l.done)
	for q := range l.ch {
		if _, err := l.w.Write(q.line); err != nil {
			l.dropped.Add(1)
		}
		if rb := l.ring.Load(); rb != nil {
			rb.Push(q.ev)
		}
	}
}

// Emit queues an event. It fills Time when zero and always stamps the
// session ID. Never blocks: a full queue or closed logger drops the event.
func (l *Logger) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = l.sessionID

	line, err := json.Marshal(e)
	if err != nil {
		l.dropped.Add(1)
		return
	}
	line = append(line, '\n')

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.dropped.Add(1)
		return
	}
	select {
	case l.ch <- queued{line: line, ev: e}:
	default:
		l.dropped.Add(1)
	}
}

// Info emits an info-level event.
func (l *Logger) Info(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelInfo, Kind: kind, Comp: comp, Msg: msg})
}

// Warn emits a warn-level event.
func (l *Logger) Warn(kind EventKind, comp, msg string) {
	l.Emit(Event{Level: LevelWarn, Kind: kind, Comp: comp, Msg: msg})
}

// Error emits an error-level event. A nil err is logged as empty.
func (l *Logger) Error(kind EventKind, comp string, err error) {
	e := Event{Level: LevelError, Kind: kind, Comp: comp}
	if err != nil {
		e.Err = err.Error()
	}
	l.Emit(e)
}

// SetRingBuffer attaches a ring buffer that receives every written event.
func (l *Logger) SetRingBuffer(rb *RingBuffer) {
	l.ring.Store(rb)
}

// SessionID identifies this run in the event log.
func (l *Logger) SessionID() string {
	return l.sessionID
}

// Dropped returns how many events were lost.
func (l *Logger) Dropped() uint64 {
	return l.dropped.Load()
}

// Close flushes queued events and stops the writer. Idempotent. Emit
// after Close drops silently.
func (l *Logger) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.ch)
	l.mu.Unlock()

	<-l.done
	if l.closer != nil {
		l.closer.Close()
	}
	if d := l.dropped.Load(); d > 0 {
		fmt.Fprintf(os.Stderr, "stagewatch: %d events dropped during session %s\n", d, l.sessionID)
	}
}
