package otel

import (
	"os"
	"strings"
	"sync/atomic"
)

// TraceEnv selects which UI messages are traced. "1", "all" or "*" trace
// every message; otherwise it is a comma-separated list of message type
// names, matched as substrings of the Go type ("KeyMsg,orchestrator.").
const TraceEnv = "STAGEWATCH_TRACE"

type traceFilter struct {
	all      bool
	patterns []string
}

var trace atomic.Pointer[traceFilter]

func init() {
	SetTrace(os.Getenv(TraceEnv))
}

// SetTrace replaces the trace filter. An empty spec turns tracing off.
func SetTrace(spec string) {
	f := &traceFilter{}
	for _, p := range strings.Split(spec, ",") {
		switch p = strings.TrimSpace(p); p {
		case "":
		case "1", "all", "*", "true":
			f.all = true
		default:
			f.patterns = append(f.patterns, p)
		}
	}
	trace.Store(f)
}

// TraceEnabled reports whether any message type is traced.
func TraceEnabled() bool {
	f := trace.Load()
	return f != nil && (f.all || len(f.patterns) > 0)
}

// TraceMsg reports whether a message of the given type name should be
// logged as a trace.msg_received event.
func TraceMsg(msgType string) bool {
	f := trace.Load()
	if f == nil {
		return false
	}
	if f.all {
		return true
	}
	for _, p := range f.patterns {
		if strings.Contains(msgType, p) {
			return true
		}
	}
	return false
}
