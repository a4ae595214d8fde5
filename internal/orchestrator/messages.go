package orchestrator

import (
	"time"

	"github.com/abelbrown/stagewatch/internal/api"
	"github.com/abelbrown/stagewatch/internal/session"
)

// ChatDone is sent when a /chat call finishes.
type ChatDone struct {
	Ticket session.Ticket
	Team   string
	Member string
	Reply  api.ChatReply
	Dur    time.Duration
	Err    error
}

// AnalysisDone is sent when a bulk or file analysis finishes.
type AnalysisDone struct {
	Gen    uint64
	Team   string
	Op     string // opAnalyze or opAnalyzeFile
	Lines  int    // bulk only
	File   string // upload only, base name
	Result api.AnalysisResult
	Dur    time.Duration
	Err    error
}

// TeamInfoLoaded is sent when a /teaminfo read finishes. Reconcile marks
// the read that follows a successful send.
type TeamInfoLoaded struct {
	Gen       uint64
	Team      string
	Reconcile bool
	Info      api.TeamInfo
	Dur       time.Duration
	Err       error
}

// MemberInfoLoaded is sent when a /memberinfo read finishes.
type MemberInfoLoaded struct {
	Gen    uint64
	Team   string
	Member string
	Info   api.MemberInfo
	Dur    time.Duration
	Err    error
}

// TeamReset is sent when a /reset call finishes.
type TeamReset struct {
	Gen     uint64
	Team    string
	Member  string
	Message string
	Dur     time.Duration
	Err     error
}
