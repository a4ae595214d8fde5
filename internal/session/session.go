// Package session owns the client-side state of one analysis session:
// mode, view toggles, the stage baseline, emotion maps, the transcript and
// the side panel. A Session is not goroutine-safe; it is meant to be
// mutated only from the UI's update loop.
package session

import (
	"strings"

	"github.com/google/uuid"

	"github.com/abelbrown/stagewatch/internal/emotion"
	"github.com/abelbrown/stagewatch/internal/stage"
)

// Ticket identifies an in-flight request. Token tags the pending
// placeholder of a send; Generation is the session generation at issue.
type Ticket struct {
	Token      string
	Generation uint64
}

// Result is the stage part of any successful service response.
type Result struct {
	Distribution stage.Distribution
	FinalStage   string
	Feedback     string
}

// Panel is what the stage side panel currently shows.
type Panel struct {
	Scope      Selection
	Rows       []stage.Change
	FinalStage string
	Feedback   string
}

func emptyPanel() Panel {
	return Panel{Scope: SelectTeam, Rows: stage.Zero(), FinalStage: stage.Uncertain}
}

// Outcome reports what happened to a response handed to the session.
type Outcome int

const (
	// OutcomeRendered: baseline updated and the panel shows the result.
	OutcomeRendered Outcome = iota
	// OutcomeBaselineOnly: baseline updated but another view is active.
	OutcomeBaselineOnly
	// OutcomeStale: the session moved on; nothing was touched.
	OutcomeStale
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRendered:
		return "rendered"
	case OutcomeBaselineOnly:
		return "baseline_only"
	}
	return "stale"
}

// Session is the state controller. Create with New.
type Session struct {
	mode       Mode
	generation uint64
	team       string

	tracker stage.Tracker
	panel   Panel
	last    emotion.Scores
	accum   emotion.Scores
	toggles Toggles

	transcript Transcript
	notice     string

	newToken func() string
}

// New returns a session in Conversation mode with default toggles.
func New() *Session {
	return &Session{
		mode:     ModeConversation,
		panel:    emptyPanel(),
		toggles:  NewToggles(),
		newToken: uuid.NewString,
	}
}

func (s *Session) Mode() Mode             { return s.mode }
func (s *Session) Generation() uint64     { return s.generation }
func (s *Session) Toggles() Toggles       { return s.toggles }
func (s *Session) Transcript() Transcript { return s.transcript }
func (s *Session) Notice() string         { return s.notice }

// KnownTeam is the last team name the user committed to.
func (s *Session) KnownTeam() string { return s.team }

// RememberTeam records team as the known team context. Blank is ignored.
func (s *Session) RememberTeam(team string) {
	if team = strings.TrimSpace(team); team != "" {
		s.team = team
	}
}

// Panel returns a copy of the stage panel.
func (s *Session) Panel() Panel {
	p := s.panel
	p.Rows = append([]stage.Change(nil), s.panel.Rows...)
	return p
}

// Baseline exposes the tracker's current baseline, nil if none.
func (s *Session) Baseline() stage.Distribution {
	return s.tracker.Baseline()
}

// EmotionScores returns the map backing the given emotion view.
func (s *Session) EmotionScores(v Selection) emotion.Scores {
	if v == SelectAccumulated {
		return s.accum
	}
	return s.last
}

// Emotions ranks the active emotion view. ok is false in Analysis mode,
// where emotion views do not exist.
func (s *Session) Emotions(k int) (entries []emotion.Entry, ok bool) {
	if s.mode == ModeAnalysis {
		return nil, false
	}
	return emotion.Rank(s.EmotionScores(s.toggles.Active(GroupEmotion)), k), true
}

// Select changes a view toggle, honoring mode restrictions.
func (s *Session) Select(g Group, v Selection) (bool, error) {
	return s.toggles.Select(g, v, s.mode)
}

// Current reports whether a response issued at gen still belongs to this
// session state.
func (s *Session) Current(gen uint64) bool {
	return gen == s.generation
}

// TransitionTo moves to target if confirmed. A declined transition
// changes nothing and returns EffectNone.
func (s *Session) TransitionTo(target Mode, confirmed bool) (Effect, error) {
	next, eff, err := transition(s.mode, target)
	if err != nil {
		return EffectNone, err
	}
	if !confirmed {
		return EffectNone, nil
	}

	s.mode = next
	s.generation++
	if eff.Has(EffectClearTranscript) {
		s.transcript.clear()
	}
	if eff.Has(EffectResetSnapshot) {
		s.tracker.Reset()
		s.panel = emptyPanel()
	}
	if eff.Has(EffectClearEmotions) {
		s.last = emotion.Scores{}
		s.accum = emotion.Scores{}
	}
	if eff.Has(EffectResetToggles) {
		s.toggles.Reset()
	}
	s.notice = ""

	if s.team == "" {
		eff &^= EffectRefetchTeam
	}
	return eff, nil
}

// BeginSend appends the user's message and a pending placeholder, and
// returns the ticket the response must present.
func (s *Session) BeginSend(text string) Ticket {
	t := Ticket{Token: s.newToken(), Generation: s.generation}
	s.transcript.append(Entry{Kind: EntryUser, Text: text})
	s.transcript.append(Entry{Kind: EntryPending, Text: "Thinking...", Token: t.Token})
	return t
}

// ApplyChat applies a successful send. last replaces the last-message
// emotions; accum replaces the accumulated ones.
func (s *Session) ApplyChat(t Ticket, botMessage string, res Result, last, accum emotion.Scores) Outcome {
	if !s.Current(t.Generation) {
		return OutcomeStale
	}
	s.transcript.removePending(t.Token)
	s.transcript.append(Entry{Kind: EntryBot, Text: botMessage})
	s.last = last
	s.accum = accum
	return s.applyStage(SelectTeam, res)
}

// FailSend drops the placeholder created for t, if it is still there.
// The user's own message stays in the transcript.
func (s *Session) FailSend(t Ticket) bool {
	if !s.Current(t.Generation) {
		return false
	}
	return s.transcript.removePending(t.Token)
}

// ApplyAnalysis applies a bulk or file analysis. Analysis is team-level
// only, so the stage view is forced to team.
func (s *Session) ApplyAnalysis(gen uint64, note string, res Result) Outcome {
	if !s.Current(gen) {
		return OutcomeStale
	}
	s.transcript.append(Entry{Kind: EntryNote, Text: note})
	s.toggles.ForceTeam()
	return s.applyStage(SelectTeam, res)
}

// ApplyTeamInfo applies a team read.
func (s *Session) ApplyTeamInfo(gen uint64, res Result) Outcome {
	if !s.Current(gen) {
		return OutcomeStale
	}
	return s.applyStage(SelectTeam, res)
}

// ReconcileTeam applies the team read that follows a send. When the team
// aggregate matches what the send already rendered, the send's deltas stay
// on screen and only the stage and feedback are refreshed.
func (s *Session) ReconcileTeam(gen uint64, res Result) Outcome {
	if !s.Current(gen) {
		return OutcomeStale
	}
	prev := s.panel
	out := s.applyStage(SelectTeam, res)
	if out != OutcomeRendered || prev.Scope != SelectTeam {
		return out
	}
	for _, c := range s.panel.Rows {
		if c.Significant() {
			return out
		}
	}
	s.panel.Rows = prev.Rows
	return out
}

// ApplyMemberInfo applies a member read and stores the member's
// accumulated emotions.
func (s *Session) ApplyMemberInfo(gen uint64, res Result, accum emotion.Scores) Outcome {
	if !s.Current(gen) {
		return OutcomeStale
	}
	s.accum = accum
	return s.applyStage(SelectMember, res)
}

// NotFound records an expected "does not exist yet" outcome. No stage or
// emotion state changes.
func (s *Session) NotFound(gen uint64, notice string) Outcome {
	if !s.Current(gen) {
		return OutcomeStale
	}
	s.notice = notice
	return OutcomeRendered
}

// ApplyReset records a server-side team reset: in-flight results become
// stale and the baseline starts over.
func (s *Session) ApplyReset(gen uint64, note string) Outcome {
	if !s.Current(gen) {
		return OutcomeStale
	}
	s.generation++
	s.tracker.Reset()
	s.panel = emptyPanel()
	s.last = emotion.Scores{}
	s.accum = emotion.Scores{}
	s.notice = ""
	s.transcript.append(Entry{Kind: EntryNote, Text: note})
	return OutcomeRendered
}

// applyStage feeds res through the tracker and renders it only when scope
// is the active stage view. The baseline moves either way.
func (s *Session) applyStage(scope Selection, res Result) Outcome {
	rows := s.tracker.Apply(res.Distribution)
	if !s.toggles.IsActive(GroupStage, scope) {
		return OutcomeBaselineOnly
	}
	finalStage := res.FinalStage
	if finalStage == "" {
		finalStage = stage.Uncertain
	}
	s.panel = Panel{Scope: scope, Rows: rows, FinalStage: finalStage, Feedback: res.Feedback}
	s.notice = ""
	return OutcomeRendered
}
