// Package orchestrator issues requests against the analysis service and
// applies their results to a session.
//
// Operations validate on the caller's goroutine and return a tea.Cmd that
// performs the network call. Results come back as messages, which Handle
// applies in whatever order they arrive. Every message carries the session
// generation it was issued under; a result from an older generation is
// discarded without touching the session.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/stagewatch/internal/api"
	"github.com/abelbrown/stagewatch/internal/intake"
	"github.com/abelbrown/stagewatch/internal/logging"
	"github.com/abelbrown/stagewatch/internal/otel"
	"github.com/abelbrown/stagewatch/internal/session"
	"github.com/abelbrown/stagewatch/internal/store"
)

const (
	opChat        = "chat"
	opAnalyze     = "analyze"
	opAnalyzeFile = "analyze_file"
	opTeamInfo    = "teaminfo"
	opMemberInfo  = "memberinfo"
	opReset       = "reset"

	comp = "orchestrator"
)

// Remote is the analysis service. *api.Client implements it.
type Remote interface {
	TeamInfo(ctx context.Context, team string) (api.TeamInfo, error)
	MemberInfo(ctx context.Context, team, member string) (api.MemberInfo, error)
	Chat(ctx context.Context, req api.ChatRequest) (api.ChatReply, error)
	Analyze(ctx context.Context, req api.AnalyzeRequest) (api.AnalysisResult, error)
	AnalyzeFile(ctx context.Context, team, member, filename string, content io.Reader) (api.AnalysisResult, error)
	Reset(ctx context.Context, team, member string) (string, error)
}

// Journal records received results. *store.Store implements it.
type Journal interface {
	Record(r store.Result) (int64, error)
}

// Orchestrator is safe to share between the UI goroutine and the Cmd
// goroutines it spawns; it holds no session state of its own.
type Orchestrator struct {
	ctx     context.Context
	remote  Remote
	events  *otel.Logger
	journal Journal // optional
}

// New creates an orchestrator. ctx bounds every request it issues; cancel
// it on shutdown to abort whatever is still in flight. journal may be nil.
func New(ctx context.Context, remote Remote, events *otel.Logger, journal Journal) *Orchestrator {
	if events == nil {
		events = otel.NewNullLogger()
	}
	return &Orchestrator{ctx: ctx, remote: remote, events: events, journal: journal}
}

// Report describes what Handle did with a message.
type Report struct {
	Handled bool
	Op      string
	Outcome session.Outcome
	Err     error   // failure to show the user; nil on success, not-found and stale
	Next    tea.Cmd // follow-up request, if any
}

// SendMessage appends the user's message and a pending placeholder, then
// returns the Cmd that posts it.
func (o *Orchestrator) SendMessage(s *session.Session, team, member, text string) (tea.Cmd, error) {
	if err := session.ValidateChat(s.Mode(), team, member, text); err != nil {
		return nil, err
	}
	team, member, text = strings.TrimSpace(team), strings.TrimSpace(member), strings.TrimSpace(text)
	s.RememberTeam(team)
	ticket := s.BeginSend(text)
	o.started(opChat, ticket.Generation, ticket.Token, team, member)

	req := api.ChatRequest{Text: text, TeamName: team, MemberName: member}
	return func() tea.Msg {
		start := time.Now()
		reply, err := o.remote.Chat(o.ctx, req)
		msg := ChatDone{Ticket: ticket, Team: team, Member: member, Reply: reply, Dur: time.Since(start), Err: err}
		if err == nil {
			o.record(store.Result{
				Team: team, Member: member, Source: store.SourceChat,
				FinalStage: reply.Stage, Feedback: reply.Feedback, Distribution: reply.Distribution,
			})
		}
		o.finished(opChat, ticket.Generation, ticket.Token, team, member, msg.Dur, err)
		return msg
	}, nil
}

// AnalyzeBulk submits the non-blank lines of raw for analysis.
func (o *Orchestrator) AnalyzeBulk(s *session.Session, team, member, raw string) (tea.Cmd, error) {
	lines, err := session.ValidateBulk(s.Mode(), team, raw)
	if err != nil {
		return nil, err
	}
	team, member = strings.TrimSpace(team), strings.TrimSpace(member)
	s.RememberTeam(team)
	gen := s.Generation()
	o.started(opAnalyze, gen, "", team, member)

	req := api.AnalyzeRequest{TeamName: team, MemberName: member, Lines: lines}
	return func() tea.Msg {
		start := time.Now()
		res, err := o.remote.Analyze(o.ctx, req)
		msg := AnalysisDone{Gen: gen, Team: team, Op: opAnalyze, Lines: len(lines), Result: res, Dur: time.Since(start), Err: err}
		if err == nil {
			o.record(analysisRecord(team, member, store.SourceAnalyze, res))
		}
		o.finished(opAnalyze, gen, "", team, member, msg.Dur, err)
		return msg
	}, nil
}

// AnalyzeFile uploads the file at path for analysis. The file is opened
// inside the Cmd so disk I/O stays off the UI goroutine.
func (o *Orchestrator) AnalyzeFile(s *session.Session, team, member, path string) (tea.Cmd, error) {
	if err := session.ValidateFile(s.Mode(), team, path); err != nil {
		return nil, err
	}
	team, member, path = strings.TrimSpace(team), strings.TrimSpace(member), strings.TrimSpace(path)
	s.RememberTeam(team)
	gen := s.Generation()
	name := filepath.Base(path)
	o.started(opAnalyzeFile, gen, "", team, member)

	return func() tea.Msg {
		start := time.Now()
		msg := AnalysisDone{Gen: gen, Team: team, Op: opAnalyzeFile, File: name}

		f, err := intake.Open(path)
		if err == nil {
			msg.Result, err = o.remote.AnalyzeFile(o.ctx, team, member, path, f)
			f.Close()
		}
		msg.Dur, msg.Err = time.Since(start), err
		if err == nil {
			o.record(analysisRecord(team, member, store.SourceUpload, msg.Result))
		}
		o.finished(opAnalyzeFile, gen, "", team, member, msg.Dur, err)
		return msg
	}, nil
}

// FetchTeamInfo reads the team-level distribution.
func (o *Orchestrator) FetchTeamInfo(s *session.Session, team string) (tea.Cmd, error) {
	if err := session.ValidateTeam(team); err != nil {
		return nil, err
	}
	team = strings.TrimSpace(team)
	s.RememberTeam(team)
	return o.teamInfoCmd(s.Generation(), team, false), nil
}

func (o *Orchestrator) teamInfoCmd(gen uint64, team string, reconcile bool) tea.Cmd {
	o.started(opTeamInfo, gen, "", team, "")
	return func() tea.Msg {
		start := time.Now()
		info, err := o.remote.TeamInfo(o.ctx, team)
		msg := TeamInfoLoaded{Gen: gen, Team: team, Reconcile: reconcile, Info: info, Dur: time.Since(start), Err: err}
		if err == nil && !reconcile {
			o.record(store.Result{
				Team: team, Source: store.SourceTeamInfo,
				FinalStage: info.FinalStage, Feedback: info.Feedback, Distribution: info.Distribution,
			})
		}
		o.finished(opTeamInfo, gen, "", team, "", msg.Dur, err)
		return msg
	}
}

// FetchMemberInfo reads a member's distribution and accumulated emotions.
func (o *Orchestrator) FetchMemberInfo(s *session.Session, team, member string) (tea.Cmd, error) {
	if err := session.ValidateMember(team, member); err != nil {
		return nil, err
	}
	team, member = strings.TrimSpace(team), strings.TrimSpace(member)
	s.RememberTeam(team)
	gen := s.Generation()
	o.started(opMemberInfo, gen, "", team, member)

	return func() tea.Msg {
		start := time.Now()
		info, err := o.remote.MemberInfo(o.ctx, team, member)
		msg := MemberInfoLoaded{Gen: gen, Team: team, Member: member, Info: info, Dur: time.Since(start), Err: err}
		if err == nil {
			o.record(store.Result{
				Team: team, Member: member, Source: store.SourceMemberInfo,
				FinalStage: info.FinalStage, Feedback: info.PersonalFeedback, Distribution: info.Distribution,
			})
		}
		o.finished(opMemberInfo, gen, "", team, member, msg.Dur, err)
		return msg
	}, nil
}

// ResetTeam clears the team's history on the server. The UI confirms
// before calling it.
func (o *Orchestrator) ResetTeam(s *session.Session, team, member string) (tea.Cmd, error) {
	if err := session.ValidateTeam(team); err != nil {
		return nil, err
	}
	team, member = strings.TrimSpace(team), strings.TrimSpace(member)
	s.RememberTeam(team)
	gen := s.Generation()
	o.started(opReset, gen, "", team, member)

	return func() tea.Msg {
		start := time.Now()
		message, err := o.remote.Reset(o.ctx, team, member)
		msg := TeamReset{Gen: gen, Team: team, Member: member, Message: message, Dur: time.Since(start), Err: err}
		o.finished(opReset, gen, "", team, member, msg.Dur, err)
		return msg
	}, nil
}

// Handle applies a result message to s. Messages it does not own come
// back with Handled false.
func (o *Orchestrator) Handle(s *session.Session, msg tea.Msg) Report {
	switch msg := msg.(type) {
	case ChatDone:
		return o.handleChat(s, msg)
	case AnalysisDone:
		return o.handleAnalysis(s, msg)
	case TeamInfoLoaded:
		return o.handleTeamInfo(s, msg)
	case MemberInfoLoaded:
		return o.handleMemberInfo(s, msg)
	case TeamReset:
		return o.handleReset(s, msg)
	}
	return Report{}
}

func (o *Orchestrator) handleChat(s *session.Session, msg ChatDone) Report {
	r := Report{Handled: true, Op: opChat}
	if !s.Current(msg.Ticket.Generation) {
		return o.stale(r, msg.Ticket.Generation, s.Generation(), msg.Team, msg.Member)
	}
	if msg.Err != nil {
		s.FailSend(msg.Ticket)
		r.Err = msg.Err
		return r
	}

	rep := msg.Reply
	r.Outcome = s.ApplyChat(msg.Ticket, rep.BotMessage,
		session.Result{Distribution: rep.Distribution, FinalStage: rep.Stage, Feedback: rep.Feedback},
		rep.LastEmotions, rep.AccumEmotions)
	r.Next = o.teamInfoCmd(msg.Ticket.Generation, msg.Team, true)
	return r
}

func (o *Orchestrator) handleAnalysis(s *session.Session, msg AnalysisDone) Report {
	r := Report{Handled: true, Op: msg.Op}
	if !s.Current(msg.Gen) {
		return o.stale(r, msg.Gen, s.Generation(), msg.Team, "")
	}
	if msg.Err != nil {
		r.Err = msg.Err
		return r
	}

	var note string
	if msg.Op == opAnalyzeFile {
		note = fmt.Sprintf("(Analyzed uploaded chat log %s for team: %s)", msg.File, msg.Team)
	} else {
		note = fmt.Sprintf("(Analyzed %d lines for team: %s)", msg.Lines, msg.Team)
	}
	res := msg.Result
	r.Outcome = s.ApplyAnalysis(msg.Gen, note,
		session.Result{Distribution: res.Distribution, FinalStage: res.FinalStage, Feedback: res.Feedback})
	return r
}

func (o *Orchestrator) handleTeamInfo(s *session.Session, msg TeamInfoLoaded) Report {
	r := Report{Handled: true, Op: opTeamInfo}
	if !s.Current(msg.Gen) {
		return o.stale(r, msg.Gen, s.Generation(), msg.Team, "")
	}
	if api.IsNotFound(msg.Err) {
		return o.notFound(s, r, msg.Gen, msg.Team, "", fmt.Sprintf("Team %q does not exist yet.", msg.Team))
	}
	if msg.Err != nil {
		r.Err = msg.Err
		return r
	}

	res := session.Result{Distribution: msg.Info.Distribution, FinalStage: msg.Info.FinalStage, Feedback: msg.Info.Feedback}
	if msg.Reconcile {
		r.Outcome = s.ReconcileTeam(msg.Gen, res)
	} else {
		r.Outcome = s.ApplyTeamInfo(msg.Gen, res)
	}
	return r
}

func (o *Orchestrator) handleMemberInfo(s *session.Session, msg MemberInfoLoaded) Report {
	r := Report{Handled: true, Op: opMemberInfo}
	if !s.Current(msg.Gen) {
		return o.stale(r, msg.Gen, s.Generation(), msg.Team, msg.Member)
	}
	if api.IsNotFound(msg.Err) {
		notice := fmt.Sprintf("Member %q does not exist in team %q yet.", msg.Member, msg.Team)
		return o.notFound(s, r, msg.Gen, msg.Team, msg.Member, notice)
	}
	if msg.Err != nil {
		r.Err = msg.Err
		return r
	}

	info := msg.Info
	r.Outcome = s.ApplyMemberInfo(msg.Gen,
		session.Result{Distribution: info.Distribution, FinalStage: info.FinalStage, Feedback: info.PersonalFeedback},
		info.AccumEmotions)
	return r
}

func (o *Orchestrator) handleReset(s *session.Session, msg TeamReset) Report {
	r := Report{Handled: true, Op: opReset}
	if !s.Current(msg.Gen) {
		return o.stale(r, msg.Gen, s.Generation(), msg.Team, msg.Member)
	}
	if msg.Err != nil {
		r.Err = msg.Err
		return r
	}

	r.Outcome = s.ApplyReset(msg.Gen, "("+msg.Message+")")
	// ApplyReset bumped the generation, so the refetch belongs to the new one.
	r.Next = o.teamInfoCmd(s.Generation(), msg.Team, false)
	return r
}

func (o *Orchestrator) stale(r Report, issued, current uint64, team, member string) Report {
	r.Outcome = session.OutcomeStale
	o.events.Emit(otel.Event{
		Level: otel.LevelDebug, Kind: otel.KindRequestStale, Comp: comp,
		Op: r.Op, Gen: issued, Team: team, Member: member,
		Msg: fmt.Sprintf("issued in generation %d, session is at %d", issued, current),
	})
	logging.Debug("discarded stale response", "op", r.Op, "issued", issued, "current", current)
	return r
}

func (o *Orchestrator) notFound(s *session.Session, r Report, gen uint64, team, member, notice string) Report {
	r.Outcome = s.NotFound(gen, notice)
	o.events.Emit(otel.Event{
		Level: otel.LevelInfo, Kind: otel.KindRequestNotFound, Comp: comp,
		Op: r.Op, Gen: gen, Team: team, Member: member,
	})
	return r
}

func (o *Orchestrator) started(op string, gen uint64, token, team, member string) {
	o.events.Emit(otel.Event{
		Level: otel.LevelInfo, Kind: otel.KindRequestStart, Comp: comp,
		Op: op, Gen: gen, Token: token, Team: team, Member: member,
	})
}

// finished runs on the Cmd goroutine. Not-found is logged by Handle,
// which knows whether the result is still current.
func (o *Orchestrator) finished(op string, gen uint64, token, team, member string, dur time.Duration, err error) {
	if api.IsNotFound(err) {
		return
	}
	e := otel.Event{
		Level: otel.LevelInfo, Kind: otel.KindRequestComplete, Comp: comp,
		Op: op, Gen: gen, Token: token, Team: team, Member: member, Dur: dur,
	}
	if err != nil {
		e.Level, e.Kind, e.Err, e.Dur = otel.LevelError, otel.KindRequestError, err.Error(), 0
		var apiErr *api.APIError
		if errors.As(err, &apiErr) {
			e.Status = apiErr.Status
		}
		logging.Warn("request failed", "op", op, "team", team, "err", err)
	}
	o.events.Emit(e)
}

func (o *Orchestrator) record(r store.Result) {
	if o.journal == nil {
		return
	}
	if _, err := o.journal.Record(r); err != nil {
		o.events.Error(otel.KindJournalError, comp, err)
		logging.Warn("journal write failed", "team", r.Team, "err", err)
	}
}

func analysisRecord(team, member string, src store.Source, res api.AnalysisResult) store.Result {
	return store.Result{
		Team: team, Member: member, Source: src,
		FinalStage: res.FinalStage, Feedback: res.Feedback, Distribution: res.Distribution,
	}
}
