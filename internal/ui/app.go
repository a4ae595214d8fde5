package ui

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/stagewatch/internal/intake"
	"github.com/abelbrown/stagewatch/internal/orchestrator"
	"github.com/abelbrown/stagewatch/internal/otel"
	"github.com/abelbrown/stagewatch/internal/session"
)

type field int

const (
	fieldTeam field = iota
	fieldMember
	fieldMessage
	fieldBulk
	fieldPath
)

type promptKind int

const (
	promptNone promptKind = iota
	promptSwitchMode
	promptReset
)

const (
	sidePanelWidth = 48
	bulkHeight     = 6
)

var errNoFeedback = errors.New("no feedback to copy yet")

// AppConfig wires the App to its collaborators. Only Orchestrator is
// required.
type AppConfig struct {
	Orchestrator *orchestrator.Orchestrator
	Events       *otel.Logger
	Ring         *otel.RingBuffer

	ServerURL string
	Team      string
	Member    string

	LastTopK       int
	AccumTopK      int
	AutoLoadOnBlur bool

	// ReadFile loads a file into the bulk input. Defaults to intake.ReadText.
	ReadFile func(path string) (string, error)
	// Clipboard copies text. Defaults to clipboard.WriteAll.
	Clipboard func(text string) error
}

// App is the root Bubble Tea model.
// All session state lives in *session.Session and is only touched here,
// on the Update goroutine. Network work happens in orchestrator Cmds.
type App struct {
	cfg     AppConfig
	orch    *orchestrator.Orchestrator
	session *session.Session
	keys    keyMap

	team    textinput.Model
	member  textinput.Model
	message textinput.Model
	path    textinput.Model
	bulk    textarea.Model

	transcript viewport.Model
	spinner    spinner.Model
	help       help.Model

	focus     field
	pending   int
	prompt    promptKind
	err       error
	status    string
	showDebug bool

	width  int
	height int
	ready  bool
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	return ti
}

// NewApp creates the App in Conversation mode with the team field focused.
func NewApp(cfg AppConfig) App {
	if cfg.ReadFile == nil {
		cfg.ReadFile = intake.ReadText
	}
	if cfg.Clipboard == nil {
		cfg.Clipboard = clipboard.WriteAll
	}
	if cfg.LastTopK <= 0 {
		cfg.LastTopK = 5
	}
	if cfg.AccumTopK <= 0 {
		cfg.AccumTopK = 10
	}

	a := App{
		cfg:     cfg,
		orch:    cfg.Orchestrator,
		session: session.New(),
		keys:    defaultKeyMap(),
		team:    newInput("team name", 128),
		member:  newInput("your name", 128),
		message: newInput("type a message", 2000),
		path:    newInput("path/to/chat.txt", 1024),
		help:    help.New(),
	}
	a.team.SetValue(strings.TrimSpace(cfg.Team))
	a.member.SetValue(strings.TrimSpace(cfg.Member))

	a.bulk = textarea.New()
	a.bulk.Placeholder = "one message per line"
	a.bulk.ShowLineNumbers = false
	a.bulk.CharLimit = 0
	a.bulk.SetHeight(bulkHeight)

	a.spinner = spinner.New()
	a.spinner.Spinner = spinner.Dot
	a.spinner.Style = PendingBubble

	a.transcript = viewport.New(0, 0)
	a.team.Focus()
	return a
}

// Session exposes the session for inspection.
func (a App) Session() *session.Session { return a.session }

// Pending returns the number of requests in flight.
func (a App) Pending() int { return a.pending }

// Err returns the error currently shown in the status line.
func (a App) Err() error { return a.err }

// Init starts the cursor blink. The initial team, if one was given on
// the command line, loads once the first window size arrives.
func (a App) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if otel.TraceEnabled() {
		if name := fmt.Sprintf("%T", msg); otel.TraceMsg(name) {
			a.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindMsgReceived, Comp: "ui", Msg: name})
		}
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		first := !a.ready
		a.width = msg.Width
		a.height = msg.Height
		a.ready = true
		a.layout()
		var cmd tea.Cmd
		if first {
			cmd = a.loadInitialTeam()
		}
		a.refreshTranscript()
		return a, cmd

	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case spinner.TickMsg:
		if a.pending == 0 {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		a.refreshTranscript()
		return a, cmd

	case FileLoaded:
		if msg.Err != nil {
			a.err = msg.Err
			return a, nil
		}
		a.bulk.SetValue(msg.Text)
		a.status = fmt.Sprintf("Loaded %s (%d lines)", filepath.Base(msg.Path), len(session.SplitLines(msg.Text)))
		return a, nil

	case ClipboardCopied:
		if msg.Err != nil {
			a.err = fmt.Errorf("copy %s: %w", msg.What, msg.Err)
		} else {
			a.status = fmt.Sprintf("Copied %s to clipboard", msg.What)
		}
		return a, nil
	}

	if a.orch != nil {
		if rep := a.orch.Handle(a.session, msg); rep.Handled {
			return a.afterResult(rep)
		}
	}
	return a.updateFocused(msg)
}

// afterResult applies the bookkeeping shared by every service result.
func (a App) afterResult(rep orchestrator.Report) (tea.Model, tea.Cmd) {
	if a.pending > 0 {
		a.pending--
	}
	if rep.Err != nil {
		a.err = rep.Err
	}
	a.refreshTranscript()
	if rep.Next != nil {
		next := a.track(rep.Next)
		return a, next
	}
	return a, nil
}

// track counts cmd as in flight and starts the spinner for the first one.
func (a *App) track(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	a.pending++
	if a.pending == 1 {
		return tea.Batch(cmd, a.spinner.Tick)
	}
	return cmd
}

func (a *App) fail(err error) {
	a.err = err
	a.status = ""
}

func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Quit) {
		return a, tea.Quit
	}
	if a.prompt != promptNone {
		return a.handlePrompt(msg)
	}

	// Clear any existing error on key press
	a.err = nil

	switch {
	case key.Matches(msg, a.keys.Dismiss):
		a.status = ""
		return a, nil

	case key.Matches(msg, a.keys.Debug):
		a.showDebug = !a.showDebug
		a.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindKeyPress, Comp: "ui", Msg: msg.String()})
		return a, nil

	case key.Matches(msg, a.keys.SwitchMode):
		a.prompt = promptSwitchMode
		return a, nil

	case key.Matches(msg, a.keys.Reset):
		if err := session.ValidateTeam(a.team.Value()); err != nil {
			a.fail(err)
			return a, nil
		}
		a.prompt = promptReset
		return a, nil

	case key.Matches(msg, a.keys.TeamView):
		return a.selectView(session.GroupStage, session.SelectTeam)
	case key.Matches(msg, a.keys.MemberView):
		return a.selectView(session.GroupStage, session.SelectMember)
	case key.Matches(msg, a.keys.LastView):
		return a.selectView(session.GroupEmotion, session.SelectLast)
	case key.Matches(msg, a.keys.AccumView):
		return a.selectView(session.GroupEmotion, session.SelectAccumulated)

	case key.Matches(msg, a.keys.Copy):
		cmd := a.copyFeedback()
		return a, cmd

	case key.Matches(msg, a.keys.NextField):
		return a.cycleFocus(1)
	case key.Matches(msg, a.keys.PrevField):
		return a.cycleFocus(-1)

	case key.Matches(msg, a.keys.Send) && a.focus == fieldMessage:
		return a.send()
	case key.Matches(msg, a.keys.AnalyzeBulk):
		return a.analyzeBulk()
	case key.Matches(msg, a.keys.LoadFile):
		return a.loadFile()
	case key.Matches(msg, a.keys.Upload):
		return a.upload()
	}

	if msg.Type == tea.KeyPgUp || msg.Type == tea.KeyPgDown {
		var cmd tea.Cmd
		a.transcript, cmd = a.transcript.Update(msg)
		return a, cmd
	}
	return a.updateFocused(msg)
}

func (a App) handlePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var yes bool
	switch {
	case key.Matches(msg, a.keys.Confirm):
		yes = true
	case key.Matches(msg, a.keys.Decline):
	default:
		return a, nil
	}

	kind := a.prompt
	a.prompt = promptNone
	switch kind {
	case promptSwitchMode:
		return a.switchMode(yes)
	case promptReset:
		if !yes {
			return a, nil
		}
		cmd, err := a.orch.ResetTeam(a.session, a.team.Value(), a.member.Value())
		if err != nil {
			a.fail(err)
			return a, nil
		}
		cmd = a.track(cmd)
		return a, cmd
	}
	return a, nil
}

func (a App) targetMode() session.Mode {
	if a.session.Mode() == session.ModeAnalysis {
		return session.ModeConversation
	}
	return session.ModeAnalysis
}

// switchMode resolves the switch prompt. A declined switch leaves
// everything untouched.
func (a App) switchMode(confirmed bool) (tea.Model, tea.Cmd) {
	from, target := a.session.Mode(), a.targetMode()
	eff, err := a.session.TransitionTo(target, confirmed)
	if err != nil {
		a.fail(err)
		return a, nil
	}
	if !confirmed {
		a.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindModeDeclined, Comp: "ui",
			Msg: fmt.Sprintf("%s -> %s", from, target)})
		return a, nil
	}
	a.emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindModeSwitch, Comp: "ui",
		Gen: a.session.Generation(), Msg: fmt.Sprintf("%s -> %s", from, target)})

	if eff.Has(session.EffectClearInputs) {
		a.member.Reset()
		a.message.Reset()
		a.path.Reset()
		a.bulk.Reset()
	}
	var cmds []tea.Cmd
	if eff.Has(session.EffectSwapInputs) {
		cmds = append(cmds, a.setFocus(fieldTeam))
	}
	a.layout()
	a.refreshTranscript()

	if eff.Has(session.EffectRefetchTeam) && a.session.KnownTeam() != "" {
		if cmd, err := a.orch.FetchTeamInfo(a.session, a.session.KnownTeam()); err == nil {
			cmds = append(cmds, a.track(cmd))
		}
	}
	return a, tea.Batch(cmds...)
}

// selectView activates a toggle. Stage selections load the matching
// aggregate so the panel reflects the chosen scope, and the accumulated
// emotion view loads the member's history. A selection whose load fails
// validation is rolled back.
func (a App) selectView(g session.Group, v session.Selection) (tea.Model, tea.Cmd) {
	prev := a.session.Toggles().Active(g)
	if _, err := a.session.Select(g, v); err != nil {
		if errors.Is(err, session.ErrViewUnavailable) {
			err = fmt.Errorf("%s view is not available in %s mode", v, a.session.Mode())
		}
		a.fail(err)
		return a, nil
	}

	cmd, err := a.viewLoad(g, v)
	if err != nil {
		a.session.Select(g, prev)
		a.fail(err)
		return a, nil
	}
	a.emit(otel.Event{Level: otel.LevelDebug, Kind: otel.KindViewSelect, Comp: "ui", Msg: fmt.Sprintf("%s=%s", g, v)})
	if cmd == nil {
		return a, nil
	}
	cmd = a.track(cmd)
	return a, cmd
}

// viewLoad returns the request that fills a freshly selected view, or nil
// when the view needs nothing from the server.
func (a App) viewLoad(g session.Group, v session.Selection) (tea.Cmd, error) {
	if a.orch == nil {
		return nil, nil
	}
	team, member := strings.TrimSpace(a.team.Value()), strings.TrimSpace(a.member.Value())
	switch {
	case g == session.GroupStage && v == session.SelectTeam:
		if team == "" {
			return nil, nil
		}
		return a.orch.FetchTeamInfo(a.session, team)
	case g == session.GroupStage && v == session.SelectMember:
		return a.orch.FetchMemberInfo(a.session, team, member)
	case g == session.GroupEmotion && v == session.SelectAccumulated:
		if team == "" || member == "" {
			return nil, nil
		}
		return a.orch.FetchMemberInfo(a.session, team, member)
	}
	return nil, nil
}

// loadInitialTeam fetches the team preset from the command line.
func (a *App) loadInitialTeam() tea.Cmd {
	team := strings.TrimSpace(a.team.Value())
	if team == "" || a.orch == nil {
		return nil
	}
	cmd, err := a.orch.FetchTeamInfo(a.session, team)
	if err != nil {
		return nil
	}
	return a.track(cmd)
}

// fields returns the inputs visible in the current mode, in tab order.
func (a App) fields() []field {
	if a.session.Mode() == session.ModeAnalysis {
		return []field{fieldTeam, fieldMember, fieldBulk, fieldPath}
	}
	return []field{fieldTeam, fieldMember, fieldMessage}
}

func (a App) cycleFocus(dir int) (tea.Model, tea.Cmd) {
	fs := a.fields()
	idx := 0
	for i, f := range fs {
		if f == a.focus {
			idx = i
		}
	}
	leaving := a.focus
	idx = (idx + dir + len(fs)) % len(fs)

	cmds := []tea.Cmd{a.setFocus(fs[idx])}
	if cmd := a.loadOnBlur(leaving); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

// loadOnBlur fetches the aggregate for the field just left: the team
// always, the member only while the member view is showing.
func (a *App) loadOnBlur(left field) tea.Cmd {
	if !a.cfg.AutoLoadOnBlur || a.orch == nil {
		return nil
	}
	team := strings.TrimSpace(a.team.Value())
	if team == "" {
		return nil
	}
	switch left {
	case fieldTeam:
		if a.session.Toggles().IsActive(session.GroupStage, session.SelectMember) && a.member.Value() != "" {
			cmd, err := a.orch.FetchMemberInfo(a.session, team, a.member.Value())
			if err != nil {
				return nil
			}
			return a.track(cmd)
		}
		cmd, err := a.orch.FetchTeamInfo(a.session, team)
		if err != nil {
			return nil
		}
		return a.track(cmd)
	case fieldMember:
		if !a.session.Toggles().IsActive(session.GroupStage, session.SelectMember) || a.member.Value() == "" {
			return nil
		}
		cmd, err := a.orch.FetchMemberInfo(a.session, team, a.member.Value())
		if err != nil {
			return nil
		}
		return a.track(cmd)
	}
	return nil
}

func (a *App) setFocus(f field) tea.Cmd {
	a.focus = f
	a.team.Blur()
	a.member.Blur()
	a.message.Blur()
	a.path.Blur()
	a.bulk.Blur()
	switch f {
	case fieldTeam:
		return a.team.Focus()
	case fieldMember:
		return a.member.Focus()
	case fieldMessage:
		return a.message.Focus()
	case fieldBulk:
		return a.bulk.Focus()
	case fieldPath:
		return a.path.Focus()
	}
	return nil
}

func (a App) send() (tea.Model, tea.Cmd) {
	cmd, err := a.orch.SendMessage(a.session, a.team.Value(), a.member.Value(), a.message.Value())
	if err != nil {
		a.fail(err)
		return a, nil
	}
	a.message.Reset()
	a.refreshTranscript()
	cmd = a.track(cmd)
	return a, cmd
}

func (a App) analyzeBulk() (tea.Model, tea.Cmd) {
	cmd, err := a.orch.AnalyzeBulk(a.session, a.team.Value(), a.member.Value(), a.bulk.Value())
	if err != nil {
		a.fail(err)
		return a, nil
	}
	cmd = a.track(cmd)
	return a, cmd
}

func (a App) upload() (tea.Model, tea.Cmd) {
	cmd, err := a.orch.AnalyzeFile(a.session, a.team.Value(), a.member.Value(), a.path.Value())
	if err != nil {
		a.fail(err)
		return a, nil
	}
	a.status = "Uploading " + filepath.Base(a.path.Value())
	cmd = a.track(cmd)
	return a, cmd
}

// loadFile reads the path field into the bulk input without sending it.
func (a App) loadFile() (tea.Model, tea.Cmd) {
	if a.session.Mode() != session.ModeAnalysis {
		a.fail(&session.ValidationError{Field: "mode", Msg: "files can only be loaded in analysis mode"})
		return a, nil
	}
	path := strings.TrimSpace(a.path.Value())
	if path == "" {
		a.fail(&session.ValidationError{Field: "file", Msg: "please choose a text file to load"})
		return a, nil
	}
	read := a.cfg.ReadFile
	return a, func() tea.Msg {
		text, err := read(path)
		return FileLoaded{Path: path, Text: text, Err: err}
	}
}

func (a *App) copyFeedback() tea.Cmd {
	fb := a.session.Panel().Feedback
	if fb == "" {
		a.fail(errNoFeedback)
		return nil
	}
	copyFn := a.cfg.Clipboard
	return func() tea.Msg {
		return ClipboardCopied{What: "feedback", Err: copyFn(fb)}
	}
}

// updateFocused forwards msg to the focused input.
func (a App) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.focus {
	case fieldTeam:
		a.team, cmd = a.team.Update(msg)
	case fieldMember:
		a.member, cmd = a.member.Update(msg)
	case fieldMessage:
		a.message, cmd = a.message.Update(msg)
	case fieldBulk:
		a.bulk, cmd = a.bulk.Update(msg)
	case fieldPath:
		a.path, cmd = a.path.Update(msg)
	}
	return a, cmd
}

func (a *App) emit(e otel.Event) {
	if a.cfg.Events != nil {
		a.cfg.Events.Emit(e)
	}
}

func (a App) sideWidth() int {
	w := sidePanelWidth
	if a.width < 2*w {
		w = a.width / 2
	}
	return w
}

func (a App) inputHeight() int {
	if a.session.Mode() == session.ModeAnalysis {
		return 4 + bulkHeight
	}
	return 3
}

// layout sizes the viewport and inputs for the current window and mode.
func (a *App) layout() {
	if !a.ready {
		return
	}
	left := a.width - a.sideWidth()
	// header, blank line, status line, help line
	h := a.height - 4 - a.inputHeight()
	if h < 3 {
		h = 3
	}
	a.transcript.Width = left
	a.transcript.Height = h

	inputWidth := left - 10
	if inputWidth < 10 {
		inputWidth = 10
	}
	a.team.Width = inputWidth
	a.member.Width = inputWidth
	a.message.Width = inputWidth
	a.path.Width = inputWidth
	a.bulk.SetWidth(left - 1)
	a.help.Width = a.width
}

func (a *App) refreshTranscript() {
	a.transcript.SetContent(renderTranscript(a.session.Transcript().Entries(), a.transcript.Width, a.spinner.View()))
	a.transcript.GotoBottom()
}

// View renders the App.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	header := a.renderHeader()
	if a.showDebug {
		overlay := debugOverlay(a.cfg.Ring, a.session.Generation(), a.pending, a.width, a.height-2)
		return lipgloss.JoinVertical(lipgloss.Left, header, overlay, debugStatusBar(a.width))
	}

	left := lipgloss.JoinVertical(lipgloss.Left, a.transcript.View(), "", a.renderInputs())
	left = lipgloss.NewStyle().Width(a.width - a.sideWidth()).Render(left)

	inner := a.sideWidth() - 4
	mode := a.session.Mode()
	var k int
	if a.session.Toggles().IsActive(session.GroupEmotion, session.SelectAccumulated) {
		k = a.cfg.AccumTopK
	} else {
		k = a.cfg.LastTopK
	}
	entries, ok := a.session.Emotions(k)
	side := SidePanel.Width(a.sideWidth() - 2).Render(
		renderStagePanel(a.session.Panel(), a.session.Toggles(), mode, a.session.Notice(), inner) +
			"\n\n" + renderEmotionPanel(entries, ok, a.session.Toggles(), inner))

	body := lipgloss.JoinHorizontal(lipgloss.Top, left, side)
	helpLine := a.help.ShortHelpView(a.keys.modeHelp(mode == session.ModeAnalysis))
	return lipgloss.JoinVertical(lipgloss.Left, header, body, a.renderStatus(), helpLine)
}

func (a App) renderHeader() string {
	h := HeaderStyle.Render("stagewatch") + ModeBadge.Render(a.session.Mode().String())
	if a.cfg.ServerURL != "" {
		h += StatusBarText.Render("  " + a.cfg.ServerURL)
	}
	if a.pending > 0 {
		h += "  " + a.spinner.View() + StatusBarText.Render(fmt.Sprintf(" %d in flight", a.pending))
	}
	return h
}

func (a App) renderInputs() string {
	row := func(label string, f field, view string) string {
		st := InputLabel
		if a.focus == f {
			st = InputLabelFocused
		}
		return st.Render(label) + view
	}
	rows := []string{
		row("Team", fieldTeam, a.team.View()),
		row("Member", fieldMember, a.member.View()),
	}
	if a.session.Mode() == session.ModeAnalysis {
		rows = append(rows, row("Chat log", fieldBulk, ""), a.bulk.View(), row("File", fieldPath, a.path.View()))
	} else {
		rows = append(rows, row("Message", fieldMessage, a.message.View()))
	}
	return strings.Join(rows, "\n")
}

func (a App) renderStatus() string {
	switch {
	case a.prompt == promptSwitchMode:
		return PromptStyle.Render(fmt.Sprintf("Switch to %s mode? The conversation and stage view will be cleared. (y/n)", a.targetMode()))
	case a.prompt == promptReset:
		return PromptStyle.Render(fmt.Sprintf("Reset all server-side history for team %q? (y/n)", strings.TrimSpace(a.team.Value())))
	case a.err != nil:
		return ErrorStyle.Render("Error: " + a.err.Error())
	case a.status != "":
		return StatusBarText.Render(a.status)
	}
	return ""
}
