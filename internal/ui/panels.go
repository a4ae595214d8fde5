package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"

	"github.com/abelbrown/stagewatch/internal/emotion"
	"github.com/abelbrown/stagewatch/internal/session"
	"github.com/abelbrown/stagewatch/internal/stage"
)

const noEmotions = "No emotions detected."

// renderToggles draws one toggle group as tabs. disabled values are struck
// through.
func renderToggles(labels []string, active int, disabled map[int]bool) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		switch {
		case disabled[i]:
			parts[i] = ToggleDisabled.Render(l)
		case i == active:
			parts[i] = ToggleActive.Render(l)
		default:
			parts[i] = ToggleInactive.Render(l)
		}
	}
	return strings.Join(parts, "")
}

// bar renders a proportional bar for pct (0..100) in width cells.
func bar(pct float64, width int) string {
	if width < 1 {
		return ""
	}
	filled := int(pct/100*float64(width) + 0.5)
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return BarFill.Render(strings.Repeat("█", filled)) + BarEmpty.Render(strings.Repeat("░", width-filled))
}

func renderDelta(c stage.Change) string {
	switch c.Direction() {
	case 1:
		return DeltaUp.Render(c.Annotation())
	case -1:
		return DeltaDown.Render(c.Annotation())
	}
	return ""
}

// renderStagePanel draws the stage view: toggles, one bar per stage,
// the final stage and feedback. width is the inner width.
func renderStagePanel(p session.Panel, tg session.Toggles, mode session.Mode, notice string, width int) string {
	active := 0
	if tg.IsActive(session.GroupStage, session.SelectMember) {
		active = 1
	}
	var disabled map[int]bool
	if mode == session.ModeAnalysis {
		disabled = map[int]bool{1: true}
	}

	var lines []string
	lines = append(lines, PanelTitle.Render("Stage")+"  "+renderToggles([]string{"team", "member"}, active, disabled))

	// name(11) + space + bar + space + "100.00%"(7) + space + "(+100.00%)"(10)
	barWidth := width - 11 - 1 - 1 - 7 - 1 - 10
	if barWidth < 4 {
		barWidth = 4
	}
	for _, c := range p.Rows {
		line := StageLabel.Render(string(c.Stage)) + " " + bar(c.Percent, barWidth) + " " +
			fmt.Sprintf("%7s", stage.FormatPercent(c.Percent))
		if d := renderDelta(c); d != "" {
			line += " " + d
		}
		lines = append(lines, line)
	}

	lines = append(lines, "", "Final stage: "+FinalStageStyle.Render(p.FinalStage))
	if p.Feedback != "" {
		lines = append(lines, FeedbackStyle.Render(wordwrap.String(p.Feedback, width)))
	}
	if notice != "" {
		lines = append(lines, "", NoticeStyle.Render(wordwrap.String(notice, width)))
	}
	return strings.Join(lines, "\n")
}

// renderEmotionPanel draws the ranked emotion list. ok is false when the
// current mode has no emotion views.
func renderEmotionPanel(entries []emotion.Entry, ok bool, tg session.Toggles, width int) string {
	active := 0
	if tg.IsActive(session.GroupEmotion, session.SelectAccumulated) {
		active = 1
	}
	var disabled map[int]bool
	if !ok {
		disabled = map[int]bool{0: true, 1: true}
	}

	lines := []string{PanelTitle.Render("Emotions") + "  " + renderToggles([]string{"last", "accumulated"}, active, disabled)}
	switch {
	case !ok:
		lines = append(lines, NoteStyle.Render("Not available in analysis mode."))
	case len(entries) == 0:
		lines = append(lines, NoteStyle.Render(noEmotions))
	default:
		labelWidth := 12
		barWidth := width - labelWidth - 1 - 1 - 7
		if barWidth < 4 {
			barWidth = 4
		}
		for _, e := range entries {
			label := runewidth.FillRight(runewidth.Truncate(e.Label, labelWidth, "…"), labelWidth)
			lines = append(lines, fmt.Sprintf("%s %s %6.2f%%", label, bar(e.Percent, barWidth), e.Percent))
		}
	}
	return strings.Join(lines, "\n")
}

// renderTranscript draws the conversation. Pending entries show the
// spinner frame.
func renderTranscript(entries []session.Entry, width int, spinnerFrame string) string {
	if width < 10 {
		width = 10
	}
	bubbleWidth := width * 3 / 4
	var out []string
	for _, e := range entries {
		switch e.Kind {
		case session.EntryUser:
			text := UserBubble.Render(wordwrap.String(e.Text, bubbleWidth))
			out = append(out, lipgloss.PlaceHorizontal(width, lipgloss.Right, text))
		case session.EntryBot:
			out = append(out, BotBubble.Render(wordwrap.String(e.Text, bubbleWidth)))
		case session.EntryPending:
			out = append(out, PendingBubble.Render(spinnerFrame+" "+e.Text))
		case session.EntryNote:
			out = append(out, NoteStyle.Render(wordwrap.String(e.Text, width)))
		}
	}
	return strings.Join(out, "\n")
}
