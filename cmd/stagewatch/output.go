package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"golang.org/x/term"

	"github.com/abelbrown/stagewatch/internal/emotion"
	"github.com/abelbrown/stagewatch/internal/stage"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	finalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("78"))
	noteStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240"))
	upStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	downStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
)

const (
	barWidth  = 24
	wrapWidth = 56
)

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func bar(pct float64) string {
	n := int(pct/100*barWidth + 0.5)
	if n < 0 {
		n = 0
	}
	if n > barWidth {
		n = barWidth
	}
	return strings.Repeat("█", n) + strings.Repeat("░", barWidth-n)
}

func renderRows(rows []stage.Change) []string {
	lines := make([]string, 0, len(rows))
	for _, c := range rows {
		line := fmt.Sprintf("%-11s %s %7s", c.Stage, bar(c.Percent), stage.FormatPercent(c.Percent))
		switch c.Direction() {
		case 1:
			line += " " + upStyle.Render(c.Annotation())
		case -1:
			line += " " + downStyle.Render(c.Annotation())
		}
		lines = append(lines, line)
	}
	return lines
}

// renderStage draws a distribution box with the verdict and feedback.
func renderStage(title string, d stage.Distribution, final, feedback string) string {
	lines := []string{titleStyle.Render(title)}
	lines = append(lines, renderRows(stage.ComputeDelta(nil, d))...)
	lines = append(lines, "", finalLine(final, d))
	if feedback != "" {
		lines = append(lines, wordwrap.String(feedback, wrapWidth))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

// finalLine shows the service's verdict. When it could not settle on a
// stage, the heaviest stage is shown as a hint.
func finalLine(final string, d stage.Distribution) string {
	if final == "" {
		final = stage.Uncertain
	}
	line := "Final stage: " + finalStyle.Render(final)
	if final != stage.Uncertain {
		return line
	}
	if lead, ok := d.Dominant(); ok {
		line += " " + noteStyle.Render(fmt.Sprintf("(leaning %s, %s)", lead, stage.FormatPercent(d.Get(lead)*100)))
	}
	return line
}

func renderEmotions(s emotion.Scores, k int) string {
	entries := emotion.Rank(s, k)
	lines := []string{titleStyle.Render("Accumulated emotions")}
	if len(entries) == 0 {
		lines = append(lines, noteStyle.Render("No emotions detected."))
	}
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%-12s %s %6.2f%%", e.Label, bar(e.Percent), e.Percent))
	}
	return boxStyle.Render(strings.Join(lines, "\n"))
}

func renderSideBySide(left, right string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)
}
