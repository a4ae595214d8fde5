package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/abelbrown/stagewatch/internal/otel"
)

// debugPanelChrome is the number of terminal lines consumed by DebugPanel's
// border (top + bottom = 2) and vertical padding (top + bottom = 2).
const debugPanelChrome = 4

// debugOverlay renders request stats and recent events. Returns empty
// string if ring is nil.
func debugOverlay(ring *otel.RingBuffer, gen uint64, pending int, width, height int) string {
	if ring == nil {
		return ""
	}

	stats := ring.Stats()

	var lines []string
	lines = append(lines, DebugHeaderStyle.Render("Requests"))
	lines = append(lines, fmt.Sprintf("  Started:    %d   in flight: %d (ui: %d)", stats.Started, stats.InFlight(), pending))
	lines = append(lines, fmt.Sprintf("  Completed:  %d   avg %s", stats.Completed, stats.AvgDur.Round(time.Millisecond)))
	lines = append(lines, fmt.Sprintf("  Failed:     %d   not found: %d", stats.Failed, stats.NotFound))
	lines = append(lines, fmt.Sprintf("  Stale:      %d   generation: %d", stats.Stale, gen))
	lines = append(lines, fmt.Sprintf("  Buffer:     %d / %d events", ring.Len(), ring.Cap()))
	lines = append(lines, "")

	panelWidth := 84
	if panelWidth > width-4 {
		panelWidth = width - 4
	}
	if panelWidth < 20 {
		panelWidth = 20
	}
	// inner width minus horizontal padding, age column and kind column
	textWidth := panelWidth - 4 - 8 - 20
	if textWidth < 10 {
		textWidth = 10
	}

	lines = append(lines, DebugHeaderStyle.Render("Recent Events"))
	for _, e := range ring.Last(20) {
		detail := strings.TrimPrefix(e.Summary(), string(e.Kind))
		line := fmt.Sprintf("  %6s  %-18s", formatAge(time.Since(e.Time)), string(e.Kind))
		if detail = strings.TrimSpace(detail); detail != "" {
			line += runewidth.Truncate(detail, textWidth, "…")
		}
		lines = append(lines, line)
	}

	maxHeight := height - debugPanelChrome
	if maxHeight < 1 {
		maxHeight = 1
	}
	if len(lines) > maxHeight {
		lines = lines[:maxHeight]
	}

	return DebugPanel.Width(panelWidth).Render(strings.Join(lines, "\n"))
}

// formatAge formats a duration as a compact human string.
// Negative durations from clock skew clamp to "0ms".
func formatAge(d time.Duration) string {
	if d < 0 {
		return "0ms"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%.0fm", d.Minutes())
	}
}

// debugStatusBar renders the status bar for the debug overlay.
func debugStatusBar(width int) string {
	keys := StatusBarKey.Render("ctrl+d") + StatusBarText.Render(":close")
	return StatusBar.Width(width).Render("  [DEBUG]  " + keys)
}
