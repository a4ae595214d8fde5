package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/stagewatch/internal/otel"
)

var (
	eventsFile   string
	eventsDate   string
	eventsTail   int
	eventsFollow bool
	eventsKind   string
	eventsLevel  string
	eventsComp   string
	eventsTeam   string
	eventsJSON   bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the JSONL event log",
	Long: `Show recent events from the TUI's event log, by default today's file
under ~/.stagewatch/events.

Examples:
  stagewatch events --kind request --level warn
  stagewatch events --team alpha -f
  stagewatch events --date 2026-10-14 --json`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&eventsFile, "file", "", "event log to read")
	eventsCmd.Flags().StringVar(&eventsDate, "date", "", "day to read, YYYY-MM-DD (default today)")
	eventsCmd.Flags().IntVarP(&eventsTail, "tail", "n", 50, "number of recent events to show")
	eventsCmd.Flags().BoolVarP(&eventsFollow, "follow", "f", false, "keep printing new events")
	eventsCmd.Flags().StringVar(&eventsKind, "kind", "", "event kind prefix (e.g. request)")
	eventsCmd.Flags().StringVar(&eventsLevel, "level", "", "minimum level: debug, info, warn, error")
	eventsCmd.Flags().StringVar(&eventsComp, "comp", "", "component name")
	eventsCmd.Flags().StringVar(&eventsTeam, "team", "", "team name")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "print raw JSON lines")
	rootCmd.AddCommand(eventsCmd)
}

// levelRank returns a numeric rank for filtering (higher = more severe).
func levelRank(level otel.Level) int {
	switch level {
	case otel.LevelInfo:
		return 1
	case otel.LevelWarn:
		return 2
	case otel.LevelError:
		return 3
	default:
		return 0
	}
}

func eventLogPath() (string, error) {
	if eventsFile != "" {
		return eventsFile, nil
	}
	day := time.Now()
	if eventsDate != "" {
		d, err := time.ParseInLocation("2006-01-02", eventsDate, time.Local)
		if err != nil {
			return "", fmt.Errorf("bad --date: %w", err)
		}
		day = d
	}
	return otel.DefaultPath(day)
}

func matchEvent(ev otel.Event) bool {
	if eventsKind != "" && !strings.HasPrefix(string(ev.Kind), eventsKind) {
		return false
	}
	if eventsLevel != "" && levelRank(ev.Level) < levelRank(otel.Level(eventsLevel)) {
		return false
	}
	if eventsComp != "" && ev.Comp != eventsComp {
		return false
	}
	if eventsTeam != "" && ev.Team != eventsTeam {
		return false
	}
	return true
}

func formatEvent(ev otel.Event) string {
	if eventsJSON {
		b, err := json.Marshal(ev)
		if err != nil {
			return ""
		}
		return string(b)
	}
	lvl := strings.ToUpper(string(ev.Level))
	if lvl == "" {
		lvl = "?"
	}
	return fmt.Sprintf("%s %-5s [%-12s] %s", ev.Time.Local().Format("15:04:05.000"), lvl, ev.Comp, ev.Summary())
}

func runEvents(cmd *cobra.Command, _ []string) error {
	path, err := eventLogPath()
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("no event log at %s; run the TUI first to generate events", path)
		}
		return err
	}
	defer f.Close()

	events, skipped, err := otel.ReadEvents(f)
	if err != nil {
		return err
	}
	var matched []otel.Event
	for _, ev := range events {
		if matchEvent(ev) {
			matched = append(matched, ev)
		}
	}
	if eventsTail > 0 && len(matched) > eventsTail {
		matched = matched[len(matched)-eventsTail:]
	}

	out := cmd.OutOrStdout()
	for _, ev := range matched {
		fmt.Fprintln(out, formatEvent(ev))
	}
	if skipped > 0 && !eventsJSON {
		fmt.Fprintln(cmd.ErrOrStderr(), noteStyle.Render(fmt.Sprintf("(%d malformed lines skipped)", skipped)))
	}
	if !eventsFollow {
		return nil
	}

	// Follow mode: poll for lines appended after the initial read
	reader := bufio.NewReader(f)
	ctx := cmd.Context()
	var partial []byte
	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return err
			}
			partial = append(partial, line...)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(100 * time.Millisecond):
			}
			continue
		}
		if len(partial) > 0 {
			line = append(partial, line...)
			partial = nil
		}
		var ev otel.Event
		if json.Unmarshal(line, &ev) != nil {
			continue
		}
		if matchEvent(ev) {
			fmt.Fprintln(out, formatEvent(ev))
		}
	}
}
