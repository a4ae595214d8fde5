package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/abelbrown/stagewatch/internal/otel"
	"github.com/abelbrown/stagewatch/internal/stage"
	"github.com/abelbrown/stagewatch/internal/store"
)

func TestRenderStage(t *testing.T) {
	d := stage.Distribution{stage.Norming: 0.75, stage.Storming: 0.25}
	out := renderStage("Team alpha", d, "Norming", "Keep going.")
	for _, want := range []string{"Team alpha", "75.00%", "25.00%", "Final stage:", "Keep going."} {
		if !strings.Contains(out, want) {
			t.Errorf("renderStage missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "(+") {
		t.Error("a single result has no deltas")
	}
}

func TestRenderStageUncertainLeaning(t *testing.T) {
	d := stage.Distribution{stage.Forming: 0.3, stage.Storming: 0.45, stage.Norming: 0.25}
	out := renderStage("Team alpha", d, stage.Uncertain, "")
	if !strings.Contains(out, "leaning Storming, 45.00%") {
		t.Errorf("uncertain verdict should name the heaviest stage:\n%s", out)
	}

	if out := renderStage("Team alpha", d, "Norming", ""); strings.Contains(out, "leaning") {
		t.Errorf("a settled verdict needs no hint:\n%s", out)
	}
	if out := renderStage("Team alpha", nil, "", ""); !strings.Contains(out, stage.Uncertain) || strings.Contains(out, "leaning") {
		t.Errorf("empty distribution should show a bare Uncertain:\n%s", out)
	}
}

func TestMatchEvent(t *testing.T) {
	defer func() { eventsKind, eventsLevel, eventsTeam = "", "", "" }()

	ev := otel.Event{Kind: otel.KindRequestError, Level: otel.LevelWarn, Team: "alpha"}
	tests := []struct {
		kind, level, team string
		want              bool
	}{
		{"", "", "", true},
		{"request", "", "", true},
		{"mode", "", "", false},
		{"", "warn", "", true},
		{"", "error", "", false},
		{"", "", "alpha", true},
		{"", "", "beta", false},
	}
	for _, tt := range tests {
		eventsKind, eventsLevel, eventsTeam = tt.kind, tt.level, tt.team
		if got := matchEvent(ev); got != tt.want {
			t.Errorf("matchEvent(kind=%q level=%q team=%q) = %v, want %v", tt.kind, tt.level, tt.team, got, tt.want)
		}
	}
}

func TestRunEventsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	l := otel.NewLogger(f)
	for i := 0; i < 5; i++ {
		l.Emit(otel.Event{Time: time.Now(), Level: otel.LevelInfo, Kind: otel.KindRequestStart, Comp: "orch", Team: "alpha"})
	}
	l.Close()
	f.Close()

	eventsFile, eventsTail = path, 2
	defer func() { eventsFile, eventsTail = "", 50 }()

	var out bytes.Buffer
	eventsCmd.SetOut(&out)
	if err := runEvents(eventsCmd, nil); err != nil {
		t.Fatalf("runEvents: %v", err)
	}
	if got := strings.Count(out.String(), "request.start"); got != 2 {
		t.Errorf("printed %d events, want 2:\n%s", got, out.String())
	}
}

func TestRunHistory(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "journal.db")
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("journal:\n  enabled: true\n  path: "+dbPath+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, d := range []stage.Distribution{
		{stage.Forming: 1},
		{stage.Forming: 0.5, stage.Storming: 0.5},
	} {
		if _, err := st.Record(store.Result{Team: "alpha", Source: store.SourceChat, FinalStage: "Forming", Distribution: d}); err != nil {
			t.Fatal(err)
		}
	}
	st.Close()

	configPath = cfgPath
	defer func() { configPath = "" }()

	var out bytes.Buffer
	historyCmd.SetOut(&out)
	if err := runHistory(historyCmd, []string{"alpha"}); err != nil {
		t.Fatalf("runHistory: %v", err)
	}
	if !strings.Contains(out.String(), "(-50.00%)") || !strings.Contains(out.String(), "(+50.00%)") {
		t.Errorf("history should annotate the second result:\n%s", out.String())
	}

	out.Reset()
	if err := runHistory(historyCmd, nil); err != nil {
		t.Fatalf("runHistory: %v", err)
	}
	if !strings.Contains(out.String(), "alpha") {
		t.Errorf("team list missing alpha:\n%s", out.String())
	}
}
