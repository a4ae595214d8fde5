package store

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/abelbrown/stagewatch/internal/stage"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestOpen(t *testing.T) {
	st := openTest(t)

	var name string
	err := st.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='results'").Scan(&name)
	if err != nil {
		t.Fatalf("results table not created: %v", err)
	}
}

func TestOpenFileTwice(t *testing.T) {
	path := t.TempDir() + "/journal.db"
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := st.Record(Result{Team: "t", Source: SourceChat, FinalStage: "Forming"}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	st.Close()

	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	got, err := st.Recent("t", 10)
	if err != nil || len(got) != 1 {
		t.Errorf("after reopen: %d results, err %v", len(got), err)
	}
}

func TestRecordAndRecent(t *testing.T) {
	st := openTest(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	inputs := []Result{
		{Team: "alpha", Source: SourceChat, FinalStage: "Storming", Feedback: "talk it out",
			Distribution: stage.Distribution{stage.Storming: 0.6, stage.Forming: 0.4}, At: base},
		{Team: "alpha", Member: "bob", Source: SourceMemberInfo, FinalStage: "Norming",
			Distribution: stage.Distribution{stage.Norming: 1}, At: base.Add(time.Minute)},
		{Team: "beta", Source: SourceAnalyze, FinalStage: "Performing", At: base.Add(2 * time.Minute)},
	}
	for _, r := range inputs {
		if _, err := st.Record(r); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	got, err := st.Recent("alpha", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d results, want 2", len(got))
	}
	if got[0].Member != "bob" || got[0].Source != SourceMemberInfo {
		t.Errorf("newest first: got %+v", got[0])
	}
	if got[1].Distribution.Get(stage.Storming) != 0.6 || got[1].Feedback != "talk it out" {
		t.Errorf("oldest = %+v", got[1])
	}
	if !got[1].At.Equal(base) {
		t.Errorf("At = %v, want %v", got[1].At, base)
	}

	all, err := st.Recent("", 2)
	if err != nil {
		t.Fatalf("Recent all: %v", err)
	}
	if len(all) != 2 || all[0].Team != "beta" {
		t.Errorf("all = %+v", all)
	}
}

func TestRecordRequiresTeam(t *testing.T) {
	st := openTest(t)
	if _, err := st.Record(Result{Source: SourceChat}); err == nil {
		t.Error("expected error for empty team")
	}
}

func TestRecordNilDistribution(t *testing.T) {
	st := openTest(t)
	if _, err := st.Record(Result{Team: "t", Source: SourceTeamInfo, FinalStage: stage.Uncertain}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, _ := st.Recent("t", 1)
	if len(got) != 1 || got[0].Distribution == nil || len(got[0].Distribution) != 0 {
		t.Errorf("got %+v", got)
	}
}

func TestTeamsAndForget(t *testing.T) {
	st := openTest(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	st.Record(Result{Team: "alpha", Source: SourceChat, FinalStage: "Forming", At: base})
	st.Record(Result{Team: "alpha", Source: SourceChat, FinalStage: "Storming", At: base.Add(time.Hour)})
	st.Record(Result{Team: "beta", Source: SourceAnalyze, FinalStage: "Norming", At: base.Add(time.Minute)})

	teams, err := st.Teams()
	if err != nil {
		t.Fatalf("Teams: %v", err)
	}
	if len(teams) != 2 {
		t.Fatalf("got %d teams", len(teams))
	}
	if teams[0].Team != "alpha" || teams[0].Results != 2 || teams[0].LastStage != "Storming" {
		t.Errorf("teams[0] = %+v", teams[0])
	}

	n, err := st.ForgetTeam("alpha")
	if err != nil || n != 2 {
		t.Errorf("ForgetTeam = %d, %v", n, err)
	}
	teams, _ = st.Teams()
	if len(teams) != 1 || teams[0].Team != "beta" {
		t.Errorf("after forget: %+v", teams)
	}
}

func TestConcurrentRecord(t *testing.T) {
	st := openTest(t)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := st.Record(Result{Team: fmt.Sprintf("team-%d", i%3), Source: SourceChat, FinalStage: "Forming"})
			if err != nil {
				errs <- err
			}
			if _, err := st.Recent("", 5); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent: %v", err)
	}

	all, _ := st.Recent("", 100)
	if len(all) != 20 {
		t.Errorf("got %d results, want 20", len(all))
	}
}
