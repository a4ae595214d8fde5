package session

import (
	"errors"
	"testing"
)

func assertExactlyOne(t *testing.T, tg Toggles) {
	t.Helper()
	groups := map[Group][]Selection{
		GroupStage:   {SelectTeam, SelectMember},
		GroupEmotion: {SelectLast, SelectAccumulated},
	}
	for g, values := range groups {
		n := 0
		for _, v := range values {
			if tg.IsActive(g, v) {
				n++
			}
		}
		if n != 1 {
			t.Errorf("%s group has %d active values, want 1", g, n)
		}
	}
}

func TestTogglesSelect(t *testing.T) {
	tg := NewToggles()
	assertExactlyOne(t, tg)

	changed, err := tg.Select(GroupStage, SelectMember, ModeConversation)
	if err != nil || !changed {
		t.Fatalf("select member: changed=%v err=%v", changed, err)
	}
	if !tg.IsActive(GroupStage, SelectMember) || tg.IsActive(GroupStage, SelectTeam) {
		t.Error("member should be the only active stage value")
	}
	if !tg.IsActive(GroupEmotion, SelectLast) {
		t.Error("emotion group must not be affected")
	}
	assertExactlyOne(t, tg)

	changed, err = tg.Select(GroupStage, SelectMember, ModeConversation)
	if err != nil || changed {
		t.Errorf("reselect should be an idempotent no-op, changed=%v err=%v", changed, err)
	}
	assertExactlyOne(t, tg)
}

func TestTogglesAnalysisRestrictions(t *testing.T) {
	tg := NewToggles()

	_, err := tg.Select(GroupStage, SelectMember, ModeAnalysis)
	if !errors.Is(err, ErrViewUnavailable) {
		t.Errorf("member in analysis: err = %v, want ErrViewUnavailable", err)
	}
	_, err = tg.Select(GroupEmotion, SelectAccumulated, ModeAnalysis)
	if !errors.Is(err, ErrViewUnavailable) {
		t.Errorf("emotion in analysis: err = %v, want ErrViewUnavailable", err)
	}
	if !tg.IsActive(GroupStage, SelectTeam) || !tg.IsActive(GroupEmotion, SelectLast) {
		t.Error("rejected selections must leave toggles unchanged")
	}
	assertExactlyOne(t, tg)
}

func TestTogglesUnknownSelection(t *testing.T) {
	tg := NewToggles()
	_, err := tg.Select(GroupEmotion, SelectTeam, ModeConversation)
	if !errors.Is(err, ErrUnknownSelection) {
		t.Errorf("err = %v, want ErrUnknownSelection", err)
	}
}

func TestTogglesResetAndForceTeam(t *testing.T) {
	tg := NewToggles()
	tg.Select(GroupStage, SelectMember, ModeConversation)
	tg.Select(GroupEmotion, SelectAccumulated, ModeConversation)

	tg.ForceTeam()
	if !tg.IsActive(GroupStage, SelectTeam) || !tg.IsActive(GroupEmotion, SelectAccumulated) {
		t.Error("ForceTeam touches only the stage group")
	}

	tg.Reset()
	if tg != NewToggles() {
		t.Errorf("Reset = %+v, want defaults", tg)
	}
}

func TestModeTransitionTable(t *testing.T) {
	tests := []struct {
		from, to Mode
		swap     bool
	}{
		{ModeConversation, ModeAnalysis, true},
		{ModeAnalysis, ModeConversation, true},
		{ModeConversation, ModeConversation, false},
		{ModeAnalysis, ModeAnalysis, false},
	}
	for _, tt := range tests {
		next, eff, err := transition(tt.from, tt.to)
		if err != nil {
			t.Fatalf("%s->%s: %v", tt.from, tt.to, err)
		}
		if next != tt.to {
			t.Errorf("%s->%s landed in %s", tt.from, tt.to, next)
		}
		if eff.Has(EffectSwapInputs) != tt.swap {
			t.Errorf("%s->%s swap = %v, want %v", tt.from, tt.to, eff.Has(EffectSwapInputs), tt.swap)
		}
		if !eff.Has(EffectResetSnapshot | EffectClearEmotions | EffectResetToggles | EffectClearTranscript) {
			t.Errorf("%s->%s missing reset effects: %b", tt.from, tt.to, eff)
		}
	}
}
