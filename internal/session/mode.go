package session

import (
	"errors"
	"fmt"
)

// Mode is the session's top-level state.
type Mode int

const (
	ModeConversation Mode = iota
	ModeAnalysis
)

func (m Mode) String() string {
	switch m {
	case ModeConversation:
		return "conversation"
	case ModeAnalysis:
		return "analysis"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Effect is a bit set of side effects a confirmed transition requires.
type Effect uint16

const (
	EffectNone            Effect = 0
	EffectClearTranscript Effect = 1 << iota
	EffectClearInputs
	EffectResetSnapshot
	EffectClearEmotions
	EffectResetToggles
	EffectSwapInputs
	EffectRefetchTeam
)

// Has reports whether all bits of f are set.
func (e Effect) Has(f Effect) bool {
	return e&f == f
}

// ErrIllegalTransition is returned for (state, target) pairs not in the table.
var ErrIllegalTransition = errors.New("illegal mode transition")

const resetEffects = EffectClearTranscript | EffectClearInputs | EffectResetSnapshot |
	EffectClearEmotions | EffectResetToggles | EffectRefetchTeam

type modeEdge struct {
	from, to Mode
}

// transitions enumerates every legal edge. Re-entering the current mode
// restarts it without swapping input affordances.
var transitions = map[modeEdge]Effect{
	{ModeConversation, ModeAnalysis}:     resetEffects | EffectSwapInputs,
	{ModeAnalysis, ModeConversation}:     resetEffects | EffectSwapInputs,
	{ModeConversation, ModeConversation}: resetEffects,
	{ModeAnalysis, ModeAnalysis}:         resetEffects,
}

func transition(from, to Mode) (Mode, Effect, error) {
	eff, ok := transitions[modeEdge{from, to}]
	if !ok {
		return from, EffectNone, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return to, eff, nil
}
