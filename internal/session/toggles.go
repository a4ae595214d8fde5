package session

import (
	"errors"
	"fmt"
)

// Group names one of the two independent toggle groups.
type Group int

const (
	GroupStage Group = iota
	GroupEmotion
)

func (g Group) String() string {
	if g == GroupEmotion {
		return "emotion"
	}
	return "stage"
}

// Selection is a value within a toggle group.
type Selection string

const (
	SelectTeam        Selection = "team"
	SelectMember      Selection = "member"
	SelectLast        Selection = "last"
	SelectAccumulated Selection = "accumulated"
)

var (
	// ErrViewUnavailable means the selection is not allowed in the current mode.
	ErrViewUnavailable = errors.New("view unavailable")
	// ErrUnknownSelection means the value does not belong to the group.
	ErrUnknownSelection = errors.New("unknown selection")
)

// Toggles tracks the active value of each group. Exactly one value per
// group is active at any time; the zero value is not valid, use NewToggles.
type Toggles struct {
	stage   Selection
	emotion Selection
}

// NewToggles returns toggles at their defaults: team and last.
func NewToggles() Toggles {
	return Toggles{stage: SelectTeam, emotion: SelectLast}
}

func validFor(g Group, v Selection) bool {
	switch g {
	case GroupStage:
		return v == SelectTeam || v == SelectMember
	case GroupEmotion:
		return v == SelectLast || v == SelectAccumulated
	}
	return false
}

// Select activates v in group g. Selecting the active value is a no-op.
// Member-scoped views are rejected in Analysis mode and leave the group
// unchanged.
func (t *Toggles) Select(g Group, v Selection, mode Mode) (changed bool, err error) {
	if !validFor(g, v) {
		return false, fmt.Errorf("%w: %q in %s group", ErrUnknownSelection, v, g)
	}
	if mode == ModeAnalysis && (g == GroupEmotion || v == SelectMember) {
		return false, fmt.Errorf("%w: %s view in %s mode", ErrViewUnavailable, v, mode)
	}
	if t.Active(g) == v {
		return false, nil
	}
	if g == GroupStage {
		t.stage = v
	} else {
		t.emotion = v
	}
	return true, nil
}

// Active returns the active value of g.
func (t Toggles) Active(g Group) Selection {
	if g == GroupEmotion {
		return t.emotion
	}
	return t.stage
}

// IsActive reports whether v is the active value of g.
func (t Toggles) IsActive(g Group, v Selection) bool {
	return t.Active(g) == v
}

// Reset restores the defaults.
func (t *Toggles) Reset() {
	*t = NewToggles()
}

// ForceTeam sets the stage group to team regardless of mode.
func (t *Toggles) ForceTeam() {
	t.stage = SelectTeam
}
