package stage

import (
	"fmt"
	"math"
)

// NoiseThreshold is the smallest delta, in percentage points, that gets a
// visible annotation. It filters float noise from the server's arithmetic
// and is never applied to stored values.
const NoiseThreshold = 0.001

// Change is one rendered stage row: the current percentage and, when a
// baseline existed, the signed percentage-point delta against it.
type Change struct {
	Stage    Name
	Percent  float64
	Delta    float64
	HasDelta bool
}

// Significant reports whether the delta should be shown at all.
func (c Change) Significant() bool {
	return c.HasDelta && math.Abs(c.Delta) > NoiseThreshold
}

// Direction is +1 for a significant rise, -1 for a significant fall, 0 otherwise.
func (c Change) Direction() int {
	if !c.Significant() {
		return 0
	}
	if c.Delta > 0 {
		return 1
	}
	return -1
}

// Annotation renders the delta as "(+20.00%)" or "(-20.00%)".
// Insignificant or missing deltas render as "".
func (c Change) Annotation() string {
	switch c.Direction() {
	case 1:
		return fmt.Sprintf("(+%.2f%%)", c.Delta)
	case -1:
		return fmt.Sprintf("(%.2f%%)", c.Delta)
	}
	return ""
}

// ComputeDelta returns one Change per stage in Order. With a nil prev no
// row carries a delta.
func ComputeDelta(prev, cur Distribution) []Change {
	rows := make([]Change, len(Order))
	for i, s := range Order {
		c := Change{Stage: s, Percent: cur.Get(s) * 100}
		if prev != nil {
			c.Delta = (cur.Get(s) - prev.Get(s)) * 100
			c.HasDelta = true
		}
		rows[i] = c
	}
	return rows
}

// Zero returns rows for an empty panel: 0% everywhere, no deltas.
func Zero() []Change {
	return ComputeDelta(nil, nil)
}

// Tracker retains the last applied distribution so the next one can be
// diffed against it. The zero value has no baseline.
type Tracker struct {
	prev Distribution
}

// Apply diffs cur against the baseline and then replaces the baseline with
// cur, whether or not the caller ends up displaying the rows.
func (t *Tracker) Apply(cur Distribution) []Change {
	rows := ComputeDelta(t.prev, cur)
	t.prev = cur.Clone()
	if t.prev == nil {
		t.prev = Distribution{}
	}
	return rows
}

// Reset drops the baseline; the next Apply has no deltas.
func (t *Tracker) Reset() {
	t.prev = nil
}

// Baseline returns a copy of the current baseline, nil if none.
func (t *Tracker) Baseline() Distribution {
	return t.prev.Clone()
}
