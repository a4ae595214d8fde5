// Package emotion holds emotion score maps and ranks them for display.
package emotion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Score is one label/intensity pair as received from the server.
type Score struct {
	Label string
	Value float64
}

// Scores maps emotion label to a non-negative intensity, keeping the
// order in which labels arrived. The zero value is an empty map.
type Scores struct {
	m *orderedmap.OrderedMap[string, float64]
}

// NewScores builds Scores from pairs in the given order. A repeated label
// keeps its first position and takes the last value.
func NewScores(pairs ...Score) Scores {
	m := orderedmap.New[string, float64]()
	for _, p := range pairs {
		m.Set(p.Label, p.Value)
	}
	return Scores{m: m}
}

// Len returns the number of labels.
func (s Scores) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

// Get returns the score for label.
func (s Scores) Get(label string) (float64, bool) {
	if s.m == nil {
		return 0, false
	}
	return s.m.Get(label)
}

// Pairs returns the scores in arrival order.
func (s Scores) Pairs() []Score {
	if s.m == nil {
		return nil
	}
	out := make([]Score, 0, s.m.Len())
	for p := s.m.Oldest(); p != nil; p = p.Next() {
		out = append(out, Score{Label: p.Key, Value: p.Value})
	}
	return out
}

// UnmarshalJSON decodes a JSON object preserving key order.
// null decodes to an empty map. Negative scores are clamped to 0.
func (s *Scores) UnmarshalJSON(data []byte) error {
	m := orderedmap.New[string, float64]()
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		s.m = m
		return nil
	}
	if err := m.UnmarshalJSON(trimmed); err != nil {
		return fmt.Errorf("decode emotion scores: %w", err)
	}
	for p := m.Oldest(); p != nil; p = p.Next() {
		if p.Value < 0 || math.IsNaN(p.Value) {
			p.Value = 0
		}
	}
	s.m = m
	return nil
}

// MarshalJSON encodes the scores as a JSON object in arrival order.
func (s Scores) MarshalJSON() ([]byte, error) {
	if s.m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(s.m)
}

// Entry is one ranked row ready for display.
type Entry struct {
	Label   string
	Percent float64
}

// Rank returns at most k entries sorted by descending score. Ties keep
// arrival order. An empty map or k <= 0 yields an empty slice; the caller
// decides what to show instead.
func Rank(s Scores, k int) []Entry {
	pairs := s.Pairs()
	if len(pairs) == 0 || k <= 0 {
		return []Entry{}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].Value > pairs[j].Value
	})
	if k < len(pairs) {
		pairs = pairs[:k]
	}
	out := make([]Entry, len(pairs))
	for i, p := range pairs {
		out[i] = Entry{Label: p.Label, Percent: round2(p.Value * 100)}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
