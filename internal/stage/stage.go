// Package stage models the five group-development stages and the deltas
// between consecutive distributions returned by the analysis service.
package stage

import "fmt"

// Name is one of the five fixed group-development stages.
type Name string

const (
	Forming    Name = "Forming"
	Storming   Name = "Storming"
	Norming    Name = "Norming"
	Performing Name = "Performing"
	Adjourning Name = "Adjourning"
)

// Uncertain is what the service reports when no final stage is determined.
const Uncertain = "Uncertain"

// Order is the display order of stages. Never reorder.
var Order = []Name{Forming, Storming, Norming, Performing, Adjourning}

// Known reports whether n is one of the five stages.
func Known(n Name) bool {
	for _, s := range Order {
		if s == n {
			return true
		}
	}
	return false
}

// Distribution maps stage to a probability-like weight in [0,1].
// Values are server-defined and need not sum to 1. Treat as immutable.
type Distribution map[Name]float64

// FromMap builds a Distribution from a decoded JSON object.
// Keys that are not stage names are dropped.
func FromMap(m map[string]float64) Distribution {
	d := make(Distribution, len(Order))
	for k, v := range m {
		n := Name(k)
		if Known(n) {
			d[n] = v
		}
	}
	return d
}

// Get returns the weight for n, or 0 if absent.
func (d Distribution) Get(n Name) float64 {
	if d == nil {
		return 0
	}
	return d[n]
}

// Clone returns an independent copy. Clone of nil is nil.
func (d Distribution) Clone() Distribution {
	if d == nil {
		return nil
	}
	cp := make(Distribution, len(d))
	for k, v := range d {
		cp[k] = v
	}
	return cp
}

// Dominant returns the stage with the highest weight, ties going to the
// earlier stage in Order. Returns false for an all-zero distribution.
func (d Distribution) Dominant() (Name, bool) {
	var best Name
	bestVal := 0.0
	for _, s := range Order {
		if v := d.Get(s); v > bestVal {
			best, bestVal = s, v
		}
	}
	return best, bestVal > 0
}

// FormatPercent renders a percentage with two decimals. Display only.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p)
}
