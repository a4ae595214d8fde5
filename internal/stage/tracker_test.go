package stage

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeDeltaNoBaseline(t *testing.T) {
	cur := Distribution{Storming: 0.7, Forming: 0.1, Norming: 0.1, Performing: 0.05, Adjourning: 0.05}

	rows := ComputeDelta(nil, cur)
	if len(rows) != len(Order) {
		t.Fatalf("got %d rows, want %d", len(rows), len(Order))
	}
	for i, r := range rows {
		if r.Stage != Order[i] {
			t.Errorf("rows[%d].Stage = %s, want %s", i, r.Stage, Order[i])
		}
		if r.HasDelta {
			t.Errorf("%s: HasDelta should be false without baseline", r.Stage)
		}
		if r.Annotation() != "" {
			t.Errorf("%s: annotation should be empty, got %q", r.Stage, r.Annotation())
		}
	}
	if !approx(rows[1].Percent, 70) {
		t.Errorf("Storming percent = %v, want 70", rows[1].Percent)
	}
	if got := FormatPercent(rows[1].Percent); got != "70.00%" {
		t.Errorf("FormatPercent = %q, want 70.00%%", got)
	}
}

func TestComputeDeltaSigned(t *testing.T) {
	prev := Distribution{Storming: 0.7, Forming: 0.1, Norming: 0.1, Performing: 0.05, Adjourning: 0.05}
	cur := Distribution{Storming: 0.5, Forming: 0.1, Norming: 0.3, Performing: 0.05, Adjourning: 0.05}

	rows := ComputeDelta(prev, cur)
	byStage := map[Name]Change{}
	for _, r := range rows {
		byStage[r.Stage] = r
	}

	st := byStage[Storming]
	if !approx(st.Delta, -20) {
		t.Errorf("Storming delta = %v, want -20", st.Delta)
	}
	if st.Direction() != -1 {
		t.Errorf("Storming direction = %d, want -1", st.Direction())
	}
	if st.Annotation() != "(-20.00%)" {
		t.Errorf("Storming annotation = %q", st.Annotation())
	}

	no := byStage[Norming]
	if !approx(no.Delta, 20) {
		t.Errorf("Norming delta = %v, want 20", no.Delta)
	}
	if no.Annotation() != "(+20.00%)" {
		t.Errorf("Norming annotation = %q", no.Annotation())
	}

	fo := byStage[Forming]
	if fo.Significant() {
		t.Errorf("unchanged Forming should not be significant, delta=%v", fo.Delta)
	}
}

func TestNoiseThreshold(t *testing.T) {
	tests := []struct {
		name  string
		delta float64
		want  string
	}{
		{"exactly threshold", 0.001, ""},
		{"below threshold negative", -0.0005, ""},
		{"just above", 0.0011, "(+0.00%)"},
		{"large negative", -3.456, "(-3.46%)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Change{Stage: Norming, Delta: tt.delta, HasDelta: true}
			if got := c.Annotation(); got != tt.want {
				t.Errorf("Annotation() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComputeDeltaMissingKeysAreZero(t *testing.T) {
	prev := Distribution{Forming: 0.4}
	cur := Distribution{Storming: 0.4}

	rows := ComputeDelta(prev, cur)
	if !approx(rows[0].Delta, -40) {
		t.Errorf("Forming delta = %v, want -40", rows[0].Delta)
	}
	if !approx(rows[1].Delta, 40) {
		t.Errorf("Storming delta = %v, want 40", rows[1].Delta)
	}
	if rows[2].Significant() {
		t.Error("Norming absent in both should not be significant")
	}
}

func TestTrackerReplacesBaseline(t *testing.T) {
	var tr Tracker
	if tr.Baseline() != nil {
		t.Fatal("zero Tracker should have nil baseline")
	}

	d1 := Distribution{Storming: 0.7, Norming: 0.1}
	rows := tr.Apply(d1)
	if rows[1].HasDelta {
		t.Error("first Apply should have no deltas")
	}

	d2 := Distribution{Storming: 0.5, Norming: 0.3}
	rows = tr.Apply(d2)
	if !approx(rows[1].Delta, -20) || !approx(rows[2].Delta, 20) {
		t.Errorf("second Apply deltas = %v / %v", rows[1].Delta, rows[2].Delta)
	}

	// Mutating the caller's map must not leak into the baseline.
	d2[Storming] = 0.99
	if got := tr.Baseline().Get(Storming); !approx(got, 0.5) {
		t.Errorf("baseline Storming = %v, want 0.5", got)
	}

	tr.Reset()
	rows = tr.Apply(d2)
	for _, r := range rows {
		if r.HasDelta {
			t.Fatalf("Apply after Reset should have no deltas, got %+v", r)
		}
	}
}

func TestTrackerApplyEmptyKeepsBaseline(t *testing.T) {
	var tr Tracker
	tr.Apply(Distribution{})
	rows := tr.Apply(Distribution{Forming: 0.25})
	if !rows[0].HasDelta || !approx(rows[0].Delta, 25) {
		t.Errorf("empty distribution should still become the baseline, got %+v", rows[0])
	}
}

func TestFromMapDropsUnknown(t *testing.T) {
	d := FromMap(map[string]float64{"Storming": 0.6, "Chaos": 0.4})
	if len(d) != 1 {
		t.Fatalf("len = %d, want 1", len(d))
	}
	if d.Get("Chaos") != 0 {
		t.Error("unknown stage should be dropped")
	}
}

func TestDominant(t *testing.T) {
	if _, ok := (Distribution{}).Dominant(); ok {
		t.Error("empty distribution has no dominant stage")
	}
	n, ok := Distribution{Forming: 0.3, Norming: 0.3}.Dominant()
	if !ok || n != Forming {
		t.Errorf("Dominant = %s,%v want Forming,true", n, ok)
	}
}
