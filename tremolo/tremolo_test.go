package tremolo

import (
	"math"
	"testing"
)

func TestZeroDepthHoldsMaxResistance(t *testing.T) {
	tr := New(44100.0, 5.6)
	tr.SetDepth(0)
	var last float64
	for i := 0; i < 10000; i++ {
		last = tr.Tick()
	}
	if math.Abs(last-(rMax+18000+50000)) > 1.0 {
		t.Fatalf("expected resistance to sit at the dark/series ceiling with zero depth, got %f", last)
	}
}

func TestFullDepthModulatesDownward(t *testing.T) {
	tr := New(44100.0, 5.6)
	tr.SetDepth(1.0)
	max := 0.0
	min := math.Inf(1)
	for i := 0; i < int(44100.0/5.6*4); i++ {
		r := tr.Tick()
		if r > max {
			max = r
		}
		if r < min {
			min = r
		}
	}
	if max-min < 1000 {
		t.Fatalf("expected full-depth modulation to produce a wide resistance swing, got range %f", max-min)
	}
	if min < rMin+18000-1 {
		t.Fatalf("resistance should not go below series+photo floor, got %f", min)
	}
}

func TestEnvelopeAttackFasterThanRelease(t *testing.T) {
	sr := 44100.0
	tr := New(sr, 1000.0) // fast LFO: many attack/release phases within one second
	tr.SetDepth(1.0)

	// A coefficient closer to 1 is a slower one-pole response.
	if tr.attackCoeff >= tr.releaseCoeff {
		t.Fatalf("expected attack to be faster than release: attackCoeff=%f releaseCoeff=%f", tr.attackCoeff, tr.releaseCoeff)
	}

	attackSamples := 0
	for i := 0; i < int(sr); i++ {
		before := tr.envelope
		tr.Tick()
		if tr.envelope > before {
			attackSamples++
		}
	}
	if attackSamples == 0 {
		t.Fatalf("expected to observe attack-phase envelope rise")
	}
}

func TestSeriesResistanceMonotoneInDepth(t *testing.T) {
	trLow := New(44100.0, 5.6)
	trLow.SetDepth(0.0)
	trLow.Tick()

	trHigh := New(44100.0, 5.6)
	trHigh.SetDepth(1.0)
	trHigh.Tick()

	if trHigh.series >= trLow.series {
		t.Fatalf("series resistance should decrease as depth increases: low=%f high=%f", trLow.series, trHigh.series)
	}
}
