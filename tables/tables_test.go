package tables

import (
	"math"
	"testing"

	pdefd "github.com/cwbudde/algo-pde/fd"
	pdepoisson "github.com/cwbudde/algo-pde/poisson"
)

func TestMidiToFreq(t *testing.T) {
	if got := MidiToFreq(69); math.Abs(got-440.0) > 1e-9 {
		t.Fatalf("A4 should be 440Hz, got %f", got)
	}
	if got := MidiToFreq(60); math.Abs(got-261.6255653) > 1e-4 {
		t.Fatalf("middle C frequency wrong, got %f", got)
	}
}

func TestModeRatiosMonotoneIncreasing(t *testing.T) {
	for midi := MidiLo; midi <= MidiHi; midi++ {
		mu := TipMassRatio(midi)
		ratios := ModeRatios(mu)
		if ratios[0] != 1.0 {
			t.Fatalf("midi %d: mode_ratios[0] must be 1, got %f", midi, ratios[0])
		}
		for i := 1; i < NumModes; i++ {
			if ratios[i] <= ratios[i-1] {
				t.Fatalf("midi %d: mode ratios must be strictly increasing, got %v", midi, ratios)
			}
		}
	}
}

// TestModeRatiosAgreeWithIndependentEigensolve checks that an independent
// finite-difference eigenvalue solve and the mode ratios built from the
// hardcoded lambda table are both strictly increasing. It compares ordering
// only, not values or growth rates.
func TestModeRatiosAgreeWithIndependentEigensolve(t *testing.T) {
	const n = 64
	const h = 1.0 / float64(n)
	eig := pdefd.Eigenvalues(n, h, pdepoisson.Dirichlet)
	if len(eig) < NumModes {
		t.Fatalf("expected at least %d eigenvalues, got %d", NumModes, len(eig))
	}
	for i := 1; i < NumModes; i++ {
		if eig[i] <= eig[i-1] {
			t.Fatalf("reference eigensolve should also be strictly increasing: %v", eig)
		}
	}

	ratios := ModeRatios(TipMassRatio(60))
	for i := 1; i < NumModes; i++ {
		if ratios[i] <= ratios[i-1] {
			t.Fatalf("built-in table disagrees with reference eigensolve's ordering trend: %v", ratios)
		}
	}
}

func TestTipMassRatioAnchors(t *testing.T) {
	cases := []struct {
		midi int
		want float64
	}{
		{33, 0.10},
		{52, 0.00},
		{62, 0.00},
		{74, 0.02},
		{96, 0.01},
	}
	for _, c := range cases {
		if got := TipMassRatio(c.midi); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("TipMassRatio(%d) = %f, want %f", c.midi, got, c.want)
		}
	}
}

func TestOutputScaleDecreasesWithPitch(t *testing.T) {
	low := OutputScale(33)
	mid := OutputScale(60)
	high := OutputScale(96)
	if !(low > mid && mid > high) {
		t.Fatalf("expected output_scale to decrease with pitch: low=%f mid=%f high=%f", low, mid, high)
	}
}

func TestVelocityExponentBounds(t *testing.T) {
	for midi := MidiLo; midi <= MidiHi; midi++ {
		e := VelocityExponent(midi)
		if e < 0.75-1e-9 || e > 1.4+1e-9 {
			t.Fatalf("midi %d: velocity exponent %f out of bounds", midi, e)
		}
	}
	if center := VelocityExponent(62); center >= VelocityExponent(33) || center >= VelocityExponent(96) {
		t.Fatalf("expected center register exponent to be lowest, got center=%f", center)
	}
}

func TestBassModeTaperNoOpAboveC3(t *testing.T) {
	for mode := 0; mode < NumModes; mode++ {
		if got := BassModeTaper(60, mode); got != 1.0 {
			t.Fatalf("mode %d at midi 60 should be untapered, got %f", mode, got)
		}
	}
}

func TestBassModeTaperAttenuatesLowModes(t *testing.T) {
	prev := 1.0
	for mode := 1; mode < NumModes; mode++ {
		got := BassModeTaper(33, mode)
		if got >= prev {
			t.Fatalf("mode %d taper %f should be smaller than mode %d taper %f", mode, got, mode-1, prev)
		}
		prev = got
	}
}

func TestNoteParamsInvariant(t *testing.T) {
	for midi := MidiLo; midi <= MidiHi; midi++ {
		np := Note(midi)
		if np.ModeRatios[0] != 1.0 {
			t.Fatalf("midi %d: mode_ratios[0] must equal 1", midi)
		}
		for i := 1; i < NumModes; i++ {
			if np.ModeRatios[i] <= np.ModeRatios[i-1] {
				t.Fatalf("midi %d: mode ratios not strictly increasing", midi)
			}
		}
	}
}

func TestFreqDetuneDeterministicAndBounded(t *testing.T) {
	a := FreqDetune(60)
	b := FreqDetune(60)
	if a != b {
		t.Fatalf("FreqDetune must be deterministic")
	}
	if a < -0.008 || a > 0.008 {
		t.Fatalf("FreqDetune(60) = %f out of range", a)
	}
}

func TestFreqDetuneDiffersAcrossNotes(t *testing.T) {
	same := 0
	for midi := MidiLo; midi < MidiHi; midi++ {
		if FreqDetune(midi) == FreqDetune(midi+1) {
			same++
		}
	}
	if same > 0 {
		t.Fatalf("expected adjacent notes to have different detune, found %d collisions", same)
	}
}

func TestModeAmplitudeOffsetsBounded(t *testing.T) {
	for midi := MidiLo; midi <= MidiHi; midi++ {
		offs := ModeAmplitudeOffsets(midi)
		for i, o := range offs {
			if o < -0.08 || o > 0.08 {
				t.Fatalf("midi %d mode %d: offset %f out of range", midi, i, o)
			}
		}
	}
}

func TestIdentityCorrectionsIsNeutral(t *testing.T) {
	c := IdentityCorrections()
	for _, v := range c.FreqOffsetsCents {
		if v != 0 {
			t.Fatalf("identity freq offsets must be zero")
		}
	}
	for _, v := range c.DecayOffsets {
		if v != 1.0 {
			t.Fatalf("identity decay offsets must be 1.0")
		}
	}
	if c.DsCorrection != 1.0 {
		t.Fatalf("identity ds correction must be 1.0")
	}
}

func TestInferWithinBounds(t *testing.T) {
	for _, midi := range []int{65, 70, 80, 97} {
		c := Infer(midi, 0.8)
		for _, v := range c.FreqOffsetsCents {
			if v < -100 || v > 100 {
				t.Fatalf("midi %d: freq offset %f out of bounds", midi, v)
			}
		}
		for _, v := range c.DecayOffsets {
			if v < 0.3 || v > 3.0 {
				t.Fatalf("midi %d: decay offset %f out of bounds", midi, v)
			}
		}
		if c.DsCorrection < 0.7 || c.DsCorrection > 1.5 {
			t.Fatalf("midi %d: ds correction %f out of bounds", midi, c.DsCorrection)
		}
	}
}

func TestInferFadesToIdentityOutsideTrainedRangeAndFarAway(t *testing.T) {
	c := Infer(MidiLo, 0.5)
	identity := IdentityCorrections()
	if c != identity {
		t.Fatalf("far outside training range, Infer should equal identity, got %+v", c)
	}
}

func TestInferDifferentNotesDiffer(t *testing.T) {
	a := Infer(70, 0.8)
	b := Infer(80, 0.8)
	if a == b {
		t.Fatalf("expected different notes to produce different corrections")
	}
}

func TestPerceptualBeatWeightShape(t *testing.T) {
	if PerceptualBeatWeight(7) != 1.0 {
		t.Fatalf("expected peak weight in the 5-10Hz band")
	}
	if PerceptualBeatWeight(0.5) >= PerceptualBeatWeight(7) {
		t.Fatalf("expected sub-Hz beats to be weighted less than the peak band")
	}
	if PerceptualBeatWeight(100) != 0.0 {
		t.Fatalf("expected very fast beats to floor to zero weight")
	}
}

func TestIntermodRiskBelowThreshold(t *testing.T) {
	worst := 0.0
	for midi := MidiLo; midi <= MidiHi; midi++ {
		r := IntermodRisk(midi)
		if r.WorstRisk > worst {
			worst = r.WorstRisk
		}
	}
	threshold := worst * 1.25
	if threshold >= 0.2 {
		t.Fatalf("worst-case intermod risk %f leaves insufficient headroom (threshold %f)", worst, threshold)
	}
}
