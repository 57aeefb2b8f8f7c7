package tables

import "math"

// IntermodProduct describes one candidate beat between two reed modes that
// falls close enough together in frequency to risk an audible,
// amplitude-modulation-style "beating" artifact rather than a clean
// harmonic blend.
type IntermodProduct struct {
	ModeA, ModeB int
	BeatHz       float64
	Weight       float64
	Risk         float64
}

// IntermodReport summarizes the worst-case beat risk across the mode pairs
// of a note that IntermodRisk examines (every pair among modes 2 and up).
type IntermodReport struct {
	Products  []IntermodProduct
	WorstRisk float64
}

// PerceptualBeatWeight is a psychoacoustic weighting curve: beats below a
// few Hz are perceived as pitch, beats above ~20 Hz fuse into roughness or
// a third tone, and the most objectionable "wobble" sits around 5-10 Hz.
// Returns a value in [0, 1].
func PerceptualBeatWeight(beatHz float64) float64 {
	b := math.Abs(beatHz)
	switch {
	case b < 1.0:
		return b
	case b <= 5.0:
		return 0.75/4.0*(b-1.0) + 0.25
	case b <= 10.0:
		return 1.0
	case b <= 20.0:
		return 1.0 - (b-10.0)/10.0*0.7
	case b <= 40.0:
		return 0.3 - (b-20.0)/20.0*0.3
	default:
		return 0.0
	}
}

// IntermodRisk analyzes a note's built-in mode table for pairs of modes
// whose frequency difference lands in the perceptually sensitive beat
// band. This is a diagnostic/regression tool, not part of the real-time
// signal path: it is used to keep the fixed parameter tables from
// accidentally producing a "warbly" note as the tip-mass and decay curves
// are tuned.
func IntermodRisk(midi int) IntermodReport {
	note := Note(midi)
	var report IntermodReport

	for i := 2; i < NumModes; i++ {
		for j := i + 1; j < NumModes; j++ {
			fi := note.FundamentalHz * note.ModeRatios[i]
			fj := note.FundamentalHz * note.ModeRatios[j]
			beat := math.Abs(fj - fi)
			weight := PerceptualBeatWeight(beat)

			ampI := note.ModeAmplitudes[i]
			ampJ := note.ModeAmplitudes[j]
			risk := weight * math.Min(ampI, ampJ)

			report.Products = append(report.Products, IntermodProduct{
				ModeA: i, ModeB: j, BeatHz: beat, Weight: weight, Risk: risk,
			})
			if risk > report.WorstRisk {
				report.WorstRisk = risk
			}
		}
	}

	return report
}
