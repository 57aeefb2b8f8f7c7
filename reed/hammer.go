package reed

import (
	"math"

	"github.com/hal0zero/openwurli/dsp"
	"github.com/hal0zero/openwurli/tables"
)

// DwellTime returns the hammer-reed contact duration in seconds: 0.5 ms at
// full velocity (ff), 2.5 ms at the softest touch (pp).
func DwellTime(velocity float64) float64 {
	return 0.0005 + 0.002*(1.0-velocity)
}

// DwellAttenuation computes the per-mode multiplier from the Gaussian
// dwell filter: the finite hammer/reed contact time acts as a one-shot
// low-pass across the modal spectrum, normalized so the fundamental is
// always unity.
func DwellAttenuation(velocity, fundamentalHz float64, modeRatios [tables.NumModes]float64) [tables.NumModes]float64 {
	tDwell := DwellTime(velocity)
	const sigmaSq = 8.0 * 8.0

	var atten [tables.NumModes]float64
	for i := 0; i < tables.NumModes; i++ {
		ft := fundamentalHz * modeRatios[i] * tDwell
		atten[i] = math.Exp(-ft * ft / (2 * sigmaSq))
	}

	a0 := atten[0]
	if a0 > 1e-30 {
		for i := range atten {
			atten[i] /= a0
		}
	}
	return atten
}

// AttackNoise is a 15 ms exponentially-decaying band-pass-filtered noise
// burst modeling the mechanical impact transient of the felt hammer
// striking the steel reed.
type AttackNoise struct {
	amplitude      float64
	decayPerSample float64
	remaining      int
	bpf            *dsp.Biquad
	rngState       uint32
}

// NewAttackNoise creates an attack-noise burst for a note-on. seed should
// be derived from (note, monotonic counter) so simultaneous voices of the
// same note stay decorrelated.
func NewAttackNoise(velocity, sampleRate float64, seed uint32) *AttackNoise {
	noiseAmp := 0.15 * velocity * velocity
	const tau = 0.003
	decayPerSample := math.Exp(-1.0 / (tau * sampleRate))
	durationSamples := int(0.015 * sampleRate)

	return &AttackNoise{
		amplitude:      noiseAmp,
		decayPerSample: decayPerSample,
		remaining:      durationSamples,
		bpf:            dsp.NewBandpass(1000.0, 1.0, sampleRate),
		rngState:       seed,
	}
}

// Render additively writes the decaying noise burst into output, returning
// the number of samples actually rendered (less than len(output) once the
// burst completes).
func (n *AttackNoise) Render(output []float64) int {
	count := n.remaining
	if count > len(output) {
		count = len(output)
	}

	amp := n.amplitude
	for i := 0; i < count; i++ {
		noise := n.nextNoise()
		filtered := n.bpf.Process(noise)
		output[i] += amp * filtered
		amp *= n.decayPerSample
	}

	n.amplitude = amp
	n.remaining -= count
	return count
}

// IsDone reports whether the noise burst has fully decayed out.
func (n *AttackNoise) IsDone() bool {
	return n.remaining == 0
}

func (n *AttackNoise) nextNoise() float64 {
	n.rngState = n.rngState*1664525 + 1013904223
	return float64(int32(n.rngState)) / float64(math.MaxInt32)
}
