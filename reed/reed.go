// Package reed implements the modal reed oscillator bank, the linear
// electrostatic pickup, the hammer attack-noise burst, and their
// composition into one note's Voice.
package reed

import (
	"math"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	approx "github.com/cwbudde/algo-approx"

	"github.com/hal0zero/openwurli/tables"
)

const (
	jitterSigma = 0.0004
	jitterTau   = 0.020
)

// ModalReed is a bank of tables.NumModes damped sinusoids with stochastic
// per-mode frequency jitter, raised-cosine onset ramps, a post-hammer
// impact-overshoot envelope, and a three-register damper model.
type ModalReed struct {
	sampleRate float64

	phases         [tables.NumModes]float64
	phaseIncs      [tables.NumModes]float64
	amplitudes     [tables.NumModes]float64
	decayPerSample [tables.NumModes]float64

	onsetRampSamples [tables.NumModes]uint64
	onsetRampInc     [tables.NumModes]float64

	damperActive       bool
	damperRates        [tables.NumModes]float64
	damperRampSamples  float64
	damperReleaseCount float64
	damperIntegral     [tables.NumModes]float64

	jitterState    uint32
	jitterDrift    [tables.NumModes]float64
	jitterRevert   float64
	jitterDiffuse  float64
	impactOvershoot float64
	impactDecay    float64

	sample uint64
}

// New builds a modal reed for one note-on. dwellTimeS comes from the
// hammer model; jitterSeed should be derived from (note, allocation
// counter) so simultaneous voices of the same note decorrelate.
func New(fundamentalHz float64, modeRatios, amplitudes, decayRatesDb [tables.NumModes]float64, dwellTimeS, sampleRate float64, jitterSeed uint32) *ModalReed {
	r := &ModalReed{
		sampleRate: sampleRate,
		amplitudes: amplitudes,
		jitterState: jitterSeed,
	}

	r.jitterRevert = math.Exp(-1.0 / (jitterTau * sampleRate))
	r.jitterDiffuse = jitterSigma * math.Sqrt(1-r.jitterRevert*r.jitterRevert)

	for i := 0; i < tables.NumModes; i++ {
		r.phaseIncs[i] = 2 * math.Pi * fundamentalHz * modeRatios[i] / sampleRate
		r.decayPerSample[i] = (decayRatesDb[i] / 8.686) / sampleRate

		rampSeconds := dwellTimeS * math.Pow(modeRatios[i], 0.25)
		if dwellTimeS > rampSeconds {
			rampSeconds = dwellTimeS
		}
		rampSamples := uint64(rampSeconds * sampleRate)
		if rampSamples < 1 {
			rampSamples = 1
		}
		r.onsetRampSamples[i] = rampSamples
		r.onsetRampInc[i] = math.Pi / float64(rampSamples)

		// Seed jitter from its stationary distribution: no warm-up needed.
		r.jitterDrift[i] = jitterSigma * r.lcgNormal()
	}

	return r
}

// SetImpactOvershoot arms the post-hammer "bark" envelope:
// 1 + overshoot * decayFactor^n, where decayFactor is derived from tauS.
func (r *ModalReed) SetImpactOvershoot(amount, tauS, sampleRate float64) {
	r.impactOvershoot = amount
	r.impactDecay = math.Exp(-1.0 / (tauS * sampleRate))
}

// StartDamper arms the three-register damper ramp on note-off. The top
// five keys (MIDI >= 92) are undamped on this instrument and this is a
// no-op for them.
func (r *ModalReed) StartDamper(midiNote int, sampleRate float64) {
	if midiNote >= 92 {
		return
	}

	baseRate := 55.0 * math.Pow(2, (float64(midiNote)-60)/24.0)
	if baseRate < 0.5 {
		baseRate = 0.5
	}

	var rampSeconds float64
	switch {
	case midiNote < 48:
		rampSeconds = 0.050
	case midiNote < 72:
		rampSeconds = 0.025
	default:
		rampSeconds = 0.008
	}

	for i := 0; i < tables.NumModes; i++ {
		factor := baseRate * math.Pow(3, float64(i))
		if factor > 2000 {
			factor = 2000
		}
		r.damperRates[i] = factor / sampleRate
		r.damperIntegral[i] = 0
	}

	r.damperActive = true
	r.damperRampSamples = rampSeconds * sampleRate
	r.damperReleaseCount = 0
}

// IsDamping reports whether the damper has been armed.
func (r *ModalReed) IsDamping() bool {
	return r.damperActive
}

// ReleaseSeconds returns elapsed time since the damper was armed.
func (r *ModalReed) ReleaseSeconds(sampleRate float64) float64 {
	return r.damperReleaseCount / sampleRate
}

// Render additively accumulates the reed output into output; it does not
// clear the buffer first, so callers mix multiple sources into one scratch
// buffer by calling Render on each.
func (r *ModalReed) Render(output []float64) {
	for n := range output {
		if r.damperActive {
			if r.damperReleaseCount < r.damperRampSamples {
				frac := r.damperReleaseCount / r.damperRampSamples
				for i := 0; i < tables.NumModes; i++ {
					r.damperIntegral[i] += r.damperRates[i] * frac
				}
			} else {
				for i := 0; i < tables.NumModes; i++ {
					r.damperIntegral[i] += r.damperRates[i]
				}
			}
			r.damperReleaseCount++
		}

		sum := 0.0
		sampleF := float64(r.sample)
		for i := 0; i < tables.NumModes; i++ {
			noise := r.lcgNormal()
			r.jitterDrift[i] = r.jitterRevert*r.jitterDrift[i] + r.jitterDiffuse*noise

			var onset float64
			if r.sample < r.onsetRampSamples[i] {
				onset = 0.5 * (1 - math.Cos(sampleF*r.onsetRampInc[i]))
			} else {
				onset = 1.0
			}

			totalDecay := approx.FastExp(float32(-r.decayPerSample[i]*sampleF - r.damperIntegral[i]))
			sum += r.amplitudes[i] * math.Sin(r.phases[i]) * onset * float64(totalDecay)

			r.phases[i] += r.phaseIncs[i] * (1 + r.jitterDrift[i])
		}

		if r.sample&0x3FF == 0 {
			for i := 0; i < tables.NumModes; i++ {
				r.phases[i] = math.Mod(r.phases[i], 2*math.Pi)
			}
		}

		overshootEnv := 1 + r.impactOvershoot
		r.impactOvershoot *= r.impactDecay

		mixed := float32(output[n] + sum*overshootEnv)
		output[n] = float64(dspcore.FlushDenormals(mixed))
		r.sample++
	}
}

// lcgNormal draws one standard-normal sample from the jitter LCG stream
// using a Box-Muller transform (cosine branch only; the sine branch is
// discarded rather than cached, trading a little throughput for a
// simpler, allocation-free one-sample-at-a-time API).
func (r *ModalReed) lcgNormal() float64 {
	r.jitterState = r.jitterState*1664525 + 1013904223
	u1 := float64(r.jitterState) / 4294967296.0
	r.jitterState = r.jitterState*1664525 + 1013904223
	u2 := float64(r.jitterState) / 4294967296.0

	if u1 < 1e-12 {
		u1 = 1e-12
	}
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// IsSilent reports whether every mode's current envelope is below the
// given dBFS threshold.
func (r *ModalReed) IsSilent(thresholdDb float64) bool {
	thresholdLinear := math.Pow(10, thresholdDb/20)
	sampleF := float64(r.sample)
	for i := 0; i < tables.NumModes; i++ {
		env := r.amplitudes[i] * math.Exp(-r.decayPerSample[i]*sampleF-r.damperIntegral[i])
		if math.Abs(env) > thresholdLinear {
			return false
		}
	}
	return true
}
