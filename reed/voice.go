package reed

import (
	"math"

	"github.com/hal0zero/openwurli/tables"
)

const silenceThresholdDb = -80.0
const maxReleaseSeconds = 10.0

// Voice composes one note's modal reed, attack noise, and pickup into a
// single renderable unit, exclusively owned by one voice slot for the
// lifetime of one note.
type Voice struct {
	sampleRate     float64
	midiNote       int
	reed           *ModalReed
	pickup         *Pickup
	noise          *AttackNoise
	postPickupGain float64
}

// NewVoice builds a Voice for a note-on. jitterSeed and noiseSeed should be
// derived from (note, allocation counter) and (note, monotonic counter)
// respectively, per the engine's two independent RNG streams.
func NewVoice(midiNote int, velocity, sampleRate float64, jitterSeed, noiseSeed uint32) *Voice {
	np := tables.Note(midiNote)
	corrections := tables.Infer(midiNote, velocity)

	detune := tables.FreqDetune(midiNote)
	fundamental := np.FundamentalHz * (1 + detune)

	modeRatios := np.ModeRatios
	decayRates := np.ModeDecayRatesDb
	// MLP corrections apply to modes 2..NumModes-1 (5 correctable modes);
	// the fundamental and the first overtone are left to the fixed table.
	const correctableOffset = 2
	for i := 0; i < len(corrections.FreqOffsetsCents); i++ {
		mode := correctableOffset + i
		modeRatios[mode] *= math.Pow(2, corrections.FreqOffsetsCents[i]/1200.0)
		decayRates[mode] *= corrections.DecayOffsets[i]
	}

	dwellAtten := DwellAttenuation(velocity, fundamental, modeRatios)
	modeAmpOffsets := tables.ModeAmplitudeOffsets(midiNote)
	velGain := math.Pow(clampUnit(velocity), tables.VelocityExponent(midiNote))

	var amplitudes [tables.NumModes]float64
	for i := 0; i < tables.NumModes; i++ {
		amplitudes[i] = np.ModeAmplitudes[i] * (1 + modeAmpOffsets[i]) * dwellAtten[i] * velGain
	}

	dwellTime := DwellTime(velocity)
	reedInst := New(fundamental, modeRatios, amplitudes, decayRates, dwellTime, sampleRate, jitterSeed)

	overshootAmount := 0.8 * clampUnit(velocity)
	tau := 3.0 / fundamental
	if tau < 0.012 {
		tau = 0.012
	}
	reedInst.SetImpactOvershoot(overshootAmount, tau, sampleRate)

	dispScale := tables.PickupDisplacementScale(midiNote) * corrections.DsCorrection
	pickupInst := NewPickup(sampleRate, dispScale)
	noiseInst := NewAttackNoise(velocity, sampleRate, noiseSeed)

	return &Voice{
		sampleRate:     sampleRate,
		midiNote:       midiNote,
		reed:           reedInst,
		pickup:         pickupInst,
		noise:          noiseInst,
		postPickupGain: tables.OutputScale(midiNote),
	}
}

func clampUnit(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// NoteOff arms the damper release for this voice's reed.
func (v *Voice) NoteOff() {
	v.reed.StartDamper(v.midiNote, v.sampleRate)
}

// Render fills output with this voice's rendered samples (not additive:
// the buffer is cleared first, since a Voice is the leaf source of its
// own scratch region).
func (v *Voice) Render(output []float64) {
	for i := range output {
		output[i] = 0
	}
	v.reed.Render(output)
	if !v.noise.IsDone() {
		v.noise.Render(output)
	}
	v.pickup.Process(output)
	for i := range output {
		output[i] *= v.postPickupGain
	}
}

// IsSilent reports whether this voice has fully decayed and every
// subsequent render call will produce output below the silence threshold.
func (v *Voice) IsSilent() bool {
	if v.reed.IsDamping() && v.reed.ReleaseSeconds(v.sampleRate) > maxReleaseSeconds {
		return true
	}
	return v.reed.IsSilent(silenceThresholdDb)
}
