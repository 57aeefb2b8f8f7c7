// Package tremolo implements the sinusoidal-LFO-driven CdS photo-resistor
// model that drives the preamp's modulated feedback resistance.
package tremolo

import "math"

const (
	rMin  = 50.0
	rMax  = 1_000_000.0
	gamma = 0.7

	attackTau  = 0.003
	releaseTau = 0.050
)

// Tremolo models the LFO, the asymmetric envelope follower, and the
// power-law photo-resistor mapping, producing a total (series + photo)
// resistance value each sample.
type Tremolo struct {
	sampleRate float64

	phase    float64
	phaseInc float64
	depth    float64

	attackCoeff  float64
	releaseCoeff float64
	envelope     float64

	resistance float64
	series     float64
}

// New creates a tremolo model at the given sample rate and LFO rate in Hz.
func New(sampleRate, rateHz float64) *Tremolo {
	t := &Tremolo{sampleRate: sampleRate}
	t.SetRate(rateHz)
	t.attackCoeff = math.Exp(-1.0 / (attackTau * sampleRate))
	t.releaseCoeff = math.Exp(-1.0 / (releaseTau * sampleRate))
	t.resistance = rMax
	t.series = 18000.0 + 50000.0
	return t
}

// SetRate updates the LFO rate without resetting phase or envelope state.
func (t *Tremolo) SetRate(rateHz float64) {
	t.phaseInc = 2 * math.Pi * rateHz / t.sampleRate
}

// SetDepth updates modulation depth (0..1), clamped.
func (t *Tremolo) SetDepth(depth float64) {
	if depth < 0 {
		depth = 0
	}
	if depth > 1 {
		depth = 1
	}
	t.depth = depth
}

// Depth returns the current modulation depth.
func (t *Tremolo) Depth() float64 {
	return t.depth
}

// Tick advances the LFO and envelope by one oversampled sample and returns
// the total resistance (series + photo-resistor) in ohms to hand to the
// preamp.
func (t *Tremolo) Tick() float64 {
	t.phase += t.phaseInc
	if t.phase > 2*math.Pi {
		t.phase -= 2 * math.Pi
	}

	drive := math.Max(math.Sin(t.phase), 0) * t.depth
	t.stepEnvelope(drive)

	photo := rMin + (rMax-rMin)*math.Pow(1-t.envelope, 1.0/gamma)
	t.series = 18000.0 + 50000.0*(1-t.depth)
	t.resistance = t.series + photo
	return t.resistance
}

func (t *Tremolo) stepEnvelope(drive float64) {
	var coeff float64
	if drive > t.envelope {
		coeff = t.attackCoeff
	} else {
		coeff = t.releaseCoeff
	}
	t.envelope = coeff*t.envelope + (1-coeff)*drive
}

// Reset clears LFO phase and envelope state.
func (t *Tremolo) Reset() {
	t.phase = 0
	t.envelope = 0
	t.resistance = rMax
}
