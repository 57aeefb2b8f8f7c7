package reed

import "github.com/hal0zero/openwurli/dsp"

// pickupSensitivity is the fixed electrostatic conversion from reed-tip
// displacement to raw voltage before the per-note displacement scale and
// the high-pass roll-off are applied.
const pickupSensitivity = 1.8375

// pickupHpfHz is the dominant bass roll-off of the instrument's pickup.
const pickupHpfHz = 2312.0

// Pickup converts reed displacement to a voltage: a linear sensitivity
// scale followed by a one-pole high-pass filter.
type Pickup struct {
	hpf               *dsp.OnePoleHpf
	displacementScale float64
}

// NewPickup creates a pickup for a given sample rate and per-note
// displacement scale (compensating for the larger physical excursion of
// long bass reeds at equal modal energy).
func NewPickup(sampleRate, displacementScale float64) *Pickup {
	return &Pickup{
		hpf:               dsp.NewOnePoleHpf(pickupHpfHz, sampleRate),
		displacementScale: displacementScale,
	}
}

// SetDisplacementScale updates the per-note scale without touching filter
// state.
func (p *Pickup) SetDisplacementScale(scale float64) {
	p.displacementScale = scale
}

// Process transforms a buffer of reed displacement samples into pickup
// voltage, in place.
func (p *Pickup) Process(buf []float64) {
	for i, x := range buf {
		v := x * pickupSensitivity * p.displacementScale
		buf[i] = p.hpf.Process(v)
	}
}

// Reset clears filter state.
func (p *Pickup) Reset() {
	p.hpf.Reset()
}
