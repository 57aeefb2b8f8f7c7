// Package dsp provides the shared filter primitives used throughout the
// engine: one-pole high-pass and low-pass filters, a DC blocker, and a direct-form-II
// transposed biquad. All of these operate in float64 since every caller in
// this engine sits on a numerically sensitive path (preamp companion
// models, modal envelopes).
package dsp

import "math"

// OnePoleHpf is a first-order high-pass filter using the discrete RC
// high-pass recurrence y = alpha*(y1 + x - x1), alpha = RC/(RC+dt).
type OnePoleHpf struct {
	alpha float64
	y1    float64
	x1    float64
}

// NewOnePoleHpf creates a one-pole high-pass filter with corner frequency
// cutoffHz at the given sample rate.
func NewOnePoleHpf(cutoffHz, sampleRate float64) *OnePoleHpf {
	return &OnePoleHpf{alpha: hpfAlpha(cutoffHz, sampleRate)}
}

func hpfAlpha(cutoffHz, sampleRate float64) float64 {
	rc := 1.0 / (2.0 * math.Pi * cutoffHz)
	dt := 1.0 / sampleRate
	return rc / (rc + dt)
}

// SetCutoff recomputes the filter coefficient without touching state.
func (f *OnePoleHpf) SetCutoff(cutoffHz, sampleRate float64) {
	f.alpha = hpfAlpha(cutoffHz, sampleRate)
}

// Process filters one sample.
func (f *OnePoleHpf) Process(x float64) float64 {
	y := f.alpha * (f.y1 + x - f.x1)
	f.x1 = x
	f.y1 = y
	return y
}

// Reset clears filter state.
func (f *OnePoleHpf) Reset() {
	f.x1, f.y1 = 0, 0
}

// OnePoleLpf is a first-order low-pass filter using the discrete RC
// low-pass recurrence y += alpha*(x - y), alpha = dt/(RC+dt).
type OnePoleLpf struct {
	alpha float64
	y1    float64
}

// NewOnePoleLpf creates a one-pole low-pass filter with corner frequency
// cutoffHz at the given sample rate.
func NewOnePoleLpf(cutoffHz, sampleRate float64) *OnePoleLpf {
	return &OnePoleLpf{alpha: lpfAlpha(cutoffHz, sampleRate)}
}

func lpfAlpha(cutoffHz, sampleRate float64) float64 {
	rc := 1.0 / (2.0 * math.Pi * cutoffHz)
	dt := 1.0 / sampleRate
	return dt / (rc + dt)
}

// SetCutoff recomputes the filter coefficient without touching state.
func (f *OnePoleLpf) SetCutoff(cutoffHz, sampleRate float64) {
	f.alpha = lpfAlpha(cutoffHz, sampleRate)
}

// Process filters one sample.
func (f *OnePoleLpf) Process(x float64) float64 {
	f.y1 += f.alpha * (x - f.y1)
	return f.y1
}

// Reset clears filter state.
func (f *OnePoleLpf) Reset() {
	f.y1 = 0
}

// DcBlocker removes DC offset with a 20 Hz one-pole high-pass.
type DcBlocker struct {
	hpf *OnePoleHpf
}

// NewDcBlocker creates a DC blocker at the given sample rate.
func NewDcBlocker(sampleRate float64) *DcBlocker {
	return &DcBlocker{hpf: NewOnePoleHpf(20.0, sampleRate)}
}

// Process filters one sample.
func (d *DcBlocker) Process(x float64) float64 {
	return d.hpf.Process(x)
}

// Reset clears filter state.
func (d *DcBlocker) Reset() {
	d.hpf.Reset()
}

// Biquad is a second-order IIR filter in direct form II transposed.
type Biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	s1, s2     float64
}

// NewBiquad creates a biquad with explicit (already normalized)
// coefficients.
func NewBiquad(b0, b1, b2, a1, a2 float64) *Biquad {
	return &Biquad{b0: b0, b1: b1, b2: b2, a1: a1, a2: a2}
}

// NewBandpass builds a constant-0-dB-peak-gain band-pass biquad per the
// Audio EQ Cookbook formulas.
func NewBandpass(centerHz, q, sampleRate float64) *Biquad {
	w0 := 2.0 * math.Pi * centerHz / sampleRate
	alpha := math.Sin(w0) / (2.0 * q)
	cosw0 := math.Cos(w0)

	b0 := alpha
	b1 := 0.0
	b2 := -alpha
	a0 := 1.0 + alpha
	a1 := -2.0 * cosw0
	a2 := 1.0 - alpha

	return NewBiquad(b0/a0, b1/a0, b2/a0, a1/a0, a2/a0)
}

// NewLowpass builds a Butterworth-style low-pass biquad.
func NewLowpass(cutoffHz, q, sampleRate float64) *Biquad {
	b0, b1, b2, a1, a2 := lowpassCoeffs(cutoffHz, q, sampleRate)
	return NewBiquad(b0, b1, b2, a1, a2)
}

// NewHighpass builds a Butterworth-style high-pass biquad.
func NewHighpass(cutoffHz, q, sampleRate float64) *Biquad {
	b0, b1, b2, a1, a2 := highpassCoeffs(cutoffHz, q, sampleRate)
	return NewBiquad(b0, b1, b2, a1, a2)
}

// SetLowpass updates coefficients in place, preserving filter state.
func (b *Biquad) SetLowpass(cutoffHz, q, sampleRate float64) {
	b.b0, b.b1, b.b2, b.a1, b.a2 = lowpassCoeffs(cutoffHz, q, sampleRate)
}

// SetHighpass updates coefficients in place, preserving filter state.
func (b *Biquad) SetHighpass(cutoffHz, q, sampleRate float64) {
	b.b0, b.b1, b.b2, b.a1, b.a2 = highpassCoeffs(cutoffHz, q, sampleRate)
}

func lowpassCoeffs(cutoffHz, q, sampleRate float64) (b0, b1, b2, a1, a2 float64) {
	w0 := 2.0 * math.Pi * cutoffHz / sampleRate
	alpha := math.Sin(w0) / (2.0 * q)
	cosw0 := math.Cos(w0)

	rb0 := (1.0 - cosw0) / 2.0
	rb1 := 1.0 - cosw0
	rb2 := (1.0 - cosw0) / 2.0
	a0 := 1.0 + alpha
	ra1 := -2.0 * cosw0
	ra2 := 1.0 - alpha

	return rb0 / a0, rb1 / a0, rb2 / a0, ra1 / a0, ra2 / a0
}

func highpassCoeffs(cutoffHz, q, sampleRate float64) (b0, b1, b2, a1, a2 float64) {
	w0 := 2.0 * math.Pi * cutoffHz / sampleRate
	alpha := math.Sin(w0) / (2.0 * q)
	cosw0 := math.Cos(w0)

	rb0 := (1.0 + cosw0) / 2.0
	rb1 := -(1.0 + cosw0)
	rb2 := (1.0 + cosw0) / 2.0
	a0 := 1.0 + alpha
	ra1 := -2.0 * cosw0
	ra2 := 1.0 - alpha

	return rb0 / a0, rb1 / a0, rb2 / a0, ra1 / a0, ra2 / a0
}

// Process filters one sample (direct form II transposed).
func (b *Biquad) Process(x float64) float64 {
	y := b.b0*x + b.s1
	b.s1 = b.b1*x - b.a1*y + b.s2
	b.s2 = b.b2*x - b.a2*y
	return y
}

// Reset clears filter state.
func (b *Biquad) Reset() {
	b.s1, b.s2 = 0, 0
}

// FlushDenormal zeroes values small enough to risk a denormal stall on
// common FPUs, matching algo-dsp/dsp/core's convention.
func FlushDenormal(x float64) float64 {
	const epsilon = 1e-30
	if x > -epsilon && x < epsilon {
		return 0.0
	}
	return x
}
