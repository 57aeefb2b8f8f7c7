// Package oversample implements the 2x half-band polyphase IIR allpass
// oversampler used to sandwich the nonlinear preamp solver: the preamp's
// Newton iteration converges more reliably, and aliases less, when it runs
// at twice the host sample rate.
package oversample

// branchACoeffs and branchBCoeffs are the two first-order allpass cascades
// that make up one half-band filter; bit-exact per the external ABI.
var (
	branchACoeffs = [3]float64{0.036681502163648, 0.248030921580110, 0.643184620136480}
	branchBCoeffs = [3]float64{0.110377634768680, 0.420399304190880, 0.854640112701920}
)

// allpassSection is one first-order allpass stage: y = a*x + s; s = x - a*y.
type allpassSection struct {
	a float64
	s float64
}

func (s *allpassSection) process(x float64) float64 {
	y := s.a*x + s.s
	s.s = x - s.a*y
	return y
}

func (s *allpassSection) reset() {
	s.s = 0
}

// allpassBranch cascades the three first-order sections of one coefficient
// set.
type allpassBranch struct {
	sections [3]allpassSection
}

func newAllpassBranch(coeffs [3]float64) allpassBranch {
	var b allpassBranch
	for i, c := range coeffs {
		b.sections[i].a = c
	}
	return b
}

func (b *allpassBranch) process(x float64) float64 {
	y := x
	for i := range b.sections {
		y = b.sections[i].process(y)
	}
	return y
}

func (b *allpassBranch) reset() {
	for i := range b.sections {
		b.sections[i].reset()
	}
}

// Oversampler performs 2x upsampling and matched 2x downsampling using two
// parallel allpass cascades per direction.
type Oversampler struct {
	upA, upB     allpassBranch
	downA, downB allpassBranch
	downDelay    float64
}

// New creates an oversampler. Sample-rate independent: the allpass
// coefficients are fixed fractions of the oversampled Nyquist frequency.
func New() *Oversampler {
	return &Oversampler{
		upA:   newAllpassBranch(branchACoeffs),
		upB:   newAllpassBranch(branchBCoeffs),
		downA: newAllpassBranch(branchACoeffs),
		downB: newAllpassBranch(branchBCoeffs),
	}
}

// Upsample2x produces two oversampled output values for each input value,
// writing them into out (len(out) == 2*len(in)).
func (o *Oversampler) Upsample2x(in []float64, out []float64) {
	for i, x := range in {
		even := o.upA.process(x)
		odd := o.upB.process(x)
		out[2*i] = even
		out[2*i+1] = odd
	}
}

// Downsample2x consumes 2*len(out) oversampled input values and produces
// len(out) output values at the base rate.
func (o *Oversampler) Downsample2x(in []float64, out []float64) {
	for i := range out {
		even := in[2*i]
		odd := in[2*i+1]
		a := o.downA.process(even)
		b := o.downB.process(odd)
		out[i] = (a + o.downDelay) / 2
		o.downDelay = b
	}
}

// Reset clears all filter state.
func (o *Oversampler) Reset() {
	o.upA.reset()
	o.upB.reset()
	o.downA.reset()
	o.downB.reset()
	o.downDelay = 0
}
