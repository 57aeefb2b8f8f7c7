// Package preamp implements the two-stage BJT gain block, modeled as an
// 8-node modified-nodal-analysis circuit solved by Newton-Raphson per
// sample. The tremolo's photo-resistor lands on a single node (Fb) so its
// continuous modulation can be folded in with a Sherman-Morrison rank-1
// update instead of re-inverting the whole system every sample; the two
// BJT junctions are the only other nonlinearity, reduced to a 2x2
// Newton-Raphson kernel via the cached linear inverse.
package preamp

import "math"

const (
	maxNewtonIters = 6
	newtonResidual = 1e-9
	newtonDetFloor = 1e-30
)

// capBranch is the trapezoidal companion model of a fixed internal
// capacitor between two real nodes.
type capBranch struct {
	a, b      int
	g         float64
	vDiffPrev float64
	iPrev     float64
}

func (cb *capBranch) history() float64 {
	return cb.g*cb.vDiffPrev + cb.iPrev
}

func (cb *capBranch) commit(va, vb float64) {
	ih := cb.history()
	vDiff := va - vb
	cb.iPrev = cb.g*vDiff - ih
	cb.vDiffPrev = vDiff
}

// Preamp is one instance of the nonlinear preamp solver; the engine runs a
// single main/shadow Pair shared by every voice.
type Preamp struct {
	sampleRate float64
	fs2        float64 // 2*oversampled sample rate, used by every cap's companion conductance

	gBase Mat // fixed conductances, no capacitors, no photo-resistor
	aBase Mat // (gBase + fixed-cap conductances)^-1, shared across samples

	caps [4]capBranch // Base1-Coll1(C3), Coll1-Coll2(C4), Emit1-gnd(Ce1), Emit2b-gnd(Ce2)

	cinG         float64
	cinVDiffPrev float64
	cinIPrev     float64

	mIc  [N][2]float64 // fixed current-injection pattern for the two BJT collector currents
	ic   [2]float64    // last converged collector currents, reused as the next sample's NR seed
	v    Vec
	vDc  Vec

	ldr      float64 // current photo-resistor value in ohms, set by SetLdr before each Process call
	gLdrPrev float64 // 1/ldr used on the previous Process call, for the Fb explicit-Euler correction
}

func buildInjectionPattern() [N][2]float64 {
	var m [N][2]float64
	m[Coll1][0] = -1
	m[Emit1][0] = 1
	m[Coll2][1] = -1
	m[Emit2][1] = 1
	return m
}

// New builds a preamp solver for the given (oversampled) sample rate. It
// fails if the fixed AC conductance matrix is singular at this sample
// rate — the host must refuse to start audio in that case rather than run
// with an uninvertible solver.
func New(sampleRate float64) (*Preamp, error) {
	p := &Preamp{sampleRate: sampleRate, fs2: 2 * sampleRate}
	p.gBase = baseConductance()
	p.mIc = buildInjectionPattern()

	capDefs := [4]struct {
		a, b int
		c    float64
	}{
		{Base1, Coll1, C3},
		{Coll1, Coll2, C4},
		{Emit1, -1, Ce1},
		{Emit2b, -1, Ce2},
	}

	gAc := p.gBase
	for i, d := range capDefs {
		g := p.fs2 * d.c
		p.caps[i] = capBranch{a: d.a, b: d.b, g: g}
		stampResistor(&gAc, d.a, d.b, 1.0/g)
	}
	p.cinG = p.fs2 * Cin
	gAc[Base1][Base1] += p.cinG

	inv, ok := matInverse(gAc)
	if !ok {
		return nil, errSingularMatrix("AC conductance matrix singular at this sample rate")
	}
	p.aBase = inv

	if err := p.ResetAt(ridInit); err != nil {
		return nil, err
	}
	return p, nil
}

// errSingularMatrix reports a matrix-singularity failure at construction
// time (spec failure kind 2): the host must refuse to initialize and must
// not let any audio flow.
type errSingularMatrix string

func (e errSingularMatrix) Error() string { return "preamp: " + string(e) }

// shermanMorrison folds the Fb-node photo-resistor conductance gLdr into
// aBase without re-inverting the 8x8 system.
func shermanMorrison(aBase Mat, gLdr float64) Mat {
	denom := 1 + gLdr*aBase[Fb][Fb]
	if math.Abs(denom) < 1e-20 {
		denom = 1e-20
	}
	var out Mat
	for i := 0; i < N; i++ {
		for j := 0; j < N; j++ {
			out[i][j] = aBase[i][j] - gLdr*aBase[i][Fb]*aBase[Fb][j]/denom
		}
	}
	return out
}

// SetLdr sets the photo-resistor value (ohms) used by the next Process call.
func (p *Preamp) SetLdr(ohms float64) {
	if ohms < 1 {
		ohms = 1
	}
	p.ldr = ohms
}

// Process advances the preamp by one oversampled sample, given the external
// input voltage feeding Cin (in the engine, the oversampled sum of the
// voices scaled by the preamp gain) and returns the Out-node voltage.
func (p *Preamp) Process(vin float64) float64 {
	aCur := shermanMorrison(p.aBase, 1.0/p.ldr)

	var rhsFixed Vec
	supply := supplyCurrentVector()
	for i := range rhsFixed {
		rhsFixed[i] = supply[i]
	}
	for _, cb := range p.caps {
		ih := cb.history()
		rhsFixed[cb.a] += ih
		if cb.b >= 0 {
			rhsFixed[cb.b] -= ih
		}
	}
	rhsFixed[Base1] += p.cinG*vin + p.cinHistory()
	rhsFixed[Fb] -= p.gLdrPrev * p.v[Fb]

	v, ic, ok := p.solve(aCur, rhsFixed, p.ic)
	if !ok || hasNaN(v) {
		p.Reset()
		return 0
	}
	p.v = v
	p.ic = ic
	p.gLdrPrev = 1.0 / p.ldr

	for i := range p.caps {
		cb := &p.caps[i]
		vb := 0.0
		if cb.b >= 0 {
			vb = v[cb.b]
		}
		cb.commit(v[cb.a], vb)
	}
	p.commitCin(v[Base1], vin)

	return v[Out]
}

func (p *Preamp) cinHistory() float64 {
	return p.cinG*p.cinVDiffPrev + p.cinIPrev
}

func (p *Preamp) commitCin(vBase1, vin float64) {
	ih := p.cinHistory()
	vDiff := vBase1 - vin
	p.cinIPrev = p.cinG*vDiff - ih
	p.cinVDiffPrev = vDiff
}

// linearReduction pre-reduces the 8-node linear system against the two
// BJT collector currents: v = v0 + K*ic, and the two control voltages
// (vbe1, vbe2) = p0 + J*ic. Both the per-sample and the DC solves build
// their Newton iteration on top of this same reduction.
func (p *Preamp) linearReduction(aCur Mat, rhsFixed Vec) (v0 Vec, p0 [2]float64, j00, j01, j10, j11 float64) {
	v0 = matVecMul(aCur, rhsFixed)

	var k [N][2]float64
	for j := 0; j < 2; j++ {
		var col Vec
		for i := 0; i < N; i++ {
			col[i] = p.mIc[i][j]
		}
		kc := matVecMul(aCur, col)
		for i := 0; i < N; i++ {
			k[i][j] = kc[i]
		}
	}

	p0 = nonlinearInputs(v0)
	j00 = k[Base1][0] - k[Emit1][0]
	j01 = k[Base1][1] - k[Emit1][1]
	j10 = k[Coll1][0] - k[Emit2][0]
	j11 = k[Coll1][1] - k[Emit2][1]
	return
}

// solve runs the 2x2 Newton-Raphson kernel for the BJT collector currents
// and reconstructs the full node-voltage vector.
func (p *Preamp) solve(aCur Mat, rhsFixed Vec, seed [2]float64) (Vec, [2]float64, bool) {
	_, p0, j00, j01, j10, j11 := p.linearReduction(aCur, rhsFixed)

	ic := seed
	for iter := 0; iter < maxNewtonIters; iter++ {
		vbe := [2]float64{
			p0[0] + j00*ic[0] + j01*ic[1],
			p0[1] + j10*ic[0] + j11*ic[1],
		}
		f := [2]float64{bjtIc(vbe[0]), bjtIc(vbe[1])}
		r := [2]float64{ic[0] - f[0], ic[1] - f[1]}

		if math.Abs(r[0]) < newtonResidual && math.Abs(r[1]) < newtonResidual {
			break
		}

		gm := nonlinearJacobian(vbe)
		// dr/dic = I - diag(gm)*J
		a00 := 1 - gm[0]*j00
		a01 := -gm[0] * j01
		a10 := -gm[1] * j10
		a11 := 1 - gm[1]*j11

		det := a00*a11 - a01*a10
		if math.Abs(det) < newtonDetFloor {
			break
		}
		invDet := 1.0 / det
		d0 := (a11*r[0] - a01*r[1]) * invDet
		d1 := (a00*r[1] - a10*r[0]) * invDet
		ic[0] -= d0
		ic[1] -= d1
	}

	var rhsTotal Vec
	for i := range rhsTotal {
		rhsTotal[i] = rhsFixed[i]
	}
	for i := 0; i < N; i++ {
		rhsTotal[i] += p.mIc[i][0]*ic[0] + p.mIc[i][1]*ic[1]
	}
	v := matVecMul(aCur, rhsTotal)
	return v, ic, true
}

const (
	dcMaxIters = 100
	dcVbeSeed1 = 0.56
	dcVbeSeed2 = 0.66
)

// solveDc runs the dedicated DC operating-point Newton iteration: unlike
// solve (warm-started from the previous sample's converged currents, and
// budgeted for only a handful of iterations), this has no warm start to
// rely on, so it iterates directly on the two control voltages from a
// fixed active-region seed, clamping each step to 2*Vt to keep the
// exponential BJT nonlinearity from diverging on the first few iterations.
func (p *Preamp) solveDc(aCur Mat, rhsFixed Vec) (Vec, [2]float64) {
	_, p0, j00, j01, j10, j11 := p.linearReduction(aCur, rhsFixed)

	vbe := [2]float64{dcVbeSeed1, dcVbeSeed2}
	for iter := 0; iter < dcMaxIters; iter++ {
		ic := [2]float64{bjtIc(vbe[0]), bjtIc(vbe[1])}
		r := [2]float64{
			vbe[0] - p0[0] - j00*ic[0] - j01*ic[1],
			vbe[1] - p0[1] - j10*ic[0] - j11*ic[1],
		}
		if math.Abs(r[0]) < newtonResidual && math.Abs(r[1]) < newtonResidual {
			break
		}

		gm := nonlinearJacobian(vbe)
		// dr/dvbe = I - J*diag(gm)
		a00 := 1 - j00*gm[0]
		a01 := -j01 * gm[1]
		a10 := -j10 * gm[0]
		a11 := 1 - j11*gm[1]

		det := a00*a11 - a01*a10
		if math.Abs(det) < newtonDetFloor {
			break
		}
		invDet := 1.0 / det
		d0 := (a11*r[0] - a01*r[1]) * invDet
		d1 := (a00*r[1] - a10*r[0]) * invDet

		vbe[0] -= clampStep(d0)
		vbe[1] -= clampStep(d1)
	}

	ic := [2]float64{bjtIc(vbe[0]), bjtIc(vbe[1])}
	var rhsTotal Vec
	for i := range rhsTotal {
		rhsTotal[i] = rhsFixed[i]
	}
	for i := 0; i < N; i++ {
		rhsTotal[i] += p.mIc[i][0]*ic[0] + p.mIc[i][1]*ic[1]
	}
	v := matVecMul(aCur, rhsTotal)
	return v, ic
}

func hasNaN(v Vec) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return true
		}
	}
	return false
}

// Reset re-solves the DC operating point from scratch (caps open-circuit,
// photo-resistor at its resting value) and clears all companion state. The
// DC conductance matrix was already proven invertible once at construction
// (New calls ResetAt with this same resting value), so failure here can't
// happen in practice; if it somehow did, the preamp keeps its prior state
// rather than disrupt the real-time thread.
func (p *Preamp) Reset() {
	p.ResetAt(ridInit)
}

// ResetAt re-solves the DC operating point with the photo-resistor pinned
// at ldrOhms instead of its resting value. Used by the shadow solver to
// re-anchor its captured DC constant every time the tremolo's depth returns
// to zero, and to restart from DC every time depth leaves zero. Reports a
// singular DC conductance matrix rather than panicking; only New's call at
// construction time treats that as fatal.
func (p *Preamp) ResetAt(ldrOhms float64) error {
	gDc := p.gBase
	stampResistor(&gDc, Fb, -1, ldrOhms)
	invDc, ok := matInverse(gDc)
	if !ok {
		return errSingularMatrix("DC conductance matrix singular")
	}

	rhsFixed := supplyCurrentVector()
	v, ic := p.solveDc(invDc, rhsFixed)

	p.v = v
	p.vDc = v
	p.ic = ic
	p.ldr = ldrOhms
	p.gLdrPrev = 1.0 / ldrOhms

	for i := range p.caps {
		cb := &p.caps[i]
		vb := 0.0
		if cb.b >= 0 {
			vb = v[cb.b]
		}
		cb.vDiffPrev = v[cb.a] - vb
		cb.iPrev = 0
	}
	p.cinVDiffPrev = v[Base1]
	p.cinIPrev = 0
	return nil
}

// DcOperatingPoint returns the node-voltage vector from the most recent
// Reset, primarily for tests.
func (p *Preamp) DcOperatingPoint() Vec {
	return p.vDc
}
