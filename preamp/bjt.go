package preamp

import "math"

// bjtIc is the simplified large-signal Ebers-Moll collector current for a
// single forward-biased junction (beta implicitly infinite: emitter and
// collector current are taken equal, which is accurate enough for a small-
// signal preamp stage and keeps the nonlinear kernel to one equation per
// transistor instead of two).
func bjtIc(vbe float64) float64 {
	vbe = clampVbe(vbe)
	return Is * (math.Exp(vbe/Vt) - 1)
}

// bjtGm is d(ic)/d(vbe), the small-signal transconductance at the given
// operating point.
func bjtGm(vbe float64) float64 {
	vbe = clampVbe(vbe)
	return (Is / Vt) * math.Exp(vbe/Vt)
}

func clampVbe(vbe float64) float64 {
	if vbe < VbeMin {
		return VbeMin
	}
	if vbe > VbeMax {
		return VbeMax
	}
	return vbe
}

// clampStep limits a single Newton step on a control voltage to 2*Vt, the
// DC solve's guard against the exponential nonlinearity overshooting wildly
// on early iterations when started far from the true operating point.
func clampStep(d float64) float64 {
	limit := 2 * Vt
	if d > limit {
		return limit
	}
	if d < -limit {
		return -limit
	}
	return d
}
