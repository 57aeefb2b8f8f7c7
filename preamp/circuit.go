package preamp

// stampResistor adds the conductance of a resistor between nodes a and b
// (either may be -1 for ground) into g.
func stampResistor(g *Mat, a, b int, ohms float64) {
	gVal := 1.0 / ohms
	if a >= 0 {
		g[a][a] += gVal
	}
	if b >= 0 {
		g[b][b] += gVal
	}
	if a >= 0 && b >= 0 {
		g[a][b] -= gVal
		g[b][a] -= gVal
	}
}

// baseConductance builds g_base: every fixed resistor in the circuit,
// excluding the tremolo's photo-resistor (which lands on Fb-to-ground and
// is added separately so it can be Sherman-Morrison updated per sample
// without re-inverting the whole matrix).
func baseConductance() Mat {
	var g Mat
	stampResistor(&g, Base1, -1, R1)
	stampResistor(&g, -1, Base1, R2) // one leg returns to Vcc; DC offset handled by the supply current vector, not here
	stampResistor(&g, Coll1, -1, Rc1)
	stampResistor(&g, Emit1, -1, Re1)
	stampResistor(&g, Coll1, Fb, R3)
	stampResistor(&g, Emit2, Emit2b, Re2a)
	stampResistor(&g, Emit2b, -1, Re2b)
	stampResistor(&g, Coll2, -1, Rc2)
	stampResistor(&g, Coll2, Out, R9)
	stampResistor(&g, Out, -1, R10)
	return g
}

// supplyCurrentVector returns the constant per-node current (Vcc/R) driven
// in from Vcc through the resistors that have one leg tied to the supply
// rather than ground.
func supplyCurrentVector() Vec {
	var i Vec
	i[Base1] += Vcc / R2
	i[Coll1] += Vcc / Rc1
	i[Coll2] += Vcc / Rc2
	return i
}

// nonlinearInputs selects v_be for each of the two transistors out of the
// node-voltage vector: p[0] = v[Base1]-v[Emit1] (Q1), p[1] = v[Coll1]-v[Emit2] (Q2, direct-coupled).
func nonlinearInputs(v Vec) [2]float64 {
	return [2]float64{
		v[Base1] - v[Emit1],
		v[Coll1] - v[Emit2],
	}
}

// nonlinearJacobian returns d(ic)/d(vbe) for both junctions (diagonal,
// since the two junctions don't share a control voltage).
func nonlinearJacobian(vbe [2]float64) [2]float64 {
	return [2]float64{bjtGm(vbe[0]), bjtGm(vbe[1])}
}
