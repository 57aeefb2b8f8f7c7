package preamp

// Circuit constants for the two-stage direct-coupled BJT gain block that
// sits between the tremolo photo-resistor and the power-amp stage. Q1's
// collector (Coll1) drives Q2's base directly; Q2's emitter splits across
// Emit2/Emit2b so CE2 bypasses only the grounded portion of the emitter
// resistance. Fb is the node the tremolo's time-varying resistance lands
// on; every other element in g_base is fixed.
const (
	Vcc = 15.0

	R1  = 22_000.0
	R2  = 2_000_000.0
	R3  = 470_000.0
	Re1 = 33_000.0
	Rc1 = 150_000.0

	Re2a = 270.0
	Re2b = 820.0
	Rc2  = 1_800.0

	R9  = 6_800.0
	R10 = 56_000.0

	Cin = 22e-9
	C3  = 100e-12
	C4  = 100e-12
	Ce1 = 4.7e-6
	Ce2 = 22e-6

	// BJT (shared between Q1 and Q2; a single transistor model is plenty
	// for a small-signal preamp gain stage).
	Is     = 3.03e-14
	Vt     = 0.026
	VbeMin = -1.0
	VbeMax = 0.85

	// ridInit is the photo-resistor value used when seeding the DC
	// operating point — its steady resting value with no tremolo drive.
	ridInit = 1_000_000.0
)
