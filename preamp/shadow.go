package preamp

// Pair runs a main and a shadow preamp instance in parallel to cancel the
// low-frequency "pump" the continuously modulated photo-resistor would
// otherwise impose on silence: both instances see the same photo-resistor
// value every sample, the shadow sees zero audio input, and the engine
// output is main - shadow. Since the pump comes entirely from the
// photo-resistor's interaction with the feedback capacitor rather than
// from the audio signal itself, it cancels between the two identical
// linear conditions.
//
// When tremolo depth is zero the photo-resistor stops moving and the
// shadow's output settles to a constant; rather than keep stepping an
// idle nonlinear solver every sample, the pair captures that constant
// once and reuses it until depth becomes nonzero again.
type Pair struct {
	Main   *Preamp
	Shadow *Preamp

	bypassed    bool
	bypassValue float64
}

// NewPair builds a main+shadow preamp pair at the given (oversampled)
// sample rate. It fails if either solver's fixed conductance matrix is
// singular at this sample rate.
func NewPair(sampleRate float64) (*Pair, error) {
	main, err := New(sampleRate)
	if err != nil {
		return nil, err
	}
	shadow, err := New(sampleRate)
	if err != nil {
		return nil, err
	}
	return &Pair{Main: main, Shadow: shadow}, nil
}

// Process advances both solvers by one sample and returns the pump-
// cancelled output. tremoloDepth is read each sample to decide whether the
// shadow needs to keep stepping or can stay on its captured DC constant.
func (pr *Pair) Process(vin, ldrOhms, tremoloDepth float64) float64 {
	pr.Main.SetLdr(ldrOhms)
	mainOut := pr.Main.Process(vin)

	if tremoloDepth == 0 {
		if !pr.bypassed {
			pr.bypassed = true
			_ = pr.Shadow.ResetAt(ldrOhms)
			pr.bypassValue = pr.Shadow.DcOperatingPoint()[Out]
		}
		return mainOut - pr.bypassValue
	}

	if pr.bypassed {
		pr.bypassed = false
		_ = pr.Shadow.ResetAt(ldrOhms)
	}
	pr.Shadow.SetLdr(ldrOhms)
	shadowOut := pr.Shadow.Process(0)
	return mainOut - shadowOut
}

// Reset clears both solvers back to their resting DC operating point.
func (pr *Pair) Reset() {
	pr.Main.Reset()
	pr.Shadow.Reset()
	pr.bypassed = false
}
