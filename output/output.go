// Package output implements the power-amp saturator and speaker tone
// shaper that sit after the preamp, downstream of the 2x oversampler.
package output

import (
	"math"

	"github.com/hal0zero/openwurli/dsp"
)

const (
	deadZone = 0.0005
	railClip = 1.5
)

// Saturate applies the power amp's quadratic dead-zone-and-rail-clip
// crossover distortion. Stateless: safe to call per-sample with no prior
// history.
func Saturate(x float64) float64 {
	sign := 1.0
	if x < 0 {
		sign = -1.0
		x = -x
	}
	var y float64
	switch {
	case x < deadZone:
		y = 0.5 * (x * x) / deadZone
	case x < railClip:
		y = x - 0.5*deadZone
	default:
		y = railClip - 0.5*deadZone
	}
	return sign * y
}

// Speaker is the character-interpolated high-pass/low-pass tone shaper
// standing in for cabinet rolloff.
type Speaker struct {
	hp dsp.Biquad
	lp dsp.Biquad

	sampleRate float64
	character  float64
}

// NewSpeaker builds a speaker shaper at the given sample rate with
// character in [0,1]: 0 bypasses (20Hz HPF / 20kHz LPF, inaudible), 1 is
// the full cabinet-like band limit (95Hz HPF Q0.75 / 7500Hz LPF Q0.707).
func NewSpeaker(sampleRate float64) *Speaker {
	s := &Speaker{sampleRate: sampleRate}
	s.SetCharacter(1.0)
	return s
}

// SetCharacter logarithmically interpolates both corner frequencies
// between their bypass and full-character endpoints.
func (s *Speaker) SetCharacter(character float64) {
	if character < 0 {
		character = 0
	}
	if character > 1 {
		character = 1
	}
	s.character = character

	hpFreq := logInterp(20.0, 95.0, character)
	lpFreq := logInterp(20000.0, 7500.0, character)
	s.hp.SetHighpass(hpFreq, 0.75, s.sampleRate)
	s.lp.SetLowpass(lpFreq, 0.707, s.sampleRate)
}

func logInterp(a, b, t float64) float64 {
	return a * math.Pow(b/a, t)
}

// Process shapes one sample through the highpass then lowpass stage.
func (s *Speaker) Process(x float64) float64 {
	return s.lp.Process(s.hp.Process(x))
}

// Reset clears the speaker's filter state.
func (s *Speaker) Reset() {
	s.hp.Reset()
	s.lp.Reset()
}
