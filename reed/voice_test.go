package reed

import (
	"math"
	"testing"
)

func renderVoice(v *Voice, totalSamples int) []float64 {
	out := make([]float64, totalSamples)
	const chunk = 512
	buf := make([]float64, chunk)
	for i := 0; i < totalSamples; i += chunk {
		n := chunk
		if i+n > totalSamples {
			n = totalSamples - i
		}
		v.Render(buf[:n])
		copy(out[i:i+n], buf[:n])
	}
	return out
}

func peak(buf []float64) float64 {
	p := 0.0
	for _, x := range buf {
		if math.Abs(x) > p {
			p = math.Abs(x)
		}
	}
	return p
}

func TestVelocityZeroProducesExactZero(t *testing.T) {
	v := NewVoice(60, 0.0, 44100.0, 1, 1)
	out := renderVoice(v, 4096)
	for i, x := range out {
		if x != 0 {
			t.Fatalf("velocity=0 must produce exactly zero output, got %f at sample %d", x, i)
		}
	}
}

func TestVoiceProducesAudio(t *testing.T) {
	v := NewVoice(60, 0.8, 44100.0, 1, 1)
	out := renderVoice(v, 4096)
	if peak(out) <= 0 {
		t.Fatalf("expected nonzero output for a normal note-on")
	}
}

func TestHigherVelocityIsLouder(t *testing.T) {
	soft := NewVoice(60, 0.2, 44100.0, 1, 1)
	loud := NewVoice(60, 1.0, 44100.0, 2, 2)

	softOut := renderVoice(soft, 4096)
	loudOut := renderVoice(loud, 4096)

	if peak(loudOut) <= peak(softOut) {
		t.Fatalf("expected higher velocity to produce louder output: soft=%f loud=%f", peak(softOut), peak(loudOut))
	}
}

func TestVoiceDeterministic(t *testing.T) {
	a := NewVoice(60, 0.8, 44100.0, 5, 5)
	b := NewVoice(60, 0.8, 44100.0, 5, 5)

	outA := renderVoice(a, 4096)
	outB := renderVoice(b, 4096)

	for i := range outA {
		if outA[i] != outB[i] {
			t.Fatalf("identical seeds must produce bit-identical output at sample %d", i)
		}
	}
}

func TestDifferentNotesDiffer(t *testing.T) {
	a := NewVoice(48, 0.8, 44100.0, 1, 1)
	b := NewVoice(72, 0.8, 44100.0, 1, 1)

	outA := renderVoice(a, 4096)
	outB := renderVoice(b, 4096)

	same := true
	for i := range outA {
		if outA[i] != outB[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different notes should not produce identical output")
	}
}

func TestNoteOffArmsSilenceEventually(t *testing.T) {
	v := NewVoice(60, 0.8, 44100.0, 1, 1)
	_ = renderVoice(v, 4096)
	v.NoteOff()
	_ = renderVoice(v, int(12*44100.0))
	if !v.IsSilent() {
		t.Fatalf("expected voice to report silence after note-off plus 12s of release")
	}
}
