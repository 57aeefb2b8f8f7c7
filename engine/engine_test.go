package engine

import (
	"math"
	"testing"
)

func TestNoteOnProducesAudio(t *testing.T) {
	e := New(44100.0)
	e.NoteOn(60, 0.8)

	out := make([]float64, 2*2000)
	e.Process(nil, out, 2000)

	peak := 0.0
	for _, s := range out {
		if math.Abs(s) > peak {
			peak = math.Abs(s)
		}
	}
	if peak < 1e-6 {
		t.Fatalf("expected audible output after NoteOn, peak=%e", peak)
	}
	if math.IsNaN(peak) {
		t.Fatalf("engine output went NaN")
	}
}

func TestNoteOffEventuallyGoesQuiet(t *testing.T) {
	e := New(44100.0)
	e.NoteOn(60, 0.8)

	out := make([]float64, 2*512)
	for i := 0; i < 5; i++ {
		e.Process(nil, out, 512)
	}
	e.NoteOff(60)

	block := make([]float64, 2*512)
	for i := 0; i < 400; i++ {
		e.Process(nil, block, 512)
	}

	peak := 0.0
	for _, s := range block {
		if math.Abs(s) > peak {
			peak = math.Abs(s)
		}
	}
	if peak > 0.01 {
		t.Fatalf("expected voice to have decayed to near-silence, got peak %f", peak)
	}
}

func TestStealingBeyondPoolSizeStaysFinite(t *testing.T) {
	e := New(44100.0)
	for n := 0; n < voiceCount+6; n++ {
		e.NoteOn(40+n, 0.7)
	}
	out := make([]float64, 2*1024)
	e.Process(nil, out, 1024)
	for _, s := range out {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			t.Fatalf("output went non-finite under voice-stealing pressure")
		}
	}
}

func TestSampleAccurateEventSplitting(t *testing.T) {
	e := New(44100.0)
	events := []NoteEvent{
		{Frame: 100, NoteOn: true, MidiNote: 60, Velocity: 0.7},
		{Frame: 300, NoteOn: true, MidiNote: 64, Velocity: 0.7},
	}
	out := make([]float64, 2*512)
	e.Process(events, out, 512)

	before := out[2*50]
	if before != 0 {
		t.Fatalf("expected silence before the first note-on event, got %f", before)
	}
}

func TestSustainPedalCarriesThroughNoteOff(t *testing.T) {
	e := New(44100.0)
	e.SetParam("sustain_pedal", 1)
	e.NoteOn(60, 0.8)
	e.NoteOff(60)

	held := 0
	for i := range e.slots {
		if e.slots[i].state == stateHeld {
			held++
		}
	}
	if held != 1 {
		t.Fatalf("expected note to remain held while sustain pedal is down, held count=%d", held)
	}

	e.SetParam("sustain_pedal", 0)
	releasing := 0
	for i := range e.slots {
		if e.slots[i].state == stateReleasing {
			releasing++
		}
	}
	if releasing != 1 {
		t.Fatalf("expected releasing the pedal to arm the held note's damper, releasing count=%d", releasing)
	}
}

func TestResetClearsAllVoices(t *testing.T) {
	e := New(44100.0)
	e.NoteOn(60, 0.8)
	e.NoteOn(64, 0.8)
	e.Reset()
	for i := range e.slots {
		if e.slots[i].state != stateFree {
			t.Fatalf("expected Reset to free every slot")
		}
	}
}

func TestNoteOnClampsOutOfRangeMidi(t *testing.T) {
	e := New(44100.0)
	e.NoteOn(10, 0.8)
	held := 0
	for i := range e.slots {
		if e.slots[i].state == stateHeld {
			held++
			if e.slots[i].midiNote != 33 {
				t.Fatalf("expected out-of-range note to clamp to 33, got %d", e.slots[i].midiNote)
			}
		}
	}
	if held != 1 {
		t.Fatalf("expected exactly one held voice, got %d", held)
	}
}

func TestProcessClampsBlockLargerThanMax(t *testing.T) {
	e := &Engine{}
	if err := e.Initialize(44100.0, 64); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	e.NoteOn(60, 0.8)
	out := make([]float64, 2*256)
	e.Process(nil, out, 256)
	for _, s := range out[:2*64] {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			t.Fatalf("output went non-finite")
		}
	}
	for _, s := range out[2*64:] {
		if s != 0 {
			t.Fatalf("expected Process to have clamped to the initialized block size, leaving the tail untouched")
		}
	}
}
