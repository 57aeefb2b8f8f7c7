// Package engine assembles the reed voices, tremolo, preamp, oversampler,
// and output stage into the polyphonic instrument: a fixed voice pool with
// steal-and-crossfade allocation, sample-accurate note events within a
// render block, and a single shared amplifier signal path every voice's
// output is summed into before the nonlinear preamp stage.
package engine

import (
	"fmt"
	"math"

	"github.com/hal0zero/openwurli/oversample"
	"github.com/hal0zero/openwurli/output"
	"github.com/hal0zero/openwurli/preamp"
	"github.com/hal0zero/openwurli/reed"
	"github.com/hal0zero/openwurli/tables"
	"github.com/hal0zero/openwurli/tremolo"
)

const (
	voiceCount   = 12
	stealFadeMs  = 5.0
	defaultTremo = 5.6

	midiMin = 33
	midiMax = 96
)

type voiceState int

const (
	stateFree voiceState = iota
	stateHeld
	stateReleasing
)

// voiceSlot owns one playing (or stolen-from) voice.
type voiceSlot struct {
	state    voiceState
	voice    *reed.Voice
	midiNote int
	age      uint64

	stealVoice  *reed.Voice
	stealFade   float64
	stealFadeDn float64
}

// Params holds the engine's user-facing controls.
type Params struct {
	Volume           float64
	TremoloRateHz    float64
	TremoloDepth     float64
	SpeakerCharacter float64
	PreampGain       float64
	MlpEnabled       bool
	SustainPedal     bool
}

// DefaultParams returns a reasonable starting configuration.
func DefaultParams() Params {
	return Params{
		Volume:           1.0,
		TremoloRateHz:    defaultTremo,
		TremoloDepth:     0.5,
		SpeakerCharacter: 1.0,
		PreampGain:       1.0,
		MlpEnabled:       true,
		SustainPedal:     false,
	}
}

// Engine is the top-level polyphonic instrument. Every scratch buffer it
// touches while rendering is allocated once, in Initialize/New, and sized
// to the largest block the host advertised; Process never allocates.
type Engine struct {
	sampleRate   float64
	maxBlockSize int
	params       Params

	slots     [voiceCount]voiceSlot
	ageClock  uint64
	jitterCtr uint32
	noiseCtr  uint32

	tremoloMod *tremolo.Tremolo
	amp        *preamp.Pair
	oversamp   *oversample.Oversampler
	speaker    *output.Speaker

	mono    []float64
	scratch []float64
	stolen  []float64
	up      []float64
}

const defaultMaxBlockSize = 4096

// New builds an Engine for the given host sample rate, pre-allocating
// scratch space for up to defaultMaxBlockSize frames per block. Use
// Initialize directly if the host needs a different block-size ceiling or
// wants to observe a preamp construction failure instead of a panic.
func New(sampleRate float64) *Engine {
	e := &Engine{}
	if err := e.Initialize(sampleRate, defaultMaxBlockSize); err != nil {
		panic(err)
	}
	return e
}

// Initialize (re)builds every sample-rate-dependent component and
// pre-allocates all scratch buffers sized to maxBlockSize frames. It
// refuses to leave the engine usable if the preamp's fixed conductance
// matrix turns out to be singular at this sample rate: no audio may flow
// from an engine whose Initialize returned an error.
func (e *Engine) Initialize(sampleRate float64, maxBlockSize int) error {
	amp, err := preamp.NewPair(2 * sampleRate)
	if err != nil {
		return fmt.Errorf("engine: refusing to initialize: %w", err)
	}

	e.sampleRate = sampleRate
	e.maxBlockSize = maxBlockSize
	e.params = DefaultParams()

	for i := range e.slots {
		e.slots[i] = voiceSlot{}
	}
	e.ageClock = 0
	e.jitterCtr = 0
	e.noiseCtr = 0

	e.tremoloMod = tremolo.New(2*sampleRate, e.params.TremoloRateHz)
	e.tremoloMod.SetDepth(e.params.TremoloDepth)
	e.amp = amp
	e.oversamp = oversample.New()
	e.speaker = output.NewSpeaker(sampleRate)
	e.speaker.SetCharacter(e.params.SpeakerCharacter)
	tables.EnableMLP = e.params.MlpEnabled

	e.mono = make([]float64, maxBlockSize)
	e.scratch = make([]float64, maxBlockSize)
	e.stolen = make([]float64, maxBlockSize)
	e.up = make([]float64, 2*maxBlockSize)
	return nil
}

// SetParam applies one named control. Unknown names are ignored.
func (e *Engine) SetParam(name string, value float64) {
	switch name {
	case "volume":
		e.params.Volume = value
	case "preamp_gain":
		e.params.PreampGain = value
	case "tremolo_rate":
		e.params.TremoloRateHz = value
		e.tremoloMod.SetRate(value)
	case "tremolo_depth":
		e.params.TremoloDepth = value
		e.tremoloMod.SetDepth(value)
	case "speaker_character":
		e.params.SpeakerCharacter = value
		e.speaker.SetCharacter(value)
	case "mlp_enabled":
		e.params.MlpEnabled = value != 0
		tables.EnableMLP = e.params.MlpEnabled
	case "sustain_pedal":
		e.params.SustainPedal = value != 0
		if !e.params.SustainPedal {
			e.releaseSustainedNotes()
		}
	}
}

// Params returns a copy of the engine's current control values.
func (e *Engine) Params() Params {
	return e.params
}

// Reset clears every voice slot and the shared amplifier chain.
func (e *Engine) Reset() {
	for i := range e.slots {
		e.slots[i] = voiceSlot{}
	}
	e.tremoloMod.Reset()
	e.amp.Reset()
	e.oversamp.Reset()
	e.speaker.Reset()
}

// NoteOn starts a new voice for midiNote at the given velocity (0..1),
// applying the pool's allocation policy if every slot is occupied. Notes
// outside [33, 96] are clamped to that range rather than rejected.
func (e *Engine) NoteOn(midiNote int, velocity float64) {
	if midiNote < midiMin {
		midiNote = midiMin
	} else if midiNote > midiMax {
		midiNote = midiMax
	}

	slot := e.allocateSlot()
	e.jitterCtr++
	e.noiseCtr++
	v := reed.NewVoice(midiNote, velocity, e.sampleRate, e.jitterCtr, e.noiseCtr)

	if slot.state != stateFree && slot.voice != nil {
		slot.stealVoice = slot.voice
		slot.stealFade = 1.0
		fadeLen := stealFadeMs / 1000.0 * e.sampleRate
		if fadeLen < 1 {
			fadeLen = 1
		}
		slot.stealFadeDn = 1.0 / fadeLen
	}

	slot.voice = v
	slot.midiNote = midiNote
	slot.state = stateHeld
	e.ageClock++
	slot.age = e.ageClock
}

// allocateSlot finds a free slot, else the oldest releasing slot, else
// steals the oldest slot of any kind.
func (e *Engine) allocateSlot() *voiceSlot {
	for i := range e.slots {
		if e.slots[i].state == stateFree {
			return &e.slots[i]
		}
	}
	var oldestReleasing *voiceSlot
	for i := range e.slots {
		if e.slots[i].state == stateReleasing {
			if oldestReleasing == nil || e.slots[i].age < oldestReleasing.age {
				oldestReleasing = &e.slots[i]
			}
		}
	}
	if oldestReleasing != nil {
		return oldestReleasing
	}
	oldest := &e.slots[0]
	for i := range e.slots {
		if e.slots[i].age < oldest.age {
			oldest = &e.slots[i]
		}
	}
	return oldest
}

// NoteOff releases the oldest held voice matching midiNote (clamped the
// same way NoteOn clamps it). With the sustain pedal down, the voice stays
// in stateHeld (carried through) so it keeps ringing until the pedal lifts.
func (e *Engine) NoteOff(midiNote int) {
	if midiNote < midiMin {
		midiNote = midiMin
	} else if midiNote > midiMax {
		midiNote = midiMax
	}
	if e.params.SustainPedal {
		return
	}
	var target *voiceSlot
	for i := range e.slots {
		s := &e.slots[i]
		if s.state == stateHeld && s.midiNote == midiNote {
			if target == nil || s.age < target.age {
				target = s
			}
		}
	}
	if target == nil {
		return
	}
	target.voice.NoteOff()
	target.state = stateReleasing
}

func (e *Engine) releaseSustainedNotes() {
	for i := range e.slots {
		s := &e.slots[i]
		if s.state == stateHeld {
			s.voice.NoteOff()
			s.state = stateReleasing
		}
	}
}

// Process renders numFrames of stereo output (interleaved L/R, equal
// channels) starting at the host sample rate, handling note events at
// their exact sample offsets within the block. numFrames is clamped to the
// buffer capacity established by Initialize; it never reads or writes past
// that pre-sized scratch space.
func (e *Engine) Process(events []NoteEvent, out []float64, numFrames int) {
	if numFrames > e.maxBlockSize {
		numFrames = e.maxBlockSize
	}
	pos := 0
	evIdx := 0
	for pos < numFrames {
		next := numFrames
		for evIdx < len(events) && events[evIdx].Frame == pos {
			e.applyEvent(events[evIdx])
			evIdx++
		}
		if evIdx < len(events) && events[evIdx].Frame < next {
			next = events[evIdx].Frame
		}
		e.renderSpan(out, pos, next)
		pos = next
	}
	e.cleanupSlots()
}

// NoteEvent is a sample-accurate note-on or note-off event within a block.
type NoteEvent struct {
	Frame    int
	NoteOn   bool
	MidiNote int
	Velocity float64
}

func (e *Engine) applyEvent(ev NoteEvent) {
	if ev.NoteOn {
		e.NoteOn(ev.MidiNote, ev.Velocity)
	} else {
		e.NoteOff(ev.MidiNote)
	}
}

func (e *Engine) renderSpan(out []float64, from, to int) {
	n := to - from
	if n <= 0 {
		return
	}
	mono := e.mono[:n]
	scratch := e.scratch[:n]
	stolen := e.stolen[:n]
	for i := range mono {
		mono[i] = 0
	}

	for i := range e.slots {
		s := &e.slots[i]
		if s.state == stateFree {
			continue
		}
		s.voice.Render(scratch)
		if s.stealVoice != nil {
			s.stealVoice.Render(stolen)
			for j := 0; j < n; j++ {
				mono[j] += scratch[j]*(1-s.stealFade) + stolen[j]*s.stealFade
				s.stealFade -= s.stealFadeDn
				if s.stealFade < 0 {
					s.stealFade = 0
				}
			}
			if s.stealFade <= 0 {
				s.stealVoice = nil
			}
		} else {
			for j := 0; j < n; j++ {
				mono[j] += scratch[j]
			}
		}
	}

	up := e.up[:2*n]
	e.oversamp.Upsample2x(mono, up)
	for i := range up {
		r := e.tremoloMod.Tick()
		up[i] = e.amp.Process(up[i]*e.params.PreampGain, r, e.tremoloMod.Depth())
	}
	down := mono
	e.oversamp.Downsample2x(up, down)

	for i := 0; i < n; i++ {
		y := output.Saturate(down[i])
		y = e.speaker.Process(y)
		y *= e.params.Volume
		if math.IsNaN(y) {
			y = 0
		}
		out[2*(from+i)] = y
		out[2*(from+i)+1] = y
	}
}

func (e *Engine) cleanupSlots() {
	for i := range e.slots {
		s := &e.slots[i]
		if s.state == stateReleasing && s.voice.IsSilent() && s.stealVoice == nil {
			*s = voiceSlot{}
		}
	}
}
