// Package preset loads JSON configuration presets for the engine. Every
// field is an optional pointer so a preset file only needs to name the
// controls it actually overrides; anything omitted keeps the engine's
// current value.
package preset

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/hal0zero/openwurli/engine"
)

// Preset is the on-disk shape of one configuration file.
type Preset struct {
	Volume           *float64 `json:"volume,omitempty"`
	TremoloRateHz    *float64 `json:"tremolo_rate,omitempty"`
	TremoloDepth     *float64 `json:"tremolo_depth,omitempty"`
	SpeakerCharacter *float64 `json:"speaker_character,omitempty"`
	PreampGain       *float64 `json:"preamp_gain,omitempty"`
	MlpEnabled       *bool    `json:"mlp_enabled,omitempty"`
	SustainPedal     *bool    `json:"sustain_pedal,omitempty"`
}

// LoadJSON decodes a preset from r without applying it.
func LoadJSON(r io.Reader) (*Preset, error) {
	var p Preset
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("preset: decode: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks every present field's range before it is ever applied to
// a live engine.
func (p *Preset) Validate() error {
	if p.Volume != nil && (*p.Volume < 0 || *p.Volume > 4) {
		return fmt.Errorf("preset: volume %f out of range [0,4]", *p.Volume)
	}
	if p.TremoloRateHz != nil && (*p.TremoloRateHz <= 0 || *p.TremoloRateHz > 20) {
		return fmt.Errorf("preset: tremolo_rate %f out of range (0,20]", *p.TremoloRateHz)
	}
	if p.TremoloDepth != nil && (*p.TremoloDepth < 0 || *p.TremoloDepth > 1) {
		return fmt.Errorf("preset: tremolo_depth %f out of range [0,1]", *p.TremoloDepth)
	}
	if p.SpeakerCharacter != nil && (*p.SpeakerCharacter < 0 || *p.SpeakerCharacter > 1) {
		return fmt.Errorf("preset: speaker_character %f out of range [0,1]", *p.SpeakerCharacter)
	}
	if p.PreampGain != nil && (*p.PreampGain < 0 || *p.PreampGain > 4) {
		return fmt.Errorf("preset: preamp_gain %f out of range [0,4]", *p.PreampGain)
	}
	return nil
}

// Apply pushes every present field into the engine via SetParam.
func (p *Preset) Apply(e *engine.Engine) {
	if p.Volume != nil {
		e.SetParam("volume", *p.Volume)
	}
	if p.TremoloRateHz != nil {
		e.SetParam("tremolo_rate", *p.TremoloRateHz)
	}
	if p.TremoloDepth != nil {
		e.SetParam("tremolo_depth", *p.TremoloDepth)
	}
	if p.SpeakerCharacter != nil {
		e.SetParam("speaker_character", *p.SpeakerCharacter)
	}
	if p.PreampGain != nil {
		e.SetParam("preamp_gain", *p.PreampGain)
	}
	if p.MlpEnabled != nil {
		v := 0.0
		if *p.MlpEnabled {
			v = 1.0
		}
		e.SetParam("mlp_enabled", v)
	}
	if p.SustainPedal != nil {
		v := 0.0
		if *p.SustainPedal {
			v = 1.0
		}
		e.SetParam("sustain_pedal", v)
	}
}

// ApplyFile loads a preset from path, validates it, and applies it to e.
func ApplyFile(path string, e *engine.Engine) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("preset: open %s: %w", path, err)
	}
	defer f.Close()

	p, err := LoadJSON(f)
	if err != nil {
		return err
	}
	p.Apply(e)
	return nil
}
