package modules

import (
	"encoding/json"
	"fmt"

	"github.com/SAP-F-2025/placement-service/internal/models"
)

const (
	AudioKey = "audio"
	MaxPlays = 2

	SectionGeneral  = "general"
	SectionSpecific = "specific"
)

// SectionPlays tracks one recording
type SectionPlays struct {
	PlaysUsed          int  `json:"playsUsed"`
	AwaitingSecondPlay bool `json:"awaitingSecondPlay"`
}

// AudioState allows two plays of each recording. The programme recording is
// locked until the general one has used both plays.
type AudioState struct {
	General  SectionPlays `json:"general"`
	Specific SectionPlays `json:"specific"`
}

// DecodeAudio reads stored state, clamping out of range counters
func DecodeAudio(raw json.RawMessage) (AudioState, error) {
	var state AudioState
	if err := decodeAux(raw, &state); err != nil {
		return AudioState{}, err
	}
	state.General.clamp()
	state.Specific.clamp()
	return state, nil
}

func (s *SectionPlays) clamp() {
	if s.PlaysUsed < 0 {
		s.PlaysUsed = 0
	}
	if s.PlaysUsed >= MaxPlays {
		s.PlaysUsed = MaxPlays
		s.AwaitingSecondPlay = false
	}
}

func (a *AudioState) section(key string) (*SectionPlays, error) {
	switch key {
	case SectionGeneral:
		return &a.General, nil
	case SectionSpecific:
		return &a.Specific, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSection, key)
}

// Play consumes a play of a section
func (a *AudioState) Play(key string) error {
	s, err := a.section(key)
	if err != nil {
		return err
	}
	if s.PlaysUsed >= MaxPlays {
		return ErrNoPlaysLeft
	}
	if key == SectionSpecific && a.General.PlaysUsed < MaxPlays {
		return ErrSectionLocked
	}

	s.AwaitingSecondPlay = false
	s.PlaysUsed++
	return nil
}

// Ended records the end of playback
func (a *AudioState) Ended(key string) error {
	s, err := a.section(key)
	if err != nil {
		return err
	}
	s.AwaitingSecondPlay = s.PlaysUsed == 1
	return nil
}

// Failed gives back the play consumed by a playback that never started
func (a *AudioState) Failed(key string) error {
	s, err := a.section(key)
	if err != nil {
		return err
	}
	if s.PlaysUsed > 0 {
		s.PlaysUsed--
	}
	s.AwaitingSecondPlay = s.PlaysUsed == 1
	return nil
}

// Summary renders "Listening 1 plays: 2/2, Listening 2 plays: 1/2"
func (a AudioState) Summary() string {
	return fmt.Sprintf("Listening 1 plays: %d/%d, Listening 2 plays: %d/%d",
		a.General.PlaysUsed, MaxPlays, a.Specific.PlaysUsed, MaxPlays)
}

func audioStep(key string, step func(*AudioState, string) error) AuxFunc {
	return func(raw json.RawMessage, _ []models.Item, _ map[string]string) (json.RawMessage, error) {
		state, err := DecodeAudio(raw)
		if err != nil {
			return nil, err
		}
		if err := step(&state, key); err != nil {
			return nil, err
		}
		return json.Marshal(state)
	}
}

func PlayAudio(section string) AuxFunc {
	return audioStep(section, (*AudioState).Play)
}

func AudioEnded(section string) AuxFunc {
	return audioStep(section, (*AudioState).Ended)
}

func AudioFailed(section string) AuxFunc {
	return audioStep(section, (*AudioState).Failed)
}

func audioSummary(aux map[string]json.RawMessage) string {
	state, err := DecodeAudio(aux[AudioKey])
	if err != nil {
		state = AudioState{}
	}
	return state.Summary()
}
