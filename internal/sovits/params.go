// Package sovits implements the GPT-SoVITS synthesis requester: parameter
// merging, the HTTP client for the backend and the Synthesizer that wraps the
// resulting audio for chat delivery.
package sovits

import (
	"errors"
	"strings"
)

// Language is the text_language tag understood by the backend.
type Language string

// Languages accepted by the backend, in their literal wire form.
const (
	LanguageMixed           Language = "多语种混合"
	LanguageChinese         Language = "中文"
	LanguageJapanese        Language = "日文"
	LanguageEnglish         Language = "英文"
	LanguageChineseEnglish  Language = "中英混合"
	LanguageJapaneseEnglish Language = "日英混合"
)

// Languages lists every supported Language in display order.
var Languages = []Language{
	LanguageMixed,
	LanguageChinese,
	LanguageJapanese,
	LanguageEnglish,
	LanguageChineseEnglish,
	LanguageJapaneseEnglish,
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	for _, known := range Languages {
		if l == known {
			return true
		}
	}

	return false
}

// Default synthesis parameters.
const (
	DefaultLanguage    = LanguageMixed
	DefaultBatchSize   = 10
	DefaultSpeed       = 1.0
	DefaultTopK        = 6
	DefaultTopP        = 0.8
	DefaultTemperature = 0.8
)

// Static errors.
var (
	ErrEndpointEmpty         = errors.New("endpoint cannot be empty")
	ErrCharacterEmpty        = errors.New("cha_name cannot be empty")
	ErrCharacterEmotionEmpty = errors.New("character_emotion cannot be empty")
	ErrTextEmpty             = errors.New("text cannot be empty")
)

// Params is the effective parameter set of one synthesis call.
type Params struct {
	CharacterName    string
	CharacterEmotion string
	TextLanguage     Language
	BatchSize        int
	Speed            float64
	TopK             int
	TopP             float64
	Temperature      float64
}

// DefaultParams returns the parameter defaults for the given character.
func DefaultParams(characterName, characterEmotion string) Params {
	return Params{
		CharacterName:    characterName,
		CharacterEmotion: characterEmotion,
		TextLanguage:     DefaultLanguage,
		BatchSize:        DefaultBatchSize,
		Speed:            DefaultSpeed,
		TopK:             DefaultTopK,
		TopP:             DefaultTopP,
		Temperature:      DefaultTemperature,
	}
}

// Validate checks the fields that must be present before a request is issued.
// Numeric ranges are left to the backend.
func (p Params) Validate() error {
	if strings.TrimSpace(p.CharacterName) == "" {
		return ErrCharacterEmpty
	}

	if strings.TrimSpace(p.CharacterEmotion) == "" {
		return ErrCharacterEmotionEmpty
	}

	return nil
}

// Overrides holds the per-call values supplied with a command. A nil field
// falls back to the configured default. The endpoint is not overridable; it
// is fixed when the Synthesizer is built.
type Overrides struct {
	CharacterName    *string   `json:"cha_name,omitempty"`
	CharacterEmotion *string   `json:"character_emotion,omitempty"`
	TextLanguage     *Language `json:"text_language,omitempty"`
	BatchSize        *int      `json:"batch_size,omitempty"`
	Speed            *float64  `json:"speed,omitempty"`
	TopK             *int      `json:"top_k,omitempty"`
	TopP             *float64  `json:"top_p,omitempty"`
	Temperature      *float64  `json:"temperature,omitempty"`
}

// Merge returns defaults with every non-nil override applied. Neither
// argument is modified.
func Merge(defaults Params, overrides Overrides) Params {
	merged := defaults

	if overrides.CharacterName != nil {
		merged.CharacterName = *overrides.CharacterName
	}

	if overrides.CharacterEmotion != nil {
		merged.CharacterEmotion = *overrides.CharacterEmotion
	}

	if overrides.TextLanguage != nil {
		merged.TextLanguage = *overrides.TextLanguage
	}

	if overrides.BatchSize != nil {
		merged.BatchSize = *overrides.BatchSize
	}

	if overrides.Speed != nil {
		merged.Speed = *overrides.Speed
	}

	if overrides.TopK != nil {
		merged.TopK = *overrides.TopK
	}

	if overrides.TopP != nil {
		merged.TopP = *overrides.TopP
	}

	if overrides.Temperature != nil {
		merged.Temperature = *overrides.Temperature
	}

	return merged
}

// Request builds the wire payload for text under these parameters.
func (p Params) Request(text string) TTSRequest {
	return TTSRequest{
		CharacterName:    p.CharacterName,
		CharacterEmotion: p.CharacterEmotion,
		Text:             text,
		TextLanguage:     p.TextLanguage,
		BatchSize:        p.BatchSize,
		Speed:            p.Speed,
		TopK:             p.TopK,
		TopP:             p.TopP,
		Temperature:      p.Temperature,
	}
}
