package sovits

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// MIMETypeMPEG is the MIME type attached to every synthesized clip.
const MIMETypeMPEG = "audio/mpeg"

const logFmtSynthesisFailed = "ERROR: sovits synthesis failed for cha_name=%q character_emotion=%q: %v"

// Audio is a synthesized clip ready to be sent as a chat attachment.
type Audio struct {
	Data     []byte
	MIMEType string
}

// ErrorLogger receives one line per failed synthesis.
type ErrorLogger interface {
	Error(format string, args ...any)
}

// Synthesizer sends text to a GPT-SoVITS backend and wraps the result as
// audio. It holds no per-call state and is safe for concurrent use.
type Synthesizer struct {
	client   *HTTPClient
	defaults Params
	log      ErrorLogger
}

// NewSynthesizer creates a Synthesizer for endpoint using defaults for every
// parameter a call does not override. A zero timeout keeps the http.Client
// default.
func NewSynthesizer(
	endpoint string,
	defaults Params,
	timeout time.Duration,
	log ErrorLogger,
) (*Synthesizer, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, ErrEndpointEmpty
	}

	err := defaults.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid default parameters: %w", err)
	}

	return NewSynthesizerWithClient(NewHTTPClient(endpoint, timeout), defaults, log), nil
}

// NewSynthesizerWithClient creates a Synthesizer around an existing client.
func NewSynthesizerWithClient(client *HTTPClient, defaults Params, log ErrorLogger) *Synthesizer {
	return &Synthesizer{
		client:   client,
		defaults: defaults,
		log:      log,
	}
}

// Defaults returns the statically configured parameters.
func (s *Synthesizer) Defaults() Params {
	return s.defaults
}

// Client returns the backend client.
func (s *Synthesizer) Client() *HTTPClient {
	return s.client
}

// Synthesize merges overrides into the defaults, sends input to the backend
// and returns the audio bytes exactly as received.
func (s *Synthesizer) Synthesize(ctx context.Context, input string, overrides Overrides) (*Audio, error) {
	if input == "" {
		return nil, ErrTextEmpty
	}

	params := Merge(s.defaults, overrides)

	err := params.Validate()
	if err != nil {
		return nil, err
	}

	audioData, err := s.client.GenerateSpeech(ctx, params.Request(input))
	if err != nil {
		return nil, fmt.Errorf("failed to generate speech: %w", err)
	}

	return &Audio{Data: audioData, MIMEType: MIMETypeMPEG}, nil
}

// Say is the best-effort form of Synthesize: any failure is logged once at
// error level and reported as a nil result.
func (s *Synthesizer) Say(ctx context.Context, input string, overrides Overrides) *Audio {
	audio, err := s.Synthesize(ctx, input, overrides)
	if err != nil {
		params := Merge(s.defaults, overrides)
		s.log.Error(logFmtSynthesisFailed, params.CharacterName, params.CharacterEmotion, err)

		return nil
	}

	return audio
}
