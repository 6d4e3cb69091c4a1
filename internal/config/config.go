// Package config provides the configuration structure for the sovits-service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"

	"github.com/book-expert/sovits-service/internal/sovits"
)

// Slider bounds for the statically configured synthesis defaults.
const (
	minBatchSize   = 1
	maxBatchSize   = 35
	minSpeed       = 0.25
	maxSpeed       = 4.0
	minTopK        = 1
	maxTopK        = 30
	minTopP        = 0.0
	maxTopP        = 1.0
	minTemperature = 0.0
	maxTemperature = 1.0
)

// Static errors.
var (
	ErrUnsupportedLanguage = errors.New("unsupported text_language")
	ErrOutOfRange          = errors.New("value out of range")
	ErrTimeoutNegative     = errors.New("timeout_seconds must be non-negative")
)

// SovitsConfig holds the backend endpoint and the default synthesis parameters.
// Numeric fields are pointers so an absent key can be told apart from zero.
type SovitsConfig struct {
	Endpoint         string   `toml:"endpoint"`
	CharacterName    string   `toml:"cha_name"`
	CharacterEmotion string   `toml:"character_emotion"`
	TextLanguage     string   `toml:"text_language"`
	BatchSize        *int     `toml:"batch_size"`
	Speed            *float64 `toml:"speed"`
	TopK             *int     `toml:"top_k"`
	TopP             *float64 `toml:"top_p"`
	Temperature      *float64 `toml:"temperature"`
	TimeoutSeconds   int      `toml:"timeout_seconds"`
}

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                    string `toml:"url"`
	CommandSubject         string `toml:"command_subject"`
	AudioObjectStoreBucket string `toml:"audio_object_store_bucket"`
}

// HTTPConfig holds the webhook API listener settings.
type HTTPConfig struct {
	Addr string `toml:"addr"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Sovits SovitsConfig `toml:"sovits"`
	NATS   NATSConfig   `toml:"nats"`
	HTTP   HTTPConfig   `toml:"http"`
	Paths  PathsConfig  `toml:"paths"`
}

// Load loads, completes and validates the configuration for the sovits-service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	cfg.ApplyDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills every optional setting that was left out.
func (c *Config) ApplyDefaults() {
	s := &c.Sovits

	if s.TextLanguage == "" {
		s.TextLanguage = string(sovits.DefaultLanguage)
	}

	if s.BatchSize == nil {
		s.BatchSize = intPtr(sovits.DefaultBatchSize)
	}

	if s.Speed == nil {
		s.Speed = floatPtr(sovits.DefaultSpeed)
	}

	if s.TopK == nil {
		s.TopK = intPtr(sovits.DefaultTopK)
	}

	if s.TopP == nil {
		s.TopP = floatPtr(sovits.DefaultTopP)
	}

	if s.Temperature == nil {
		s.Temperature = floatPtr(sovits.DefaultTemperature)
	}

	if c.NATS.CommandSubject == "" {
		c.NATS.CommandSubject = "bot.command.sovits"
	}

	if c.NATS.AudioObjectStoreBucket == "" {
		c.NATS.AudioObjectStoreBucket = "SOVITS_AUDIO"
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8089"
	}
}

// Validate checks required fields and the slider ranges of the defaults.
// It expects ApplyDefaults to have run.
func (c *Config) Validate() error {
	s := c.Sovits

	if strings.TrimSpace(s.Endpoint) == "" {
		return sovits.ErrEndpointEmpty
	}

	err := s.Params().Validate()
	if err != nil {
		return err
	}

	if !sovits.Language(s.TextLanguage).Valid() {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, s.TextLanguage)
	}

	if s.BatchSize == nil || *s.BatchSize < minBatchSize || *s.BatchSize > maxBatchSize {
		return rangeError("batch_size", minBatchSize, maxBatchSize)
	}

	if s.Speed == nil || *s.Speed < minSpeed || *s.Speed > maxSpeed {
		return rangeError("speed", minSpeed, maxSpeed)
	}

	if s.TopK == nil || *s.TopK < minTopK || *s.TopK > maxTopK {
		return rangeError("top_k", minTopK, maxTopK)
	}

	if s.TopP == nil || *s.TopP < minTopP || *s.TopP > maxTopP {
		return rangeError("top_p", minTopP, maxTopP)
	}

	if s.Temperature == nil || *s.Temperature < minTemperature || *s.Temperature > maxTemperature {
		return rangeError("temperature", minTemperature, maxTemperature)
	}

	if s.TimeoutSeconds < 0 {
		return ErrTimeoutNegative
	}

	return nil
}

// Params converts the configured defaults into synthesis parameters. Unset
// numeric fields fall back to the package defaults.
func (s SovitsConfig) Params() sovits.Params {
	params := sovits.DefaultParams(s.CharacterName, s.CharacterEmotion)

	if s.TextLanguage != "" {
		params.TextLanguage = sovits.Language(s.TextLanguage)
	}

	if s.BatchSize != nil {
		params.BatchSize = *s.BatchSize
	}

	if s.Speed != nil {
		params.Speed = *s.Speed
	}

	if s.TopK != nil {
		params.TopK = *s.TopK
	}

	if s.TopP != nil {
		params.TopP = *s.TopP
	}

	if s.Temperature != nil {
		params.Temperature = *s.Temperature
	}

	return params
}

// Timeout returns the backend request timeout; zero means no timeout.
func (s SovitsConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func rangeError[T int | float64](field string, low, high T) error {
	return fmt.Errorf("%w: %s must be between %v and %v", ErrOutOfRange, field, low, high)
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
