// Package config_test tests the configuration loading for the sovits-service.
package config_test

import (
	"testing"
	"time"

	"github.com/book-expert/sovits-service/internal/config"
	"github.com/book-expert/sovits-service/internal/sovits"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullTOML = `
[sovits]
endpoint = "http://localhost:9880"
cha_name = "nahida"
character_emotion = "default"
text_language = "中文"
batch_size = 12
speed = 1.25
top_k = 8
top_p = 0.7
temperature = 0.6
timeout_seconds = 90

[nats]
url = "nats://127.0.0.1:4222"
command_subject = "chat.sovits"
audio_object_store_bucket = "VOICE_CLIPS"

[http]
addr = ":9000"

[paths]
base_logs_dir = "/var/log/sovits"
`

func decode(t *testing.T, data string) config.Config {
	t.Helper()

	var cfg config.Config

	err := toml.Unmarshal([]byte(data), &cfg)
	require.NoError(t, err)

	return cfg
}

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	cfg := decode(t, fullTOML)
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:9880", cfg.Sovits.Endpoint)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "chat.sovits", cfg.NATS.CommandSubject)
	assert.Equal(t, "VOICE_CLIPS", cfg.NATS.AudioObjectStoreBucket)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, "/var/log/sovits", cfg.Paths.BaseLogsDir)
	assert.Equal(t, 90*time.Second, cfg.Sovits.Timeout())

	assert.Equal(t, sovits.Params{
		CharacterName:    "nahida",
		CharacterEmotion: "default",
		TextLanguage:     sovits.LanguageChinese,
		BatchSize:        12,
		Speed:            1.25,
		TopK:             8,
		TopP:             0.7,
		Temperature:      0.6,
	}, cfg.Sovits.Params())
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	cfg := decode(t, `
[sovits]
endpoint = "http://localhost:9880"
cha_name = "nahida"
character_emotion = "default"
`)
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, sovits.DefaultParams("nahida", "default"), cfg.Sovits.Params())
	assert.Equal(t, "bot.command.sovits", cfg.NATS.CommandSubject)
	assert.Equal(t, "SOVITS_AUDIO", cfg.NATS.AudioObjectStoreBucket)
	assert.Equal(t, ":8089", cfg.HTTP.Addr)
	assert.Zero(t, cfg.Sovits.Timeout())
}

func TestApplyDefaults_KeepsExplicitZero(t *testing.T) {
	t.Parallel()

	cfg := decode(t, `
[sovits]
endpoint = "http://localhost:9880"
cha_name = "nahida"
character_emotion = "default"
top_p = 0.0
temperature = 0.0
`)
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	params := cfg.Sovits.Params()
	assert.Zero(t, params.TopP)
	assert.Zero(t, params.Temperature)
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	base := `
[sovits]
endpoint = "http://localhost:9880"
cha_name = "nahida"
character_emotion = "default"
`

	testCases := []struct {
		name     string
		toml     string
		expected error
	}{
		{
			name:     "missing endpoint",
			toml:     "[sovits]\ncha_name = \"nahida\"\ncharacter_emotion = \"default\"\n",
			expected: sovits.ErrEndpointEmpty,
		},
		{
			name:     "missing character",
			toml:     "[sovits]\nendpoint = \"http://x\"\ncharacter_emotion = \"default\"\n",
			expected: sovits.ErrCharacterEmpty,
		},
		{
			name:     "missing emotion",
			toml:     "[sovits]\nendpoint = \"http://x\"\ncha_name = \"nahida\"\n",
			expected: sovits.ErrCharacterEmotionEmpty,
		},
		{name: "unknown language", toml: base + "text_language = \"klingon\"\n", expected: config.ErrUnsupportedLanguage},
		{name: "batch size too large", toml: base + "batch_size = 36\n", expected: config.ErrOutOfRange},
		{name: "batch size zero", toml: base + "batch_size = 0\n", expected: config.ErrOutOfRange},
		{name: "speed too slow", toml: base + "speed = 0.1\n", expected: config.ErrOutOfRange},
		{name: "speed too fast", toml: base + "speed = 4.5\n", expected: config.ErrOutOfRange},
		{name: "top_k too large", toml: base + "top_k = 31\n", expected: config.ErrOutOfRange},
		{name: "top_p above one", toml: base + "top_p = 1.5\n", expected: config.ErrOutOfRange},
		{name: "negative temperature", toml: base + "temperature = -0.1\n", expected: config.ErrOutOfRange},
		{name: "negative timeout", toml: base + "timeout_seconds = -1\n", expected: config.ErrTimeoutNegative},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			cfg := decode(t, testCase.toml)
			cfg.ApplyDefaults()

			err := cfg.Validate()
			require.ErrorIs(t, err, testCase.expected)
		})
	}
}
