package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/sovits-service/internal/command"
	"github.com/book-expert/sovits-service/internal/sovits"
)

type fakeSpeaker struct {
	result *sovits.Audio
	text   string
}

func (f *fakeSpeaker) Say(_ context.Context, input string, _ sovits.Overrides) *sovits.Audio {
	f.text = input

	return f.result
}

func TestParseFlags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		args        []string
		wantOutput  string
		wantHealth  bool
		wantCommand []string
	}{
		{
			name:        "output then command",
			args:        []string{"-output", "out/clip.mp3", "你好", "-l", "1.2"},
			wantOutput:  "out/clip.mp3",
			wantCommand: []string{"你好", "-l", "1.2"},
		},
		{
			name:        "separator keeps command options",
			args:        []string{"--", "-s", "hutao", "hi"},
			wantCommand: []string{"-s", "hutao", "hi"},
		},
		{
			name:        "health",
			args:        []string{"-health"},
			wantHealth:  true,
			wantCommand: nil,
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			flags, err := parseFlags(testCase.args)
			require.NoError(t, err)

			assert.Equal(t, testCase.wantOutput, flags.output)
			assert.Equal(t, testCase.wantHealth, flags.health)
			assert.Equal(t, testCase.wantCommand, flags.command)
		})
	}
}

func TestRun_EmptyCommandPrintsHelp(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	require.NoError(t, run([]string{"-output", "x.mp3"}, &stdout, io.Discard))
	assert.Equal(t, command.Help(), stdout.String())
}

func TestRun_BadCommandSyntax(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer

	err := run([]string{"--", "hello", "-nw", "many"}, &stdout, io.Discard)
	require.ErrorIs(t, err, command.ErrInvalidSyntax)
}

func TestSynthesizeToFile(t *testing.T) {
	t.Parallel()

	outputPath := filepath.Join(t.TempDir(), "nested", "clip.mp3")
	speaker := &fakeSpeaker{result: &sovits.Audio{Data: []byte("mp3"), MIMEType: sovits.MIMETypeMPEG}}

	var stdout bytes.Buffer

	err := synthesizeToFile(context.Background(), speaker, command.Invocation{Text: "你好"}, outputPath, &stdout)
	require.NoError(t, err)

	data, err := os.ReadFile(outputPath)
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), data)
	assert.Equal(t, "你好", speaker.text)
	assert.Contains(t, stdout.String(), outputPath)
}

func TestSynthesizeToFile_NoAudio(t *testing.T) {
	t.Parallel()

	outputPath := filepath.Join(t.TempDir(), "clip.mp3")

	var stdout bytes.Buffer

	err := synthesizeToFile(context.Background(), &fakeSpeaker{}, command.Invocation{Text: "hi"}, outputPath, &stdout)
	require.ErrorIs(t, err, ErrNoAudio)

	_, statErr := os.Stat(outputPath)
	assert.True(t, os.IsNotExist(statErr))
}

type recordingLogger struct {
	lines []string
}

func (r *recordingLogger) Info(format string, args ...any) {
	r.lines = append(r.lines, "info "+fmt.Sprintf(format, args...))
}

func (r *recordingLogger) Warn(format string, args ...any) {
	r.lines = append(r.lines, "warn "+fmt.Sprintf(format, args...))
}

func (r *recordingLogger) Error(format string, args ...any) {
	r.lines = append(r.lines, "error "+fmt.Sprintf(format, args...))
}

func TestCLILogger_VerboseEchoesToStderr(t *testing.T) {
	t.Parallel()

	fileLog := &recordingLogger{}

	var stderr bytes.Buffer

	cliLog := newCLILogger(fileLog, &stderr, true)
	cliLog.Info("sending %d bytes", 6)
	cliLog.Error("synthesis failed: %s", "503")

	assert.Equal(t, []string{"info sending 6 bytes", "error synthesis failed: 503"}, fileLog.lines)
	assert.Equal(t, "INFO: sending 6 bytes\nERROR: synthesis failed: 503\n", stderr.String())
}

func TestCLILogger_QuietWritesOnlyTheFile(t *testing.T) {
	t.Parallel()

	fileLog := &recordingLogger{}

	var stderr bytes.Buffer

	cliLog := newCLILogger(fileLog, &stderr, false)
	cliLog.Warn("slow backend")

	assert.Equal(t, []string{"warn slow backend"}, fileLog.lines)
	assert.Empty(t, stderr.String())
}

func TestFormatCharacters(t *testing.T) {
	t.Parallel()

	out := formatCharacters(map[string][]string{
		"nahida": {"default", "happy"},
		"hutao":  {"default"},
	})

	assert.Equal(t, "hutao: default\nnahida: default, happy\n", out)
}
