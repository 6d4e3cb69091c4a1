// Command sovits-cli runs a single sovits command against the configured
// GPT-SoVITS backend and writes the audio to a file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/sovits-service/internal/command"
	"github.com/book-expert/sovits-service/internal/config"
	"github.com/book-expert/sovits-service/internal/core"
	"github.com/book-expert/sovits-service/internal/sovits"
)

// Flag descriptions and messages.
const (
	flagOutputDesc  = "Output file path (.mp3)"
	flagVerboseDesc = "Also print log lines to stderr"
	flagHealthDesc  = "List the backend's characters and exit"
)

// Flag names.
const (
	flagOutput  = "output"
	flagVerbose = "verbose"
	flagHealth  = "health"
)

// Error and log messages.
const (
	errFailedToLoadConfig = "failed to load configuration: %w"
	errFailedToInitLogger = "failed to initialize logger: %w"
	errHealthCheckFailed  = "health check failed: %w"
	errNoAudio            = "no audio was produced, see the log for details"
	logGenerated          = "Generated: %s\n"
)

// File names and paths.
const (
	logFileName       = "sovits-cli.log"
	defaultOutputFile = "output.mp3"
	healthTimeout     = 10 * time.Second
	filePermissions   = 0o600
	dirPermissions    = 0o750
)

// ErrNoAudio is returned when the backend produced nothing.
var ErrNoAudio = errors.New(errNoAudio)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	output  string
	verbose bool
	health  bool
	command []string
}

func main() {
	err := run(os.Args[1:], os.Stdout, os.Stderr)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// run is the main application entry point, returning an error on failure.
func run(args []string, stdout, stderr io.Writer) error {
	flags, err := parseFlags(args)
	if err != nil {
		return err
	}

	invocation, err := command.ParseArgs(flags.command)
	if err != nil {
		return err
	}

	if !flags.health && (invocation.Help || invocation.Text == "") {
		fmt.Fprint(stdout, command.Help())

		return nil
	}

	fileLog, err := logger.New(os.TempDir(), logFileName)
	if err != nil {
		return fmt.Errorf(errFailedToInitLogger, err)
	}
	defer fileLog.Close()

	cfg, err := config.Load(fileLog)
	if err != nil {
		return fmt.Errorf(errFailedToLoadConfig, err)
	}

	cliLog := newCLILogger(fileLog, stderr, flags.verbose)

	synth, err := sovits.NewSynthesizer(cfg.Sovits.Endpoint, cfg.Sovits.Params(), cfg.Sovits.Timeout(), cliLog)
	if err != nil {
		return err
	}

	if flags.health {
		return handleHealthCheck(synth.Client(), stdout)
	}

	cliLog.Info("Sending %d bytes of text to %s with %+v",
		len(invocation.Text), synth.Client().BaseURL(), sovits.Merge(synth.Defaults(), invocation.Overrides))

	return synthesizeToFile(context.Background(), synth, invocation, flags.output, stdout)
}

// parseFlags splits the CLI's own flags from the sovits command that follows them.
func parseFlags(args []string) (appFlags, error) {
	var flags appFlags

	flagSet := flag.NewFlagSet("sovits-cli", flag.ContinueOnError)
	flagSet.StringVar(&flags.output, flagOutput, "", flagOutputDesc)
	flagSet.BoolVar(&flags.verbose, flagVerbose, false, flagVerboseDesc)
	flagSet.BoolVar(&flags.health, flagHealth, false, flagHealthDesc)

	err := flagSet.Parse(args)
	if err != nil {
		return appFlags{}, fmt.Errorf("invalid flags: %w", err)
	}

	flags.command = append([]string(nil), flagSet.Args()...)

	return flags, nil
}

// echoLogger writes every line to the log file and to out.
type echoLogger struct {
	next core.Logger
	out  io.Writer
}

func newCLILogger(fileLog core.Logger, stderr io.Writer, verbose bool) core.Logger {
	if !verbose {
		return fileLog
	}

	return &echoLogger{next: fileLog, out: stderr}
}

func (e *echoLogger) Info(format string, args ...any) {
	e.next.Info(format, args...)
	e.echo("INFO", format, args)
}

func (e *echoLogger) Warn(format string, args ...any) {
	e.next.Warn(format, args...)
	e.echo("WARN", format, args)
}

func (e *echoLogger) Error(format string, args ...any) {
	e.next.Error(format, args...)
	e.echo("ERROR", format, args)
}

func (e *echoLogger) echo(level, format string, args []any) {
	fmt.Fprintf(e.out, "%s: %s\n", level, fmt.Sprintf(format, args...))
}

// handleHealthCheck prints the backend's characters and their emotions.
func handleHealthCheck(client *sovits.HTTPClient, stdout io.Writer) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	characters, err := client.Characters(ctx)
	if err != nil {
		return fmt.Errorf(errHealthCheckFailed, err)
	}

	fmt.Fprint(stdout, formatCharacters(characters))

	return nil
}

func formatCharacters(characters map[string][]string) string {
	names := make([]string, 0, len(characters))
	for name := range characters {
		names = append(names, name)
	}

	sort.Strings(names)

	var builder strings.Builder

	for _, name := range names {
		fmt.Fprintf(&builder, "%s: %s\n", name, strings.Join(characters[name], ", "))
	}

	return builder.String()
}

// synthesizeToFile runs the invocation and writes the audio to outputPath.
func synthesizeToFile(
	ctx context.Context,
	speaker core.Speaker,
	invocation command.Invocation,
	outputPath string,
	stdout io.Writer,
) error {
	if outputPath == "" {
		outputPath = defaultOutputFile
	}

	audio := speaker.Say(ctx, invocation.Text, invocation.Overrides)
	if audio == nil {
		return ErrNoAudio
	}

	err := os.MkdirAll(filepath.Dir(outputPath), dirPermissions)
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	err = os.WriteFile(outputPath, audio.Data, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	fmt.Fprintf(stdout, logGenerated, outputPath)

	return nil
}
