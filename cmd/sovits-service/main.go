// main package for the sovits-service
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/sovits-service/internal/command"
	"github.com/book-expert/sovits-service/internal/config"
	"github.com/book-expert/sovits-service/internal/httpapi"
	"github.com/book-expert/sovits-service/internal/objectstore"
	"github.com/book-expert/sovits-service/internal/sovits"
	"github.com/book-expert/sovits-service/internal/worker"
)

const (
	probeTimeout    = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir(), "sovits-service-bootstrap.log")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	defer func() {
		_ = bootstrapLog.Close()
	}()

	envErr := godotenv.Load()
	if envErr != nil {
		bootstrapLog.Info("No .env file loaded, using process environment: %v", envErr)
	}

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, "sovits-service.log")
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	// 4. Build the synthesizer and probe the backend
	synth, err := sovits.NewSynthesizer(cfg.Sovits.Endpoint, cfg.Sovits.Params(), cfg.Sovits.Timeout(), finalLog)
	if err != nil {
		return fmt.Errorf("failed to create synthesizer: %w", err)
	}

	probeBackend(ctx, synth.Client(), finalLog)

	handler := command.NewHandler(synth)

	// 5. Connect to NATS and start the worker and the HTTP API
	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
	}
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket, sovits.MIMETypeMPEG)
	if err != nil {
		return fmt.Errorf("failed to open audio object store: %w", err)
	}

	natsWorker, err := worker.NewNatsWorker(natsConnection, cfg.NATS.CommandSubject, store, handler, finalLog)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpapi.NewRouter(httpapi.New(handler, synth.Client(), store, finalLog)),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	finalLog.System("sovits-service initialized. Backend: %s, subject: %s, http: %s",
		synth.Client().BaseURL(), cfg.NATS.CommandSubject, cfg.HTTP.Addr)

	workerErrCh := make(chan error, 1)

	go func() {
		workerErrCh <- natsWorker.Run(ctx)
	}()

	serverErr := runServer(ctx, srv)
	stop()

	workerErr := <-workerErrCh

	return errors.Join(serverErr, workerErr)
}

// probeBackend logs whether the backend answers; the service starts either way.
func probeBackend(ctx context.Context, client *sovits.HTTPClient, log *logger.Logger) {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	characters, err := client.Characters(probeCtx)
	if err != nil {
		log.Warn("GPT-SoVITS backend at %s did not answer the character list probe: %v", client.BaseURL(), err)

		return
	}

	log.Info("GPT-SoVITS backend at %s reports %d characters", client.BaseURL(), len(characters))
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		_ = srv.Shutdown(shutdownCtx)

		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	}
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
