// Package worker provides a NATS worker that runs sovits commands received on
// the message bus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/sovits-service/internal/command"
	"github.com/book-expert/sovits-service/internal/core"
	"github.com/book-expert/sovits-service/internal/sovits"
)

const (
	handleMessageTimeout = 5 * time.Minute
	audioKeySuffix       = ".mp3"
)

// Reply headers. Audio replies carry a JSON AudioChunkCreatedEvent; help
// replies carry the help text.
const (
	headerContentType = "Content-Type"
	contentTypeJSON   = "application/json"
	contentTypeText   = "text/plain; charset=utf-8"
)

// CommandEvent is a sovits invocation published by the chat front end.
type CommandEvent struct {
	Header  events.EventHeader `json:"header"`
	Text    string             `json:"text"`
	Options sovits.Overrides   `json:"options"`
}

// NatsWorker listens for sovits commands on a NATS subject.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	handler        *command.Handler
	log            core.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	handler *command.Handler,
	log core.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		handler:        handler,
		log:            log,
	}, nil
}

// Run subscribes and handles messages until ctx is cancelled.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info("Listening for sovits commands on subject: %s", w.subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

// handleMessage replies only when there is something to deliver. A failed
// synthesis has already been logged by the speaker and gets no reply.
func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := w.parseEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse command event: %v", err)

		return
	}

	reply := w.handler.Invoke(ctx, event.Text, event.Options)

	switch {
	case reply.Audio != nil:
		audioKey, storeErr := w.storeAudio(ctx, reply.Audio)
		if storeErr != nil {
			w.log.Error("Failed to store audio for workflow %s: %v", event.Header.WorkflowID, storeErr)

			return
		}

		replyEvent := &events.AudioChunkCreatedEvent{
			Header:   event.Header,
			AudioKey: audioKey,
		}

		err = w.publishReplyEvent(msg, replyEvent)
	case reply.Help != "":
		err = msg.RespondMsg(&nats.Msg{
			Header: nats.Header{headerContentType: []string{contentTypeText}},
			Data:   []byte(reply.Help),
		})
	default:
		return
	}

	if err != nil {
		w.log.Error("Failed to publish reply for workflow %s: %v", event.Header.WorkflowID, err)
	}
}

func (w *NatsWorker) storeAudio(ctx context.Context, audio *sovits.Audio) (string, error) {
	audioKey := uuid.NewString() + audioKeySuffix

	err := w.store.Upload(ctx, audioKey, audio.Data)
	if err != nil {
		return "", fmt.Errorf("failed to upload audio data for key '%s': %w", audioKey, err)
	}

	return audioKey, nil
}

// publishReplyEvent marshals and responds with the AudioChunkCreatedEvent.
func (w *NatsWorker) publishReplyEvent(msg *nats.Msg, replyEvent *events.AudioChunkCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.RespondMsg(&nats.Msg{
		Header: nats.Header{headerContentType: []string{contentTypeJSON}},
		Data:   replyData,
	})
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func (w *NatsWorker) parseEvent(msg *nats.Msg) (*CommandEvent, error) {
	var event CommandEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	return &event, nil
}
