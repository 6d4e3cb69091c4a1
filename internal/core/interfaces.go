// Package core defines the interfaces shared by the sovits command, its
// transports and its storage.
package core

import (
	"context"
	"errors"

	"github.com/book-expert/sovits-service/internal/sovits"
)

// ErrObjectNotFound is returned when a store holds no object under a key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// Speaker turns text into audio. A nil result means no audio was produced;
// the implementation has already reported why.
type Speaker interface {
	Say(ctx context.Context, input string, overrides sovits.Overrides) *sovits.Audio
}

// Logger is the subset of *logger.Logger the service packages write to.
type Logger interface {
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}
