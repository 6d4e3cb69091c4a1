// Package httpapi exposes the sovits command to chat platforms over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/book-expert/sovits-service/internal/command"
	"github.com/book-expert/sovits-service/internal/core"
)

const maxCommandBodyBytes = 64 << 10

// CharacterLister returns the characters the backend can voice.
type CharacterLister interface {
	Characters(ctx context.Context) (map[string][]string, error)
}

// ClipStore serves the clips the message-bus worker stored.
type ClipStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	ContentType(key string) (string, error)
}

// CommandRequest is the body of POST /api/commands.
type CommandRequest struct {
	Command string `json:"command"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the webhook API.
type Handler struct {
	commands   *command.Handler
	characters CharacterLister
	clips      ClipStore
	log        core.Logger
}

// New creates a Handler.
func New(commands *command.Handler, characters CharacterLister, clips ClipStore, log core.Logger) *Handler {
	return &Handler{
		commands:   commands,
		characters: characters,
		clips:      clips,
		log:        log,
	}
}

// NewRouter wires the routes and the standard middleware stack.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Post("/commands", h.handleCommand)
		api.Get("/characters", h.handleCharacters)
		api.Get("/audio/{key}", h.handleAudio)
	})

	return r
}

func (h *Handler) handleCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest

	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCommandBodyBytes)).Decode(&req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")

		return
	}

	reply, err := h.commands.Execute(r.Context(), req.Command)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())

		return
	}

	switch {
	case reply.Audio != nil:
		w.Header().Set("Content-Type", reply.Audio.MIMEType)
		w.Header().Set("Content-Length", strconv.Itoa(len(reply.Audio.Data)))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(reply.Audio.Data)
	case reply.Help != "":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(reply.Help))
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *Handler) handleCharacters(w http.ResponseWriter, r *http.Request) {
	characters, err := h.characters.Characters(r.Context())
	if err != nil {
		h.log.Error("[%s] failed to list characters: %v", middleware.GetReqID(r.Context()), err)
		respondError(w, http.StatusBadGateway, "backend unavailable")

		return
	}

	respondJSON(w, http.StatusOK, characters)
}

// handleAudio returns a clip by the AudioKey of an AudioChunkCreatedEvent.
func (h *Handler) handleAudio(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	data, contentType, err := h.fetchClip(r.Context(), key)
	if err != nil {
		if errors.Is(err, core.ErrObjectNotFound) {
			respondError(w, http.StatusNotFound, "audio not found")

			return
		}

		h.log.Error("[%s] failed to fetch audio %s: %v", middleware.GetReqID(r.Context()), key, err)
		respondError(w, http.StatusBadGateway, "audio store unavailable")

		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) fetchClip(ctx context.Context, key string) ([]byte, string, error) {
	contentType, err := h.clips.ContentType(key)
	if err != nil {
		return nil, "", err
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	data, err := h.clips.Download(ctx, key)
	if err != nil {
		return nil, "", err
	}

	return data, contentType, nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}
