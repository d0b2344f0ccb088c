// Package api provides HTTP handlers for the voice-to-invoice API.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/tay-dev-lab/voice-to-invoice/internal/invoice"
	"github.com/tay-dev-lab/voice-to-invoice/internal/session"
	"github.com/tay-dev-lab/voice-to-invoice/internal/store"
)

// SpeechClient is the transcription and completion collaborator. Its
// output is untrusted text and goes through flow validation before
// being stored.
type SpeechClient interface {
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
	Complete(ctx context.Context, prompt string) (string, error)
}

// Handler provides common handler utilities and dependencies.
type Handler struct {
	sessions       *session.Service
	repo           store.Repository
	speech         SpeechClient
	renderer       *invoice.Renderer
	maxUploadBytes int64
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(sessions *session.Service, repo store.Repository, speech SpeechClient, renderer *invoice.Renderer, maxUploadBytes int64) *Handler {
	return &Handler{
		sessions:       sessions,
		repo:           repo,
		speech:         speech,
		renderer:       renderer,
		maxUploadBytes: maxUploadBytes,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
