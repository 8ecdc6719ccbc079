// Package handler exposes the HTTP API: the chat endpoint driving the
// shopping agent and the hold validation endpoint.
package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/jx"
	"go.uber.org/zap"

	"github.com/xenking/shopagent/internal/domain/payment"
	"github.com/xenking/shopagent/internal/llm"
)

// ChatService is the slice of the agent orchestrator the handler needs.
type ChatService interface {
	Respond(ctx context.Context, ownerID string, history []llm.Message, userMessage string) (string, error)
}

// HoldValidator is the read-only hold validation surface.
type HoldValidator interface {
	ValidateHold(ctx context.Context, holdID, ownerID string) (*payment.HoldValidation, error)
}

// Handler serves the API routes. Authentication happens in the security
// middleware; every method here trusts the identity in the request context.
type Handler struct {
	chat  ChatService
	holds HoldValidator
	log   *zap.Logger
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(chat ChatService, holds HoldValidator, log *zap.Logger) *Handler {
	return &Handler{
		chat:  chat,
		holds: holds,
		log:   log,
	}
}

// Register attaches the API routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.Chat)
	mux.HandleFunc("GET /api/holds/{id}", h.ValidateHold)
}

// writeJSON writes the encoder's buffer with the given status.
func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// writeError writes a JSON error body: {"error": "..."}.
func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("error", func(e *jx.Encoder) { e.Str(message) })
	})
	writeJSON(w, status, &e)
}
