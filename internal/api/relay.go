package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TaskRelay is the queue-like surface of the relay cache. Push appends a
// payload under a key; Pop drains everything queued for the key.
type TaskRelay interface {
	Push(ctx context.Context, key string, payload []byte) error
	Pop(ctx context.Context, key string) ([][]byte, error)
}

// RelayService exposes the relay cache for downstream automations that poll
// for work produced by imports.
type RelayService struct {
	relay TaskRelay
}

// NewRelayService creates the relay endpoint handler.
func NewRelayService(relay TaskRelay) *RelayService {
	return &RelayService{relay: relay}
}

// RegisterRoutes registers relay routes.
func (s *RelayService) RegisterRoutes(r chi.Router) {
	r.Post("/relay/{key}", s.HandlePush)
	r.Get("/relay/{key}", s.HandlePop)
}

// HandlePush queues one JSON payload under the key.
// POST /api/relay/{key}
func (s *RelayService) HandlePush(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSONError(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if !json.Valid(payload) {
		writeJSONError(w, "payload must be valid JSON", http.StatusBadRequest)
		return
	}

	if err := s.relay.Push(r.Context(), key, payload); err != nil {
		zap.L().Error("relay push failed",
			zap.String("component", "api"),
			zap.String("key", key),
			zap.Error(err),
		)
		writeJSONError(w, "failed to queue task", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// HandlePop drains all live tasks for the key. Draining is destructive; a
// second poll returns an empty list.
// GET /api/relay/{key}
func (s *RelayService) HandlePop(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	payloads, err := s.relay.Pop(r.Context(), key)
	if err != nil {
		zap.L().Error("relay pop failed",
			zap.String("component", "api"),
			zap.String("key", key),
			zap.Error(err),
		)
		writeJSONError(w, "failed to drain tasks", http.StatusInternalServerError)
		return
	}

	tasks := make([]json.RawMessage, len(payloads))
	for i, p := range payloads {
		tasks[i] = json.RawMessage(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tasks": tasks,
		"count": len(tasks),
	})
}
