package events

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// HookHandler is the inbound side of the event loop: the workflow engine
// calls POST /api/automation/hooks/{event} after its delays and branching,
// and the registry routes the payload to the right engine.
type HookHandler struct {
	registry *Registry
	logger   *logging.Logger
}

func NewHookHandler(registry *Registry, logger *logging.Logger) *HookHandler {
	if registry == nil {
		panic("events: registry required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &HookHandler{registry: registry, logger: logger}
}

// Handle accepts a JSON payload for the named event. The response is 202
// regardless of handler outcome; the workflow engine only needs to know
// the event was accepted.
func (h *HookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	eventName := chi.URLParam(r, "event")
	if eventName == "" {
		http.Error(w, `{"error":"missing event name"}`, http.StatusBadRequest)
		return
	}

	var body struct {
		Data Payload `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.logger.Warn("malformed hook payload", "event", eventName, "error", err)
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}

	h.registry.Dispatch(r.Context(), eventName, body.Data)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted", "event": eventName})
}
