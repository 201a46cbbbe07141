package assistant

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// SessionHeader carries the caller's chat identity. Requests without it
// share the default session.
const SessionHeader = "X-Session-ID"

// Handler exposes the chat endpoints.
type Handler struct {
	manager *Manager
	logger  *logging.Logger
}

func NewHandler(manager *Manager, logger *logging.Logger) *Handler {
	if manager == nil {
		panic("assistant: manager required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{manager: manager, logger: logger}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

// Chat handles POST /api/chat. The reply is always 200 with a body; AI
// trouble surfaces as the gateway's apology text, never as an error.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		http.Error(w, `{"error":"message is required"}`, http.StatusBadRequest)
		return
	}

	session := h.manager.Session(r.Header.Get(SessionHeader))
	reply := session.Handle(r.Context(), message)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(chatResponse{Reply: reply})
}

// Reset handles POST /api/chat/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	session := h.manager.Session(r.Header.Get(SessionHeader))
	session.Reset(r.Context())

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok", "message": "Chat memory reset."})
}
