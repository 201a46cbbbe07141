package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testHandler(t *testing.T, gateway *scriptedGateway) *Handler {
	t.Helper()
	manager := newTestManager(t, gateway, newMemoryStore())
	return NewHandler(manager, nil)
}

func TestHandler_Chat(t *testing.T) {
	h := testHandler(t, &scriptedGateway{reply: "Here to help!"})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "hi"}`))
	req.Header.Set(SessionHeader, "s1")
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp chatResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Reply != "Here to help!" {
		t.Errorf("reply = %q", resp.Reply)
	}
}

func TestHandler_Chat_BadJSON(t *testing.T) {
	h := testHandler(t, &scriptedGateway{reply: "x"})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_Chat_EmptyMessage(t *testing.T) {
	h := testHandler(t, &scriptedGateway{reply: "x"})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"message": "   "}`))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandler_Reset(t *testing.T) {
	gateway := &scriptedGateway{reply: "ok"}
	manager := newTestManager(t, gateway, newMemoryStore())
	h := NewHandler(manager, nil)

	// Build up some history first.
	manager.Session("s1").Handle(context.Background(), "hello")

	req := httptest.NewRequest(http.MethodPost, "/api/chat/reset", nil)
	req.Header.Set(SessionHeader, "s1")
	rec := httptest.NewRecorder()
	h.Reset(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	history := manager.Session("s1").History(context.Background())
	if len(history) != 1 {
		t.Errorf("history has %d entries after reset, want 1", len(history))
	}
}
