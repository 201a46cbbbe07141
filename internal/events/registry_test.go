package events

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestRegistry_DispatchInvokesHandler(t *testing.T) {
	reg := NewRegistry(nil)
	var got Payload
	reg.Register(CartCreated, func(ctx context.Context, data Payload) error {
		got = data
		return nil
	})

	reg.Dispatch(context.Background(), CartCreated, Payload{"cart_id": "c-1"})

	if got == nil || got["cart_id"] != "c-1" {
		t.Fatalf("handler did not receive payload, got %v", got)
	}
}

func TestRegistry_UnknownEventIsNoOp(t *testing.T) {
	reg := NewRegistry(nil)
	// Must not panic or error.
	reg.Dispatch(context.Background(), "unknown_event", Payload{})
	if reg.Registered("unknown_event") {
		t.Fatal("unknown event should not be registered")
	}
}

func TestRegistry_HandlerErrorIsSwallowed(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(LowEngagement, func(ctx context.Context, data Payload) error {
		return errors.New("boom")
	})
	reg.Dispatch(context.Background(), LowEngagement, Payload{})
}

func TestRegistry_DuplicateRegistrationPanics(t *testing.T) {
	reg := NewRegistry(nil)
	reg.Register(CartCreated, func(ctx context.Context, data Payload) error { return nil })
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	reg.Register(CartCreated, func(ctx context.Context, data Payload) error { return nil })
}

func TestHookHandler_DispatchesByURLParam(t *testing.T) {
	reg := NewRegistry(nil)
	var called bool
	reg.Register(LowEngagement, func(ctx context.Context, data Payload) error {
		called = true
		if data["user_id"] != "u-7" {
			t.Errorf("expected user_id u-7, got %v", data["user_id"])
		}
		return nil
	})

	r := chi.NewRouter()
	h := NewHookHandler(reg, nil)
	r.Post("/api/automation/hooks/{event}", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/api/automation/hooks/"+LowEngagement,
		strings.NewReader(`{"data":{"user_id":"u-7"}}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}
	if !called {
		t.Fatal("handler was not invoked")
	}
}

func TestHookHandler_RejectsMalformedBody(t *testing.T) {
	r := chi.NewRouter()
	h := NewHookHandler(NewRegistry(nil), nil)
	r.Post("/api/automation/hooks/{event}", h.Handle)

	req := httptest.NewRequest(http.MethodPost, "/api/automation/hooks/whatever",
		strings.NewReader(`{not json`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
