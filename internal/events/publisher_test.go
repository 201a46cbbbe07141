package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPublish_Success(t *testing.T) {
	var gotPath string
	var gotBody envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := NewPublisher(PublisherConfig{BaseURL: srv.URL})
	ok := p.Publish(context.Background(), ChurnHighRisk, Payload{"user_id": "u-1", "risk_score": 0.82})

	if !ok {
		t.Fatal("expected publish to succeed")
	}
	if gotPath != "/"+ChurnHighRisk {
		t.Errorf("expected path /%s, got %s", ChurnHighRisk, gotPath)
	}
	if gotBody.EventName != ChurnHighRisk {
		t.Errorf("expected event_name %q in body, got %q", ChurnHighRisk, gotBody.EventName)
	}
	if gotBody.Data["user_id"] != "u-1" {
		t.Errorf("expected user_id in data, got %v", gotBody.Data)
	}
	if gotBody.Delay != "" {
		t.Errorf("immediate publish must not carry a delay, got %q", gotBody.Delay)
	}
}

func TestPublish_Non2xxReturnsFalse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewPublisher(PublisherConfig{BaseURL: srv.URL})
	if p.Publish(context.Background(), OrderCreated, Payload{"order_id": "o-1"}) {
		t.Fatal("expected publish to report failure on 500")
	}
}

func TestPublish_UnreachableReturnsFalse(t *testing.T) {
	// Closed server: connection refused, not an error to the caller.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewPublisher(PublisherConfig{BaseURL: url})
	if p.Publish(context.Background(), OrderCreated, Payload{}) {
		t.Fatal("expected publish to report failure when engine is unreachable")
	}
}

func TestScheduleDelayed_EncodesDelayInBody(t *testing.T) {
	var gotPath string
	var gotBody envelope
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	p := NewPublisher(PublisherConfig{BaseURL: srv.URL + "/webhook/"})
	ok := p.ScheduleDelayed(context.Background(), CartCreated, "1h", Payload{"cart_id": "c-9"})

	if !ok {
		t.Fatal("expected scheduled publish to succeed")
	}
	if gotPath != "/webhook/"+scheduleEndpoint {
		t.Errorf("expected schedule endpoint, got %s", gotPath)
	}
	if gotBody.EventName != CartCreated || gotBody.Delay != "1h" {
		t.Errorf("expected wrapped event with delay, got %+v", gotBody)
	}
}

func TestNewPublisher_RequiresBaseURL(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on empty base URL")
		}
	}()
	NewPublisher(PublisherConfig{})
}
