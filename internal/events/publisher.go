package events

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/maiway/commerce-ai-platform/internal/observability/metrics"
	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// scheduleEndpoint is the generic workflow-engine endpoint for deferred
// events. The engine's workflow starts with a webhook, applies the delay,
// then re-delivers the wrapped event; no timer runs in this process.
const scheduleEndpoint = "schedule_event"

// PublisherConfig controls webhook delivery to the workflow engine.
type PublisherConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
	Metrics    *metrics.AutomationMetrics
}

// Publisher forwards named events to the external workflow engine over
// HTTP. Delivery is best effort: failures are logged and reported as a
// false return, never as an error, so automation keeps running when the
// engine is unreachable.
type Publisher struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.AutomationMetrics
}

// NewPublisher creates a Publisher with sane defaults.
func NewPublisher(cfg PublisherConfig) *Publisher {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		panic("events: workflow webhook base URL required")
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Publisher{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
		metrics:    cfg.Metrics,
	}
}

type envelope struct {
	EventName string  `json:"event_name"`
	Delay     string  `json:"delay,omitempty"`
	Data      Payload `json:"data"`
}

// Publish delivers the event immediately to {base_url}/{event_name}.
// Returns false on any transport failure or non-2xx status.
func (p *Publisher) Publish(ctx context.Context, eventName string, data Payload) bool {
	ok := p.post(ctx, p.baseURL+eventName, envelope{EventName: eventName, Data: data})
	if ok {
		p.logger.Info("event published", "event", eventName)
		p.metrics.ObserveEventPublished(eventName, "ok")
	} else {
		p.metrics.ObserveEventPublished(eventName, "failed")
	}
	return ok
}

// ScheduleDelayed asks the workflow engine to re-deliver the event after
// the given delay (e.g. "1h"). The delay travels in the payload; the
// receiver is trusted to honor it.
func (p *Publisher) ScheduleDelayed(ctx context.Context, eventName, delay string, data Payload) bool {
	ok := p.post(ctx, p.baseURL+scheduleEndpoint, envelope{EventName: eventName, Delay: delay, Data: data})
	if ok {
		p.logger.Info("event scheduled", "event", eventName, "delay", delay)
		p.metrics.ObserveEventPublished(eventName, "scheduled")
	} else {
		p.metrics.ObserveEventPublished(eventName, "failed")
	}
	return ok
}

func (p *Publisher) post(ctx context.Context, url string, body envelope) bool {
	payload, err := json.Marshal(body)
	if err != nil {
		p.logger.Error("event payload not serializable", "event", body.EventName, "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		p.logger.Error("failed to build webhook request", "event", body.EventName, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error("workflow engine unreachable", "event", body.EventName, "url", url, "error", err)
		return false
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Error("workflow engine rejected event", "event", body.EventName, "status", resp.StatusCode)
		return false
	}
	return true
}
