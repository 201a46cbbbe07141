package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/maiway/commerce-ai-platform/internal/assistant"
	"github.com/maiway/commerce-ai-platform/internal/auth"
	"github.com/maiway/commerce-ai-platform/internal/churn"
	"github.com/maiway/commerce-ai-platform/internal/events"
	"github.com/maiway/commerce-ai-platform/internal/orders"
	"github.com/maiway/commerce-ai-platform/internal/pricing"
	"github.com/maiway/commerce-ai-platform/internal/ratelimit"
	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	ChatHandler    *assistant.Handler
	OrdersHandler  *orders.Handler
	HookHandler    *events.HookHandler
	ChurnEngine    *churn.Engine
	PricingEngine  *pricing.Engine
	RateLimiter    *ratelimit.Limiter
	JWTSecret      string
	MetricsHandler http.Handler
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	// Chat: anonymous sessions allowed, quota enforced before the core.
	if cfg.ChatHandler != nil {
		r.Route("/api/chat", func(chat chi.Router) {
			if cfg.RateLimiter != nil {
				chat.Use(ratelimit.Middleware(cfg.RateLimiter))
			}
			chat.Use(auth.OptionalIdentity(cfg.JWTSecret))
			chat.Post("/", cfg.ChatHandler.Chat)
			chat.Post("/reset", cfg.ChatHandler.Reset)
		})
	}

	// Orders: mutation routes need a bearer identity.
	if cfg.OrdersHandler != nil {
		r.Route("/api/orders", func(o chi.Router) {
			o.Use(auth.RequireIdentity(cfg.JWTSecret))
			o.Get("/", cfg.OrdersHandler.List)
			o.Post("/", cfg.OrdersHandler.Create)
			o.Post("/{orderID}/status", cfg.OrdersHandler.UpdateStatus)
			o.Post("/{orderID}/cancel", cfg.OrdersHandler.Cancel)
		})
	}

	// Automation: the workflow engine's callback hook plus direct
	// trigger endpoints for schedulers.
	r.Route("/api/automation", func(a chi.Router) {
		if cfg.HookHandler != nil {
			a.Post("/hooks/{event}", cfg.HookHandler.Handle)
		}
		if cfg.ChurnEngine != nil {
			a.Post("/churn/check", churnCheck(cfg.ChurnEngine))
		}
		if cfg.PricingEngine != nil {
			a.Post("/pricing/run", pricingRun(cfg.PricingEngine))
		}
	})

	return r
}

// churnCheck triggers a retention check for one user. The flow is best
// effort, so the response only acknowledges the trigger.
func churnCheck(engine *churn.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			http.Error(w, `{"error":"user_id is required"}`, http.StatusBadRequest)
			return
		}
		engine.CheckAndTriggerRetention(r.Context(), req.UserID)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	}
}

// pricingRun triggers one dynamic pricing pass.
func pricingRun(engine *pricing.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine.AdjustPricesForDemand(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	}
}
