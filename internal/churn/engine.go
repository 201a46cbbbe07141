package churn

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/maiway/commerce-ai-platform/internal/events"
	"github.com/maiway/commerce-ai-platform/internal/observability/metrics"
	"github.com/maiway/commerce-ai-platform/internal/orders"
	"github.com/maiway/commerce-ai-platform/internal/users"
	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// Tiers holds the churn risk thresholds.
type Tiers struct {
	High   float64
	Medium float64
	Low    float64
}

// DefaultTiers matches the shipped retention policy.
var DefaultTiers = Tiers{High: 0.7, Medium: 0.4, Low: 0.2}

// UserDirectory resolves user identities.
type UserDirectory interface {
	ByID(ctx context.Context, id string) (*users.User, error)
}

// OrderHistory supplies the raw material for engagement metrics.
type OrderHistory interface {
	Since(ctx context.Context, userID string, cutoff time.Time) ([]orders.Order, error)
}

// Analyzer is the single-shot side of the AI gateway.
type Analyzer interface {
	QuickAnalysis(ctx context.Context, prompt string) (string, error)
}

// EventPublisher dispatches retention actions to the workflow engine.
type EventPublisher interface {
	Publish(ctx context.Context, eventName string, data events.Payload) bool
}

// Engine predicts churn risk per user and triggers retention workflows.
type Engine struct {
	userDir   UserDirectory
	history   OrderHistory
	analyzer  Analyzer
	publisher EventPublisher
	tiers     Tiers
	logger    *logging.Logger
	metrics   *metrics.AutomationMetrics
	now       func() time.Time
}

type EngineConfig struct {
	Users     UserDirectory
	Orders    OrderHistory
	Analyzer  Analyzer
	Publisher EventPublisher
	Tiers     Tiers
	Logger    *logging.Logger
	Metrics   *metrics.AutomationMetrics
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Users == nil {
		panic("churn: user directory required")
	}
	if cfg.Orders == nil {
		panic("churn: order history required")
	}
	if cfg.Analyzer == nil {
		panic("churn: analyzer required")
	}
	if cfg.Publisher == nil {
		panic("churn: event publisher required")
	}
	tiers := cfg.Tiers
	if tiers.High <= 0 {
		tiers = DefaultTiers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		userDir:   cfg.Users,
		history:   cfg.Orders,
		analyzer:  cfg.Analyzer,
		publisher: cfg.Publisher,
		tiers:     tiers,
		logger:    logger,
		metrics:   cfg.Metrics,
		now:       time.Now,
	}
}

// PredictChurnRisk scores a user's churn risk in [0, 1]. A missing user is
// no risk, not an error; any AI trouble falls back to the rule-based score.
func (e *Engine) PredictChurnRisk(ctx context.Context, userID string) float64 {
	if _, err := e.userDir.ByID(ctx, userID); err != nil {
		if errors.Is(err, users.ErrNotFound) {
			e.logger.Warn("user not found for churn prediction", "user_id", userID)
		} else {
			e.logger.Error("failed to load user for churn prediction", "user_id", userID, "error", err)
		}
		return 0.0
	}

	now := e.now().UTC()
	history, err := e.history.Since(ctx, userID, now.AddDate(0, 0, -90))
	if err != nil {
		e.logger.Error("failed to load order history", "user_id", userID, "error", err)
		return 0.0
	}

	m := computeMetrics(userID, history, now)
	score := e.aiScore(ctx, m)

	e.logger.Info("churn risk computed", "user_id", userID, "risk_score", score)
	return clamp01(score)
}

// aiScore asks the gateway for a numeric judgment and falls back to the
// deterministic rules on transport failure or malformed output.
func (e *Engine) aiScore(ctx context.Context, m EngagementMetrics) float64 {
	reply, err := e.analyzer.QuickAnalysis(ctx, riskPrompt(m))
	if err != nil {
		e.logger.Warn("churn analysis unavailable, using rule-based score", "user_id", m.UserID, "error", err)
		e.metrics.ObserveAIFallback("churn", "transport")
		return ruleBasedScore(m)
	}

	score, parseErr := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if parseErr != nil {
		e.logger.Warn("churn analysis returned non-numeric output, using rule-based score",
			"user_id", m.UserID, "reply", truncate(reply, 80))
		e.metrics.ObserveAIFallback("churn", "malformed")
		return ruleBasedScore(m)
	}
	return clamp01(score)
}

// ruleBasedScore is the deterministic fallback: recency, frequency, trend
// and cancellation signals, capped at 1.0.
func ruleBasedScore(m EngagementMetrics) float64 {
	score := 0.0

	if m.DaysSinceLastOrder > 60 {
		score += 0.4
	} else if m.DaysSinceLastOrder > 30 {
		score += 0.2
	}

	if m.OrdersLast30d == 0 {
		score += 0.3
	}

	if m.FrequencyDeclining {
		score += 0.2
	}

	if m.HasCancelledOrders {
		score += 0.1
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func riskPrompt(m EngagementMetrics) string {
	return fmt.Sprintf(`Analyze this customer's churn risk based on their behavior metrics:

Customer Profile:
- Days since last order: %d
- Total orders (90 days): %d
- Recent orders (30 days): %d
- Average order value: $%.2f
- Total spent: $%.2f
- Order frequency declining: %t
- Has cancelled orders: %t

Return a churn risk score between 0.0 (no risk) and 1.0 (very high risk).
Consider recency, frequency, monetary value, and trend.

Respond with ONLY a number between 0.0 and 1.0, nothing else.`,
		m.DaysSinceLastOrder, m.TotalOrders, m.OrdersLast30d,
		m.AvgOrderValue, m.TotalSpent, m.FrequencyDeclining, m.HasCancelledOrders)
}

// CheckAndTriggerRetention scores the user and dispatches the matching
// retention workflow. Best effort: nothing here propagates to the caller.
func (e *Engine) CheckAndTriggerRetention(ctx context.Context, userID string) {
	score := e.PredictChurnRisk(ctx, userID)

	switch {
	case score >= e.tiers.High:
		e.logger.Info("high churn risk, triggering retention", "user_id", userID, "risk_score", score)
		e.publisher.Publish(ctx, events.ChurnHighRisk, events.Payload{
			"user_id":    userID,
			"risk_score": score,
			"action":     "apply_15_percent_discount",
			"urgency":    "high",
		})
	case score >= e.tiers.Medium:
		e.logger.Info("medium churn risk, triggering retention", "user_id", userID, "risk_score", score)
		e.publisher.Publish(ctx, events.ChurnMediumRisk, events.Payload{
			"user_id":    userID,
			"risk_score": score,
			"action":     "send_engagement_email",
			"urgency":    "medium",
		})
	}
}

// ApplyDiscount publishes a retention discount directive for the user.
func (e *Engine) ApplyDiscount(ctx context.Context, userID, discount string) {
	e.logger.Info("applying retention discount", "user_id", userID, "discount", discount)
	e.publisher.Publish(ctx, events.DiscountApplied, events.Payload{
		"user_id":  userID,
		"discount": discount,
		"reason":   "churn_prevention",
	})
}

// RetentionOfferHandler returns the registry handler for low_engagement
// events. The workflow engine holds the 24h delay; by the time this runs
// the wait has already happened.
func (e *Engine) RetentionOfferHandler() events.Handler {
	return func(ctx context.Context, data events.Payload) error {
		userID, _ := data["user_id"].(string)
		if userID == "" {
			return errors.New("churn: low_engagement event missing user_id")
		}

		score := e.PredictChurnRisk(ctx, userID)
		if score > e.tiers.High {
			e.logger.Info("low-engagement user at high churn risk, applying discount",
				"user_id", userID, "risk_score", score)
			e.ApplyDiscount(ctx, userID, "15% off")
		} else {
			e.logger.Info("low-engagement user churn risk acceptable",
				"user_id", userID, "risk_score", score)
		}
		return nil
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
