package churn

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/maiway/commerce-ai-platform/internal/events"
	"github.com/maiway/commerce-ai-platform/internal/orders"
	"github.com/maiway/commerce-ai-platform/internal/users"
)

type fakeUsers struct {
	user *users.User
	err  error
}

func (f *fakeUsers) ByID(ctx context.Context, id string) (*users.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.user, nil
}

type fakeOrders struct {
	orders []orders.Order
	err    error
}

func (f *fakeOrders) Since(ctx context.Context, userID string, cutoff time.Time) ([]orders.Order, error) {
	return f.orders, f.err
}

type fakeAnalyzer struct {
	reply string
	err   error
}

func (f *fakeAnalyzer) QuickAnalysis(ctx context.Context, prompt string) (string, error) {
	return f.reply, f.err
}

type capturingPublisher struct {
	published []struct {
		Name string
		Data events.Payload
	}
}

func (c *capturingPublisher) Publish(ctx context.Context, eventName string, data events.Payload) bool {
	c.published = append(c.published, struct {
		Name string
		Data events.Payload
	}{eventName, data})
	return true
}

func (c *capturingPublisher) count(name string) int {
	n := 0
	for _, p := range c.published {
		if p.Name == name {
			n++
		}
	}
	return n
}

func newTestEngine(u *fakeUsers, o *fakeOrders, a *fakeAnalyzer, p *capturingPublisher) *Engine {
	return NewEngine(EngineConfig{
		Users:     u,
		Orders:    o,
		Analyzer:  a,
		Publisher: p,
	})
}

func TestRuleBasedScore_RecencyComponents(t *testing.T) {
	cases := []struct {
		days int
		want float64
	}{
		{61, 0.4},
		{999, 0.4},
		{31, 0.2},
		{60, 0.2},
		{30, 0.0},
		{0, 0.0},
	}
	for _, tc := range cases {
		// OrdersLast30d is nonzero to isolate the recency component.
		m := EngagementMetrics{DaysSinceLastOrder: tc.days, OrdersLast30d: 1}
		got := ruleBasedScore(m)
		if got != tc.want {
			t.Errorf("days=%d: expected %v, got %v", tc.days, tc.want, got)
		}
	}
}

func TestRuleBasedScore_AllConditionsSumToExactlyOne(t *testing.T) {
	m := EngagementMetrics{
		DaysSinceLastOrder: 90,
		OrdersLast30d:      0,
		FrequencyDeclining: true,
		HasCancelledOrders: true,
	}
	if got := ruleBasedScore(m); got != 1.0 {
		t.Fatalf("expected exactly 1.0 with all conditions true, got %v", got)
	}
}

func TestRuleBasedScore_AlwaysInRange(t *testing.T) {
	inputs := []EngagementMetrics{
		{},
		{DaysSinceLastOrder: 999, FrequencyDeclining: true, HasCancelledOrders: true},
		{DaysSinceLastOrder: 45, OrdersLast30d: 3},
		{OrdersLast30d: 0, FrequencyDeclining: true},
	}
	for i, m := range inputs {
		got := ruleBasedScore(m)
		if got < 0.0 || got > 1.0 {
			t.Errorf("case %d: score %v out of range", i, got)
		}
	}
}

func TestPredictChurnRisk_MissingUserIsZero(t *testing.T) {
	e := newTestEngine(
		&fakeUsers{err: users.ErrNotFound},
		&fakeOrders{},
		&fakeAnalyzer{reply: "0.9"},
		&capturingPublisher{},
	)
	if got := e.PredictChurnRisk(context.Background(), "ghost"); got != 0.0 {
		t.Fatalf("expected 0.0 for missing user, got %v", got)
	}
}

func TestPredictChurnRisk_UsesAIScore(t *testing.T) {
	e := newTestEngine(
		&fakeUsers{user: &users.User{ID: "u-1", Email: "a@b.com"}},
		&fakeOrders{},
		&fakeAnalyzer{reply: " 0.65 \n"},
		&capturingPublisher{},
	)
	if got := e.PredictChurnRisk(context.Background(), "u-1"); got != 0.65 {
		t.Fatalf("expected AI score 0.65, got %v", got)
	}
}

func TestPredictChurnRisk_ClampsAIScore(t *testing.T) {
	e := newTestEngine(
		&fakeUsers{user: &users.User{ID: "u-1"}},
		&fakeOrders{},
		&fakeAnalyzer{reply: "7.3"},
		&capturingPublisher{},
	)
	if got := e.PredictChurnRisk(context.Background(), "u-1"); got != 1.0 {
		t.Fatalf("expected clamp to 1.0, got %v", got)
	}
}

func TestPredictChurnRisk_MalformedAIOutputFallsBack(t *testing.T) {
	// No orders at all: sentinel recency (0.4) + zero recent orders (0.3).
	e := newTestEngine(
		&fakeUsers{user: &users.User{ID: "u-1"}},
		&fakeOrders{},
		&fakeAnalyzer{reply: "the customer seems fine"},
		&capturingPublisher{},
	)
	if got := e.PredictChurnRisk(context.Background(), "u-1"); got != 0.7 {
		t.Fatalf("expected rule-based 0.7, got %v", got)
	}
}

func TestPredictChurnRisk_TransportFailureFallsBack(t *testing.T) {
	e := newTestEngine(
		&fakeUsers{user: &users.User{ID: "u-1"}},
		&fakeOrders{},
		&fakeAnalyzer{err: errors.New("connection refused")},
		&capturingPublisher{},
	)
	if got := e.PredictChurnRisk(context.Background(), "u-1"); got != 0.7 {
		t.Fatalf("expected rule-based 0.7, got %v", got)
	}
}

func TestCheckAndTriggerRetention_HighRisk(t *testing.T) {
	pub := &capturingPublisher{}
	e := newTestEngine(
		&fakeUsers{user: &users.User{ID: "u-1"}},
		&fakeOrders{},
		&fakeAnalyzer{reply: "0.75"},
		pub,
	)

	e.CheckAndTriggerRetention(context.Background(), "u-1")

	if pub.count(events.ChurnHighRisk) != 1 {
		t.Fatalf("expected exactly one churn_high_risk event, got %d", pub.count(events.ChurnHighRisk))
	}
	if pub.count(events.ChurnMediumRisk) != 0 {
		t.Fatalf("expected zero churn_medium_risk events, got %d", pub.count(events.ChurnMediumRisk))
	}
	data := pub.published[0].Data
	if data["action"] != "apply_15_percent_discount" || data["urgency"] != "high" {
		t.Errorf("unexpected high-risk payload: %v", data)
	}
}

func TestCheckAndTriggerRetention_MediumRisk(t *testing.T) {
	pub := &capturingPublisher{}
	e := newTestEngine(
		&fakeUsers{user: &users.User{ID: "u-1"}},
		&fakeOrders{},
		&fakeAnalyzer{reply: "0.5"},
		pub,
	)

	e.CheckAndTriggerRetention(context.Background(), "u-1")

	if pub.count(events.ChurnMediumRisk) != 1 {
		t.Fatalf("expected exactly one churn_medium_risk event, got %d", pub.count(events.ChurnMediumRisk))
	}
	if pub.count(events.ChurnHighRisk) != 0 {
		t.Fatalf("expected zero churn_high_risk events, got %d", pub.count(events.ChurnHighRisk))
	}
	if pub.published[0].Data["action"] != "send_engagement_email" {
		t.Errorf("unexpected medium-risk payload: %v", pub.published[0].Data)
	}
}

func TestCheckAndTriggerRetention_LowRiskNoAction(t *testing.T) {
	pub := &capturingPublisher{}
	e := newTestEngine(
		&fakeUsers{user: &users.User{ID: "u-1"}},
		&fakeOrders{orders: []orders.Order{{CreatedAt: time.Now(), TotalAmount: 50, Status: orders.StatusPaid}}},
		&fakeAnalyzer{reply: "0.1"},
		pub,
	)

	e.CheckAndTriggerRetention(context.Background(), "u-1")

	if len(pub.published) != 0 {
		t.Fatalf("expected no events below medium risk, got %v", pub.published)
	}
}

func TestRetentionOfferHandler(t *testing.T) {
	pub := &capturingPublisher{}
	e := newTestEngine(
		&fakeUsers{user: &users.User{ID: "u-1"}},
		&fakeOrders{},
		&fakeAnalyzer{reply: "0.9"},
		pub,
	)

	h := e.RetentionOfferHandler()
	if err := h(context.Background(), events.Payload{"user_id": "u-1"}); err != nil {
		t.Fatalf("unexpected handler error: %v", err)
	}
	if pub.count(events.DiscountApplied) != 1 {
		t.Fatalf("expected discount_applied event, got %v", pub.published)
	}

	if err := h(context.Background(), events.Payload{}); err == nil {
		t.Fatal("expected error for payload without user_id")
	}
}
