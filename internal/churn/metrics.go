package churn

import (
	"time"

	"github.com/maiway/commerce-ai-platform/internal/orders"
)

// daysSinceLastOrderSentinel means "never purchased / unknown recency".
const daysSinceLastOrderSentinel = 999

// EngagementMetrics is a per-user activity snapshot over the last 90 days.
// It is derived on every call from order history and never stored.
type EngagementMetrics struct {
	UserID             string
	TotalOrders        int
	OrdersLast30d      int
	OrdersLast60d      int
	AvgOrderValue      float64
	DaysSinceLastOrder int
	TotalSpent         float64
	FrequencyDeclining bool
	HasCancelledOrders bool
}

// computeMetrics builds the snapshot from orders within the 90-day window,
// newest first. FrequencyDeclining compares the last 30 days against the
// 31-60 day bucket.
func computeMetrics(userID string, history []orders.Order, now time.Time) EngagementMetrics {
	m := EngagementMetrics{
		UserID:             userID,
		TotalOrders:        len(history),
		DaysSinceLastOrder: daysSinceLastOrderSentinel,
	}

	cutoff30 := now.AddDate(0, 0, -30)
	cutoff60 := now.AddDate(0, 0, -60)

	for _, o := range history {
		m.TotalSpent += o.TotalAmount
		if o.CreatedAt.After(cutoff30) {
			m.OrdersLast30d++
		}
		if o.CreatedAt.After(cutoff60) {
			m.OrdersLast60d++
		}
		if o.Status == orders.StatusCancelled {
			m.HasCancelledOrders = true
		}
	}

	if len(history) > 0 {
		m.AvgOrderValue = m.TotalSpent / float64(len(history))
		m.DaysSinceLastOrder = int(now.Sub(history[0].CreatedAt).Hours() / 24)
		if m.DaysSinceLastOrder < 0 {
			m.DaysSinceLastOrder = 0
		}
	}

	ordersPrior30 := m.OrdersLast60d - m.OrdersLast30d
	m.FrequencyDeclining = m.OrdersLast30d < ordersPrior30

	return m
}
