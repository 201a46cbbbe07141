package events

// Event names recognized by the automation engines and the external
// workflow engine. The workflow engine receives every published event at
// {base_url}/{name} and may call back into the hook endpoint with the same
// names after applying its own delays and branching.
const (
	OrderCreated              = "order_created"
	OrderStatusChanged        = "order_status_changed"
	OrderCancelled            = "order_cancelled"
	CartCreated               = "cart_created"
	CartAbandonmentEmailSent  = "cart_abandonment_email_sent"
	ChurnHighRisk             = "churn_high_risk"
	ChurnMediumRisk           = "churn_medium_risk"
	DiscountApplied           = "discount_applied"
	LowEngagement             = "low_engagement"
)

// Payload is the event data forwarded to (and received back from) the
// workflow engine. Events are transient; nothing in this process stores
// them.
type Payload map[string]any
