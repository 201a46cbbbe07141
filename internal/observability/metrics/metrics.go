package metrics

import "github.com/prometheus/client_golang/prometheus"

// AutomationMetrics exposes counters for the automation and AI flows.
type AutomationMetrics struct {
	eventsPublished *prometheus.CounterVec
	aiFallbacks     *prometheus.CounterVec
	emailsSent      *prometheus.CounterVec
}

func NewAutomationMetrics(reg prometheus.Registerer) *AutomationMetrics {
	m := &AutomationMetrics{
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: "automation",
			Name:      "events_published_total",
			Help:      "Events forwarded to the workflow engine",
		}, []string{"event", "status"}),
		aiFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: "automation",
			Name:      "ai_fallbacks_total",
			Help:      "Deterministic fallbacks taken when the AI backend failed or misbehaved",
		}, []string{"component", "reason"}),
		emailsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "commerce",
			Subsystem: "automation",
			Name:      "emails_sent_total",
			Help:      "Automation emails handed to the delivery provider",
		}, []string{"kind", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.eventsPublished, m.aiFallbacks, m.emailsSent)
	return m
}

func (m *AutomationMetrics) ObserveEventPublished(event, status string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(event, status).Inc()
}

// ObserveAIFallback records a fallback branch. Reason is "transport" when the
// backend was unreachable and "malformed" when its output failed to parse.
func (m *AutomationMetrics) ObserveAIFallback(component, reason string) {
	if m == nil {
		return
	}
	m.aiFallbacks.WithLabelValues(component, reason).Inc()
}

func (m *AutomationMetrics) ObserveEmailSent(kind, status string) {
	if m == nil {
		return
	}
	m.emailsSent.WithLabelValues(kind, status).Inc()
}
