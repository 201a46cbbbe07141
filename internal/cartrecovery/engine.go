package cartrecovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/maiway/commerce-ai-platform/internal/events"
	"github.com/maiway/commerce-ai-platform/internal/notify"
	"github.com/maiway/commerce-ai-platform/internal/observability/metrics"
	"github.com/maiway/commerce-ai-platform/internal/users"
	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// viewedItemLimit caps how many recently viewed products make it into
// the email prompt.
const viewedItemLimit = 3

// UserDirectory resolves user identities.
type UserDirectory interface {
	ByID(ctx context.Context, id string) (*users.User, error)
}

// CartStore supplies cart snapshots.
type CartStore interface {
	Snapshot(ctx context.Context, cartID string) (*Cart, error)
}

// ViewHistory supplies a user's recently viewed product names.
type ViewHistory interface {
	RecentlyViewed(ctx context.Context, userID string, limit int) ([]string, error)
}

// Analyzer is the single-shot side of the AI gateway.
type Analyzer interface {
	QuickAnalysis(ctx context.Context, prompt string) (string, error)
}

// EmailSender hands composed emails to the delivery provider.
type EmailSender interface {
	Send(ctx context.Context, msg notify.EmailMessage) error
}

// EventPublisher dispatches tracking events to the workflow engine.
type EventPublisher interface {
	Publish(ctx context.Context, eventName string, data events.Payload) bool
}

// Engine recovers abandoned carts with personalized email.
type Engine struct {
	userDir   UserDirectory
	carts     CartStore
	views     ViewHistory
	analyzer  Analyzer
	email     EmailSender
	publisher EventPublisher
	logger    *logging.Logger
	metrics   *metrics.AutomationMetrics
}

type EngineConfig struct {
	Users     UserDirectory
	Carts     CartStore
	Views     ViewHistory
	Analyzer  Analyzer
	Email     EmailSender
	Publisher EventPublisher
	Logger    *logging.Logger
	Metrics   *metrics.AutomationMetrics
}

func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Users == nil {
		panic("cartrecovery: user directory required")
	}
	if cfg.Carts == nil {
		panic("cartrecovery: cart store required")
	}
	if cfg.Views == nil {
		panic("cartrecovery: view history required")
	}
	if cfg.Analyzer == nil {
		panic("cartrecovery: analyzer required")
	}
	if cfg.Email == nil {
		panic("cartrecovery: email sender required")
	}
	if cfg.Publisher == nil {
		panic("cartrecovery: event publisher required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		userDir:   cfg.Users,
		carts:     cfg.Carts,
		views:     cfg.Views,
		analyzer:  cfg.Analyzer,
		email:     cfg.Email,
		publisher: cfg.Publisher,
		logger:    logger,
		metrics:   cfg.Metrics,
	}
}

// emailContent is the strict JSON shape requested from the AI gateway.
type emailContent struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// ProcessAbandonedCart runs the recovery workflow for one cart. Invoked
// after the workflow engine's delay has elapsed, so the cart may have
// completed in the meantime; that case is a silent no-op, which makes
// the whole flow safe to re-enter on a retried trigger.
func (e *Engine) ProcessAbandonedCart(ctx context.Context, userID, cartID string) {
	user, err := e.userDir.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			e.logger.Warn("user not found for cart recovery", "user_id", userID, "cart_id", cartID)
		} else {
			e.logger.Error("failed to load user for cart recovery", "user_id", userID, "error", err)
		}
		return
	}

	cart, err := e.carts.Snapshot(ctx, cartID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			e.logger.Warn("cart not found for recovery", "cart_id", cartID)
		} else {
			e.logger.Error("failed to load cart for recovery", "cart_id", cartID, "error", err)
		}
		return
	}

	if len(cart.Items) == 0 || cart.Status == StatusCompleted {
		e.logger.Info("cart already completed or empty, skipping recovery", "cart_id", cartID, "status", cart.Status)
		return
	}

	cartValue := cart.Value()
	itemNames := cart.ItemNames()

	viewed, err := e.views.RecentlyViewed(ctx, userID, viewedItemLimit)
	if err != nil {
		e.logger.Error("failed to load viewed items", "user_id", userID, "error", err)
		viewed = nil
	}

	content := e.generateEmail(ctx, user.DisplayName(), itemNames, viewed, cartValue)

	msg := notify.EmailMessage{
		To:      user.Email,
		ToName:  user.Name,
		Subject: content.Subject,
		Body:    content.Body,
		Kind:    "cart_abandonment",
	}
	if err := e.email.Send(ctx, msg); err != nil {
		e.logger.Error("failed to send cart recovery email", "user_id", userID, "cart_id", cartID, "error", err)
		e.metrics.ObserveEmailSent("cart_abandonment", "error")
	} else {
		e.logger.Info("cart recovery email sent", "user_id", userID, "cart_id", cartID)
		e.metrics.ObserveEmailSent("cart_abandonment", "sent")
	}

	e.publisher.Publish(ctx, events.CartAbandonmentEmailSent, events.Payload{
		"user_id":     userID,
		"cart_id":     cartID,
		"cart_value":  cartValue,
		"items_count": len(itemNames),
	})
}

// generateEmail asks the gateway for personalized copy and falls back to
// the deterministic template on transport failure or malformed output.
// Whatever happens, the returned content is non-empty: an email always
// goes out.
func (e *Engine) generateEmail(ctx context.Context, userName string, itemNames, viewed []string, cartValue float64) emailContent {
	reply, err := e.analyzer.QuickAnalysis(ctx, recoveryPrompt(userName, itemNames, viewed, cartValue))
	if err != nil {
		e.logger.Warn("email generation unavailable, using template", "error", err)
		e.metrics.ObserveAIFallback("cart_abandonment", "transport")
		return fallbackEmail(userName, itemNames)
	}

	var content emailContent
	if err := json.Unmarshal([]byte(reply), &content); err != nil {
		e.logger.Warn("email generation returned invalid JSON, using template")
		e.metrics.ObserveAIFallback("cart_abandonment", "malformed")
		return fallbackEmail(userName, itemNames)
	}

	fallback := fallbackEmail(userName, itemNames)
	if content.Subject == "" {
		content.Subject = fallback.Subject
	}
	if content.Body == "" {
		content.Body = fallback.Body
	}
	return content
}

func recoveryPrompt(userName string, itemNames, viewed []string, cartValue float64) string {
	cartProducts := strings.Join(itemNames, ", ")
	if cartProducts == "" {
		cartProducts = "some great items"
	}
	viewedProducts := strings.Join(viewed, ", ")
	if viewedProducts == "" {
		viewedProducts = "N/A"
	}

	return fmt.Sprintf(`Write a friendly, personalized cart abandonment email for an e-commerce customer.

Customer name: %s
Items in cart: %s
Cart value: $%.2f
Recently viewed: %s

Requirements:
- Warm, conversational tone (not salesy or pushy)
- Remind them about their cart items
- If they viewed other items, subtly mention them as recommendations
- Include urgency (limited stock or sale ending) but naturally
- End with clear call-to-action to complete purchase
- Keep it concise (3-4 short paragraphs max)

Format as JSON with keys: "subject" and "body"`,
		userName, cartProducts, cartValue, viewedProducts)
}

func fallbackEmail(userName string, itemNames []string) emailContent {
	items := strings.Join(itemNames, ", ")
	return emailContent{
		Subject: fmt.Sprintf("Hey %s, your cart is waiting!", userName),
		Body: fmt.Sprintf(`Hi %s,

We noticed you left some items in your cart: %s

These popular items won't last long! Complete your purchase now before they're gone.

[Complete My Purchase]

Thanks,
Your Maiway Store Team`, userName, items),
	}
}

// CartCreatedHandler returns the registry handler for cart_created
// events. The workflow engine holds the abandonment delay; by the time
// this fires the cart has had its grace period.
func (e *Engine) CartCreatedHandler() events.Handler {
	return func(ctx context.Context, data events.Payload) error {
		userID, _ := data["user_id"].(string)
		cartID, _ := data["cart_id"].(string)
		if userID == "" || cartID == "" {
			return errors.New("cartrecovery: cart_created event missing user_id or cart_id")
		}
		e.ProcessAbandonedCart(ctx, userID, cartID)
		return nil
	}
}
