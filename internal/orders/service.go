package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maiway/commerce-ai-platform/internal/events"
	"github.com/maiway/commerce-ai-platform/pkg/logging"
)

// ErrNotCancellable is returned when an order's status forbids
// cancellation.
var ErrNotCancellable = errors.New("orders: order cannot be cancelled")

// EventPublisher forwards order lifecycle events to the workflow engine.
type EventPublisher interface {
	Publish(ctx context.Context, eventName string, data events.Payload) bool
}

// OrderStore is the persistence surface the service needs.
type OrderStore interface {
	Insert(ctx context.Context, o *Order, items []Item) error
	ByID(ctx context.Context, id string) (*Order, error)
	SetStatus(ctx context.Context, id, status string) (string, error)
}

// PaymentInfo carries processor details recorded with the order. The
// processor itself (checkout, webhooks) lives outside this service.
type PaymentInfo struct {
	Method        string
	TransactionID string
}

// Service handles order operations and fires the automation events the
// workflow engine listens for.
type Service struct {
	store     OrderStore
	publisher EventPublisher
	logger    *logging.Logger
	now       func() time.Time
}

func NewService(store OrderStore, publisher EventPublisher, logger *logging.Logger) *Service {
	if store == nil {
		panic("orders: store required")
	}
	if publisher == nil {
		panic("orders: event publisher required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, publisher: publisher, logger: logger, now: time.Now}
}

// Create stores a new pending order and publishes order_created. Event
// delivery is best effort and never fails the order.
func (s *Service) Create(ctx context.Context, userID string, items []Item, payment PaymentInfo) (*Order, error) {
	if len(items) == 0 {
		return nil, errors.New("orders: at least one item required")
	}

	var total float64
	for _, item := range items {
		total += item.Price * float64(item.Quantity)
	}

	order := &Order{
		UserID:        userID,
		TotalAmount:   total,
		Status:        StatusPending,
		PaymentMethod: payment.Method,
		TransactionID: payment.TransactionID,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.Insert(ctx, order, items); err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.OrderCreated, events.Payload{
		"order_id":     order.ID,
		"user_id":      userID,
		"total_amount": total,
		"items_count":  len(items),
		"status":       order.Status,
		"created_at":   order.CreatedAt.Format(time.RFC3339),
	})

	s.logger.Info("order created", "order_id", order.ID, "user_id", userID, "total", total)
	return order, nil
}

// UpdateStatus transitions an order and publishes order_status_changed
// with both sides of the transition.
func (s *Service) UpdateStatus(ctx context.Context, orderID, newStatus string) error {
	old, err := s.store.SetStatus(ctx, orderID, newStatus)
	if err != nil {
		return err
	}

	order, err := s.store.ByID(ctx, orderID)
	if err != nil {
		return err
	}

	s.publisher.Publish(ctx, events.OrderStatusChanged, events.Payload{
		"order_id":   orderID,
		"old_status": old,
		"new_status": newStatus,
		"user_id":    order.UserID,
	})

	s.logger.Info("order status updated", "order_id", orderID, "old", old, "new", newStatus)
	return nil
}

// Cancel marks an order cancelled and publishes order_cancelled with the
// refund amount. Shipped, delivered and already-cancelled orders refuse
// the transition.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) error {
	order, err := s.store.ByID(ctx, orderID)
	if err != nil {
		return err
	}

	switch order.Status {
	case StatusShipped, StatusDelivered, StatusCancelled:
		return fmt.Errorf("%w: status %s", ErrNotCancellable, order.Status)
	}

	if _, err := s.store.SetStatus(ctx, orderID, StatusCancelled); err != nil {
		return err
	}

	s.publisher.Publish(ctx, events.OrderCancelled, events.Payload{
		"order_id":      orderID,
		"user_id":       order.UserID,
		"reason":        reason,
		"refund_amount": order.TotalAmount,
	})

	s.logger.Info("order cancelled", "order_id", orderID, "reason", reason)
	return nil
}
