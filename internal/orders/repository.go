package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no order exists for the given id.
var ErrNotFound = errors.New("orders: not found")

// Order statuses used by the checkout and automation flows.
const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// Order is a purchase record. TotalAmount is in the store currency's major
// unit.
type Order struct {
	ID            string
	UserID        string
	TotalAmount   float64
	Status        string
	PaymentMethod string
	TransactionID string
	CreatedAt     time.Time
}

// Item is one order line.
type Item struct {
	ProductID string
	Quantity  int
	Price     float64
}

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository persists orders with pgx.
type Repository struct {
	db db
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("orders: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db db) *Repository {
	return &Repository{db: db}
}

// Insert stores an order and its items.
func (r *Repository) Insert(ctx context.Context, o *Order, items []Item) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO orders (id, user_id, total_amount, status, payment_method, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, o.ID, o.UserID, o.TotalAmount, o.Status, o.PaymentMethod, o.TransactionID, o.CreatedAt)
	if err != nil {
		return fmt.Errorf("orders: insert order: %w", err)
	}
	for _, item := range items {
		_, err := r.db.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.New().String(), o.ID, item.ProductID, item.Quantity, item.Price)
		if err != nil {
			return fmt.Errorf("orders: insert item for %s: %w", o.ID, err)
		}
	}
	return nil
}

// ByID loads one order.
func (r *Repository) ByID(ctx context.Context, id string) (*Order, error) {
	var o Order
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, total_amount, status,
		       COALESCE(payment_method, ''), COALESCE(transaction_id, ''), created_at
		FROM orders WHERE id = $1
	`, id).Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.PaymentMethod, &o.TransactionID, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("orders: load %s: %w", id, err)
	}
	return &o, nil
}

// SetStatus updates an order's status and returns the previous one.
func (r *Repository) SetStatus(ctx context.Context, id, status string) (string, error) {
	var old string
	err := r.db.QueryRow(ctx, `
		UPDATE orders o SET status = $2, updated_at = now()
		FROM (SELECT status FROM orders WHERE id = $1 FOR UPDATE) prev
		WHERE o.id = $1
		RETURNING prev.status
	`, id, status).Scan(&old)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("orders: set status for %s: %w", id, err)
	}
	return old, nil
}

// Since returns a user's orders created after the cutoff, newest first.
// This feeds the engagement-metrics snapshot; metrics are recomputed on
// every call, never stored.
func (r *Repository) Since(ctx context.Context, userID string, cutoff time.Time) ([]Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, total_amount, status,
		       COALESCE(payment_method, ''), COALESCE(transaction_id, ''), created_at
		FROM orders
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
	`, userID, cutoff)
	if err != nil {
		return nil, fmt.Errorf("orders: query since: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalAmount, &o.Status, &o.PaymentMethod, &o.TransactionID, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("orders: scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
