package cartrecovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Cart statuses as persisted by the checkout flow. The recovery engine
// only reads them; checkout owns the transitions.
const (
	StatusActive    = "active"
	StatusAbandoned = "abandoned"
	StatusCompleted = "completed"
)

// ErrNotFound is returned when no cart exists for the given id.
var ErrNotFound = errors.New("cartrecovery: cart not found")

// CartItem is one line of a cart snapshot.
type CartItem struct {
	ProductName string
	Quantity    int
	UnitPrice   float64
}

// Cart is a read-only snapshot of a cart at processing time.
type Cart struct {
	ID     string
	UserID string
	Status string
	Items  []CartItem
}

// Value returns the cart total.
func (c *Cart) Value() float64 {
	total := 0.0
	for _, item := range c.Items {
		total += float64(item.Quantity) * item.UnitPrice
	}
	return total
}

// ItemNames returns the product names in cart order.
func (c *Cart) ItemNames() []string {
	names := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		names = append(names, item.ProductName)
	}
	return names
}

// JoinedItemNames is the comma-joined list used in email copy.
func (c *Cart) JoinedItemNames() string {
	return strings.Join(c.ItemNames(), ", ")
}

type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository assembles cart snapshots from storage.
type Repository struct {
	db db
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("cartrecovery: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db db) *Repository {
	return &Repository{db: db}
}

// Snapshot loads a cart with its items. Missing carts yield ErrNotFound.
func (r *Repository) Snapshot(ctx context.Context, cartID string) (*Cart, error) {
	var c Cart
	err := r.db.QueryRow(ctx,
		`SELECT id, user_id, status FROM carts WHERE id = $1`, cartID,
	).Scan(&c.ID, &c.UserID, &c.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("cartrecovery: load cart %s: %w", cartID, err)
	}

	rows, err := r.db.Query(ctx,
		`SELECT p.name, ci.quantity, ci.unit_price
		 FROM cart_items ci
		 JOIN products p ON p.id = ci.product_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.added_at`, cartID)
	if err != nil {
		return nil, fmt.Errorf("cartrecovery: load cart items %s: %w", cartID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var item CartItem
		if err := rows.Scan(&item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("cartrecovery: scan cart item: %w", err)
		}
		c.Items = append(c.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cartrecovery: iterate cart items: %w", err)
	}
	return &c, nil
}
