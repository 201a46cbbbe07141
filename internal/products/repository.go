package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no product exists for the given id.
var ErrNotFound = errors.New("products: not found")

// Pricing is the slice of a product the dynamic pricing engine needs.
type Pricing struct {
	ProductID    string
	CurrentPrice float64
	MinPrice     float64
}

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Repository reads and updates the product catalog.
type Repository struct {
	db db
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("products: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db db) *Repository {
	return &Repository{db: db}
}

// PricingFor loads the current and minimum price for a product.
func (r *Repository) PricingFor(ctx context.Context, productID string) (*Pricing, error) {
	var p Pricing
	err := r.db.QueryRow(ctx,
		`SELECT id, price, min_price FROM products WHERE id = $1`, productID,
	).Scan(&p.ProductID, &p.CurrentPrice, &p.MinPrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("products: load pricing for %s: %w", productID, err)
	}
	return &p, nil
}

// UpdatePrice commits a new price for a product.
func (r *Repository) UpdatePrice(ctx context.Context, productID string, price float64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE products SET price = $2, updated_at = now() WHERE id = $1`, productID, price)
	if err != nil {
		return fmt.Errorf("products: update price for %s: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordView notes that a user looked at a product.
func (r *Repository) RecordView(ctx context.Context, userID, productID string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO product_views (id, user_id, product_id, viewed_at)
		VALUES ($1, $2, $3, now())
	`, uuid.New().String(), userID, productID)
	if err != nil {
		return fmt.Errorf("products: record view: %w", err)
	}
	return nil
}

// RecentlyViewed returns names of the user's most recently viewed
// products, newest first. Duplicates against cart contents are allowed;
// the cart recovery prompt handles overlap fine.
func (r *Repository) RecentlyViewed(ctx context.Context, userID string, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.name
		FROM product_views v
		JOIN products p ON p.id = v.product_id
		WHERE v.user_id = $1
		ORDER BY v.viewed_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("products: query recently viewed: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("products: scan viewed product: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
