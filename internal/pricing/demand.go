package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Demand levels reported per product.
const (
	DemandHigh   = "high"
	DemandMedium = "medium"
	DemandLow    = "low"
)

// demandWindow is how far back order volume counts toward demand.
const demandWindow = 7 * 24 * time.Hour

// Order-count thresholds for the demand tiers.
const (
	highDemandOrders   = 10
	mediumDemandOrders = 3
)

// DemandSource supplies a demand level per product id.
type DemandSource interface {
	Snapshot(ctx context.Context) (map[string]string, error)
}

type db interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// OrderVolumeDemand derives demand from recent order volume in Postgres.
type OrderVolumeDemand struct {
	db  db
	now func() time.Time
}

func NewOrderVolumeDemand(pool *pgxpool.Pool) *OrderVolumeDemand {
	if pool == nil {
		panic("pricing: pgx pool required")
	}
	return &OrderVolumeDemand{db: pool, now: time.Now}
}

// NewOrderVolumeDemandWithDB allows injecting a mock database for testing.
func NewOrderVolumeDemandWithDB(db db) *OrderVolumeDemand {
	return &OrderVolumeDemand{db: db, now: time.Now}
}

// Snapshot counts order lines per product over the demand window and maps
// the counts to demand tiers.
func (d *OrderVolumeDemand) Snapshot(ctx context.Context) (map[string]string, error) {
	cutoff := d.now().UTC().Add(-demandWindow)

	rows, err := d.db.Query(ctx,
		`SELECT oi.product_id, COUNT(*)
		 FROM order_items oi
		 JOIN orders o ON o.id = oi.order_id
		 WHERE o.created_at >= $1 AND o.status <> 'cancelled'
		 GROUP BY oi.product_id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("pricing: demand snapshot: %w", err)
	}
	defer rows.Close()

	snapshot := make(map[string]string)
	for rows.Next() {
		var productID string
		var count int64
		if err := rows.Scan(&productID, &count); err != nil {
			return nil, fmt.Errorf("pricing: scan demand row: %w", err)
		}
		snapshot[productID] = demandTier(count)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pricing: iterate demand rows: %w", err)
	}
	return snapshot, nil
}

func demandTier(orders int64) string {
	switch {
	case orders >= highDemandOrders:
		return DemandHigh
	case orders >= mediumDemandOrders:
		return DemandMedium
	default:
		return DemandLow
	}
}
