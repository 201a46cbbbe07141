package cartrecovery

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
)

func TestRepository_Snapshot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, user_id, status FROM carts WHERE id = \$1`).
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "status"}).
			AddRow("cart-1", "user-1", "active"))

	mock.ExpectQuery(`SELECT p.name, ci.quantity, ci.unit_price`).
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows([]string{"name", "quantity", "unit_price"}).
			AddRow("Mechanical Keyboard", 1, 120.0).
			AddRow("USB Hub", 2, 25.0))

	repo := NewRepositoryWithDB(mock)
	cart, err := repo.Snapshot(context.Background(), "cart-1")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}

	if cart.UserID != "user-1" || cart.Status != StatusActive {
		t.Errorf("unexpected cart header: %+v", cart)
	}
	if len(cart.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(cart.Items))
	}
	if cart.Items[0].ProductName != "Mechanical Keyboard" || cart.Items[0].Quantity != 1 {
		t.Errorf("unexpected first item: %+v", cart.Items[0])
	}
	if cart.Value() != 170.0 {
		t.Errorf("Value() = %v, want 170.0", cart.Value())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRepository_Snapshot_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, user_id, status FROM carts WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "status"}))

	repo := NewRepositoryWithDB(mock)
	_, err = repo.Snapshot(context.Background(), "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRepository_Snapshot_EmptyCart(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, user_id, status FROM carts WHERE id = \$1`).
		WithArgs("cart-2").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "status"}).
			AddRow("cart-2", "user-1", "active"))

	mock.ExpectQuery(`SELECT p.name, ci.quantity, ci.unit_price`).
		WithArgs("cart-2").
		WillReturnRows(pgxmock.NewRows([]string{"name", "quantity", "unit_price"}))

	repo := NewRepositoryWithDB(mock)
	cart, err := repo.Snapshot(context.Background(), "cart-2")
	if err != nil {
		t.Fatalf("Snapshot failed: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Errorf("expected empty cart, got %d items", len(cart.Items))
	}
	if cart.Value() != 0 {
		t.Errorf("empty cart Value() = %v, want 0", cart.Value())
	}
}
