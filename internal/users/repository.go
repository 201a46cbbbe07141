package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no user exists for the given id.
var ErrNotFound = errors.New("users: not found")

// User is the identity automation cares about: who to score and where to
// send mail.
type User struct {
	ID    string
	Email string
	Name  string
}

// DisplayName returns the user's name, falling back to the email local
// part when the profile has none.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if at := strings.Index(u.Email, "@"); at > 0 {
		return u.Email[:at]
	}
	return u.Email
}

type db interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads user records.
type Repository struct {
	db db
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("users: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting a mock database for testing.
func NewRepositoryWithDB(db db) *Repository {
	return &Repository{db: db}
}

// ByID loads a single user. Missing users yield ErrNotFound.
func (r *Repository) ByID(ctx context.Context, id string) (*User, error) {
	var u User
	err := r.db.QueryRow(ctx,
		`SELECT id, email, COALESCE(name, '') FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("users: load %s: %w", id, err)
	}
	return &u, nil
}
