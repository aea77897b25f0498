package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/washpoint/washpoint-backend/internal/store"
	"github.com/washpoint/washpoint-backend/types"
)

// UserStore reads the identity projection this subsystem depends on and
// writes the availability flag. All other identity fields are owned by the
// identity service.
type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	query := `
		SELECT id, name, phone, role, specialization, rating, services, is_available, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	u := &types.User{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Name,
		&u.Phone,
		&u.Role,
		&u.Specialization,
		&u.Rating,
		&u.Services,
		&u.IsAvailable,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) SetAvailability(ctx context.Context, id string, available bool) error {
	query := `
		UPDATE users
		SET is_available = $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := s.db.Exec(ctx, query, id, available)
	if err != nil {
		return fmt.Errorf("set availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
