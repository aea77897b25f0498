package postgres

import (
	"context"
	"fmt"

	"github.com/washpoint/washpoint-backend/internal/store"
	"github.com/washpoint/washpoint-backend/types"
)

// SubscriptionStore persists subscriber-professional pairs. Uniqueness is
// enforced by the table's composite primary key.
type SubscriptionStore struct {
	db DB
}

func NewSubscriptionStore(db DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// Create inserts the pair; re-inserting an existing pair is a no-op so that
// subscribe stays idempotent.
func (s *SubscriptionStore) Create(ctx context.Context, sub *types.Subscription) error {
	query := `
		INSERT INTO subscriptions (subscriber_id, professional_id, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (subscriber_id, professional_id) DO NOTHING
	`
	if _, err := s.db.Exec(ctx, query, sub.SubscriberID, sub.ProfessionalID); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

func (s *SubscriptionStore) Delete(ctx context.Context, subscriberID, professionalID string) error {
	query := `
		DELETE FROM subscriptions
		WHERE subscriber_id = $1 AND professional_id = $2
	`
	tag, err := s.db.Exec(ctx, query, subscriberID, professionalID)
	if err != nil {
		return fmt.Errorf("delete subscription: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *SubscriptionStore) Exists(ctx context.Context, subscriberID, professionalID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE subscriber_id = $1 AND professional_id = $2
		)
	`
	var exists bool
	if err := s.db.QueryRow(ctx, query, subscriberID, professionalID).Scan(&exists); err != nil {
		return false, fmt.Errorf("subscription exists: %w", err)
	}
	return exists, nil
}

func (s *SubscriptionStore) ListSubscribers(ctx context.Context, professionalID string) ([]string, error) {
	query := `
		SELECT subscriber_id FROM subscriptions
		WHERE professional_id = $1
		ORDER BY created_at
	`

	rows, err := s.db.Query(ctx, query, professionalID)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan subscriber row: %w", err)
		}
		subscribers = append(subscribers, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return subscribers, nil
}
