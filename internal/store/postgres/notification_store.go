package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/washpoint/washpoint-backend/types"
)

// NotificationStore persists notification records. Batch inserts use a
// single pgx batch round trip, which is what the fanout path relies on when
// a position update has many subscribers.
type NotificationStore struct {
	db DB
}

func NewNotificationStore(db DB) *NotificationStore {
	return &NotificationStore{db: db}
}

const insertNotificationQuery = `
		INSERT INTO notifications (id, user_id, title, message, type, action_params, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`

func (s *NotificationStore) Create(ctx context.Context, n *types.Notification) error {
	if _, err := s.db.Exec(ctx, insertNotificationQuery,
		n.ID, n.UserID, n.Title, n.Message, n.Type, n.ActionParams); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) CreateBatch(ctx context.Context, ns []*types.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, n := range ns {
		batch.Queue(insertNotificationQuery, n.ID, n.UserID, n.Title, n.Message, n.Type, n.ActionParams)
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	for range ns {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert notifications: %w", err)
		}
	}
	return nil
}
