package postgres

import (
	"context"
	"fmt"

	"github.com/washpoint/washpoint-backend/types"
)

// PushTokenStore reads active device tokens for push dispatch. Registration
// and invalidation are owned by the identity service.
type PushTokenStore struct {
	db DB
}

func NewPushTokenStore(db DB) *PushTokenStore {
	return &PushTokenStore{db: db}
}

func (s *PushTokenStore) GetActiveTokensForUser(ctx context.Context, userID string) ([]*types.PushToken, error) {
	query := `
		SELECT id, user_id, token, device_type, is_active, created_at, last_used_at
		FROM push_tokens
		WHERE user_id = $1 AND is_active = TRUE
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("get active tokens: %w", err)
	}
	defer rows.Close()

	var tokens []*types.PushToken
	for rows.Next() {
		t := &types.PushToken{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Token, &t.DeviceType, &t.IsActive, &t.CreatedAt, &t.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scan push token row: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tokens, nil
}
