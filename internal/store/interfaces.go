// Package store defines the persistence interfaces consumed by the service
// layer. Implementations live in subpackages (postgres). Every component
// receives its stores at construction; nothing reaches for a package-level
// handle.
package store

import (
	"context"

	"github.com/washpoint/washpoint-backend/types"
)

// LocationStore is the durable, authoritative record of professional
// positions. History is bounded per record; appends beyond the bound evict
// the oldest entries first.
type LocationStore interface {
	// GetLocation returns the record, or ErrNotFound if none exists.
	GetLocation(ctx context.Context, professionalID string) (*types.ProfessionalLocation, error)

	// CreateLocation inserts a fresh record. The caller supplies the full
	// initial state (status, tracking flag, settings, current position).
	CreateLocation(ctx context.Context, loc *types.ProfessionalLocation) error

	// UpdateCurrentPosition replaces the current position and appends it to
	// the bounded history in one transaction, trimming oldest entries past
	// maxHistoryItems.
	UpdateCurrentPosition(ctx context.Context, professionalID string, pos types.GeoPosition, maxHistoryItems int) error

	// UpdateStatus sets the status. Returns ErrNotFound if no record exists.
	UpdateStatus(ctx context.Context, professionalID string, status types.ProfessionalStatus) error

	// SetTrackingEnabled flips the tracking flag. Returns ErrNotFound if no
	// record exists.
	SetTrackingEnabled(ctx context.Context, professionalID string, enabled bool) error

	// UpdateSettings persists a full settings struct (the merge with the
	// previous values happens in the service layer).
	UpdateSettings(ctx context.Context, professionalID string, settings types.TrackingSettings) error

	// GetHistory returns up to limit history entries, most recent first.
	GetHistory(ctx context.Context, professionalID string, limit int) ([]types.GeoPosition, error)

	// FindNearbyCandidates returns tracking-enabled records joined with the
	// identity projection, prefiltered by a bounding box, status, and
	// optional service overlap. Exact distance filtering happens in the
	// caller.
	FindNearbyCandidates(ctx context.Context, q types.NearbyQuery) ([]types.NearbyProfessional, error)
}

// UserStore is the identity collaborator projection. This subsystem reads
// the fields it needs and writes only the availability flag.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*types.User, error)
	SetAvailability(ctx context.Context, id string, available bool) error
}

// SubscriptionStore tracks subscriber-professional pairs.
type SubscriptionStore interface {
	// Create inserts the pair. Inserting an existing pair is a no-op
	// (idempotent subscribe).
	Create(ctx context.Context, sub *types.Subscription) error

	// Delete removes the pair. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, subscriberID, professionalID string) error

	// Exists reports whether the pair is present.
	Exists(ctx context.Context, subscriberID, professionalID string) (bool, error)

	// ListSubscribers returns the subscriber ids for a professional.
	ListSubscribers(ctx context.Context, professionalID string) ([]string, error)
}

// NotificationStore persists notification records.
type NotificationStore interface {
	Create(ctx context.Context, n *types.Notification) error

	// CreateBatch inserts all records in a single batched round trip.
	CreateBatch(ctx context.Context, ns []*types.Notification) error
}

// PushTokenStore exposes read-only token lookup for the push dispatcher.
// Token registration is owned by the identity service.
type PushTokenStore interface {
	GetActiveTokensForUser(ctx context.Context, userID string) ([]*types.PushToken, error)
}
