package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	apperrors "github.com/washpoint/washpoint-backend/errors"
	"github.com/washpoint/washpoint-backend/internal/realtime"
	"github.com/washpoint/washpoint-backend/internal/store"
	"github.com/washpoint/washpoint-backend/logger"
	"github.com/washpoint/washpoint-backend/types"
)

// SubscriberNotifier is the fanout entry point invoked after an accepted
// position update. Implemented by SubscriptionService.
type SubscriberNotifier interface {
	NotifySubscribers(ctx context.Context, professionalID string, pos types.GeoPosition) (int, error)
}

// LocationService owns the durable location record of each professional and
// mirrors accepted changes into the realtime store. The durable write is the
// sole source of success or failure for callers; mirror failures are logged
// and swallowed.
type LocationService struct {
	locationStore store.LocationStore
	userStore     store.UserStore
	mirror        realtime.Store
	pool          *WorkerPool
	notifier      SubscriberNotifier
	defaults      types.TrackingSettings
	log           *zap.SugaredLogger
}

// NewLocationService creates a LocationService. pool and notifier may be nil
// when fanout is not wired (tests, tooling).
func NewLocationService(
	locationStore store.LocationStore,
	userStore store.UserStore,
	mirror realtime.Store,
	defaults types.TrackingSettings,
) *LocationService {
	return &LocationService{
		locationStore: locationStore,
		userStore:     userStore,
		mirror:        mirror,
		defaults:      defaults,
		log:           logger.GetLogger().Named("location"),
	}
}

// SetFanout wires the async fanout path. Separate from the constructor to
// break the construction cycle with SubscriptionService.
func (s *LocationService) SetFanout(pool *WorkerPool, notifier SubscriberNotifier) {
	s.pool = pool
	s.notifier = notifier
}

// UpdateLocation validates and stores a position fix, creating the record on
// first contact. On success the position is mirrored and subscriber fanout
// is scheduled, both best-effort.
func (s *LocationService) UpdateLocation(ctx context.Context, professionalID string, update types.PositionUpdate) (*types.ProfessionalLocation, error) {
	if err := s.requireProfessional(ctx, professionalID); err != nil {
		return nil, err
	}

	pos, err := positionFromUpdate(update)
	if err != nil {
		return nil, err
	}

	loc, err := s.locationStore.GetLocation(ctx, professionalID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// First fix for this professional: lazily create the record. It
		// starts offline with tracking disabled until explicitly enabled.
		loc = &types.ProfessionalLocation{
			ProfessionalID:  professionalID,
			Current:         pos,
			Status:          types.StatusOffline,
			TrackingEnabled: false,
			Settings:        s.defaults,
			LastUpdated:     time.Now().UTC(),
		}
		if err := s.locationStore.CreateLocation(ctx, loc); err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}
	case err != nil:
		return nil, apperrors.NewDatabaseError(err)
	default:
		if err := s.locationStore.UpdateCurrentPosition(ctx, professionalID, pos, loc.Settings.MaxHistoryItems); err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}
		loc.Current = pos
		loc.LastUpdated = time.Now().UTC()
	}

	// Durable write committed; everything below is best-effort.
	if err := s.mirror.Write(ctx, realtime.CurrentPath(professionalID), pos); err != nil {
		s.log.Warnw("Failed to mirror position", "professionalID", professionalID, "error", err)
	}

	s.scheduleFanout(professionalID, pos)

	return loc, nil
}

// UpdateStatus sets the professional's status and mirrors the identity's
// availability flag: false when offline, true otherwise.
func (s *LocationService) UpdateStatus(ctx context.Context, professionalID string, status types.ProfessionalStatus) (*types.ProfessionalLocation, error) {
	if !status.IsValid() {
		return nil, apperrors.ValidationFailed("invalid status", fmt.Sprintf("status must be one of available, busy, offline; got %q", status))
	}

	err := s.locationStore.UpdateStatus(ctx, professionalID, status)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.LocationNotInitialized(professionalID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	if err := s.userStore.SetAvailability(ctx, professionalID, status != types.StatusOffline); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	if err := s.mirror.Write(ctx, realtime.StatusPath(professionalID), status); err != nil {
		s.log.Warnw("Failed to mirror status", "professionalID", professionalID, "error", err)
	}

	loc, err := s.locationStore.GetLocation(ctx, professionalID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return loc, nil
}

// SetTrackingEnabled flips the tracking flag, creating a minimal record if
// none exists yet. Disabling forces the status to offline.
func (s *LocationService) SetTrackingEnabled(ctx context.Context, professionalID string, enabled bool) (*types.ProfessionalLocation, error) {
	if err := s.requireProfessional(ctx, professionalID); err != nil {
		return nil, err
	}

	err := s.locationStore.SetTrackingEnabled(ctx, professionalID, enabled)
	switch {
	case errors.Is(err, store.ErrNotFound):
		loc := &types.ProfessionalLocation{
			ProfessionalID:  professionalID,
			Status:          types.StatusOffline,
			TrackingEnabled: enabled,
			Settings:        s.defaults,
			LastUpdated:     time.Now().UTC(),
		}
		if err := s.locationStore.CreateLocation(ctx, loc); err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}
	case err != nil:
		return nil, apperrors.NewDatabaseError(err)
	}

	if !enabled {
		if err := s.userStore.SetAvailability(ctx, professionalID, false); err != nil {
			return nil, apperrors.NewDatabaseError(err)
		}
	}

	if err := s.mirror.Write(ctx, realtime.TrackingPath(professionalID), enabled); err != nil {
		s.log.Warnw("Failed to mirror tracking flag", "professionalID", professionalID, "error", err)
	}

	loc, err := s.locationStore.GetLocation(ctx, professionalID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return loc, nil
}

// UpdateTrackingSettings merges the provided keys into the stored settings,
// leaving unspecified settings untouched.
func (s *LocationService) UpdateTrackingSettings(ctx context.Context, professionalID string, update types.TrackingSettingsUpdate) (*types.ProfessionalLocation, error) {
	loc, err := s.locationStore.GetLocation(ctx, professionalID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.LocationNotInitialized(professionalID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	settings := loc.Settings
	if update.UpdateIntervalMs != nil {
		if *update.UpdateIntervalMs <= 0 {
			return nil, apperrors.ValidationFailed("invalid settings", "updateIntervalMs must be positive")
		}
		settings.UpdateIntervalMs = *update.UpdateIntervalMs
	}
	if update.SignificantChangeMeters != nil {
		if *update.SignificantChangeMeters < 0 {
			return nil, apperrors.ValidationFailed("invalid settings", "significantChangeMeters must not be negative")
		}
		settings.SignificantChangeMeters = *update.SignificantChangeMeters
	}
	if update.BatteryOptimizationEnabled != nil {
		settings.BatteryOptimizationEnabled = *update.BatteryOptimizationEnabled
	}
	if update.MaxHistoryItems != nil {
		if *update.MaxHistoryItems <= 0 {
			return nil, apperrors.ValidationFailed("invalid settings", "maxHistoryItems must be positive")
		}
		settings.MaxHistoryItems = *update.MaxHistoryItems
	}

	if err := s.locationStore.UpdateSettings(ctx, professionalID, settings); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	loc.Settings = settings
	loc.LastUpdated = time.Now().UTC()
	return loc, nil
}

// GetLocation returns the durable record.
func (s *LocationService) GetLocation(ctx context.Context, professionalID string) (*types.ProfessionalLocation, error) {
	loc, err := s.locationStore.GetLocation(ctx, professionalID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("location", professionalID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	return loc, nil
}

// GetHistory returns up to limit history entries, most recent first. A
// non-positive limit falls back to the record's history bound.
func (s *LocationService) GetHistory(ctx context.Context, professionalID string, limit int) ([]types.GeoPosition, error) {
	loc, err := s.locationStore.GetLocation(ctx, professionalID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("location", professionalID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	if limit <= 0 || limit > loc.Settings.MaxHistoryItems {
		limit = loc.Settings.MaxHistoryItems
	}

	history, err := s.locationStore.GetHistory(ctx, professionalID, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	if len(history) == 0 {
		return nil, apperrors.LocationHistoryEmpty(professionalID)
	}
	return history, nil
}

// requireProfessional validates that the identity exists and has the
// professional capability.
func (s *LocationService) requireProfessional(ctx context.Context, professionalID string) error {
	user, err := s.userStore.GetUserByID(ctx, professionalID)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.NotFound("user", professionalID)
	}
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}
	if !user.IsProfessional() {
		return apperrors.RoleInvalid(professionalID, string(types.RoleProfessional))
	}
	return nil
}

// scheduleFanout queues subscriber notification for an accepted update.
// Best-effort by design: a dropped job or process crash here loses the
// notification for this update, never the durable write.
func (s *LocationService) scheduleFanout(professionalID string, pos types.GeoPosition) {
	if s.pool == nil || s.notifier == nil {
		return
	}
	s.pool.Submit(Job{
		Name: "notify-subscribers",
		Execute: func(ctx context.Context) error {
			count, err := s.notifier.NotifySubscribers(ctx, professionalID, pos)
			if err != nil {
				return err
			}
			s.log.Debugw("Subscriber fanout complete", "professionalID", professionalID, "notified", count)
			return nil
		},
	})
}

// positionFromUpdate validates bounds and converts the wire payload.
func positionFromUpdate(update types.PositionUpdate) (types.GeoPosition, error) {
	if update.Latitude < -90 || update.Latitude > 90 {
		return types.GeoPosition{}, apperrors.ValidationFailed("invalid latitude", fmt.Sprintf("latitude must be within [-90, 90]; got %f", update.Latitude))
	}
	if update.Longitude < -180 || update.Longitude > 180 {
		return types.GeoPosition{}, apperrors.ValidationFailed("invalid longitude", fmt.Sprintf("longitude must be within [-180, 180]; got %f", update.Longitude))
	}
	if update.Accuracy < 0 {
		return types.GeoPosition{}, apperrors.ValidationFailed("invalid accuracy", fmt.Sprintf("accuracy must not be negative; got %f", update.Accuracy))
	}
	if update.Speed < 0 {
		return types.GeoPosition{}, apperrors.ValidationFailed("invalid speed", fmt.Sprintf("speed must not be negative; got %f", update.Speed))
	}
	if update.Heading < 0 {
		return types.GeoPosition{}, apperrors.ValidationFailed("invalid heading", fmt.Sprintf("heading must not be negative; got %f", update.Heading))
	}

	ts := time.Now().UTC()
	if update.Timestamp > 0 {
		ts = time.UnixMilli(update.Timestamp).UTC()
	}
	return types.GeoPosition{
		Latitude:  update.Latitude,
		Longitude: update.Longitude,
		Accuracy:  update.Accuracy,
		Speed:     update.Speed,
		Heading:   update.Heading,
		Timestamp: ts,
	}, nil
}
