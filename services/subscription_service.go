package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/washpoint/washpoint-backend/errors"
	"github.com/washpoint/washpoint-backend/internal/geo"
	"github.com/washpoint/washpoint-backend/internal/realtime"
	"github.com/washpoint/washpoint-backend/internal/store"
	"github.com/washpoint/washpoint-backend/logger"
	"github.com/washpoint/washpoint-backend/types"
)

// SubscriptionService tracks subscriber-professional pairs and fans accepted
// position updates out to them. Dispatch is best-effort: per-subscriber push
// failures are isolated and never abort delivery to the rest.
type SubscriptionService struct {
	subscriptionStore store.SubscriptionStore
	locationStore     store.LocationStore
	userStore         store.UserStore
	notificationStore store.NotificationStore
	mirror            realtime.Store
	dispatcher        PushDispatcher
	log               *zap.SugaredLogger
}

func NewSubscriptionService(
	subscriptionStore store.SubscriptionStore,
	locationStore store.LocationStore,
	userStore store.UserStore,
	notificationStore store.NotificationStore,
	mirror realtime.Store,
	dispatcher PushDispatcher,
) *SubscriptionService {
	return &SubscriptionService{
		subscriptionStore: subscriptionStore,
		locationStore:     locationStore,
		userStore:         userStore,
		notificationStore: notificationStore,
		mirror:            mirror,
		dispatcher:        dispatcher,
		log:               logger.GetLogger().Named("subscription"),
	}
}

// Subscribe registers the subscriber for the professional's live position.
// Idempotent: re-subscribing an existing pair succeeds without a duplicate
// entry and without re-notifying the professional.
func (s *SubscriptionService) Subscribe(ctx context.Context, subscriberID, professionalID string) (*types.Subscription, error) {
	subscriber, err := s.userStore.GetUserByID(ctx, subscriberID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("user", subscriberID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	professional, err := s.userStore.GetUserByID(ctx, professionalID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFound("user", professionalID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	if !professional.IsProfessional() {
		return nil, apperrors.RoleInvalid(professionalID, string(types.RoleProfessional))
	}

	loc, err := s.locationStore.GetLocation(ctx, professionalID)
	if errors.Is(err, store.ErrNotFound) {
		// No record yet means tracking was never enabled.
		return nil, apperrors.TrackingDisabled(professionalID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	if !loc.TrackingEnabled {
		return nil, apperrors.TrackingDisabled(professionalID)
	}

	exists, err := s.subscriptionStore.Exists(ctx, subscriberID, professionalID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	sub := &types.Subscription{
		SubscriberID:   subscriberID,
		ProfessionalID: professionalID,
		CreatedAt:      time.Now().UTC(),
	}
	if exists {
		return sub, nil
	}

	if err := s.subscriptionStore.Create(ctx, sub); err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	// Durable write committed; mirror and notification are best-effort.
	if err := s.mirror.Write(ctx, realtime.SubscriberPath(professionalID, subscriberID), sub); err != nil {
		s.log.Warnw("Failed to mirror subscription", "professionalID", professionalID, "subscriberID", subscriberID, "error", err)
	}

	s.notifyProfessional(ctx, professionalID, &PushMessage{
		Title:   "New subscriber",
		Message: fmt.Sprintf("%s is now following your location", subscriber.Name),
		Type:    types.NotificationSubscriberAdded,
		ActionParams: map[string]interface{}{
			"subscriberId": subscriberID,
		},
	})

	return sub, nil
}

// Unsubscribe removes the pair, failing if it does not exist.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, subscriberID, professionalID string) error {
	err := s.subscriptionStore.Delete(ctx, subscriberID, professionalID)
	if errors.Is(err, store.ErrNotFound) {
		return apperrors.SubscriptionNotFound(subscriberID, professionalID)
	}
	if err != nil {
		return apperrors.NewDatabaseError(err)
	}

	if err := s.mirror.Remove(ctx, realtime.SubscriberPath(professionalID, subscriberID)); err != nil {
		s.log.Warnw("Failed to remove mirrored subscription", "professionalID", professionalID, "subscriberID", subscriberID, "error", err)
	}

	s.notifyProfessional(ctx, professionalID, &PushMessage{
		Title:   "Subscriber left",
		Message: "A customer stopped following your location",
		Type:    types.NotificationSubscriberRemoved,
		ActionParams: map[string]interface{}{
			"subscriberId": subscriberID,
		},
	})

	return nil
}

// NotifySubscribers writes the position into the realtime mirror and
// dispatches a live-position notification to every subscriber. Returns the
// number of subscribers successfully notified. A single subscriber is
// dispatched directly; larger sets get one batched notification-record write
// followed by concurrent push dispatch.
func (s *SubscriptionService) NotifySubscribers(ctx context.Context, professionalID string, pos types.GeoPosition) (int, error) {
	professional, err := s.userStore.GetUserByID(ctx, professionalID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, apperrors.NotFound("user", professionalID)
	}
	if err != nil {
		return 0, apperrors.NewDatabaseError(err)
	}
	if !professional.IsProfessional() {
		return 0, apperrors.RoleInvalid(professionalID, string(types.RoleProfessional))
	}
	if !geo.ValidLatLon(pos.Latitude, pos.Longitude) {
		return 0, apperrors.ValidationFailed("invalid position", fmt.Sprintf("latitude %f, longitude %f out of range", pos.Latitude, pos.Longitude))
	}

	if err := s.mirror.Write(ctx, realtime.CurrentPath(professionalID), pos); err != nil {
		s.log.Warnw("Failed to mirror position", "professionalID", professionalID, "error", err)
	}
	if err := s.mirror.Append(ctx, realtime.StreamPath(professionalID), pos); err != nil {
		s.log.Warnw("Failed to append position stream", "professionalID", professionalID, "error", err)
	}

	subscribers, err := s.subscriptionStore.ListSubscribers(ctx, professionalID)
	if err != nil {
		return 0, apperrors.NewDatabaseError(err)
	}
	if len(subscribers) == 0 {
		return 0, nil
	}

	msg := &PushMessage{
		Title:   "Location update",
		Message: fmt.Sprintf("%s moved", professional.Name),
		Type:    types.NotificationLocationUpdate,
		ActionParams: map[string]interface{}{
			"professionalId": professionalID,
			"latitude":       pos.Latitude,
			"longitude":      pos.Longitude,
		},
	}

	if len(subscribers) == 1 {
		subscriberID := subscribers[0]
		if err := s.notificationStore.Create(ctx, buildNotification(subscriberID, msg)); err != nil {
			return 0, apperrors.NewDatabaseError(err)
		}
		if err := s.dispatcher.Send(ctx, subscriberID, msg); err != nil {
			s.log.Warnw("Push dispatch failed", "subscriberID", subscriberID, "error", err)
			return 0, nil
		}
		return 1, nil
	}

	records := make([]*types.Notification, 0, len(subscribers))
	for _, subscriberID := range subscribers {
		records = append(records, buildNotification(subscriberID, msg))
	}
	if err := s.notificationStore.CreateBatch(ctx, records); err != nil {
		return 0, apperrors.NewDatabaseError(err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		notified int
	)
	for _, subscriberID := range subscribers {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.dispatcher.Send(ctx, id, msg); err != nil {
				s.log.Warnw("Push dispatch failed", "subscriberID", id, "error", err)
				return
			}
			mu.Lock()
			notified++
			mu.Unlock()
		}(subscriberID)
	}
	wg.Wait()

	return notified, nil
}

// notifyProfessional persists and dispatches a notification to the
// professional, logging failures without surfacing them.
func (s *SubscriptionService) notifyProfessional(ctx context.Context, professionalID string, msg *PushMessage) {
	if err := s.notificationStore.Create(ctx, buildNotification(professionalID, msg)); err != nil {
		s.log.Warnw("Failed to persist notification", "professionalID", professionalID, "error", err)
	}
	if err := s.dispatcher.Send(ctx, professionalID, msg); err != nil {
		s.log.Warnw("Push dispatch failed", "professionalID", professionalID, "error", err)
	}
}

func buildNotification(userID string, msg *PushMessage) *types.Notification {
	params, err := json.Marshal(msg.ActionParams)
	if err != nil {
		params = nil
	}
	return &types.Notification{
		ID:           uuid.New().String(),
		UserID:       userID,
		Title:        msg.Title,
		Message:      msg.Message,
		Type:         msg.Type,
		ActionParams: params,
		CreatedAt:    time.Now().UTC(),
	}
}
