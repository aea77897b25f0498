package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/washpoint/washpoint-backend/errors"
	"github.com/washpoint/washpoint-backend/internal/realtime"
	"github.com/washpoint/washpoint-backend/internal/store"
	"github.com/washpoint/washpoint-backend/types"
)

type subTestDeps struct {
	subStore   *MockSubscriptionStore
	locStore   *MockLocationStore
	userStore  *MockUserStore
	noteStore  *MockNotificationStore
	mirror     *MockRealtimeStore
	dispatcher *MockPushDispatcher
}

func newSubService() (*SubscriptionService, *subTestDeps) {
	deps := &subTestDeps{
		subStore:   new(MockSubscriptionStore),
		locStore:   new(MockLocationStore),
		userStore:  new(MockUserStore),
		noteStore:  new(MockNotificationStore),
		mirror:     new(MockRealtimeStore),
		dispatcher: new(MockPushDispatcher),
	}
	svc := NewSubscriptionService(
		deps.subStore, deps.locStore, deps.userStore, deps.noteStore, deps.mirror, deps.dispatcher)
	return svc, deps
}

func TestSubscribeRequiresTrackingEnabled(t *testing.T) {
	svc, deps := newSubService()

	deps.userStore.On("GetUserByID", mock.Anything, "cust-1").Return(&types.User{ID: "cust-1", Role: types.RoleCustomer}, nil)
	deps.userStore.On("GetUserByID", mock.Anything, "pro-1").Return(professionalUser("pro-1"), nil)
	loc := existingLocation("pro-1")
	loc.TrackingEnabled = false
	deps.locStore.On("GetLocation", mock.Anything, "pro-1").Return(loc, nil)

	_, err := svc.Subscribe(context.Background(), "cust-1", "pro-1")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TrackingDisabledError))
	deps.subStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestSubscribeTreatsMissingRecordAsTrackingDisabled(t *testing.T) {
	svc, deps := newSubService()

	deps.userStore.On("GetUserByID", mock.Anything, "cust-1").Return(&types.User{ID: "cust-1", Role: types.RoleCustomer}, nil)
	deps.userStore.On("GetUserByID", mock.Anything, "pro-1").Return(professionalUser("pro-1"), nil)
	deps.locStore.On("GetLocation", mock.Anything, "pro-1").Return(nil, store.ErrNotFound)

	_, err := svc.Subscribe(context.Background(), "cust-1", "pro-1")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.TrackingDisabledError))
}

func TestSubscribeRejectsNonProfessionalTarget(t *testing.T) {
	svc, deps := newSubService()

	deps.userStore.On("GetUserByID", mock.Anything, "cust-1").Return(&types.User{ID: "cust-1", Role: types.RoleCustomer}, nil)
	deps.userStore.On("GetUserByID", mock.Anything, "cust-2").Return(&types.User{ID: "cust-2", Role: types.RoleCustomer}, nil)

	_, err := svc.Subscribe(context.Background(), "cust-1", "cust-2")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.RoleInvalidError))
}

func TestSubscribeIsIdempotent(t *testing.T) {
	svc, deps := newSubService()

	deps.userStore.On("GetUserByID", mock.Anything, "cust-1").Return(&types.User{ID: "cust-1", Role: types.RoleCustomer}, nil)
	deps.userStore.On("GetUserByID", mock.Anything, "pro-1").Return(professionalUser("pro-1"), nil)
	deps.locStore.On("GetLocation", mock.Anything, "pro-1").Return(existingLocation("pro-1"), nil)
	deps.subStore.On("Exists", mock.Anything, "cust-1", "pro-1").Return(true, nil)

	sub, err := svc.Subscribe(context.Background(), "cust-1", "pro-1")

	// Re-subscribing succeeds without a new record and without re-notifying.
	require.NoError(t, err)
	assert.Equal(t, "cust-1", sub.SubscriberID)
	deps.subStore.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	deps.dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubscribeCreatesAndNotifies(t *testing.T) {
	svc, deps := newSubService()

	deps.userStore.On("GetUserByID", mock.Anything, "cust-1").Return(&types.User{ID: "cust-1", Name: "Sam", Role: types.RoleCustomer}, nil)
	deps.userStore.On("GetUserByID", mock.Anything, "pro-1").Return(professionalUser("pro-1"), nil)
	deps.locStore.On("GetLocation", mock.Anything, "pro-1").Return(existingLocation("pro-1"), nil)
	deps.subStore.On("Exists", mock.Anything, "cust-1", "pro-1").Return(false, nil)
	deps.subStore.On("Create", mock.Anything, mock.Anything).Return(nil)
	deps.mirror.On("Write", mock.Anything, realtime.SubscriberPath("pro-1", "cust-1"), mock.Anything).Return(nil)
	deps.noteStore.On("Create", mock.Anything, mock.MatchedBy(func(n *types.Notification) bool {
		return n.UserID == "pro-1" && n.Type == types.NotificationSubscriberAdded
	})).Return(nil)
	deps.dispatcher.On("Send", mock.Anything, "pro-1", mock.Anything).Return(nil)

	sub, err := svc.Subscribe(context.Background(), "cust-1", "pro-1")

	require.NoError(t, err)
	assert.Equal(t, "pro-1", sub.ProfessionalID)
	deps.subStore.AssertExpectations(t)
	deps.dispatcher.AssertExpectations(t)
}

func TestUnsubscribeUnknownPair(t *testing.T) {
	svc, deps := newSubService()
	deps.subStore.On("Delete", mock.Anything, "cust-1", "pro-1").Return(store.ErrNotFound)

	err := svc.Unsubscribe(context.Background(), "cust-1", "pro-1")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.SubscriptionNotFoundError))
}

func TestUnsubscribeRemovesMirrorEntry(t *testing.T) {
	svc, deps := newSubService()

	deps.subStore.On("Delete", mock.Anything, "cust-1", "pro-1").Return(nil)
	deps.mirror.On("Remove", mock.Anything, realtime.SubscriberPath("pro-1", "cust-1")).Return(nil)
	deps.noteStore.On("Create", mock.Anything, mock.Anything).Return(nil)
	deps.dispatcher.On("Send", mock.Anything, "pro-1", mock.Anything).Return(nil)

	err := svc.Unsubscribe(context.Background(), "cust-1", "pro-1")

	require.NoError(t, err)
	deps.mirror.AssertExpectations(t)
}

func TestNotifySubscribersNoSubscribers(t *testing.T) {
	svc, deps := newSubService()

	deps.userStore.On("GetUserByID", mock.Anything, "pro-1").Return(professionalUser("pro-1"), nil)
	deps.mirror.On("Write", mock.Anything, realtime.CurrentPath("pro-1"), mock.Anything).Return(nil)
	deps.mirror.On("Append", mock.Anything, realtime.StreamPath("pro-1"), mock.Anything).Return(nil)
	deps.subStore.On("ListSubscribers", mock.Anything, "pro-1").Return([]string{}, nil)

	count, err := svc.NotifySubscribers(context.Background(), "pro-1", types.GeoPosition{Latitude: 1, Longitude: 2})

	require.NoError(t, err)
	assert.Equal(t, 0, count)
	deps.dispatcher.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestNotifySubscribersSingleSubscriber(t *testing.T) {
	svc, deps := newSubService()

	deps.userStore.On("GetUserByID", mock.Anything, "pro-1").Return(professionalUser("pro-1"), nil)
	deps.mirror.On("Write", mock.Anything, realtime.CurrentPath("pro-1"), mock.Anything).Return(nil)
	deps.mirror.On("Append", mock.Anything, realtime.StreamPath("pro-1"), mock.Anything).Return(nil)
	deps.subStore.On("ListSubscribers", mock.Anything, "pro-1").Return([]string{"cust-1"}, nil)
	deps.noteStore.On("Create", mock.Anything, mock.MatchedBy(func(n *types.Notification) bool {
		return n.UserID == "cust-1" && n.Type == types.NotificationLocationUpdate
	})).Return(nil)
	deps.dispatcher.On("Send", mock.Anything, "cust-1", mock.Anything).Return(nil)

	count, err := svc.NotifySubscribers(context.Background(), "pro-1", types.GeoPosition{Latitude: 1, Longitude: 2})

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	deps.noteStore.AssertExpectations(t)
}

func TestNotifySubscribersIsolatesDispatchFailures(t *testing.T) {
	svc, deps := newSubService()

	deps.userStore.On("GetUserByID", mock.Anything, "pro-1").Return(professionalUser("pro-1"), nil)
	deps.mirror.On("Write", mock.Anything, realtime.CurrentPath("pro-1"), mock.Anything).Return(nil)
	deps.mirror.On("Append", mock.Anything, realtime.StreamPath("pro-1"), mock.Anything).Return(nil)
	deps.subStore.On("ListSubscribers", mock.Anything, "pro-1").Return([]string{"cust-1", "cust-2", "cust-3"}, nil)
	deps.noteStore.On("CreateBatch", mock.Anything, mock.Anything).Return(nil)

	deps.dispatcher.On("Send", mock.Anything, "cust-1", mock.Anything).Return(nil)
	deps.dispatcher.On("Send", mock.Anything, "cust-2", mock.Anything).Return(assert.AnError)
	deps.dispatcher.On("Send", mock.Anything, "cust-3", mock.Anything).Return(nil)

	count, err := svc.NotifySubscribers(context.Background(), "pro-1", types.GeoPosition{Latitude: 1, Longitude: 2})

	// One failed dispatch never blocks the others; the count reflects the
	// successful deliveries only.
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	deps.dispatcher.AssertExpectations(t)
}

func TestNotifySubscribersRejectsInvalidPosition(t *testing.T) {
	svc, deps := newSubService()
	deps.userStore.On("GetUserByID", mock.Anything, "pro-1").Return(professionalUser("pro-1"), nil)

	_, err := svc.NotifySubscribers(context.Background(), "pro-1", types.GeoPosition{Latitude: 91, Longitude: 0})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ValidationError))
	deps.subStore.AssertNotCalled(t, "ListSubscribers", mock.Anything, mock.Anything)
}
