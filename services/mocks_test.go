package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/washpoint/washpoint-backend/types"
)

// Mock LocationStore
type MockLocationStore struct {
	mock.Mock
}

func (m *MockLocationStore) GetLocation(ctx context.Context, professionalID string) (*types.ProfessionalLocation, error) {
	args := m.Called(ctx, professionalID)
	if loc, ok := args.Get(0).(*types.ProfessionalLocation); ok {
		return loc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLocationStore) CreateLocation(ctx context.Context, loc *types.ProfessionalLocation) error {
	args := m.Called(ctx, loc)
	return args.Error(0)
}

func (m *MockLocationStore) UpdateCurrentPosition(ctx context.Context, professionalID string, pos types.GeoPosition, maxHistoryItems int) error {
	args := m.Called(ctx, professionalID, pos, maxHistoryItems)
	return args.Error(0)
}

func (m *MockLocationStore) UpdateStatus(ctx context.Context, professionalID string, status types.ProfessionalStatus) error {
	args := m.Called(ctx, professionalID, status)
	return args.Error(0)
}

func (m *MockLocationStore) SetTrackingEnabled(ctx context.Context, professionalID string, enabled bool) error {
	args := m.Called(ctx, professionalID, enabled)
	return args.Error(0)
}

func (m *MockLocationStore) UpdateSettings(ctx context.Context, professionalID string, settings types.TrackingSettings) error {
	args := m.Called(ctx, professionalID, settings)
	return args.Error(0)
}

func (m *MockLocationStore) GetHistory(ctx context.Context, professionalID string, limit int) ([]types.GeoPosition, error) {
	args := m.Called(ctx, professionalID, limit)
	if history, ok := args.Get(0).([]types.GeoPosition); ok {
		return history, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLocationStore) FindNearbyCandidates(ctx context.Context, q types.NearbyQuery) ([]types.NearbyProfessional, error) {
	args := m.Called(ctx, q)
	if results, ok := args.Get(0).([]types.NearbyProfessional); ok {
		return results, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetUserByID(ctx context.Context, id string) (*types.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*types.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserStore) SetAvailability(ctx context.Context, id string, available bool) error {
	args := m.Called(ctx, id, available)
	return args.Error(0)
}

// Mock SubscriptionStore
type MockSubscriptionStore struct {
	mock.Mock
}

func (m *MockSubscriptionStore) Create(ctx context.Context, sub *types.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionStore) Delete(ctx context.Context, subscriberID, professionalID string) error {
	args := m.Called(ctx, subscriberID, professionalID)
	return args.Error(0)
}

func (m *MockSubscriptionStore) Exists(ctx context.Context, subscriberID, professionalID string) (bool, error) {
	args := m.Called(ctx, subscriberID, professionalID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSubscriptionStore) ListSubscribers(ctx context.Context, professionalID string) ([]string, error) {
	args := m.Called(ctx, professionalID)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

// Mock NotificationStore
type MockNotificationStore struct {
	mock.Mock
}

func (m *MockNotificationStore) Create(ctx context.Context, n *types.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockNotificationStore) CreateBatch(ctx context.Context, ns []*types.Notification) error {
	args := m.Called(ctx, ns)
	return args.Error(0)
}

// Mock realtime.Store
type MockRealtimeStore struct {
	mock.Mock
}

func (m *MockRealtimeStore) Write(ctx context.Context, path string, value interface{}) error {
	args := m.Called(ctx, path, value)
	return args.Error(0)
}

func (m *MockRealtimeStore) Read(ctx context.Context, path string, dest interface{}) error {
	args := m.Called(ctx, path, dest)
	return args.Error(0)
}

func (m *MockRealtimeStore) Remove(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockRealtimeStore) Append(ctx context.Context, path string, value interface{}) error {
	args := m.Called(ctx, path, value)
	return args.Error(0)
}

func (m *MockRealtimeStore) BatchWrite(ctx context.Context, values map[string]interface{}) error {
	args := m.Called(ctx, values)
	return args.Error(0)
}

// Mock PushDispatcher
type MockPushDispatcher struct {
	mock.Mock
}

func (m *MockPushDispatcher) Send(ctx context.Context, userID string, msg *PushMessage) error {
	args := m.Called(ctx, userID, msg)
	return args.Error(0)
}

// Mock NearbyCache
type MockNearbyCache struct {
	mock.Mock
}

func (m *MockNearbyCache) Get(ctx context.Context, key string) ([]types.NearbyProfessional, bool) {
	args := m.Called(ctx, key)
	if results, ok := args.Get(0).([]types.NearbyProfessional); ok {
		return results, args.Bool(1)
	}
	return nil, args.Bool(1)
}

func (m *MockNearbyCache) Set(ctx context.Context, key string, results []types.NearbyProfessional) {
	m.Called(ctx, key, results)
}
