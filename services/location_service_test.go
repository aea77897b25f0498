package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/washpoint/washpoint-backend/errors"
	"github.com/washpoint/washpoint-backend/internal/realtime"
	"github.com/washpoint/washpoint-backend/internal/store"
	"github.com/washpoint/washpoint-backend/logger"
	"github.com/washpoint/washpoint-backend/types"
)

func init() {
	logger.IsTest = true
}

var testDefaults = types.TrackingSettings{
	UpdateIntervalMs:           30000,
	SignificantChangeMeters:    50,
	BatteryOptimizationEnabled: true,
	MaxHistoryItems:            50,
}

func professionalUser(id string) *types.User {
	return &types.User{
		ID:   id,
		Name: "Jordan",
		Role: types.RoleProfessional,
	}
}

func existingLocation(id string) *types.ProfessionalLocation {
	return &types.ProfessionalLocation{
		ProfessionalID:  id,
		Current:         types.GeoPosition{Latitude: 37.7749, Longitude: -122.4194, Timestamp: time.Now().UTC()},
		Status:          types.StatusAvailable,
		TrackingEnabled: true,
		Settings:        testDefaults,
		LastUpdated:     time.Now().UTC(),
	}
}

func TestUpdateLocationValidation(t *testing.T) {
	tests := []struct {
		name   string
		update types.PositionUpdate
	}{
		{
			name:   "latitude out of range",
			update: types.PositionUpdate{Latitude: 91, Longitude: 0},
		},
		{
			name:   "longitude out of range",
			update: types.PositionUpdate{Latitude: 0, Longitude: -181},
		},
		{
			name:   "negative accuracy",
			update: types.PositionUpdate{Latitude: 10, Longitude: 10, Accuracy: -1},
		},
		{
			name:   "negative speed",
			update: types.PositionUpdate{Latitude: 10, Longitude: 10, Speed: -0.5},
		},
		{
			name:   "negative heading",
			update: types.PositionUpdate{Latitude: 10, Longitude: 10, Heading: -90},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locStore := new(MockLocationStore)
			userStore := new(MockUserStore)
			mirror := new(MockRealtimeStore)
			userStore.On("GetUserByID", mock.Anything, "pro-1").Return(professionalUser("pro-1"), nil)

			svc := NewLocationService(locStore, userStore, mirror, testDefaults)
			_, err := svc.UpdateLocation(context.Background(), "pro-1", tt.update)

			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ValidationError))
			locStore.AssertNotCalled(t, "UpdateCurrentPosition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateLocationRejectsNonProfessional(t *testing.T) {
	locStore := new(MockLocationStore)
	userStore := new(MockUserStore)
	mirror := new(MockRealtimeStore)
	userStore.On("GetUserByID", mock.Anything, "cust-1").Return(&types.User{ID: "cust-1", Role: types.RoleCustomer}, nil)

	svc := NewLocationService(locStore, userStore, mirror, testDefaults)
	_, err := svc.UpdateLocation(context.Background(), "cust-1", types.PositionUpdate{Latitude: 10, Longitude: 10})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.RoleInvalidError))
}

func TestUpdateLocationCreatesRecordOnFirstFix(t *testing.T) {
	locStore := new(MockLocationStore)
	userStore := new(MockUserStore)
	mirror := new(MockRealtimeStore)

	userStore.On("GetUserByID", mock.Anything, "pro-1").Return(professionalUser("pro-1"), nil)
	locStore.On("GetLocation", mock.Anything, "pro-1").Return(nil, store.ErrNotFound)
	locStore.On("CreateLocation", mock.Anything, mock.MatchedBy(func(loc *types.ProfessionalLocation) bool {
		return loc.ProfessionalID == "pro-1" &&
			loc.Status == types.StatusOffline &&
			!loc.TrackingEnabled &&
			loc.Settings == testDefaults
	})).Return(nil)
	mirror.On("Write", mock.Anything, realtime.CurrentPath("pro-1"), mock.Anything).Return(nil)

	svc := NewLocationService(locStore, userStore, mirror, testDefaults)
	loc, err := svc.UpdateLocation(context.Background(), "pro-1", types.PositionUpdate{Latitude: 37.7749, Longitude: -122.4194})

	require.NoError(t, err)
	assert.Equal(t, 37.7749, loc.Current.Latitude)
	assert.False(t, loc.TrackingEnabled)
	locStore.AssertExpectations(t)
	mirror.AssertExpectations(t)
}

func TestUpdateLocationSurvivesMirrorFailure(t *testing.T) {
	locStore := new(MockLocationStore)
	userStore := new(MockUserStore)
	mirror := new(MockRealtimeStore)

	userStore.On("GetUserByID", mock.Anything, "pro-1").Return(professionalUser("pro-1"), nil)
	locStore.On("GetLocation", mock.Anything, "pro-1").Return(existingLocation("pro-1"), nil)
	locStore.On("UpdateCurrentPosition", mock.Anything, "pro-1", mock.Anything, 50).Return(nil)
	mirror.On("Write", mock.Anything, realtime.CurrentPath("pro-1"), mock.Anything).Return(assert.AnError)

	svc := NewLocationService(locStore, userStore, mirror, testDefaults)
	loc, err := svc.UpdateLocation(context.Background(), "pro-1", types.PositionUpdate{Latitude: 37.78, Longitude: -122.42})

	// Mirror failure never fails the durable write.
	require.NoError(t, err)
	assert.Equal(t, 37.78, loc.Current.Latitude)
}

func TestUpdateStatusRequiresExistingRecord(t *testing.T) {
	locStore := new(MockLocationStore)
	userStore := new(MockUserStore)
	mirror := new(MockRealtimeStore)
	locStore.On("UpdateStatus", mock.Anything, "pro-1", types.StatusBusy).Return(store.ErrNotFound)

	svc := NewLocationService(locStore, userStore, mirror, testDefaults)
	_, err := svc.UpdateStatus(context.Background(), "pro-1", types.StatusBusy)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.LocationNotInitializedError))
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc := NewLocationService(new(MockLocationStore), new(MockUserStore), new(MockRealtimeStore), testDefaults)
	_, err := svc.UpdateStatus(context.Background(), "pro-1", types.ProfessionalStatus("sleeping"))

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ValidationError))
}

func TestUpdateStatusMirrorsAvailability(t *testing.T) {
	tests := []struct {
		status    types.ProfessionalStatus
		available bool
	}{
		{types.StatusAvailable, true},
		{types.StatusBusy, true},
		{types.StatusOffline, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			locStore := new(MockLocationStore)
			userStore := new(MockUserStore)
			mirror := new(MockRealtimeStore)

			locStore.On("UpdateStatus", mock.Anything, "pro-1", tt.status).Return(nil)
			userStore.On("SetAvailability", mock.Anything, "pro-1", tt.available).Return(nil)
			mirror.On("Write", mock.Anything, realtime.StatusPath("pro-1"), tt.status).Return(nil)
			loc := existingLocation("pro-1")
			loc.Status = tt.status
			locStore.On("GetLocation", mock.Anything, "pro-1").Return(loc, nil)

			svc := NewLocationService(locStore, userStore, mirror, testDefaults)
			got, err := svc.UpdateStatus(context.Background(), "pro-1", tt.status)

			require.NoError(t, err)
			assert.Equal(t, tt.status, got.Status)
			userStore.AssertExpectations(t)
		})
	}
}

func TestSetTrackingDisabledForcesOfflineAvailability(t *testing.T) {
	locStore := new(MockLocationStore)
	userStore := new(MockUserStore)
	mirror := new(MockRealtimeStore)

	userStore.On("GetUserByID", mock.Anything, "pro-1").Return(professionalUser("pro-1"), nil)
	locStore.On("SetTrackingEnabled", mock.Anything, "pro-1", false).Return(nil)
	userStore.On("SetAvailability", mock.Anything, "pro-1", false).Return(nil)
	mirror.On("Write", mock.Anything, realtime.TrackingPath("pro-1"), false).Return(nil)
	loc := existingLocation("pro-1")
	loc.TrackingEnabled = false
	loc.Status = types.StatusOffline
	locStore.On("GetLocation", mock.Anything, "pro-1").Return(loc, nil)

	svc := NewLocationService(locStore, userStore, mirror, testDefaults)
	got, err := svc.SetTrackingEnabled(context.Background(), "pro-1", false)

	require.NoError(t, err)
	assert.False(t, got.TrackingEnabled)
	userStore.AssertExpectations(t)
}

func TestUpdateTrackingSettingsMergesPartialUpdate(t *testing.T) {
	locStore := new(MockLocationStore)
	userStore := new(MockUserStore)
	mirror := new(MockRealtimeStore)

	locStore.On("GetLocation", mock.Anything, "pro-1").Return(existingLocation("pro-1"), nil)

	interval := 60000
	expected := testDefaults
	expected.UpdateIntervalMs = interval
	locStore.On("UpdateSettings", mock.Anything, "pro-1", expected).Return(nil)

	svc := NewLocationService(locStore, userStore, mirror, testDefaults)
	got, err := svc.UpdateTrackingSettings(context.Background(), "pro-1", types.TrackingSettingsUpdate{
		UpdateIntervalMs: &interval,
	})

	require.NoError(t, err)
	// Only the provided key changed; the rest kept their stored values.
	assert.Equal(t, 60000, got.Settings.UpdateIntervalMs)
	assert.Equal(t, 50, got.Settings.SignificantChangeMeters)
	assert.True(t, got.Settings.BatteryOptimizationEnabled)
	locStore.AssertExpectations(t)
}

func TestUpdateTrackingSettingsRejectsInvalidValues(t *testing.T) {
	locStore := new(MockLocationStore)
	locStore.On("GetLocation", mock.Anything, "pro-1").Return(existingLocation("pro-1"), nil)
	svc := NewLocationService(locStore, new(MockUserStore), new(MockRealtimeStore), testDefaults)

	zero := 0
	_, err := svc.UpdateTrackingSettings(context.Background(), "pro-1", types.TrackingSettingsUpdate{
		UpdateIntervalMs: &zero,
	})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ValidationError))
	locStore.AssertNotCalled(t, "UpdateSettings", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetHistoryEmpty(t *testing.T) {
	locStore := new(MockLocationStore)
	locStore.On("GetLocation", mock.Anything, "pro-1").Return(existingLocation("pro-1"), nil)
	locStore.On("GetHistory", mock.Anything, "pro-1", 50).Return([]types.GeoPosition{}, nil)

	svc := NewLocationService(locStore, new(MockUserStore), new(MockRealtimeStore), testDefaults)
	_, err := svc.GetHistory(context.Background(), "pro-1", 0)

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.LocationHistoryEmptyError))
}

func TestGetHistoryClampsLimit(t *testing.T) {
	locStore := new(MockLocationStore)
	locStore.On("GetLocation", mock.Anything, "pro-1").Return(existingLocation("pro-1"), nil)
	// Requested limit exceeds the record's bound, so the bound wins.
	locStore.On("GetHistory", mock.Anything, "pro-1", 50).
		Return([]types.GeoPosition{{Latitude: 1, Longitude: 2}}, nil)

	svc := NewLocationService(locStore, new(MockUserStore), new(MockRealtimeStore), testDefaults)
	history, err := svc.GetHistory(context.Background(), "pro-1", 500)

	require.NoError(t, err)
	assert.Len(t, history, 1)
	locStore.AssertExpectations(t)
}

func TestGetLocationNotFound(t *testing.T) {
	locStore := new(MockLocationStore)
	locStore.On("GetLocation", mock.Anything, "ghost").Return(nil, store.ErrNotFound)

	svc := NewLocationService(locStore, new(MockUserStore), new(MockRealtimeStore), testDefaults)
	_, err := svc.GetLocation(context.Background(), "ghost")

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.NotFoundError))
}
