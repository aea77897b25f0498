package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/washpoint/washpoint-backend/internal/store"
	"github.com/washpoint/washpoint-backend/types"
)

func newLocationStoreMock(t *testing.T) (*LocationStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewLocationStore(mock), mock
}

func locationRow(id string) *pgxmock.Rows {
	now := time.Now().UTC()
	return pgxmock.NewRows([]string{
		"professional_id", "latitude", "longitude", "accuracy", "speed", "heading", "recorded_at",
		"status", "tracking_enabled", "update_interval_ms", "significant_change_m",
		"battery_optimization", "max_history_items", "last_updated",
	}).AddRow(id, 37.7749, -122.4194, 5.0, 0.0, 0.0, now,
		types.StatusAvailable, true, 30000, 50, true, 50, now)
}

func TestGetLocation(t *testing.T) {
	s, mock := newLocationStoreMock(t)

	mock.ExpectQuery("SELECT (.+) FROM professional_locations").
		WithArgs("pro-1").
		WillReturnRows(locationRow("pro-1"))

	loc, err := s.GetLocation(context.Background(), "pro-1")

	require.NoError(t, err)
	assert.Equal(t, "pro-1", loc.ProfessionalID)
	assert.Equal(t, types.StatusAvailable, loc.Status)
	assert.Equal(t, 50, loc.Settings.MaxHistoryItems)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLocationNotFound(t *testing.T) {
	s, mock := newLocationStoreMock(t)

	mock.ExpectQuery("SELECT (.+) FROM professional_locations").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"professional_id"}))

	_, err := s.GetLocation(context.Background(), "ghost")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateCurrentPositionAppendsAndTrims(t *testing.T) {
	s, mock := newLocationStoreMock(t)

	pos := types.GeoPosition{Latitude: 37.78, Longitude: -122.42, Timestamp: time.Now().UTC()}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE professional_locations").
		WithArgs("pro-1", pos.Latitude, pos.Longitude, pos.Accuracy, pos.Speed, pos.Heading, pos.Timestamp).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO location_history").
		WithArgs("pro-1", pos.Latitude, pos.Longitude, pos.Accuracy, pos.Speed, pos.Heading, pos.Timestamp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM location_history").
		WithArgs("pro-1", 50).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()
	mock.ExpectRollback()

	err := s.UpdateCurrentPosition(context.Background(), "pro-1", pos, 50)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateCurrentPositionMissingRecord(t *testing.T) {
	s, mock := newLocationStoreMock(t)

	pos := types.GeoPosition{Latitude: 1, Longitude: 2, Timestamp: time.Now().UTC()}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE professional_locations").
		WithArgs("ghost", pos.Latitude, pos.Longitude, pos.Accuracy, pos.Speed, pos.Heading, pos.Timestamp).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	err := s.UpdateCurrentPosition(context.Background(), "ghost", pos, 50)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateStatusNotFound(t *testing.T) {
	s, mock := newLocationStoreMock(t)

	mock.ExpectExec("UPDATE professional_locations").
		WithArgs("ghost", types.StatusBusy).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateStatus(context.Background(), "ghost", types.StatusBusy)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSetTrackingEnabled(t *testing.T) {
	s, mock := newLocationStoreMock(t)

	mock.ExpectExec("UPDATE professional_locations").
		WithArgs("pro-1", false).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.SetTrackingEnabled(context.Background(), "pro-1", false)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetHistory(t *testing.T) {
	s, mock := newLocationStoreMock(t)

	newest := time.Now().UTC()
	oldest := newest.Add(-time.Minute)
	rows := pgxmock.NewRows([]string{"latitude", "longitude", "accuracy", "speed", "heading", "recorded_at"}).
		AddRow(37.78, -122.42, 5.0, 0.0, 0.0, newest).
		AddRow(37.77, -122.41, 5.0, 0.0, 0.0, oldest)

	mock.ExpectQuery("SELECT (.+) FROM location_history").
		WithArgs("pro-1", 10).
		WillReturnRows(rows)

	history, err := s.GetHistory(context.Background(), "pro-1", 10)

	require.NoError(t, err)
	require.Len(t, history, 2)
	// Most recent first.
	assert.Equal(t, newest, history[0].Timestamp)
	assert.Equal(t, oldest, history[1].Timestamp)
}

func TestFindNearbyCandidates(t *testing.T) {
	s, mock := newLocationStoreMock(t)

	now := time.Now().UTC()
	rows := pgxmock.NewRows([]string{
		"professional_id", "latitude", "longitude", "accuracy", "speed", "heading",
		"recorded_at", "status", "name", "phone", "specialization", "rating",
	}).AddRow("pro-1", 37.7749, -122.4194, 5.0, 0.0, 0.0, now,
		types.StatusAvailable, "Jordan", "+15550100", "detailing", 4.8)

	mock.ExpectQuery("SELECT (.+) FROM professional_locations pl").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), "available", []string{}).
		WillReturnRows(rows)

	candidates, err := s.FindNearbyCandidates(context.Background(), types.NearbyQuery{
		Latitude:     37.7749,
		Longitude:    -122.4194,
		MaxDistanceM: 1000,
		Status:       "available",
	})

	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "pro-1", candidates[0].ProfessionalID)
	assert.Equal(t, "Jordan", candidates[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}
