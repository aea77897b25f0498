package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/washpoint/washpoint-backend/internal/geo"
	"github.com/washpoint/washpoint-backend/internal/store"
	"github.com/washpoint/washpoint-backend/types"
)

// LocationStore persists professional location records. The current position
// lives on the professional_locations row; history rows are kept in
// location_history and trimmed to the record's bound on every append.
type LocationStore struct {
	db DB
}

func NewLocationStore(db DB) *LocationStore {
	return &LocationStore{db: db}
}

const locationColumns = `professional_id, latitude, longitude, accuracy, speed, heading, recorded_at,
		       status, tracking_enabled, update_interval_ms, significant_change_m,
		       battery_optimization, max_history_items, last_updated`

func (s *LocationStore) GetLocation(ctx context.Context, professionalID string) (*types.ProfessionalLocation, error) {
	query := `
		SELECT ` + locationColumns + `
		FROM professional_locations
		WHERE professional_id = $1
	`

	loc := &types.ProfessionalLocation{}
	err := s.db.QueryRow(ctx, query, professionalID).Scan(
		&loc.ProfessionalID,
		&loc.Current.Latitude,
		&loc.Current.Longitude,
		&loc.Current.Accuracy,
		&loc.Current.Speed,
		&loc.Current.Heading,
		&loc.Current.Timestamp,
		&loc.Status,
		&loc.TrackingEnabled,
		&loc.Settings.UpdateIntervalMs,
		&loc.Settings.SignificantChangeMeters,
		&loc.Settings.BatteryOptimizationEnabled,
		&loc.Settings.MaxHistoryItems,
		&loc.LastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	return loc, nil
}

func (s *LocationStore) CreateLocation(ctx context.Context, loc *types.ProfessionalLocation) error {
	query := `
		INSERT INTO professional_locations (` + locationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
	`

	_, err := s.db.Exec(ctx, query,
		loc.ProfessionalID,
		loc.Current.Latitude,
		loc.Current.Longitude,
		loc.Current.Accuracy,
		loc.Current.Speed,
		loc.Current.Heading,
		loc.Current.Timestamp,
		loc.Status,
		loc.TrackingEnabled,
		loc.Settings.UpdateIntervalMs,
		loc.Settings.SignificantChangeMeters,
		loc.Settings.BatteryOptimizationEnabled,
		loc.Settings.MaxHistoryItems,
	)
	if err != nil {
		return fmt.Errorf("create location: %w", err)
	}
	return nil
}

// UpdateCurrentPosition replaces the current position, appends it to the
// history, and trims the history to maxHistoryItems, all in one transaction.
// Oldest entries are evicted first.
func (s *LocationStore) UpdateCurrentPosition(ctx context.Context, professionalID string, pos types.GeoPosition, maxHistoryItems int) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin position update: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	updateQuery := `
		UPDATE professional_locations
		SET latitude = $2, longitude = $3, accuracy = $4, speed = $5, heading = $6,
		    recorded_at = $7, last_updated = NOW()
		WHERE professional_id = $1
	`
	tag, err := tx.Exec(ctx, updateQuery,
		professionalID, pos.Latitude, pos.Longitude, pos.Accuracy, pos.Speed, pos.Heading, pos.Timestamp)
	if err != nil {
		return fmt.Errorf("update current position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}

	appendQuery := `
		INSERT INTO location_history (professional_id, latitude, longitude, accuracy, speed, heading, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := tx.Exec(ctx, appendQuery,
		professionalID, pos.Latitude, pos.Longitude, pos.Accuracy, pos.Speed, pos.Heading, pos.Timestamp); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	// FIFO truncation: keep the newest maxHistoryItems rows.
	trimQuery := `
		DELETE FROM location_history
		WHERE professional_id = $1
		  AND id NOT IN (
			SELECT id FROM location_history
			WHERE professional_id = $1
			ORDER BY recorded_at DESC, id DESC
			LIMIT $2
		  )
	`
	if _, err := tx.Exec(ctx, trimQuery, professionalID, maxHistoryItems); err != nil {
		return fmt.Errorf("trim history: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit position update: %w", err)
	}
	return nil
}

func (s *LocationStore) UpdateStatus(ctx context.Context, professionalID string, status types.ProfessionalStatus) error {
	query := `
		UPDATE professional_locations
		SET status = $2, last_updated = NOW()
		WHERE professional_id = $1
	`
	tag, err := s.db.Exec(ctx, query, professionalID, status)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetTrackingEnabled flips the tracking flag. Disabling also forces the
// status to offline in the same statement.
func (s *LocationStore) SetTrackingEnabled(ctx context.Context, professionalID string, enabled bool) error {
	query := `
		UPDATE professional_locations
		SET tracking_enabled = $2,
		    status = CASE WHEN $2 THEN status ELSE 'offline' END,
		    last_updated = NOW()
		WHERE professional_id = $1
	`
	tag, err := s.db.Exec(ctx, query, professionalID, enabled)
	if err != nil {
		return fmt.Errorf("set tracking enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *LocationStore) UpdateSettings(ctx context.Context, professionalID string, settings types.TrackingSettings) error {
	query := `
		UPDATE professional_locations
		SET update_interval_ms = $2, significant_change_m = $3,
		    battery_optimization = $4, max_history_items = $5, last_updated = NOW()
		WHERE professional_id = $1
	`
	tag, err := s.db.Exec(ctx, query,
		professionalID,
		settings.UpdateIntervalMs,
		settings.SignificantChangeMeters,
		settings.BatteryOptimizationEnabled,
		settings.MaxHistoryItems,
	)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *LocationStore) GetHistory(ctx context.Context, professionalID string, limit int) ([]types.GeoPosition, error) {
	query := `
		SELECT latitude, longitude, accuracy, speed, heading, recorded_at
		FROM location_history
		WHERE professional_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, professionalID, limit)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	defer rows.Close()

	var history []types.GeoPosition
	for rows.Next() {
		var pos types.GeoPosition
		if err := rows.Scan(&pos.Latitude, &pos.Longitude, &pos.Accuracy, &pos.Speed, &pos.Heading, &pos.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		history = append(history, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return history, nil
}

// FindNearbyCandidates returns tracking-enabled records within a bounding
// box around the origin, joined with the minimal identity projection. Exact
// radius filtering and sorting happen in the proximity service.
func (s *LocationStore) FindNearbyCandidates(ctx context.Context, q types.NearbyQuery) ([]types.NearbyProfessional, error) {
	minLat, maxLat, minLon, maxLon := geo.BoundingBox(q.Latitude, q.Longitude, q.MaxDistanceM)
	if minLon < -180 || maxLon > 180 {
		// Box crosses the antimeridian; fall back to a full longitude scan.
		minLon, maxLon = -180, 180
	}

	query := `
		SELECT pl.professional_id, pl.latitude, pl.longitude, pl.accuracy, pl.speed, pl.heading,
		       pl.recorded_at, pl.status, u.name, u.phone, u.specialization, u.rating
		FROM professional_locations pl
		JOIN users u ON u.id = pl.professional_id
		WHERE pl.tracking_enabled = TRUE
		  AND pl.latitude BETWEEN $1 AND $2
		  AND pl.longitude BETWEEN $3 AND $4
		  AND ($5 = 'all' OR pl.status = $5)
		  AND (cardinality($6::text[]) = 0 OR u.services && $6::text[])
	`

	services := q.Services
	if services == nil {
		services = []string{}
	}

	rows, err := s.db.Query(ctx, query, minLat, maxLat, minLon, maxLon, q.Status, services)
	if err != nil {
		return nil, fmt.Errorf("find nearby candidates: %w", err)
	}
	defer rows.Close()

	var candidates []types.NearbyProfessional
	for rows.Next() {
		var c types.NearbyProfessional
		if err := rows.Scan(
			&c.ProfessionalID,
			&c.Position.Latitude,
			&c.Position.Longitude,
			&c.Position.Accuracy,
			&c.Position.Speed,
			&c.Position.Heading,
			&c.Position.Timestamp,
			&c.Status,
			&c.Name,
			&c.Phone,
			&c.Specialization,
			&c.Rating,
		); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return candidates, nil
}
