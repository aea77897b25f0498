package types

import (
	"time"
)

// ProfessionalStatus represents a professional's availability for new jobs.
type ProfessionalStatus string

const (
	StatusAvailable ProfessionalStatus = "available"
	StatusBusy      ProfessionalStatus = "busy"
	StatusOffline   ProfessionalStatus = "offline"

	// StatusFilterAll is the sentinel accepted by nearby queries to skip
	// status filtering entirely.
	StatusFilterAll = "all"
)

// IsValid reports whether s is one of the known statuses.
func (s ProfessionalStatus) IsValid() bool {
	switch s {
	case StatusAvailable, StatusBusy, StatusOffline:
		return true
	}
	return false
}

// GeoPosition is a single reported position fix.
type GeoPosition struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Speed     float64   `json:"speed"`
	Heading   float64   `json:"heading"`
	Timestamp time.Time `json:"timestamp"`
}

// TrackingSettings controls how a professional's device reports positions
// and how much history the backend retains for them.
type TrackingSettings struct {
	UpdateIntervalMs           int  `json:"updateIntervalMs"`
	SignificantChangeMeters    int  `json:"significantChangeMeters"`
	BatteryOptimizationEnabled bool `json:"batteryOptimizationEnabled"`
	MaxHistoryItems            int  `json:"maxHistoryItems"`
}

// TrackingSettingsUpdate is a partial settings change. Nil fields are left
// untouched by the merge.
type TrackingSettingsUpdate struct {
	UpdateIntervalMs           *int  `json:"updateIntervalMs"`
	SignificantChangeMeters    *int  `json:"significantChangeMeters"`
	BatteryOptimizationEnabled *bool `json:"batteryOptimizationEnabled"`
	MaxHistoryItems            *int  `json:"maxHistoryItems"`
}

// ProfessionalLocation is the durable, authoritative location record for a
// professional. History is bounded to Settings.MaxHistoryItems with FIFO
// truncation.
type ProfessionalLocation struct {
	ProfessionalID  string             `json:"professionalId"`
	Current         GeoPosition        `json:"current"`
	Status          ProfessionalStatus `json:"status"`
	TrackingEnabled bool               `json:"trackingEnabled"`
	Settings        TrackingSettings   `json:"settings"`
	LastUpdated     time.Time          `json:"lastUpdated"`
}

// PositionUpdate is the payload a professional's device sends on each fix.
type PositionUpdate struct {
	Latitude  float64 `json:"latitude" binding:"required"`
	Longitude float64 `json:"longitude" binding:"required"`
	Accuracy  float64 `json:"accuracy"`
	Speed     float64 `json:"speed"`
	Heading   float64 `json:"heading"`
	Timestamp int64   `json:"timestamp"` // Unix timestamp in milliseconds
}

// NearbyQuery describes a proximity search around an origin point.
type NearbyQuery struct {
	Latitude     float64
	Longitude    float64
	MaxDistanceM float64
	Status       string   // a ProfessionalStatus or StatusFilterAll
	Services     []string // optional service/specialty filter
}

// NearbyProfessional is one proximity-search result: the professional's
// current position joined with a minimal identity projection, never the
// full identity record.
type NearbyProfessional struct {
	ProfessionalID string             `json:"professionalId"`
	Name           string             `json:"name"`
	Phone          string             `json:"phone"`
	Specialization string             `json:"specialization"`
	Rating         float64            `json:"rating"`
	Status         ProfessionalStatus `json:"status"`
	Position       GeoPosition        `json:"position"`
	DistanceKm     float64            `json:"distanceKm"` // rounded to 2 decimals
}
