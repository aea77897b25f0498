package types

import (
	"encoding/json"
	"time"
)

// NotificationType classifies notification records for client rendering.
type NotificationType string

const (
	NotificationLocationUpdate    NotificationType = "LOCATION_UPDATE"
	NotificationSubscriberAdded   NotificationType = "SUBSCRIBER_ADDED"
	NotificationSubscriberRemoved NotificationType = "SUBSCRIBER_REMOVED"
)

// Notification is a persisted notification record. Push delivery is handled
// separately by the dispatch collaborator; the record exists regardless of
// whether the push attempt succeeds.
type Notification struct {
	ID           string           `json:"id"`
	UserID       string           `json:"userId"`
	Title        string           `json:"title"`
	Message      string           `json:"message"`
	Type         NotificationType `json:"type"`
	ActionParams json.RawMessage  `json:"actionParams,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
}

// DeviceType represents the platform a push token belongs to.
type DeviceType string

const (
	DeviceTypeIOS     DeviceType = "ios"
	DeviceTypeAndroid DeviceType = "android"
)

// PushToken is a registered device token. Registration and invalidation
// flows live outside this subsystem; dispatch only reads active tokens.
type PushToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Token      string     `json:"token"`
	DeviceType DeviceType `json:"deviceType"`
	IsActive   bool       `json:"isActive"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}
