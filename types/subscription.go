package types

import "time"

// Subscription is a weak relation between a subscriber (usually a customer)
// and a professional whose live position they follow. Uniqueness is on the
// (SubscriberID, ProfessionalID) pair.
type Subscription struct {
	SubscriberID   string    `json:"subscriberId"`
	ProfessionalID string    `json:"professionalId"`
	CreatedAt      time.Time `json:"createdAt"`
}
