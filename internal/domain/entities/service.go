package entities

import (
	"fmt"
	"time"
)

// Service is a bookable medical service offered by a provider.
type Service struct {
	ID                  string    `json:"id" db:"id"`
	ProviderID          string    `json:"provider_id" db:"provider_id"`
	SimplybookServiceID *string   `json:"simplybook_service_id,omitempty" db:"simplybook_service_id"`
	Name                string    `json:"name" db:"name"`
	Description         string    `json:"description" db:"description"`
	DurationMinutes     int       `json:"duration_minutes" db:"duration_minutes"`
	PriceCents          int64     `json:"price_cents" db:"price_cents"`
	Currency            string    `json:"currency" db:"currency"`
	Active              bool      `json:"active" db:"active"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

// PlaceholderServiceName names a service created automatically when a
// webhook references an external service id not yet known locally. Staff
// rename it afterwards.
func PlaceholderServiceName(externalID int64) string {
	return fmt.Sprintf("SimplyBook Service %d", externalID)
}

// NewPlaceholderService builds the inactive stub service used when ingesting
// bookings for an unknown external service id.
func NewPlaceholderService(id, providerID string, externalID int64) *Service {
	ext := fmt.Sprintf("%d", externalID)
	now := time.Now().UTC()
	return &Service{
		ID:                  id,
		ProviderID:          providerID,
		SimplybookServiceID: &ext,
		Name:                PlaceholderServiceName(externalID),
		DurationMinutes:     30,
		PriceCents:          0,
		Currency:            "SCR",
		Active:              false,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}
