package providers

import (
	"context"
	"time"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
)

// BookingRequest carries the details needed to create a booking with an
// external scheduling system. External ids are the provider's, not ours.
type BookingRequest struct {
	ServiceExternalID  string
	ProviderExternalID string
	ClientName         string
	ClientEmail        string
	ClientPhone        string
	StartTime          time.Time
	EndTime            time.Time
	Notes              string
}

// TimeSlot is a bookable window on a provider's calendar
type TimeSlot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// SchedulingProvider abstracts an external scheduling system. Implementations
// must be safe for concurrent use.
type SchedulingProvider interface {
	// CreateBooking creates a booking remotely and returns its external id
	CreateBooking(ctx context.Context, req BookingRequest) (string, error)

	// UpdateBookingStatus pushes a status change for an existing remote booking
	UpdateBookingStatus(ctx context.Context, externalID string, status entities.BookingStatus) error

	// CancelBooking cancels a remote booking
	CancelBooking(ctx context.Context, externalID string) error

	// GetAvailableSlots lists open slots for a service and provider on a day
	GetAvailableSlots(ctx context.Context, serviceExternalID, providerExternalID string, day time.Time) ([]TimeSlot, error)

	// Name identifies the backing system, for logs and health output
	Name() string
}
