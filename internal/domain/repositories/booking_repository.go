package repositories

import (
	"context"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
)

// BookingRepository provides access to booking data
type BookingRepository interface {
	// GetByID retrieves a booking by its id
	GetByID(ctx context.Context, id string) (*entities.Booking, error)

	// GetBySimplybookID retrieves a booking by its external scheduling id
	GetBySimplybookID(ctx context.Context, simplybookID string) (*entities.Booking, error)

	// ListByProvider retrieves bookings for a provider, newest first
	ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]*entities.Booking, error)

	// Create persists a new booking
	Create(ctx context.Context, booking *entities.Booking) error

	// UpdateStatus transitions a booking to a new status
	UpdateStatus(ctx context.Context, id string, status entities.BookingStatus) error

	// SetSimplybookID records the external id after a successful remote sync
	SetSimplybookID(ctx context.Context, id, simplybookID string) error
}
