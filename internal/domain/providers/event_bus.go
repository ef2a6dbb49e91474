package providers

import (
	"context"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
)

// EventBus distributes booking events to in-process subscribers. Publishing
// never blocks on slow consumers.
type EventBus interface {
	// Publish broadcasts a booking event
	Publish(ctx context.Context, event entities.BookingEvent) error

	// Subscribe returns a channel of events and an unsubscribe function
	Subscribe(ctx context.Context) (<-chan entities.BookingEvent, func(), error)

	// Close shuts the bus down and releases its subscribers
	Close() error
}
