package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
	"github.com/mondokter/mondokter-backend/internal/domain/providers"
)

// MockAdapter provides deterministic scheduling for local development. It
// never talks to the network and remembers the bookings it created.
type MockAdapter struct {
	slotDuration time.Duration
	maxSlots     int

	mu       sync.Mutex
	bookings map[string]entities.BookingStatus
	nextID   int64
}

// NewMockAdapter creates a mock scheduling provider
func NewMockAdapter() providers.SchedulingProvider {
	return &MockAdapter{
		slotDuration: 30 * time.Minute,
		maxSlots:     6,
		bookings:     make(map[string]entities.BookingStatus),
		nextID:       1,
	}
}

// Name identifies the backing system
func (m *MockAdapter) Name() string {
	return "mock"
}

// CreateBooking returns a mock booking reference
func (m *MockAdapter) CreateBooking(ctx context.Context, req providers.BookingRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := fmt.Sprintf("mock-%d", m.nextID)
	m.nextID++
	m.bookings[id] = entities.BookingStatusPending
	return id, nil
}

// UpdateBookingStatus records the status change in memory
func (m *MockAdapter) UpdateBookingStatus(ctx context.Context, externalID string, status entities.BookingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.bookings[externalID]; !ok {
		return fmt.Errorf("mock booking %s not found", externalID)
	}
	m.bookings[externalID] = status
	return nil
}

// CancelBooking marks the mock booking cancelled
func (m *MockAdapter) CancelBooking(ctx context.Context, externalID string) error {
	return m.UpdateBookingStatus(ctx, externalID, entities.BookingStatusCancelled)
}

// GetAvailableSlots returns sample slots during working hours
func (m *MockAdapter) GetAvailableSlots(ctx context.Context, serviceExternalID, providerExternalID string, day time.Time) ([]providers.TimeSlot, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, day.Location())

	slots := make([]providers.TimeSlot, 0, m.maxSlots)
	cursor := start
	for len(slots) < m.maxSlots {
		slots = append(slots, providers.TimeSlot{
			Start:     cursor,
			End:       cursor.Add(m.slotDuration),
			Available: true,
		})
		cursor = cursor.Add(m.slotDuration)
	}

	return slots, nil
}
