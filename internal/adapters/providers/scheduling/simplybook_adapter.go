package scheduling

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
	"github.com/mondokter/mondokter-backend/internal/domain/providers"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/clients/simplybook"
)

// SimplybookAdapter implements SchedulingProvider against the SimplyBook API
type SimplybookAdapter struct {
	client *simplybook.Client
}

// NewSimplybookAdapter creates a new SimplyBook adapter
func NewSimplybookAdapter(client *simplybook.Client) providers.SchedulingProvider {
	return &SimplybookAdapter{client: client}
}

// Name identifies the backing system
func (a *SimplybookAdapter) Name() string {
	return "simplybook"
}

// CreateBooking creates a booking remotely and returns its external id
func (a *SimplybookAdapter) CreateBooking(ctx context.Context, req providers.BookingRequest) (string, error) {
	eventID, err := parseExternalID(req.ServiceExternalID, "service")
	if err != nil {
		return "", err
	}
	unitID, err := parseExternalID(req.ProviderExternalID, "provider")
	if err != nil {
		return "", err
	}

	id, err := a.client.AddBooking(ctx, eventID, unitID, req.StartTime, simplybook.ClientData{
		Name:  req.ClientName,
		Email: req.ClientEmail,
		Phone: req.ClientPhone,
	}, req.Notes)
	if err != nil {
		return "", err
	}

	return strconv.FormatInt(id, 10), nil
}

// UpdateBookingStatus pushes a status change for an existing remote booking
func (a *SimplybookAdapter) UpdateBookingStatus(ctx context.Context, externalID string, status entities.BookingStatus) error {
	bookingID, err := parseExternalID(externalID, "booking")
	if err != nil {
		return err
	}

	if status == entities.BookingStatusCancelled {
		return a.client.CancelBooking(ctx, bookingID)
	}
	return a.client.EditBookingStatus(ctx, bookingID, status.RemoteValue())
}

// CancelBooking cancels a remote booking
func (a *SimplybookAdapter) CancelBooking(ctx context.Context, externalID string) error {
	bookingID, err := parseExternalID(externalID, "booking")
	if err != nil {
		return err
	}
	return a.client.CancelBooking(ctx, bookingID)
}

// GetAvailableSlots lists open slots for a service and provider on a day
func (a *SimplybookAdapter) GetAvailableSlots(ctx context.Context, serviceExternalID, providerExternalID string, day time.Time) ([]providers.TimeSlot, error) {
	eventID, err := parseExternalID(serviceExternalID, "service")
	if err != nil {
		return nil, err
	}
	unitID, err := parseExternalID(providerExternalID, "provider")
	if err != nil {
		return nil, err
	}

	starts, err := a.client.GetStartTimeMatrix(ctx, eventID, unitID, day)
	if err != nil {
		return nil, err
	}

	slots := make([]providers.TimeSlot, 0, len(starts))
	for _, start := range starts {
		t, err := time.ParseInLocation("15:04:05", start, day.Location())
		if err != nil {
			// The API occasionally returns HH:MM without seconds.
			t, err = time.ParseInLocation("15:04", start, day.Location())
			if err != nil {
				continue
			}
		}
		slotStart := time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, day.Location())
		slots = append(slots, providers.TimeSlot{
			Start:     slotStart,
			End:       slotStart.Add(30 * time.Minute),
			Available: true,
		})
	}

	return slots, nil
}

func parseExternalID(raw, kind string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", ErrMissingExternalID, kind)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s external id %q: %w", kind, raw, err)
	}
	return id, nil
}
