package entities

import "time"

// BookingEvent is published on the event bus whenever a booking changes,
// whether through the API or an inbound webhook. Staff dashboards consume
// these over SSE.
type BookingEvent struct {
	Type       string        `json:"type"`
	BookingID  string        `json:"booking_id"`
	ProviderID string        `json:"provider_id"`
	ServiceID  string        `json:"service_id"`
	Status     BookingStatus `json:"status"`
	Source     string        `json:"source"`
	OccurredAt time.Time     `json:"occurred_at"`
}

const (
	BookingEventCreated = "booking.created"
	BookingEventUpdated = "booking.updated"
)

const (
	BookingEventSourceAPI     = "api"
	BookingEventSourceWebhook = "webhook"
)
