package entities

import (
	"strings"
	"time"
)

// BookingStatus is the lifecycle state of a booking as stored locally.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusAccepted  BookingStatus = "ACCEPTED"
	BookingStatusDeclined  BookingStatus = "DECLINED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusCompleted BookingStatus = "COMPLETED"
)

// BookingStatusFromRemote translates a scheduling-provider status string
// into the local vocabulary. Unknown values fall back to PENDING so a new
// remote state never breaks ingestion.
func BookingStatusFromRemote(s string) BookingStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return BookingStatusPending
	case "confirmed":
		return BookingStatusAccepted
	case "cancelled", "canceled":
		return BookingStatusCancelled
	case "completed":
		return BookingStatusCompleted
	case "declined":
		return BookingStatusDeclined
	default:
		return BookingStatusPending
	}
}

// RemoteValue translates the local status into the scheduling provider's
// lowercase vocabulary.
func (s BookingStatus) RemoteValue() string {
	switch s {
	case BookingStatusAccepted:
		return "confirmed"
	case BookingStatusCancelled:
		return "cancelled"
	case BookingStatusCompleted:
		return "completed"
	case BookingStatusDeclined:
		return "declined"
	default:
		return "pending"
	}
}

// Valid reports whether s is one of the known lifecycle states.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusAccepted, BookingStatusDeclined,
		BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// StatusForEvent resolves the status a webhook event implies. Lifecycle
// events carry their own terminal state; creation and confirmation events
// defer to the status field in the payload. The second return value is
// false for event types the system does not recognize.
func StatusForEvent(eventType, payloadStatus string) (BookingStatus, bool) {
	switch eventType {
	case "booking_created", "booking_confirmed":
		return BookingStatusFromRemote(payloadStatus), true
	case "booking_cancelled":
		return BookingStatusCancelled, true
	case "booking_rescheduled":
		return BookingStatusAccepted, true
	case "booking_completed":
		return BookingStatusCompleted, true
	default:
		return "", false
	}
}

// Booking is an appointment held by a patient with a provider. SimplybookID
// links it to the external scheduling system when the booking is synced.
type Booking struct {
	ID           string        `json:"id" db:"id"`
	SimplybookID *string       `json:"simplybook_id,omitempty" db:"simplybook_id"`
	ServiceID    string        `json:"service_id" db:"service_id"`
	ProviderID   string        `json:"provider_id" db:"provider_id"`
	ClientName   string        `json:"client_name" db:"client_name"`
	ClientEmail  string        `json:"client_email" db:"client_email"`
	ClientPhone  string        `json:"client_phone" db:"client_phone"`
	StartTime    time.Time     `json:"start_time" db:"start_time"`
	EndTime      time.Time     `json:"end_time" db:"end_time"`
	Status       BookingStatus `json:"status" db:"status"`
	Notes        string        `json:"notes" db:"notes"`
	LastEventAt  *time.Time    `json:"last_event_at,omitempty" db:"last_event_at"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}
