package services

import (
	"context"
	"fmt"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
	"github.com/rs/zerolog/log"
)

// MessageSender delivers a text message to a phone number
type MessageSender interface {
	SendText(to, body string) (string, error)
}

// NotificationService sends booking notifications over WhatsApp. A nil
// sender disables delivery without changing any call sites.
type NotificationService struct {
	sender MessageSender
}

// NewNotificationService creates a new notification service
func NewNotificationService(sender MessageSender) *NotificationService {
	return &NotificationService{sender: sender}
}

// NotifyBookingCreated tells the patient their booking was received
func (s *NotificationService) NotifyBookingCreated(ctx context.Context, booking *entities.Booking) error {
	if s.sender == nil || booking.ClientPhone == "" {
		return nil
	}

	body := fmt.Sprintf(
		"Hello %s, your booking request for %s has been received. We will confirm it shortly.",
		booking.ClientName,
		booking.StartTime.Format("Mon 2 Jan 15:04"),
	)
	return s.send(booking, body)
}

// NotifyBookingStatus tells the patient about a status change
func (s *NotificationService) NotifyBookingStatus(ctx context.Context, booking *entities.Booking) error {
	if s.sender == nil || booking.ClientPhone == "" {
		return nil
	}

	var body string
	switch booking.Status {
	case entities.BookingStatusAccepted:
		body = fmt.Sprintf(
			"Hello %s, your appointment on %s is confirmed.",
			booking.ClientName,
			booking.StartTime.Format("Mon 2 Jan 15:04"),
		)
	case entities.BookingStatusCancelled:
		body = fmt.Sprintf(
			"Hello %s, your appointment on %s has been cancelled.",
			booking.ClientName,
			booking.StartTime.Format("Mon 2 Jan 15:04"),
		)
	case entities.BookingStatusDeclined:
		body = fmt.Sprintf(
			"Hello %s, unfortunately your appointment request for %s could not be accommodated.",
			booking.ClientName,
			booking.StartTime.Format("Mon 2 Jan 15:04"),
		)
	default:
		return nil
	}

	return s.send(booking, body)
}

func (s *NotificationService) send(booking *entities.Booking, body string) error {
	messageID, err := s.sender.SendText(booking.ClientPhone, body)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	log.Debug().
		Str("booking_id", booking.ID).
		Str("message_id", messageID).
		Msg("notification sent")
	return nil
}
