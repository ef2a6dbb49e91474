package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mondokter/mondokter-backend/internal/domain/entities"
	"github.com/mondokter/mondokter-backend/internal/domain/providers"
	"github.com/mondokter/mondokter-backend/internal/domain/repositories"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/observability"
	apperrors "github.com/mondokter/mondokter-backend/pkg/errors"
	"github.com/rs/zerolog/log"
)

// BookingNotifier sends booking notifications
type BookingNotifier interface {
	NotifyBookingCreated(ctx context.Context, booking *entities.Booking) error
	NotifyBookingStatus(ctx context.Context, booking *entities.Booking) error
}

// BookingService handles booking lifecycle logic. The local database is
// authoritative: every write lands there first, and the external scheduling
// system is synced best-effort afterwards. A remote failure is logged and
// never rolls back local state.
type BookingService struct {
	repo         repositories.BookingRepository
	serviceRepo  repositories.ServiceRepository
	providerRepo repositories.ProviderRepository
	scheduler    providers.SchedulingProvider
	eventBus     providers.EventBus
	notifier     BookingNotifier
	metrics      *observability.Metrics
}

// NewBookingService creates a new booking service
func NewBookingService(
	repo repositories.BookingRepository,
	serviceRepo repositories.ServiceRepository,
	providerRepo repositories.ProviderRepository,
	scheduler providers.SchedulingProvider,
	eventBus providers.EventBus,
	notifier BookingNotifier,
	metrics *observability.Metrics,
) *BookingService {
	return &BookingService{
		repo:         repo,
		serviceRepo:  serviceRepo,
		providerRepo: providerRepo,
		scheduler:    scheduler,
		eventBus:     eventBus,
		notifier:     notifier,
		metrics:      metrics,
	}
}

// CreateBookingInput carries a patient's booking request
type CreateBookingInput struct {
	ServiceID   string    `json:"service_id"`
	ProviderID  string    `json:"provider_id"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email"`
	ClientPhone string    `json:"client_phone"`
	StartTime   time.Time `json:"start_time"`
	Notes       string    `json:"notes"`
}

// CreateBooking validates and persists a booking, then syncs it to the
// scheduling system in the background of the same call.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*entities.Booking, error) {
	if input.ClientName == "" || input.ClientEmail == "" {
		return nil, apperrors.NewValidationError("client name and email are required")
	}
	if !input.StartTime.After(time.Now()) {
		return nil, apperrors.NewValidationError("booking start time must be in the future")
	}

	provider, err := s.providerRepo.GetByID(ctx, input.ProviderID)
	if err != nil {
		return nil, err
	}
	if !provider.Approved() {
		return nil, apperrors.NewValidationError("provider is not accepting bookings")
	}

	service, err := s.serviceRepo.GetByID(ctx, input.ServiceID)
	if err != nil {
		return nil, err
	}
	if !service.Active {
		return nil, apperrors.NewValidationError("service is not available for booking")
	}
	if service.ProviderID != provider.ID {
		return nil, apperrors.NewValidationError("service does not belong to the selected provider")
	}

	now := time.Now().UTC()
	booking := &entities.Booking{
		ID:          uuid.New().String(),
		ServiceID:   service.ID,
		ProviderID:  provider.ID,
		ClientName:  input.ClientName,
		ClientEmail: input.ClientEmail,
		ClientPhone: input.ClientPhone,
		StartTime:   input.StartTime,
		EndTime:     input.StartTime.Add(time.Duration(service.DurationMinutes) * time.Minute),
		Status:      entities.BookingStatusPending,
		Notes:       input.Notes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.syncRemoteCreate(ctx, booking, service, provider)
	s.publish(ctx, booking, entities.BookingEventCreated)

	if s.notifier != nil {
		if err := s.notifier.NotifyBookingCreated(ctx, booking); err != nil {
			log.Warn().Err(err).Str("booking_id", booking.ID).Msg("booking notification failed")
		}
	}

	return booking, nil
}

// syncRemoteCreate pushes a new booking to the scheduling system. Failures
// are logged; the local booking stands either way.
func (s *BookingService) syncRemoteCreate(ctx context.Context, booking *entities.Booking, service *entities.Service, provider *entities.Provider) {
	if s.scheduler == nil {
		return
	}
	if service.SimplybookServiceID == nil || provider.SimplybookUnitID == nil {
		log.Debug().Str("booking_id", booking.ID).Msg("no scheduling ids configured, skipping remote sync")
		return
	}

	externalID, err := s.scheduler.CreateBooking(ctx, providers.BookingRequest{
		ServiceExternalID:  *service.SimplybookServiceID,
		ProviderExternalID: *provider.SimplybookUnitID,
		ClientName:         booking.ClientName,
		ClientEmail:        booking.ClientEmail,
		ClientPhone:        booking.ClientPhone,
		StartTime:          booking.StartTime,
		EndTime:            booking.EndTime,
		Notes:              booking.Notes,
	})
	s.recordSync(ctx, "create", err == nil)
	if err != nil {
		log.Warn().Err(err).Str("booking_id", booking.ID).Msg("remote booking creation failed, local booking kept")
		return
	}

	if err := s.repo.SetSimplybookID(ctx, booking.ID, externalID); err != nil {
		log.Warn().Err(err).Str("booking_id", booking.ID).Msg("failed to record remote booking id")
		return
	}
	booking.SimplybookID = &externalID
}

// GetBooking returns one booking
func (s *BookingService) GetBooking(ctx context.Context, id string) (*entities.Booking, error) {
	return s.repo.GetByID(ctx, id)
}

// ListBookings returns a provider's bookings, newest first
func (s *BookingService) ListBookings(ctx context.Context, providerID string, limit, offset int) ([]*entities.Booking, error) {
	return s.repo.ListByProvider(ctx, providerID, limit, offset)
}

// UpdateStatus transitions a booking locally, then pushes the change to the
// scheduling system best-effort.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, status entities.BookingStatus) (*entities.Booking, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("unknown booking status: " + string(status))
	}

	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	booking.Status = status
	booking.UpdatedAt = time.Now().UTC()

	if s.scheduler != nil && booking.SimplybookID != nil {
		var syncErr error
		operation := "set_status"
		if status == entities.BookingStatusCancelled {
			operation = "cancel"
			syncErr = s.scheduler.CancelBooking(ctx, *booking.SimplybookID)
		} else {
			syncErr = s.scheduler.UpdateBookingStatus(ctx, *booking.SimplybookID, status)
		}
		s.recordSync(ctx, operation, syncErr == nil)
		if syncErr != nil {
			log.Warn().Err(syncErr).Str("booking_id", booking.ID).Msg("remote status sync failed, local status kept")
		}
	}

	s.publish(ctx, booking, entities.BookingEventUpdated)

	if s.notifier != nil {
		if err := s.notifier.NotifyBookingStatus(ctx, booking); err != nil {
			log.Warn().Err(err).Str("booking_id", booking.ID).Msg("status notification failed")
		}
	}

	return booking, nil
}

// GetAvailability returns bookable slots for a service and provider on a day
func (s *BookingService) GetAvailability(ctx context.Context, serviceID, providerID string, day time.Time) ([]providers.TimeSlot, error) {
	if s.scheduler == nil {
		return nil, apperrors.NewInternalError("scheduling provider not configured", nil)
	}

	provider, err := s.providerRepo.GetByID(ctx, providerID)
	if err != nil {
		return nil, err
	}
	service, err := s.serviceRepo.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	serviceExt := ""
	if service.SimplybookServiceID != nil {
		serviceExt = *service.SimplybookServiceID
	}
	providerExt := ""
	if provider.SimplybookUnitID != nil {
		providerExt = *provider.SimplybookUnitID
	}

	return s.scheduler.GetAvailableSlots(ctx, serviceExt, providerExt, day)
}

func (s *BookingService) recordSync(ctx context.Context, operation string, success bool) {
	if s.metrics == nil {
		return
	}
	observability.RecordRemoteSyncMetric(ctx, s.metrics, operation, success)
}

func (s *BookingService) publish(ctx context.Context, booking *entities.Booking, eventType string) {
	if s.eventBus == nil {
		return
	}
	event := entities.BookingEvent{
		Type:       eventType,
		BookingID:  booking.ID,
		ProviderID: booking.ProviderID,
		ServiceID:  booking.ServiceID,
		Status:     booking.Status,
		Source:     entities.BookingEventSourceAPI,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.eventBus.Publish(ctx, event); err != nil {
		log.Warn().Err(err).Str("booking_id", booking.ID).Msg("failed to publish booking event")
	}
}
