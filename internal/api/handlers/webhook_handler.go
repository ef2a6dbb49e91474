package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
	"github.com/mondokter/mondokter-backend/internal/domain/providers"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/observability"
	"github.com/mondokter/mondokter-backend/pkg/config"
)

// BookingNotifier sends booking notifications after webhook processing
type BookingNotifier interface {
	NotifyBookingStatus(ctx context.Context, booking *entities.Booking) error
}

// SimplybookWebhookHandler ingests booking events pushed by SimplyBook.
// Every delivery is recorded in webhook_events before processing, so failed
// deliveries stay inspectable. Deliveries are not deduplicated: replaying
// an event re-applies the same state, which the timestamp guard on the
// booking upsert keeps safe.
type SimplybookWebhookHandler struct {
	db               *sqlx.DB
	notifier         BookingNotifier
	eventBus         providers.EventBus
	metrics          *observability.Metrics
	signingSecret    string
	requireSignature bool
}

// NewSimplybookWebhookHandler creates a new webhook handler
func NewSimplybookWebhookHandler(db *sqlx.DB, notifier BookingNotifier, eventBus providers.EventBus, metrics *observability.Metrics, cfg *config.WebhookConfig) *SimplybookWebhookHandler {
	return &SimplybookWebhookHandler{
		db:               db,
		notifier:         notifier,
		eventBus:         eventBus,
		metrics:          metrics,
		signingSecret:    cfg.SigningSecret,
		requireSignature: cfg.RequireSignature,
	}
}

// SimplybookWebhookEvent represents the incoming webhook payload
type SimplybookWebhookEvent struct {
	EventType     string `json:"event_type"`
	BookingID     int64  `json:"booking_id"`
	ServiceID     int64  `json:"service_id"`
	ProviderID    int64  `json:"provider_id"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	ClientPhone   string `json:"client_phone"`
	StartDateTime string `json:"start_date_time"`
	EndDateTime   string `json:"end_date_time"`
	Status        string `json:"status"`
	Notes         string `json:"notes"`
	Company       string `json:"company"`
	Timestamp     string `json:"timestamp"`
}

// HandleChallenge answers SimplyBook's endpoint verification probe by
// echoing the challenge parameter back as plain text.
func (h *SimplybookWebhookHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	challenge := r.URL.Query().Get("challenge")
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, challenge)
}

// HandleWebhook processes incoming SimplyBook webhooks
func (h *SimplybookWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Interface("panic", rec).Msg("webhook handler panicked")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.recordDelivery(ctx, "", true)
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	if !h.verifySignature(r, body) {
		h.recordDelivery(ctx, "", true)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var event SimplybookWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.recordDelivery(ctx, "", true)
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if event.BookingID == 0 {
		h.recordDelivery(ctx, event.EventType, true)
		http.Error(w, "Missing booking_id", http.StatusBadRequest)
		return
	}

	eventID := uuid.New().String()
	if err := h.storeWebhookEvent(ctx, eventID, &event, body); err != nil {
		logger.Warn().Err(err).Msg("failed to store webhook event")
	}

	status, known := entities.StatusForEvent(event.EventType, event.Status)
	if !known {
		// Unknown event types are acknowledged without touching bookings,
		// so SimplyBook does not retry them forever.
		logger.Info().Str("event_type", event.EventType).Msg("ignoring unhandled webhook event type")
		h.recordDelivery(ctx, event.EventType, false)
		h.markEventProcessed(ctx, eventID)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ignored"})
		return
	}

	providerID, err := h.resolveProvider(ctx, event.Company)
	if err != nil {
		h.recordDelivery(ctx, event.EventType, true)
		h.markEventFailed(ctx, eventID, err)
		http.Error(w, fmt.Sprintf("Unknown integration: %v", err), http.StatusNotFound)
		return
	}

	serviceID, err := h.resolveService(ctx, providerID, event.ServiceID)
	if err != nil {
		h.recordDelivery(ctx, event.EventType, true)
		h.markEventFailed(ctx, eventID, err)
		http.Error(w, fmt.Sprintf("Processing error: %v", err), http.StatusInternalServerError)
		return
	}

	booking, err := h.upsertBooking(ctx, providerID, serviceID, &event, status)
	if err != nil {
		h.recordDelivery(ctx, event.EventType, true)
		h.markEventFailed(ctx, eventID, err)
		http.Error(w, fmt.Sprintf("Processing error: %v", err), http.StatusInternalServerError)
		return
	}

	h.recordDelivery(ctx, event.EventType, false)
	h.markEventProcessed(ctx, eventID)

	if h.eventBus != nil {
		busEvent := entities.BookingEvent{
			Type:       entities.BookingEventUpdated,
			BookingID:  booking.ID,
			ProviderID: booking.ProviderID,
			ServiceID:  booking.ServiceID,
			Status:     booking.Status,
			Source:     entities.BookingEventSourceWebhook,
			OccurredAt: time.Now().UTC(),
		}
		if err := h.eventBus.Publish(ctx, busEvent); err != nil {
			logger.Warn().Err(err).Str("booking_id", booking.ID).Msg("failed to publish booking event")
		}
	}

	if h.notifier != nil {
		if err := h.notifier.NotifyBookingStatus(ctx, booking); err != nil {
			// Notification failure is not critical, the webhook succeeded.
			logger.Warn().Err(err).Str("booking_id", booking.ID).Msg("failed to send booking notification")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"event_type": event.EventType,
		"booking_id": event.BookingID,
	})
}

func (h *SimplybookWebhookHandler) recordDelivery(ctx context.Context, eventType string, failed bool) {
	if h.metrics == nil {
		return
	}
	observability.RecordWebhookMetric(ctx, h.metrics, eventType, failed)
}

// verifySignature checks the HMAC signature when one was sent. Unsigned
// deliveries pass unless signature enforcement is switched on.
func (h *SimplybookWebhookHandler) verifySignature(r *http.Request, body []byte) bool {
	signature := r.Header.Get("X-Simplybook-Signature")
	if signature == "" {
		return !h.requireSignature
	}
	if h.signingSecret == "" {
		return !h.requireSignature
	}

	mac := hmac.New(sha256.New, []byte(h.signingSecret))
	mac.Write(body)
	expectedSignature := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(signature), []byte(expectedSignature))
}

// resolveProvider maps the webhook's company alias to a local provider via
// its active integration record.
func (h *SimplybookWebhookHandler) resolveProvider(ctx context.Context, company string) (string, error) {
	if company == "" {
		return "", fmt.Errorf("webhook payload has no company alias")
	}

	var providerID string
	query := `
		SELECT p.id FROM providers p
		JOIN integrations i ON i.provider_id = p.id
		WHERE i.company_alias = $1 AND i.type = 'simplybook' AND i.active = true
		LIMIT 1
	`
	err := h.db.GetContext(ctx, &providerID, query, company)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("no active integration for company %q", company)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve integration: %w", err)
	}
	return providerID, nil
}

// resolveService finds the local service for the external service id,
// creating an inactive placeholder when none exists yet.
func (h *SimplybookWebhookHandler) resolveService(ctx context.Context, providerID string, externalServiceID int64) (string, error) {
	ext := strconv.FormatInt(externalServiceID, 10)

	var serviceID string
	query := `SELECT id FROM services WHERE provider_id = $1 AND simplybook_service_id = $2 LIMIT 1`
	err := h.db.GetContext(ctx, &serviceID, query, providerID, ext)
	if err == nil {
		return serviceID, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up service: %w", err)
	}

	placeholder := entities.NewPlaceholderService(uuid.New().String(), providerID, externalServiceID)
	insert := `
		INSERT INTO services (id, provider_id, simplybook_service_id, name, description,
			duration_minutes, price_cents, currency, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = h.db.ExecContext(ctx, insert,
		placeholder.ID, placeholder.ProviderID, placeholder.SimplybookServiceID,
		placeholder.Name, placeholder.Description, placeholder.DurationMinutes,
		placeholder.PriceCents, placeholder.Currency, placeholder.Active,
		placeholder.CreatedAt, placeholder.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create placeholder service: %w", err)
	}

	log.Info().
		Str("service_id", placeholder.ID).
		Int64("external_id", externalServiceID).
		Msg("created placeholder service from webhook")
	return placeholder.ID, nil
}

// upsertBooking inserts or updates the booking keyed by its external id.
// The last_event_at guard rejects deliveries older than what is already
// stored, so out-of-order webhooks cannot roll a booking backwards.
func (h *SimplybookWebhookHandler) upsertBooking(ctx context.Context, providerID, serviceID string, event *SimplybookWebhookEvent, status entities.BookingStatus) (*entities.Booking, error) {
	startTime, err := parseEventTime(event.StartDateTime)
	if err != nil || startTime.IsZero() {
		return nil, fmt.Errorf("invalid start_date_time %q: %v", event.StartDateTime, err)
	}
	endTime, err := parseEventTime(event.EndDateTime)
	if err != nil || endTime.IsZero() {
		endTime = startTime.Add(30 * time.Minute)
	}

	eventTime, err := parseEventTime(event.Timestamp)
	if err != nil || eventTime.IsZero() {
		eventTime = time.Now().UTC()
	}

	simplybookID := strconv.FormatInt(event.BookingID, 10)
	now := time.Now().UTC()

	query := `
		INSERT INTO bookings (id, simplybook_id, service_id, provider_id,
			client_name, client_email, client_phone, start_time, end_time,
			status, notes, last_event_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (simplybook_id) DO UPDATE SET
			client_name = EXCLUDED.client_name,
			client_email = EXCLUDED.client_email,
			client_phone = EXCLUDED.client_phone,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			status = EXCLUDED.status,
			notes = EXCLUDED.notes,
			last_event_at = EXCLUDED.last_event_at,
			updated_at = EXCLUDED.updated_at
		WHERE bookings.last_event_at IS NULL OR bookings.last_event_at <= EXCLUDED.last_event_at
		RETURNING id
	`

	var bookingID string
	err = h.db.QueryRowContext(ctx, query,
		uuid.New().String(), simplybookID, serviceID, providerID,
		event.ClientName, event.ClientEmail, event.ClientPhone,
		startTime, endTime, status, event.Notes, eventTime, now, now,
	).Scan(&bookingID)

	if err == sql.ErrNoRows {
		// The guard rejected a stale delivery. Report the stored booking.
		log.Info().
			Str("simplybook_id", simplybookID).
			Msg("skipped stale webhook delivery")
		return h.getBookingBySimplybookID(ctx, simplybookID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to upsert booking: %w", err)
	}

	return &entities.Booking{
		ID:          bookingID,
		ServiceID:   serviceID,
		ProviderID:  providerID,
		ClientName:  event.ClientName,
		ClientEmail: event.ClientEmail,
		ClientPhone: event.ClientPhone,
		StartTime:   startTime,
		EndTime:     endTime,
		Status:      status,
		Notes:       event.Notes,
		LastEventAt: &eventTime,
		UpdatedAt:   now,
	}, nil
}

// getBookingBySimplybookID loads the stored booking in full, so downstream
// notifications see the real client details and times, not the rejected
// delivery's.
func (h *SimplybookWebhookHandler) getBookingBySimplybookID(ctx context.Context, simplybookID string) (*entities.Booking, error) {
	var booking entities.Booking
	query := `
		SELECT id, simplybook_id, service_id, provider_id, client_name, client_email,
			client_phone, start_time, end_time, status, notes, last_event_at,
			created_at, updated_at
		FROM bookings WHERE simplybook_id = $1 LIMIT 1
	`
	if err := h.db.GetContext(ctx, &booking, query, simplybookID); err != nil {
		return nil, fmt.Errorf("failed to load booking after stale delivery: %w", err)
	}
	return &booking, nil
}

// Database operations
func (h *SimplybookWebhookHandler) storeWebhookEvent(ctx context.Context, eventID string, event *SimplybookWebhookEvent, body []byte) error {
	query := `
		INSERT INTO webhook_events (id, provider, event_type, payload, processed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := h.db.ExecContext(ctx, query, eventID, "simplybook", event.EventType, body, false, time.Now())
	return err
}

func (h *SimplybookWebhookHandler) markEventProcessed(ctx context.Context, eventID string) {
	query := `UPDATE webhook_events SET processed = true, processed_at = $1 WHERE id = $2 AND provider = 'simplybook'`
	if _, err := h.db.ExecContext(ctx, query, time.Now(), eventID); err != nil {
		log.Warn().Err(err).Str("event_id", eventID).Msg("failed to mark webhook event processed")
	}
}

func (h *SimplybookWebhookHandler) markEventFailed(ctx context.Context, eventID string, cause error) {
	query := `UPDATE webhook_events SET error_message = $1 WHERE id = $2 AND provider = 'simplybook'`
	if _, err := h.db.ExecContext(ctx, query, cause.Error(), eventID); err != nil {
		log.Warn().Err(err).Str("event_id", eventID).Msg("failed to mark webhook event failed")
	}
}

func parseEventTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
