package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/observability"
	"github.com/mondokter/mondokter-backend/pkg/config"
)

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	db := sqlx.NewDb(mockDB, "postgres")
	return db, mock
}

type mockNotifier struct {
	called      bool
	lastBooking *entities.Booking
	returnError error
}

func (m *mockNotifier) NotifyBookingStatus(ctx context.Context, booking *entities.Booking) error {
	m.called = true
	m.lastBooking = booking
	return m.returnError
}

func confirmedEvent() SimplybookWebhookEvent {
	return SimplybookWebhookEvent{
		EventType:     "booking_confirmed",
		BookingID:     4821,
		ServiceID:     42,
		ProviderID:    7,
		ClientName:    "Marie Hoareau",
		ClientEmail:   "marie@example.sc",
		ClientPhone:   "+2482510000",
		StartDateTime: "2026-09-10 09:00:00",
		EndDateTime:   "2026-09-10 09:30:00",
		Status:        "confirmed",
		Company:       "victoria-clinic",
		Timestamp:     "2026-09-01 08:00:00",
	}
}

func expectEventStored(m sqlmock.Sqlmock) {
	m.ExpectExec("INSERT INTO webhook_events").
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func expectProviderResolved(m sqlmock.Sqlmock) {
	m.ExpectQuery("SELECT p.id FROM providers").
		WithArgs("victoria-clinic").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("prov-1"))
}

func expectServiceResolved(m sqlmock.Sqlmock) {
	m.ExpectQuery("SELECT id FROM services").
		WithArgs("prov-1", "42").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("svc-1"))
}

func expectBookingUpserted(m sqlmock.Sqlmock) {
	m.ExpectQuery("INSERT INTO bookings").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("bk-1"))
}

func expectEventProcessed(m sqlmock.Sqlmock) {
	m.ExpectExec("UPDATE webhook_events SET processed").
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func storedBookingRows() *sqlmock.Rows {
	start := time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)
	return sqlmock.NewRows([]string{
		"id", "simplybook_id", "service_id", "provider_id", "client_name",
		"client_email", "client_phone", "start_time", "end_time", "status",
		"notes", "last_event_at", "created_at", "updated_at",
	}).AddRow(
		"bk-1", "4821", "svc-1", "prov-1", "Marie Hoareau",
		"marie@example.sc", "+2482510000", start, start.Add(30*time.Minute),
		"COMPLETED", "", start, start, start,
	)
}

func TestSimplybookWebhookHandler_HandleWebhook(t *testing.T) {
	tests := []struct {
		name               string
		body               func() []byte
		webhookConfig      config.WebhookConfig
		signRequest        bool
		wrongSignature     bool
		setupMocks         func(sqlmock.Sqlmock)
		expectedStatusCode int
		expectNotification bool
		expectedStatus     entities.BookingStatus
	}{
		{
			name: "confirmed booking is upserted as accepted",
			body: func() []byte {
				data, _ := json.Marshal(confirmedEvent())
				return data
			},
			webhookConfig: config.WebhookConfig{SigningSecret: "test_secret"},
			signRequest:   true,
			setupMocks: func(m sqlmock.Sqlmock) {
				expectEventStored(m)
				expectProviderResolved(m)
				expectServiceResolved(m)
				expectBookingUpserted(m)
				expectEventProcessed(m)
			},
			expectedStatusCode: http.StatusOK,
			expectNotification: true,
			expectedStatus:     entities.BookingStatusAccepted,
		},
		{
			name: "cancelled event overrides payload status",
			body: func() []byte {
				event := confirmedEvent()
				event.EventType = "booking_cancelled"
				event.Status = "confirmed"
				data, _ := json.Marshal(event)
				return data
			},
			setupMocks: func(m sqlmock.Sqlmock) {
				expectEventStored(m)
				expectProviderResolved(m)
				expectServiceResolved(m)
				expectBookingUpserted(m)
				expectEventProcessed(m)
			},
			expectedStatusCode: http.StatusOK,
			expectNotification: true,
			expectedStatus:     entities.BookingStatusCancelled,
		},
		{
			name: "unknown company returns 404 without touching bookings",
			body: func() []byte {
				event := confirmedEvent()
				event.Company = "stranger-clinic"
				data, _ := json.Marshal(event)
				return data
			},
			setupMocks: func(m sqlmock.Sqlmock) {
				expectEventStored(m)
				m.ExpectQuery("SELECT p.id FROM providers").
					WithArgs("stranger-clinic").
					WillReturnError(sql.ErrNoRows)
				m.ExpectExec("UPDATE webhook_events SET error_message").
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
			expectedStatusCode: http.StatusNotFound,
		},
		{
			name: "unknown service id creates a placeholder service",
			body: func() []byte {
				event := confirmedEvent()
				event.ServiceID = 99
				data, _ := json.Marshal(event)
				return data
			},
			setupMocks: func(m sqlmock.Sqlmock) {
				expectEventStored(m)
				expectProviderResolved(m)
				m.ExpectQuery("SELECT id FROM services").
					WithArgs("prov-1", "99").
					WillReturnError(sql.ErrNoRows)
				m.ExpectExec("INSERT INTO services").
					WillReturnResult(sqlmock.NewResult(1, 1))
				expectBookingUpserted(m)
				expectEventProcessed(m)
			},
			expectedStatusCode: http.StatusOK,
			expectNotification: true,
			expectedStatus:     entities.BookingStatusAccepted,
		},
		{
			name: "unknown event type is acknowledged without processing",
			body: func() []byte {
				event := confirmedEvent()
				event.EventType = "invoice_paid"
				data, _ := json.Marshal(event)
				return data
			},
			setupMocks: func(m sqlmock.Sqlmock) {
				expectEventStored(m)
				expectEventProcessed(m)
			},
			expectedStatusCode: http.StatusOK,
		},
		{
			name: "stale delivery is skipped and reports the stored booking",
			body: func() []byte {
				data, _ := json.Marshal(confirmedEvent())
				return data
			},
			setupMocks: func(m sqlmock.Sqlmock) {
				expectEventStored(m)
				expectProviderResolved(m)
				expectServiceResolved(m)
				m.ExpectQuery("INSERT INTO bookings").
					WillReturnError(sql.ErrNoRows)
				m.ExpectQuery("SELECT id, simplybook_id, service_id, provider_id").
					WithArgs("4821").
					WillReturnRows(storedBookingRows())
				expectEventProcessed(m)
			},
			expectedStatusCode: http.StatusOK,
			expectNotification: true,
			expectedStatus:     entities.BookingStatusCompleted,
		},
		{
			name: "invalid signature is rejected",
			body: func() []byte {
				data, _ := json.Marshal(confirmedEvent())
				return data
			},
			webhookConfig:      config.WebhookConfig{SigningSecret: "test_secret"},
			signRequest:        true,
			wrongSignature:     true,
			setupMocks:         func(m sqlmock.Sqlmock) {},
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name: "missing signature is rejected when enforcement is on",
			body: func() []byte {
				data, _ := json.Marshal(confirmedEvent())
				return data
			},
			webhookConfig:      config.WebhookConfig{SigningSecret: "test_secret", RequireSignature: true},
			setupMocks:         func(m sqlmock.Sqlmock) {},
			expectedStatusCode: http.StatusUnauthorized,
		},
		{
			name: "missing signature passes when enforcement is off",
			body: func() []byte {
				data, _ := json.Marshal(confirmedEvent())
				return data
			},
			webhookConfig: config.WebhookConfig{SigningSecret: "test_secret"},
			setupMocks: func(m sqlmock.Sqlmock) {
				expectEventStored(m)
				expectProviderResolved(m)
				expectServiceResolved(m)
				expectBookingUpserted(m)
				expectEventProcessed(m)
			},
			expectedStatusCode: http.StatusOK,
			expectNotification: true,
			expectedStatus:     entities.BookingStatusAccepted,
		},
		{
			name: "malformed JSON returns 400",
			body: func() []byte {
				return []byte("{not json")
			},
			setupMocks:         func(m sqlmock.Sqlmock) {},
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name: "missing booking id returns 400",
			body: func() []byte {
				event := confirmedEvent()
				event.BookingID = 0
				data, _ := json.Marshal(event)
				return data
			},
			setupMocks:         func(m sqlmock.Sqlmock) {},
			expectedStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			defer db.Close()

			tt.setupMocks(mock)

			notifier := &mockNotifier{}
			handler := NewSimplybookWebhookHandler(db, notifier, nil, nil, &tt.webhookConfig)

			body := tt.body()
			req := httptest.NewRequest(http.MethodPost, "/webhooks/simplybook", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			if tt.signRequest {
				secret := tt.webhookConfig.SigningSecret
				if tt.wrongSignature {
					secret = "wrong_secret"
				}
				mac := hmac.New(sha256.New, []byte(secret))
				mac.Write(body)
				req.Header.Set("X-Simplybook-Signature", hex.EncodeToString(mac.Sum(nil)))
			}

			rec := httptest.NewRecorder()
			handler.HandleWebhook(rec, req)

			if rec.Code != tt.expectedStatusCode {
				t.Errorf("status code = %d, want %d (body: %s)", rec.Code, tt.expectedStatusCode, rec.Body.String())
			}

			if notifier.called != tt.expectNotification {
				t.Errorf("notification called = %v, want %v", notifier.called, tt.expectNotification)
			}
			if tt.expectNotification && notifier.lastBooking != nil && notifier.lastBooking.Status != tt.expectedStatus {
				t.Errorf("booking status = %v, want %v", notifier.lastBooking.Status, tt.expectedStatus)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet sql expectations: %v", err)
			}
		})
	}
}

func TestSimplybookWebhookHandler_SuccessEchoesEvent(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	expectEventStored(mock)
	expectProviderResolved(mock)
	expectServiceResolved(mock)
	expectBookingUpserted(mock)
	expectEventProcessed(mock)

	handler := NewSimplybookWebhookHandler(db, nil, nil, nil, &config.WebhookConfig{})

	body, _ := json.Marshal(confirmedEvent())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/simplybook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}

	var resp struct {
		EventType string `json:"event_type"`
		BookingID int64  `json:"booking_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.EventType != "booking_confirmed" {
		t.Errorf("echoed event_type = %q, want booking_confirmed", resp.EventType)
	}
	if resp.BookingID != 4821 {
		t.Errorf("echoed booking_id = %d, want 4821", resp.BookingID)
	}
}

func TestSimplybookWebhookHandler_StaleDeliveryNotifiesStoredBooking(t *testing.T) {
	db, mock := setupMockDB(t)
	defer db.Close()

	expectEventStored(mock)
	expectProviderResolved(mock)
	expectServiceResolved(mock)
	mock.ExpectQuery("INSERT INTO bookings").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT id, simplybook_id, service_id, provider_id").
		WithArgs("4821").
		WillReturnRows(storedBookingRows())
	expectEventProcessed(mock)

	notifier := &mockNotifier{}
	handler := NewSimplybookWebhookHandler(db, notifier, nil, nil, &config.WebhookConfig{})

	body, _ := json.Marshal(confirmedEvent())
	req := httptest.NewRequest(http.MethodPost, "/webhooks/simplybook", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleWebhook(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200 (body: %s)", rec.Code, rec.Body.String())
	}
	if notifier.lastBooking == nil {
		t.Fatal("notifier did not receive a booking")
	}
	// The stored booking is reported whole, not the rejected delivery's
	// partial view of it.
	if notifier.lastBooking.ClientName != "Marie Hoareau" {
		t.Errorf("notified client name = %q, want Marie Hoareau", notifier.lastBooking.ClientName)
	}
	if notifier.lastBooking.StartTime.IsZero() {
		t.Error("notified booking has a zero start time")
	}
	if notifier.lastBooking.Status != entities.BookingStatusCompleted {
		t.Errorf("notified status = %v, want COMPLETED", notifier.lastBooking.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sql expectations: %v", err)
	}
}

func counterTotal(rm *metricdata.ResourceMetrics, name string) int64 {
	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestSimplybookWebhookHandler_RecordsDeliveryMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	previous := otel.GetMeterProvider()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	defer otel.SetMeterProvider(previous)

	metrics, err := observability.InitMetrics()
	if err != nil {
		t.Fatalf("InitMetrics() error = %v", err)
	}

	db, mock := setupMockDB(t)
	defer db.Close()

	// One successful delivery.
	expectEventStored(mock)
	expectProviderResolved(mock)
	expectServiceResolved(mock)
	expectBookingUpserted(mock)
	expectEventProcessed(mock)

	// One delivery for a company without an integration.
	expectEventStored(mock)
	mock.ExpectQuery("SELECT p.id FROM providers").
		WithArgs("stranger-clinic").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec("UPDATE webhook_events SET error_message").
		WillReturnResult(sqlmock.NewResult(1, 1))

	handler := NewSimplybookWebhookHandler(db, nil, nil, metrics, &config.WebhookConfig{})

	post := func(event SimplybookWebhookEvent) {
		body, _ := json.Marshal(event)
		req := httptest.NewRequest(http.MethodPost, "/webhooks/simplybook", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		handler.HandleWebhook(rec, req)
	}
	post(confirmedEvent())
	unknown := confirmedEvent()
	unknown.Company = "stranger-clinic"
	post(unknown)

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if got := counterTotal(&rm, "webhook.received.count"); got != 2 {
		t.Errorf("webhook.received.count = %d, want 2", got)
	}
	if got := counterTotal(&rm, "webhook.failed.count"); got != 1 {
		t.Errorf("webhook.failed.count = %d, want 1", got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet sql expectations: %v", err)
	}
}

func TestSimplybookWebhookHandler_HandleChallenge(t *testing.T) {
	db, _ := setupMockDB(t)
	defer db.Close()

	handler := NewSimplybookWebhookHandler(db, nil, nil, nil, &config.WebhookConfig{})

	req := httptest.NewRequest(http.MethodGet, "/webhooks/simplybook?challenge=abc123", nil)
	rec := httptest.NewRecorder()
	handler.HandleChallenge(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "abc123" {
		t.Errorf("challenge echo = %q, want abc123", rec.Body.String())
	}
}
