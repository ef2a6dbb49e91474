package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
	"github.com/mondokter/mondokter-backend/internal/domain/providers"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type mockBookingRepo struct {
	mock.Mock
}

func (m *mockBookingRepo) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *mockBookingRepo) GetBySimplybookID(ctx context.Context, simplybookID string) (*entities.Booking, error) {
	args := m.Called(ctx, simplybookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Booking), args.Error(1)
}

func (m *mockBookingRepo) ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]*entities.Booking, error) {
	args := m.Called(ctx, providerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Booking), args.Error(1)
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *entities.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *mockBookingRepo) UpdateStatus(ctx context.Context, id string, status entities.BookingStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockBookingRepo) SetSimplybookID(ctx context.Context, id, simplybookID string) error {
	args := m.Called(ctx, id, simplybookID)
	return args.Error(0)
}

type mockServiceRepo struct {
	mock.Mock
}

func (m *mockServiceRepo) GetByID(ctx context.Context, id string) (*entities.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Service), args.Error(1)
}

func (m *mockServiceRepo) ListByProvider(ctx context.Context, providerID string) ([]*entities.Service, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Service), args.Error(1)
}

func (m *mockServiceRepo) Create(ctx context.Context, service *entities.Service) error {
	args := m.Called(ctx, service)
	return args.Error(0)
}

func (m *mockServiceRepo) Update(ctx context.Context, service *entities.Service) error {
	args := m.Called(ctx, service)
	return args.Error(0)
}

type mockProviderRepo struct {
	mock.Mock
}

func (m *mockProviderRepo) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Provider), args.Error(1)
}

func (m *mockProviderRepo) ListByClinic(ctx context.Context, clinicID string) ([]*entities.Provider, error) {
	args := m.Called(ctx, clinicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Provider), args.Error(1)
}

func (m *mockProviderRepo) ListAll(ctx context.Context) ([]*entities.Provider, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Provider), args.Error(1)
}

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) CreateBooking(ctx context.Context, req providers.BookingRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockScheduler) UpdateBookingStatus(ctx context.Context, externalID string, status entities.BookingStatus) error {
	args := m.Called(ctx, externalID, status)
	return args.Error(0)
}

func (m *mockScheduler) CancelBooking(ctx context.Context, externalID string) error {
	args := m.Called(ctx, externalID)
	return args.Error(0)
}

func (m *mockScheduler) GetAvailableSlots(ctx context.Context, serviceExternalID, providerExternalID string, day time.Time) ([]providers.TimeSlot, error) {
	args := m.Called(ctx, serviceExternalID, providerExternalID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]providers.TimeSlot), args.Error(1)
}

func (m *mockScheduler) Name() string {
	return "mock"
}

func strPtr(s string) *string { return &s }

func approvedProvider() *entities.Provider {
	return &entities.Provider{
		ID:               "prov-1",
		ClinicID:         "clinic-1",
		SimplybookUnitID: strPtr("7"),
		Name:             "Dr. Payet",
		Role:             "provider",
	}
}

func activeService() *entities.Service {
	return &entities.Service{
		ID:                  "svc-1",
		ProviderID:          "prov-1",
		SimplybookServiceID: strPtr("42"),
		Name:                "General Consultation",
		DurationMinutes:     30,
		Active:              true,
	}
}

func validInput() CreateBookingInput {
	return CreateBookingInput{
		ServiceID:   "svc-1",
		ProviderID:  "prov-1",
		ClientName:  "Marie Hoareau",
		ClientEmail: "marie@example.sc",
		ClientPhone: "+2482510000",
		StartTime:   time.Now().Add(48 * time.Hour),
	}
}

func TestCreateBooking_Success(t *testing.T) {
	repo := new(mockBookingRepo)
	serviceRepo := new(mockServiceRepo)
	providerRepo := new(mockProviderRepo)
	scheduler := new(mockScheduler)

	providerRepo.On("GetByID", mock.Anything, "prov-1").Return(approvedProvider(), nil)
	serviceRepo.On("GetByID", mock.Anything, "svc-1").Return(activeService(), nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Booking")).Return(nil)
	scheduler.On("CreateBooking", mock.Anything, mock.AnythingOfType("providers.BookingRequest")).Return("9001", nil)
	repo.On("SetSimplybookID", mock.Anything, mock.AnythingOfType("string"), "9001").Return(nil)

	svc := NewBookingService(repo, serviceRepo, providerRepo, scheduler, nil, nil, nil)
	booking, err := svc.CreateBooking(context.Background(), validInput())

	assert.NoError(t, err)
	assert.Equal(t, entities.BookingStatusPending, booking.Status)
	assert.NotNil(t, booking.SimplybookID)
	assert.Equal(t, "9001", *booking.SimplybookID)
	repo.AssertExpectations(t)
	scheduler.AssertExpectations(t)
}

func TestCreateBooking_RemoteFailureKeepsLocalBooking(t *testing.T) {
	repo := new(mockBookingRepo)
	serviceRepo := new(mockServiceRepo)
	providerRepo := new(mockProviderRepo)
	scheduler := new(mockScheduler)

	providerRepo.On("GetByID", mock.Anything, "prov-1").Return(approvedProvider(), nil)
	serviceRepo.On("GetByID", mock.Anything, "svc-1").Return(activeService(), nil)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*entities.Booking")).Return(nil)
	scheduler.On("CreateBooking", mock.Anything, mock.AnythingOfType("providers.BookingRequest")).
		Return("", errors.New("simplybook unreachable"))

	svc := NewBookingService(repo, serviceRepo, providerRepo, scheduler, nil, nil, nil)
	booking, err := svc.CreateBooking(context.Background(), validInput())

	// The remote failure is absorbed, the local booking stands.
	assert.NoError(t, err)
	assert.NotNil(t, booking)
	assert.Nil(t, booking.SimplybookID)
	repo.AssertNotCalled(t, "SetSimplybookID", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBooking_RejectsPastStartTime(t *testing.T) {
	svc := NewBookingService(new(mockBookingRepo), new(mockServiceRepo), new(mockProviderRepo), nil, nil, nil, nil)

	input := validInput()
	input.StartTime = time.Now().Add(-time.Hour)

	_, err := svc.CreateBooking(context.Background(), input)
	assert.Error(t, err)
}

func TestCreateBooking_RejectsUnapprovedProvider(t *testing.T) {
	repo := new(mockBookingRepo)
	serviceRepo := new(mockServiceRepo)
	providerRepo := new(mockProviderRepo)

	pending := approvedProvider()
	pending.Role = "pending"
	providerRepo.On("GetByID", mock.Anything, "prov-1").Return(pending, nil)

	svc := NewBookingService(repo, serviceRepo, providerRepo, nil, nil, nil, nil)
	_, err := svc.CreateBooking(context.Background(), validInput())

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateBooking_RejectsInactiveService(t *testing.T) {
	repo := new(mockBookingRepo)
	serviceRepo := new(mockServiceRepo)
	providerRepo := new(mockProviderRepo)

	providerRepo.On("GetByID", mock.Anything, "prov-1").Return(approvedProvider(), nil)
	inactive := activeService()
	inactive.Active = false
	serviceRepo.On("GetByID", mock.Anything, "svc-1").Return(inactive, nil)

	svc := NewBookingService(repo, serviceRepo, providerRepo, nil, nil, nil, nil)
	_, err := svc.CreateBooking(context.Background(), validInput())

	assert.Error(t, err)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpdateStatus_RemoteFailureKeepsLocalStatus(t *testing.T) {
	repo := new(mockBookingRepo)
	scheduler := new(mockScheduler)

	existing := &entities.Booking{
		ID:           "bk-1",
		SimplybookID: strPtr("9001"),
		ProviderID:   "prov-1",
		ServiceID:    "svc-1",
		Status:       entities.BookingStatusPending,
	}
	repo.On("GetByID", mock.Anything, "bk-1").Return(existing, nil)
	repo.On("UpdateStatus", mock.Anything, "bk-1", entities.BookingStatusCancelled).Return(nil)
	scheduler.On("CancelBooking", mock.Anything, "9001").Return(errors.New("timeout"))

	svc := NewBookingService(repo, new(mockServiceRepo), new(mockProviderRepo), scheduler, nil, nil, nil)
	booking, err := svc.UpdateStatus(context.Background(), "bk-1", entities.BookingStatusCancelled)

	assert.NoError(t, err)
	assert.Equal(t, entities.BookingStatusCancelled, booking.Status)
	repo.AssertExpectations(t)
	scheduler.AssertExpectations(t)
}

func TestUpdateStatus_RecordsRemoteSyncMetric(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	previous := otel.GetMeterProvider()
	otel.SetMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	defer otel.SetMeterProvider(previous)

	metrics, err := observability.InitMetrics()
	assert.NoError(t, err)

	repo := new(mockBookingRepo)
	scheduler := new(mockScheduler)
	existing := &entities.Booking{
		ID:           "bk-1",
		SimplybookID: strPtr("9001"),
		ProviderID:   "prov-1",
		ServiceID:    "svc-1",
		Status:       entities.BookingStatusPending,
	}
	repo.On("GetByID", mock.Anything, "bk-1").Return(existing, nil)
	repo.On("UpdateStatus", mock.Anything, "bk-1", entities.BookingStatusAccepted).Return(nil)
	scheduler.On("UpdateBookingStatus", mock.Anything, "9001", entities.BookingStatusAccepted).Return(nil)

	svc := NewBookingService(repo, new(mockServiceRepo), new(mockProviderRepo), scheduler, nil, nil, metrics)
	_, err = svc.UpdateStatus(context.Background(), "bk-1", entities.BookingStatusAccepted)
	assert.NoError(t, err)

	var rm metricdata.ResourceMetrics
	assert.NoError(t, reader.Collect(context.Background(), &rm))

	var total int64
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "scheduling.remote_sync.count" {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	assert.Equal(t, int64(1), total)
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	svc := NewBookingService(new(mockBookingRepo), new(mockServiceRepo), new(mockProviderRepo), nil, nil, nil, nil)

	_, err := svc.UpdateStatus(context.Background(), "bk-1", entities.BookingStatus("NO_SHOW"))
	assert.Error(t, err)
}
