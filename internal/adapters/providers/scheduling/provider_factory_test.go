package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
	"github.com/mondokter/mondokter-backend/internal/domain/providers"
	"github.com/mondokter/mondokter-backend/pkg/config"
)

func TestNewSchedulingProvider_Selection(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.SimplybookConfig
		want string
	}{
		{
			name: "mock provider by default",
			cfg:  config.SimplybookConfig{Provider: "mock"},
			want: "mock",
		},
		{
			name: "incomplete credentials fall back to mock",
			cfg:  config.SimplybookConfig{Provider: "simplybook", CompanyAlias: "victoria-clinic"},
			want: "mock",
		},
		{
			name: "complete credentials select simplybook",
			cfg: config.SimplybookConfig{
				Provider:     "simplybook",
				CompanyAlias: "victoria-clinic",
				APIUser:      "api-user",
				APIKey:       "api-key",
			},
			want: "simplybook",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := NewSchedulingProvider(&tt.cfg)
			if got := provider.Name(); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseExternalID(t *testing.T) {
	if _, err := parseExternalID("", "service"); !errors.Is(err, ErrMissingExternalID) {
		t.Errorf("empty id error = %v, want ErrMissingExternalID", err)
	}
	if _, err := parseExternalID("abc", "service"); err == nil {
		t.Error("non-numeric id should fail")
	}
	id, err := parseExternalID("42", "service")
	if err != nil || id != 42 {
		t.Errorf("parseExternalID(42) = %d, %v", id, err)
	}
}

func TestMockAdapter_BookingLifecycle(t *testing.T) {
	adapter := NewMockAdapter()
	ctx := context.Background()

	id, err := adapter.CreateBooking(ctx, mockRequest())
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if id != "mock-1" {
		t.Errorf("first booking id = %q, want mock-1", id)
	}

	if err := adapter.CancelBooking(ctx, id); err != nil {
		t.Errorf("CancelBooking() error = %v", err)
	}
	if err := adapter.UpdateBookingStatus(ctx, "mock-404", entities.BookingStatusAccepted); err == nil {
		t.Error("updating an unknown booking should fail")
	}

	slots, err := adapter.GetAvailableSlots(ctx, "", "", time.Now())
	if err != nil {
		t.Fatalf("GetAvailableSlots() error = %v", err)
	}
	if len(slots) != 6 {
		t.Errorf("slot count = %d, want 6", len(slots))
	}
}

func mockRequest() providers.BookingRequest {
	return providers.BookingRequest{
		ServiceExternalID:  "42",
		ProviderExternalID: "7",
		ClientName:         "Marie Hoareau",
		ClientEmail:        "marie@example.sc",
		StartTime:          time.Now().Add(24 * time.Hour),
	}
}
