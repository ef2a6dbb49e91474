package repositories

import (
	"context"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
)

// ClinicRepository provides access to clinic data
type ClinicRepository interface {
	// GetByID retrieves a clinic by its id
	GetByID(ctx context.Context, id string) (*entities.Clinic, error)

	// ListAll retrieves every clinic, for directory indexing
	ListAll(ctx context.Context) ([]*entities.Clinic, error)
}
