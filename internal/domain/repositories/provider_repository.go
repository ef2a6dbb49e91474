package repositories

import (
	"context"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
)

// ProviderRepository provides access to provider data
type ProviderRepository interface {
	// GetByID retrieves a provider by its id
	GetByID(ctx context.Context, id string) (*entities.Provider, error)

	// ListByClinic retrieves all providers attached to a clinic
	ListByClinic(ctx context.Context, clinicID string) ([]*entities.Provider, error)

	// ListAll retrieves every provider, for directory indexing
	ListAll(ctx context.Context) ([]*entities.Provider, error)
}
