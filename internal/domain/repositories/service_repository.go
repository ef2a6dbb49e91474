package repositories

import (
	"context"

	"github.com/mondokter/mondokter-backend/internal/domain/entities"
)

// ServiceRepository provides access to service data
type ServiceRepository interface {
	// GetByID retrieves a service by its id
	GetByID(ctx context.Context, id string) (*entities.Service, error)

	// ListByProvider retrieves all services offered by a provider
	ListByProvider(ctx context.Context, providerID string) ([]*entities.Service, error)

	// Create persists a new service
	Create(ctx context.Context, service *entities.Service) error

	// Update persists changes to an existing service
	Update(ctx context.Context, service *entities.Service) error
}
