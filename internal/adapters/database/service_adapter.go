package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/mondokter/mondokter-backend/internal/domain/entities"
	"github.com/mondokter/mondokter-backend/internal/domain/repositories"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/mondokter/mondokter-backend/pkg/errors"
)

// ServiceAdapter implements the ServiceRepository interface
type ServiceAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewServiceAdapter creates a new service adapter
func NewServiceAdapter(client *postgres.Client) repositories.ServiceRepository {
	return &ServiceAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var serviceColumns = []interface{}{
	"id", "provider_id", "simplybook_service_id", "name", "description",
	"duration_minutes", "price_cents", "currency", "active",
	"created_at", "updated_at",
}

// GetByID retrieves a service by ID
func (a *ServiceAdapter) GetByID(ctx context.Context, id string) (*entities.Service, error) {
	query, args, err := a.db.Select(serviceColumns...).
		From("services").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	service, err := a.scanService(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("service with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get service", err)
	}
	return service, nil
}

// ListByProvider retrieves all services offered by a provider
func (a *ServiceAdapter) ListByProvider(ctx context.Context, providerID string) ([]*entities.Service, error) {
	query, args, err := a.db.Select(serviceColumns...).
		From("services").
		Where(goqu.Ex{"provider_id": providerID}).
		Order(goqu.I("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list services", err)
	}
	defer rows.Close()

	var services []*entities.Service
	for rows.Next() {
		service, err := a.scanService(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan service", err)
		}
		services = append(services, service)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate services", err)
	}

	return services, nil
}

// Create persists a new service
func (a *ServiceAdapter) Create(ctx context.Context, service *entities.Service) error {
	record := goqu.Record{
		"id":                    service.ID,
		"provider_id":           service.ProviderID,
		"simplybook_service_id": service.SimplybookServiceID,
		"name":                  service.Name,
		"description":           service.Description,
		"duration_minutes":      service.DurationMinutes,
		"price_cents":           service.PriceCents,
		"currency":              service.Currency,
		"active":                service.Active,
		"created_at":            service.CreatedAt,
		"updated_at":            service.UpdatedAt,
	}

	query, args, err := a.db.Insert("services").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create service", err)
	}

	return nil
}

// Update persists changes to an existing service
func (a *ServiceAdapter) Update(ctx context.Context, service *entities.Service) error {
	service.UpdatedAt = time.Now().UTC()

	query, args, err := a.db.Update("services").
		Set(goqu.Record{
			"name":             service.Name,
			"description":      service.Description,
			"duration_minutes": service.DurationMinutes,
			"price_cents":      service.PriceCents,
			"currency":         service.Currency,
			"active":           service.Active,
			"updated_at":       service.UpdatedAt,
		}).
		Where(goqu.Ex{"id": service.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update service", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to check rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("service with id %s not found", service.ID))
	}

	return nil
}

func (a *ServiceAdapter) scanService(row rowScanner) (*entities.Service, error) {
	service := &entities.Service{}
	var simplybookServiceID, description sql.NullString

	err := row.Scan(
		&service.ID,
		&service.ProviderID,
		&simplybookServiceID,
		&service.Name,
		&description,
		&service.DurationMinutes,
		&service.PriceCents,
		&service.Currency,
		&service.Active,
		&service.CreatedAt,
		&service.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if simplybookServiceID.Valid {
		service.SimplybookServiceID = &simplybookServiceID.String
	}
	service.Description = description.String

	return service, nil
}
