package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/mondokter/mondokter-backend/internal/domain/entities"
	"github.com/mondokter/mondokter-backend/internal/domain/repositories"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/mondokter/mondokter-backend/pkg/errors"
)

// ProviderAdapter implements the ProviderRepository interface
type ProviderAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewProviderAdapter creates a new provider adapter
func NewProviderAdapter(client *postgres.Client) repositories.ProviderRepository {
	return &ProviderAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var providerColumns = []interface{}{
	"id", "clinic_id", "simplybook_unit_id", "name", "email", "phone",
	"specialty", "role", "bio", "created_at", "updated_at",
}

// GetByID retrieves a provider by ID
func (a *ProviderAdapter) GetByID(ctx context.Context, id string) (*entities.Provider, error) {
	query, args, err := a.db.Select(providerColumns...).
		From("providers").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	provider, err := a.scanProvider(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("provider with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get provider", err)
	}
	return provider, nil
}

// ListByClinic retrieves all providers attached to a clinic
func (a *ProviderAdapter) ListByClinic(ctx context.Context, clinicID string) ([]*entities.Provider, error) {
	query, args, err := a.db.Select(providerColumns...).
		From("providers").
		Where(goqu.Ex{"clinic_id": clinicID}).
		Order(goqu.I("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryProviders(ctx, query, args)
}

// ListAll retrieves every provider, for directory indexing
func (a *ProviderAdapter) ListAll(ctx context.Context) ([]*entities.Provider, error) {
	query, args, err := a.db.Select(providerColumns...).
		From("providers").
		Order(goqu.I("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryProviders(ctx, query, args)
}

func (a *ProviderAdapter) queryProviders(ctx context.Context, query string, args []interface{}) ([]*entities.Provider, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list providers", err)
	}
	defer rows.Close()

	var providers []*entities.Provider
	for rows.Next() {
		provider, err := a.scanProvider(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan provider", err)
		}
		providers = append(providers, provider)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate providers", err)
	}

	return providers, nil
}

func (a *ProviderAdapter) scanProvider(row rowScanner) (*entities.Provider, error) {
	provider := &entities.Provider{}
	var simplybookUnitID, phone, specialty, bio sql.NullString

	err := row.Scan(
		&provider.ID,
		&provider.ClinicID,
		&simplybookUnitID,
		&provider.Name,
		&provider.Email,
		&phone,
		&specialty,
		&provider.Role,
		&bio,
		&provider.CreatedAt,
		&provider.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if simplybookUnitID.Valid {
		provider.SimplybookUnitID = &simplybookUnitID.String
	}
	provider.Phone = phone.String
	provider.Specialty = specialty.String
	provider.Bio = bio.String

	return provider, nil
}
