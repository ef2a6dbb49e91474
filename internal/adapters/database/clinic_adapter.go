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

// ClinicAdapter implements the ClinicRepository interface
type ClinicAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewClinicAdapter creates a new clinic adapter
func NewClinicAdapter(client *postgres.Client) repositories.ClinicRepository {
	return &ClinicAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var clinicColumns = []interface{}{
	"id", "name", "description", "address", "island", "phone", "email",
	"created_at", "updated_at",
}

// GetByID retrieves a clinic by ID
func (a *ClinicAdapter) GetByID(ctx context.Context, id string) (*entities.Clinic, error) {
	query, args, err := a.db.Select(clinicColumns...).
		From("clinics").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	clinic, err := a.scanClinic(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("clinic with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get clinic", err)
	}
	return clinic, nil
}

// ListAll retrieves every clinic, for directory indexing
func (a *ClinicAdapter) ListAll(ctx context.Context) ([]*entities.Clinic, error) {
	query, args, err := a.db.Select(clinicColumns...).
		From("clinics").
		Order(goqu.I("name").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list clinics", err)
	}
	defer rows.Close()

	var clinics []*entities.Clinic
	for rows.Next() {
		clinic, err := a.scanClinic(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan clinic", err)
		}
		clinics = append(clinics, clinic)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate clinics", err)
	}

	return clinics, nil
}

func (a *ClinicAdapter) scanClinic(row rowScanner) (*entities.Clinic, error) {
	clinic := &entities.Clinic{}
	var description, address, island, phone, email sql.NullString

	err := row.Scan(
		&clinic.ID,
		&clinic.Name,
		&description,
		&address,
		&island,
		&phone,
		&email,
		&clinic.CreatedAt,
		&clinic.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	clinic.Description = description.String
	clinic.Address = address.String
	clinic.Island = island.String
	clinic.Phone = phone.String
	clinic.Email = email.String

	return clinic, nil
}
