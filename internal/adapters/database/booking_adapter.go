package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/mondokter/mondokter-backend/internal/domain/entities"
	"github.com/mondokter/mondokter-backend/internal/domain/repositories"
	"github.com/mondokter/mondokter-backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/mondokter/mondokter-backend/pkg/errors"
)

// BookingAdapter implements the BookingRepository interface
type BookingAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewBookingAdapter creates a new booking adapter
func NewBookingAdapter(client *postgres.Client) repositories.BookingRepository {
	return &BookingAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var bookingColumns = []interface{}{
	"id", "simplybook_id", "service_id", "provider_id",
	"client_name", "client_email", "client_phone",
	"start_time", "end_time", "status", "notes",
	"last_event_at", "created_at", "updated_at",
}

// Create creates a new booking
func (a *BookingAdapter) Create(ctx context.Context, booking *entities.Booking) error {
	record := goqu.Record{
		"id":            booking.ID,
		"simplybook_id": booking.SimplybookID,
		"service_id":    booking.ServiceID,
		"provider_id":   booking.ProviderID,
		"client_name":   booking.ClientName,
		"client_email":  booking.ClientEmail,
		"client_phone":  booking.ClientPhone,
		"start_time":    booking.StartTime,
		"end_time":      booking.EndTime,
		"status":        booking.Status,
		"notes":         booking.Notes,
		"last_event_at": booking.LastEventAt,
		"created_at":    booking.CreatedAt,
		"updated_at":    booking.UpdatedAt,
	}

	query, args, err := a.db.Insert("bookings").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	_, err = a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to create booking", err)
	}

	return nil
}

// GetByID retrieves a booking by ID
func (a *BookingAdapter) GetByID(ctx context.Context, id string) (*entities.Booking, error) {
	query, args, err := a.db.Select(bookingColumns...).
		From("bookings").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	booking, err := a.scanBooking(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get booking", err)
	}
	return booking, nil
}

// GetBySimplybookID retrieves a booking by its external scheduling id
func (a *BookingAdapter) GetBySimplybookID(ctx context.Context, simplybookID string) (*entities.Booking, error) {
	query, args, err := a.db.Select(bookingColumns...).
		From("bookings").
		Where(goqu.Ex{"simplybook_id": simplybookID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	booking, err := a.scanBooking(a.client.DB().QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("booking with simplybook id %s not found", simplybookID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get booking", err)
	}
	return booking, nil
}

// ListByProvider retrieves bookings for a provider, newest first
func (a *BookingAdapter) ListByProvider(ctx context.Context, providerID string, limit, offset int) ([]*entities.Booking, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query, args, err := a.db.Select(bookingColumns...).
		From("bookings").
		Where(goqu.Ex{"provider_id": providerID}).
		Order(goqu.I("start_time").Desc()).
		Limit(uint(limit)).
		Offset(uint(offset)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list bookings", err)
	}
	defer rows.Close()

	var bookings []*entities.Booking
	for rows.Next() {
		booking, err := a.scanBooking(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan booking", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate bookings", err)
	}

	return bookings, nil
}

// UpdateStatus transitions a booking to a new status
func (a *BookingAdapter) UpdateStatus(ctx context.Context, id string, status entities.BookingStatus) error {
	query, args, err := a.db.Update("bookings").
		Set(goqu.Record{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update booking status", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to check rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}

	return nil
}

// SetSimplybookID records the external id after a successful remote sync
func (a *BookingAdapter) SetSimplybookID(ctx context.Context, id, simplybookID string) error {
	query, args, err := a.db.Update("bookings").
		Set(goqu.Record{
			"simplybook_id": simplybookID,
			"updated_at":    time.Now().UTC(),
		}).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to set simplybook id", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to check rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("booking with id %s not found", id))
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (a *BookingAdapter) scanBooking(row rowScanner) (*entities.Booking, error) {
	booking := &entities.Booking{}
	var simplybookID, notes sql.NullString
	var lastEventAt sql.NullTime

	err := row.Scan(
		&booking.ID,
		&simplybookID,
		&booking.ServiceID,
		&booking.ProviderID,
		&booking.ClientName,
		&booking.ClientEmail,
		&booking.ClientPhone,
		&booking.StartTime,
		&booking.EndTime,
		&booking.Status,
		&notes,
		&lastEventAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if simplybookID.Valid {
		booking.SimplybookID = &simplybookID.String
	}
	booking.Notes = notes.String
	if lastEventAt.Valid {
		t := lastEventAt.Time
		booking.LastEventAt = &t
	}

	return booking, nil
}
