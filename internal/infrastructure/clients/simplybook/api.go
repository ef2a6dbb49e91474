package simplybook

import (
	"context"
	"fmt"
	"time"
)

// Event is a bookable service in SimplyBook terminology.
type Event struct {
	ID          int64   `json:"id,string"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Duration    int     `json:"duration,string"`
	Price       float64 `json:"price,string"`
	IsActive    bool    `json:"is_active"`
}

// Unit is a performer (a doctor) in SimplyBook terminology.
type Unit struct {
	ID          int64  `json:"id,string"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
}

// BookingRecord is a booking as the remote API reports it.
type BookingRecord struct {
	ID            int64  `json:"id,string"`
	EventID       int64  `json:"event_id,string"`
	UnitID        int64  `json:"unit_id,string"`
	ClientName    string `json:"client_name"`
	ClientEmail   string `json:"client_email"`
	ClientPhone   string `json:"client_phone"`
	StartDateTime string `json:"start_date_time"`
	EndDateTime   string `json:"end_date_time"`
	Status        string `json:"status"`
	Comment       string `json:"comment"`
}

// ClientData identifies the patient on a new booking.
type ClientData struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// GetEventList returns all services configured on the company account,
// keyed by id.
func (c *Client) GetEventList(ctx context.Context) (map[string]Event, error) {
	var events map[string]Event
	if err := c.Call(ctx, "getEventList", nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// AddEvent creates a service and returns its id.
func (c *Client) AddEvent(ctx context.Context, name string, durationMinutes int, price float64) (int64, error) {
	var id int64
	params := []interface{}{
		map[string]interface{}{
			"name":     name,
			"duration": durationMinutes,
			"price":    price,
		},
	}
	if err := c.Call(ctx, "addEvent", params, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// EditEvent updates a service's fields.
func (c *Client) EditEvent(ctx context.Context, id int64, fields map[string]interface{}) error {
	return c.Call(ctx, "editEvent", []interface{}{id, fields}, nil)
}

// DeleteEvent removes a service.
func (c *Client) DeleteEvent(ctx context.Context, id int64) error {
	return c.Call(ctx, "deleteEvent", []interface{}{id}, nil)
}

// GetUnitList returns all performers on the company account, keyed by id.
func (c *Client) GetUnitList(ctx context.Context) (map[string]Unit, error) {
	var units map[string]Unit
	if err := c.Call(ctx, "getUnitList", nil, &units); err != nil {
		return nil, err
	}
	return units, nil
}

// AddUnit creates a performer and returns its id.
func (c *Client) AddUnit(ctx context.Context, name, email, phone string) (int64, error) {
	var id int64
	params := []interface{}{
		map[string]interface{}{
			"name":  name,
			"email": email,
			"phone": phone,
		},
	}
	if err := c.Call(ctx, "addUnit", params, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// EditUnit updates a performer's fields.
func (c *Client) EditUnit(ctx context.Context, id int64, fields map[string]interface{}) error {
	return c.Call(ctx, "editUnit", []interface{}{id, fields}, nil)
}

// GetBookings lists bookings matching the given filter.
func (c *Client) GetBookings(ctx context.Context, filter map[string]interface{}) ([]BookingRecord, error) {
	var bookings []BookingRecord
	if err := c.Call(ctx, "getBookings", []interface{}{filter}, &bookings); err != nil {
		return nil, err
	}
	return bookings, nil
}

// AddBooking creates a booking and returns its id. The remote method is
// named "book", not "addBooking".
func (c *Client) AddBooking(ctx context.Context, eventID, unitID int64, start time.Time, client ClientData, comment string) (int64, error) {
	var created struct {
		Bookings []struct {
			ID int64 `json:"id,string"`
		} `json:"bookings"`
	}
	params := []interface{}{
		eventID,
		unitID,
		start.Format("2006-01-02"),
		start.Format("15:04:05"),
		client,
		map[string]interface{}{"comment": comment},
	}
	if err := c.Call(ctx, "book", params, &created); err != nil {
		return 0, err
	}
	if len(created.Bookings) == 0 {
		return 0, fmt.Errorf("simplybook book returned no bookings")
	}
	return created.Bookings[0].ID, nil
}

// EditBookingStatus pushes a status change for a booking through the remote
// "setStatus" method.
func (c *Client) EditBookingStatus(ctx context.Context, bookingID int64, status string) error {
	return c.Call(ctx, "setStatus", []interface{}{bookingID, status}, nil)
}

// CancelBooking cancels a booking.
func (c *Client) CancelBooking(ctx context.Context, bookingID int64) error {
	return c.Call(ctx, "cancelBooking", []interface{}{bookingID}, nil)
}

// GetStartTimeMatrix returns the bookable start times for a service and
// performer on a given day.
func (c *Client) GetStartTimeMatrix(ctx context.Context, eventID, unitID int64, day time.Time) ([]string, error) {
	date := day.Format("2006-01-02")
	var matrix map[string][]string
	params := []interface{}{date, date, eventID, unitID, 1}
	if err := c.Call(ctx, "getStartTimeMatrix", params, &matrix); err != nil {
		return nil, err
	}
	return matrix[date], nil
}
