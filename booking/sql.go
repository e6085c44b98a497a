package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/semanticallynull/smartcommutex-backend/ride"
)

var (
	ErrNotFound        = errors.New("booking not found")
	ErrMissingFields   = errors.New("missing required fields")
	ErrInvalidSeats    = errors.New("seats must be a positive integer")
	ErrUnauthenticated = errors.New("caller is not authenticated")
	ErrInvalidStatus   = errors.New("invalid booking status")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create admits a booking for callerID. The seats are taken from the ride's
// capacity and the booking row is inserted in the same transaction, so either
// both are visible or neither is. Calling Create twice books twice.
//
// Errors: ErrUnauthenticated, ErrMissingFields, ErrInvalidSeats,
// ride.ErrTooManySeats, ride.ErrNotFound and ride.ErrNotEnoughSeats leave no trace; anything else is
// a wrapped store error.
func (r *Repository) Create(ctx context.Context, callerID string, req Request) (Booking, error) {
	ctx, span := otel.Tracer("booking").Start(ctx, "booking.Create")
	defer span.End()

	b, err := r.create(ctx, callerID, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Booking{}, err
	}

	span.SetAttributes(
		attribute.String("booking.id", b.ID.String()),
		attribute.String("ride.id", b.RideID.String()),
		attribute.Int("booking.seats", b.Seats),
	)
	return b, nil
}

func (r *Repository) create(ctx context.Context, callerID string, req Request) (Booking, error) {
	if callerID == "" {
		return Booking{}, ErrUnauthenticated
	}
	if strings.TrimSpace(req.RideID) == "" || req.Seats == 0 {
		return Booking{}, ErrMissingFields
	}
	if req.Seats < 0 {
		return Booking{}, ErrInvalidSeats
	}
	if req.Seats > ride.MaxSeats {
		return Booking{}, ride.ErrTooManySeats
	}

	rideID, err := uuid.Parse(strings.TrimSpace(req.RideID))
	if err != nil {
		return Booking{}, ride.ErrNotFound
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Booking{}, fmt.Errorf("begin booking: %w", err)
	}
	defer tx.Rollback()

	if err := ride.Reserve(ctx, tx, rideID, req.Seats); err != nil {
		return Booking{}, err
	}

	var b Booking
	err = tx.GetContext(ctx, &b, createBookingQuery, uuid.New(), rideID, callerID, req.Seats, StatusConfirmed)
	if err != nil {
		return Booking{}, fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Booking{}, fmt.Errorf("commit booking: %w", err)
	}
	return b, nil
}

const createBookingQuery = `
INSERT INTO bookings (id, ride_id, user_id, seats, status, created_at)
VALUES ($1, $2, $3, $4, $5, now())
RETURNING id, ride_id, user_id, seats, status, created_at
`

// GetByID fetches a single booking with its ride. Identifiers that are not
// valid UUIDs yield ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id string) (Listing, error) {
	bookingID, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Listing{}, ErrNotFound
	}

	var l Listing
	err = r.db.GetContext(ctx, &l, getByIDQuery, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return Listing{}, ErrNotFound
	}
	return l, err
}

// The ride columns mirror ride.Listing under the "ride." prefix.
const listingColumns = `
SELECT bk.id, bk.ride_id, bk.user_id, bk.seats, bk.status, bk.created_at,
       r.id AS "ride.id", r.driver_id AS "ride.driver_id", r.source AS "ride.source",
       r.destination AS "ride.destination", r.departure AS "ride.departure",
       r.seats AS "ride.seats", r.booked_seats AS "ride.booked_seats", r.price AS "ride.price",
       r.vehicle_model AS "ride.vehicle_model", r.fuel_type AS "ride.fuel_type",
       r.notes AS "ride.notes", r.status AS "ride.status", r.created_at AS "ride.created_at",
       u.name AS "ride.driver_name", u.image AS "ride.driver_image",
       COALESCE((SELECT json_agg(p.name ORDER BY p.name) FROM ride_preferences p WHERE p.ride_id = r.id), '[]'::json) AS "ride.preferences"
FROM bookings bk
JOIN rides r ON r.id = bk.ride_id
JOIN users u ON u.id = r.driver_id
`

const getByIDQuery = listingColumns + `WHERE bk.id = $1`

// GetByUserID fetches all bookings for a user with their rides, optionally
// filtered by status. Results are sorted newest first.
func (r *Repository) GetByUserID(ctx context.Context, userID string, status *BookingStatus) ([]Listing, error) {
	bookings := []Listing{}
	err := r.db.SelectContext(ctx, &bookings, getByUserIDQuery, userID, status)
	return bookings, err
}

const getByUserIDQuery = listingColumns + `
WHERE bk.user_id = $1
  AND ($2::text IS NULL OR bk.status = $2)
ORDER BY bk.created_at DESC, bk.id
`
