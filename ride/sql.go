package ride

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidSeats  = errors.New("seats must be a positive integer")
	ErrInvalidPrice  = errors.New("price must be positive")
	ErrTooManySeats  = errors.New("too many seats")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

// Validate checks a ride offer before it is stored. Zero seats or price
// count as missing.
func (n NewRide) Validate() error {
	if n.DriverID == "" || strings.TrimSpace(n.Source) == "" || strings.TrimSpace(n.Destination) == "" ||
		n.Departure.IsZero() || n.Seats == 0 || n.Price == 0 ||
		strings.TrimSpace(n.VehicleModel) == "" || strings.TrimSpace(n.FuelType) == "" {
		return ErrMissingFields
	}
	if n.Seats < 0 {
		return ErrInvalidSeats
	}
	if n.Seats > MaxSeats {
		return ErrTooManySeats
	}
	if n.Price < 0 {
		return ErrInvalidPrice
	}
	return nil
}

// Create stores a new active ride with no booked seats, together with its
// preferences.
func (r *Repository) Create(ctx context.Context, n NewRide) (Listing, error) {
	if err := n.Validate(); err != nil {
		return Listing{}, err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Listing{}, err
	}
	defer tx.Rollback()

	id := uuid.New()
	var notes sql.NullString
	if s := strings.TrimSpace(n.Notes); s != "" {
		notes = sql.NullString{String: s, Valid: true}
	}

	_, err = tx.ExecContext(ctx, createRideQuery,
		id, n.DriverID, strings.TrimSpace(n.Source), strings.TrimSpace(n.Destination), n.Departure.UTC(),
		n.Seats, n.Price, strings.TrimSpace(n.VehicleModel), strings.TrimSpace(n.FuelType), notes, StatusActive)
	if err != nil {
		return Listing{}, err
	}

	for _, p := range normalizePreferences(n.Preferences) {
		if _, err := tx.ExecContext(ctx, addPreferenceQuery, id, p); err != nil {
			return Listing{}, err
		}
	}

	var l Listing
	if err := tx.GetContext(ctx, &l, getListingQuery, id); err != nil {
		return Listing{}, err
	}

	return l, tx.Commit()
}

const createRideQuery = `
INSERT INTO rides (id, driver_id, source, destination, departure, seats, booked_seats, price, vehicle_model, fuel_type, notes, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10, $11, now())
`

const addPreferenceQuery = `INSERT INTO ride_preferences (ride_id, name) VALUES ($1, $2) ON CONFLICT DO NOTHING`

func normalizePreferences(prefs []string) []string {
	seen := make(map[string]struct{}, len(prefs))
	out := make([]string, 0, len(prefs))
	for _, p := range prefs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// GetByID fetches a ride with its driver summary. Identifiers that are not
// valid UUIDs cannot exist and yield ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, id string) (Listing, error) {
	rideID, err := uuid.Parse(id)
	if err != nil {
		return Listing{}, ErrNotFound
	}

	var l Listing
	err = r.db.GetContext(ctx, &l, getListingQuery, rideID)
	if errors.Is(err, sql.ErrNoRows) {
		return Listing{}, ErrNotFound
	}
	return l, err
}

const listingColumns = `
SELECT r.id, r.driver_id, r.source, r.destination, r.departure, r.seats, r.booked_seats,
       r.price, r.vehicle_model, r.fuel_type, r.notes, r.status, r.created_at,
       u.name AS driver_name, u.image AS driver_image,
       COALESCE((SELECT json_agg(p.name ORDER BY p.name) FROM ride_preferences p WHERE p.ride_id = r.id), '[]'::json) AS preferences
FROM rides r
JOIN users u ON u.id = r.driver_id
`

const getListingQuery = listingColumns + `WHERE r.id = $1`

// Search returns active rides with free seats matching the filter, earliest
// departure first.
func (r *Repository) Search(ctx context.Context, f Filter) ([]Listing, error) {
	start, end := f.dayBounds()

	rides := []Listing{}
	err := r.db.SelectContext(ctx, &rides, searchQuery,
		containsPattern(f.Source), containsPattern(f.Destination), start, end, f.Seats, StatusActive)
	return rides, err
}

const searchQuery = listingColumns + `
WHERE r.status = $6
  AND r.booked_seats < r.seats
  AND ($1::text IS NULL OR r.source ILIKE $1)
  AND ($2::text IS NULL OR r.destination ILIKE $2)
  AND ($3::timestamptz IS NULL OR r.departure >= $3)
  AND ($4::timestamptz IS NULL OR r.departure < $4)
  AND ($5::int IS NULL OR r.seats - r.booked_seats >= $5)
ORDER BY r.departure ASC
`

// ListByDriver returns every ride offered by a driver, latest departure first.
func (r *Repository) ListByDriver(ctx context.Context, driverID string) ([]Listing, error) {
	rides := []Listing{}
	err := r.db.SelectContext(ctx, &rides, listByDriverQuery, driverID)
	return rides, err
}

const listByDriverQuery = listingColumns + `WHERE r.driver_id = $1 ORDER BY r.departure DESC`
