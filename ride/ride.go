package ride

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/smartcommutex-backend/internal/pgjson"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Ride is a trip offered by a driver with a fixed number of seats.
type Ride struct {
	ID       uuid.UUID `db:"id"`
	DriverID string    `db:"driver_id"`

	Source      string    `db:"source"`
	Destination string    `db:"destination"`
	Departure   time.Time `db:"departure"`

	// Seats is the capacity of the ride and BookedSeats the part of it already
	// taken. BookedSeats only changes through Reserve.
	Seats       int `db:"seats"`
	BookedSeats int `db:"booked_seats"`

	Price        float64        `db:"price"`
	VehicleModel string         `db:"vehicle_model"`
	FuelType     string         `db:"fuel_type"`
	Notes        sql.NullString `db:"notes"`
	Status       Status         `db:"status"`
	CreatedAt    time.Time      `db:"created_at"`
}

// RemainingSeats is the number of seats that can still be booked.
func (r Ride) RemainingSeats() int {
	return r.Seats - r.BookedSeats
}

// Listing is a ride together with the driver summary and preferences shown
// to riders.
type Listing struct {
	Ride
	DriverName  sql.NullString `db:"driver_name"`
	DriverImage sql.NullString `db:"driver_image"`
	Preferences pgjson.Strings `db:"preferences"`
}

// NewRide holds what a driver submits when offering a ride.
type NewRide struct {
	DriverID     string
	Source       string
	Destination  string
	Departure    time.Time
	Seats        int
	Price        float64
	VehicleModel string
	FuelType     string
	Notes        string
	Preferences  []string
}
