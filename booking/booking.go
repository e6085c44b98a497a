package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/smartcommutex-backend/ride"
)

type BookingStatus string

const (
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// ParseStatus validates a status filter value.
func ParseStatus(s string) (BookingStatus, error) {
	switch st := BookingStatus(s); st {
	case StatusConfirmed, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", ErrInvalidStatus
}

// Booking is a rider's reservation of seats on a ride. Bookings are created
// only through Repository.Create and are not modified afterwards.
type Booking struct {
	ID        uuid.UUID     `db:"id"`
	RideID    uuid.UUID     `db:"ride_id"`
	UserID    string        `db:"user_id"`
	Seats     int           `db:"seats"`
	Status    BookingStatus `db:"status"`
	CreatedAt time.Time     `db:"created_at"`
}

// Request asks for seats on a ride.
type Request struct {
	RideID string
	Seats  int
}

// Listing is a booking joined with the ride it holds seats on.
type Listing struct {
	Booking
	Ride ride.Listing `db:"ride"`
}
