package rating

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const (
	MinValue = 1
	MaxValue = 5
)

// Rating is a rider's score for the driver of a ride they booked. There is at
// most one rating per booking.
type Rating struct {
	ID        uuid.UUID      `db:"id"`
	BookingID uuid.UUID      `db:"booking_id"`
	RaterID   string         `db:"rater_id"`
	UserID    string         `db:"user_id"`
	Value     int            `db:"rating"`
	Review    sql.NullString `db:"review"`
	CreatedAt time.Time      `db:"created_at"`
}

type Request struct {
	BookingID string
	Value     int
	Review    string
}

// Summary is the mean score of a driver rounded to one decimal, and the
// number of ratings it was computed from. Average is 0 when Count is 0.
type Summary struct {
	Average float64 `db:"average" json:"average"`
	Count   int     `db:"count" json:"count"`
}
