package ride

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound         = errors.New("ride not found")
	ErrNotEnoughSeats   = errors.New("not enough seats available")
	ErrInvalidSeatDelta = errors.New("seat delta must be positive")
)

type capacity struct {
	Seats       int `db:"seats"`
	BookedSeats int `db:"booked_seats"`
}

func (c capacity) remaining() int {
	return c.Seats - c.BookedSeats
}

// Reserve takes seats from the ride's capacity inside the caller's
// transaction. The ride row stays locked until tx ends, so concurrent
// reservations against the same ride are serialised. On any error nothing
// has been written.
func Reserve(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, seats int) error {
	if seats <= 0 {
		return ErrInvalidSeatDelta
	}
	if seats > MaxSeats {
		return ErrTooManySeats
	}

	var c capacity
	err := tx.GetContext(ctx, &c, lockCapacityQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock ride: %w", err)
	}

	if seats > c.remaining() {
		return &capacityError{requested: seats, remaining: c.remaining()}
	}

	res, err := tx.ExecContext(ctx, reserveSeatsQuery, id, seats)
	if err != nil {
		return fmt.Errorf("reserve seats: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reserve seats: %w", err)
	}
	if n != 1 {
		return &capacityError{requested: seats, remaining: c.remaining()}
	}

	return nil
}

const lockCapacityQuery = `SELECT seats, booked_seats FROM rides WHERE id = $1 FOR UPDATE`

const reserveSeatsQuery = `
UPDATE rides SET booked_seats = booked_seats + $2
WHERE id = $1 AND booked_seats + $2 <= seats
`

type capacityError struct {
	requested int
	remaining int
}

func (e *capacityError) Error() string {
	return fmt.Sprintf("not enough seats available: requested %d, remaining %d", e.requested, e.remaining)
}

func (e *capacityError) Is(target error) bool {
	return target == ErrNotEnoughSeats
}

// RemainingFromCapacityError reports how many seats were left when a
// reservation was refused.
func RemainingFromCapacityError(err error) (int, bool) {
	var cerr *capacityError
	if errors.As(err, &cerr) {
		return cerr.remaining, true
	}
	return 0, false
}
