package ride

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockTx(t *testing.T) (*sqlx.Tx, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectBegin()
	tx, err := sqlx.NewDb(db, "pgx").Beginx()
	require.NoError(t, err)
	return tx, mock
}

var (
	lockRe    = regexp.QuoteMeta("SELECT seats, booked_seats FROM rides WHERE id = $1 FOR UPDATE")
	reserveRe = regexp.QuoteMeta("UPDATE rides SET booked_seats = booked_seats + $2")
)

func TestReserve_Success(t *testing.T) {
	tx, mock := newMockTx(t)
	id := uuid.New()

	mock.ExpectQuery(lockRe).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"seats", "booked_seats"}).AddRow(3, 1))
	mock.ExpectExec(reserveRe).WithArgs(id, 2).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, Reserve(context.Background(), tx, id, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve_NotEnoughSeatsDoesNotWrite(t *testing.T) {
	tx, mock := newMockTx(t)
	id := uuid.New()

	mock.ExpectQuery(lockRe).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"seats", "booked_seats"}).AddRow(3, 2))

	err := Reserve(context.Background(), tx, id, 2)
	require.ErrorIs(t, err, ErrNotEnoughSeats)

	remaining, ok := RemainingFromCapacityError(err)
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve_ConditionalUpdateMissIsCapacityError(t *testing.T) {
	tx, mock := newMockTx(t)
	id := uuid.New()

	mock.ExpectQuery(lockRe).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"seats", "booked_seats"}).AddRow(2, 0))
	mock.ExpectExec(reserveRe).WithArgs(id, 2).WillReturnResult(sqlmock.NewResult(0, 0))

	err := Reserve(context.Background(), tx, id, 2)
	assert.ErrorIs(t, err, ErrNotEnoughSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve_RideNotFound(t *testing.T) {
	tx, mock := newMockTx(t)
	id := uuid.New()

	mock.ExpectQuery(lockRe).WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"seats", "booked_seats"}))

	err := Reserve(context.Background(), tx, id, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve_StoreErrorIsWrapped(t *testing.T) {
	tx, mock := newMockTx(t)
	id := uuid.New()
	boom := errors.New("connection reset")

	mock.ExpectQuery(lockRe).WithArgs(id).WillReturnError(boom)

	err := Reserve(context.Background(), tx, id, 1)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotEnoughSeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserve_RejectsOutOfRangeDelta(t *testing.T) {
	tx, mock := newMockTx(t)

	assert.ErrorIs(t, Reserve(context.Background(), tx, uuid.New(), 0), ErrInvalidSeatDelta)
	assert.ErrorIs(t, Reserve(context.Background(), tx, uuid.New(), -1), ErrInvalidSeatDelta)
	assert.ErrorIs(t, Reserve(context.Background(), tx, uuid.New(), MaxSeats+1), ErrTooManySeats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
