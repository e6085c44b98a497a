package rating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound        = errors.New("booking not found")
	ErrMissingFields   = errors.New("missing required fields")
	ErrOutOfRange      = errors.New("rating must be between 1 and 5")
	ErrAlreadyRated    = errors.New("rating already exists")
	ErrNotYourBooking  = errors.New("booking belongs to another user")
	ErrUnauthenticated = errors.New("caller is not authenticated")
)

const uniqueViolation = "23505"

type Repository struct {
	db     *sqlx.DB
	cache  *Cache
	logger *slog.Logger
}

// NewRepository builds a repository. cache may be nil. Cache failures are
// reported to logger and otherwise ignored.
func NewRepository(db *sqlx.DB, cache *Cache, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		cache:  cache,
		logger: logger,
	}
}

type bookingOwner struct {
	RiderID  string `db:"user_id"`
	DriverID string `db:"driver_id"`
}

// Create stores raterID's rating of the driver of the booked ride.
func (r *Repository) Create(ctx context.Context, raterID string, req Request) (Rating, error) {
	if raterID == "" {
		return Rating{}, ErrUnauthenticated
	}
	if strings.TrimSpace(req.BookingID) == "" || req.Value == 0 {
		return Rating{}, ErrMissingFields
	}
	if req.Value < MinValue || req.Value > MaxValue {
		return Rating{}, ErrOutOfRange
	}

	bookingID, err := uuid.Parse(strings.TrimSpace(req.BookingID))
	if err != nil {
		return Rating{}, ErrNotFound
	}

	var owner bookingOwner
	err = r.db.GetContext(ctx, &owner, bookingOwnerQuery, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return Rating{}, ErrNotFound
	}
	if err != nil {
		return Rating{}, fmt.Errorf("load booking: %w", err)
	}
	if owner.RiderID != raterID {
		return Rating{}, ErrNotYourBooking
	}

	var exists bool
	if err := r.db.GetContext(ctx, &exists, ratingExistsQuery, bookingID); err != nil {
		return Rating{}, fmt.Errorf("check rating: %w", err)
	}
	if exists {
		return Rating{}, ErrAlreadyRated
	}

	var review sql.NullString
	if s := strings.TrimSpace(req.Review); s != "" {
		review = sql.NullString{String: s, Valid: true}
	}

	var rt Rating
	err = r.db.GetContext(ctx, &rt, createRatingQuery, uuid.New(), bookingID, raterID, owner.DriverID, req.Value, review)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Rating{}, ErrAlreadyRated
		}
		return Rating{}, fmt.Errorf("insert rating: %w", err)
	}

	// A stale summary expires with the TTL if this fails.
	if err := r.cache.Invalidate(ctx, owner.DriverID); err != nil {
		r.logger.WarnContext(ctx, "failed to invalidate driver rating", "error", err, "driver_id", owner.DriverID)
	}

	return rt, nil
}

const bookingOwnerQuery = `
SELECT b.user_id, r.driver_id
FROM bookings b
JOIN rides r ON r.id = b.ride_id
WHERE b.id = $1
`

const ratingExistsQuery = `SELECT EXISTS (SELECT 1 FROM ratings WHERE booking_id = $1)`

const createRatingQuery = `
INSERT INTO ratings (id, booking_id, rater_id, user_id, rating, review, created_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
RETURNING id, booking_id, rater_id, user_id, rating, review, created_at
`

// DriverSummary returns the driver's rating summary, from the cache when
// possible.
func (r *Repository) DriverSummary(ctx context.Context, driverID string) (Summary, error) {
	summaries, err := r.DriverSummaries(ctx, []string{driverID})
	if err != nil {
		return Summary{}, err
	}
	return summaries[driverID], nil
}

type driverSummaryRow struct {
	DriverID string `db:"user_id"`
	Summary
}

// DriverSummaries returns the rating summary of every given driver. Drivers
// missing from the cache are computed with a single query; drivers without
// ratings get a zero Summary.
func (r *Repository) DriverSummaries(ctx context.Context, driverIDs []string) (map[string]Summary, error) {
	ids := uniqueIDs(driverIDs)
	if len(ids) == 0 {
		return map[string]Summary{}, nil
	}

	summaries, err := r.cache.GetMany(ctx, ids)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to read driver ratings from cache", "error", err)
		summaries = make(map[string]Summary, len(ids))
	}

	var missing []string
	for _, id := range ids {
		if _, ok := summaries[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return summaries, nil
	}

	query, args, err := sqlx.In(driverSummariesQuery, missing)
	if err != nil {
		return nil, err
	}
	var rows []driverSummaryRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	computed := make(map[string]Summary, len(missing))
	for _, id := range missing {
		computed[id] = Summary{}
	}
	for _, row := range rows {
		computed[row.DriverID] = Summary{Average: roundOneDecimal(row.Average), Count: row.Count}
	}
	for id, s := range computed {
		summaries[id] = s
	}

	r.store(ctx, missing, computed)
	return summaries, nil
}

const driverSummariesQuery = `
SELECT user_id, COALESCE(AVG(rating)::float8, 0) AS average, COUNT(*) AS count
FROM ratings WHERE user_id IN (?)
GROUP BY user_id
`

// store caches freshly computed summaries. A rating saved between computing
// a summary and caching it would leave the old summary cached for the whole
// TTL, so counts are read again afterwards and entries that moved are
// dropped.
func (r *Repository) store(ctx context.Context, driverIDs []string, computed map[string]Summary) {
	if r.cache == nil {
		return
	}

	ids := make([]string, 0, len(driverIDs))
	for _, id := range driverIDs {
		if err := r.cache.Set(ctx, id, computed[id]); err != nil {
			r.logger.WarnContext(ctx, "failed to cache driver rating", "error", err, "driver_id", id)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return
	}

	query, args, err := sqlx.In(ratingCountsQuery, ids)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to recount driver ratings", "error", err)
		return
	}
	var rows []driverSummaryRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		// Without a recount the entries may be stale until they expire.
		r.logger.WarnContext(ctx, "failed to recount driver ratings", "error", err)
		return
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.DriverID] = row.Count
	}
	for _, id := range ids {
		if counts[id] == computed[id].Count {
			continue
		}
		if err := r.cache.Invalidate(ctx, id); err != nil {
			r.logger.WarnContext(ctx, "failed to invalidate driver rating", "error", err, "driver_id", id)
		}
	}
}

const ratingCountsQuery = `
SELECT user_id, COUNT(*) AS count
FROM ratings WHERE user_id IN (?)
GROUP BY user_id
`

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
