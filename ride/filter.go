package ride

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidTime       = errors.New("invalid time")
	ErrInvalidSeatFilter = errors.New("seats must be a positive integer")
)

// MaxSeats bounds every seat count so it fits the INTEGER columns.
const MaxSeats = math.MaxInt32

const dateLayout = "2006-01-02"

// Filter narrows the ride catalog. Nil fields are not applied.
type Filter struct {
	// Source and Destination match case-insensitive substrings.
	Source      *string
	Destination *string
	// Date selects rides departing on that UTC calendar day.
	Date *time.Time
	// Seats is the minimum number of free seats a ride must have.
	Seats *int
}

// ParseFilter builds a Filter from raw query parameters. Empty values are
// treated as absent.
func ParseFilter(source, destination, date, seats string) (Filter, error) {
	var f Filter

	if s := strings.TrimSpace(source); s != "" {
		f.Source = &s
	}
	if d := strings.TrimSpace(destination); d != "" {
		f.Destination = &d
	}

	if date != "" {
		day, err := parseDay(date)
		if err != nil {
			return Filter{}, err
		}
		f.Date = &day
	}

	if seats != "" {
		n, err := strconv.Atoi(seats)
		if err != nil || n <= 0 || n > MaxSeats {
			return Filter{}, ErrInvalidSeatFilter
		}
		f.Seats = &n
	}

	return f, nil
}

// dayBounds returns the half-open interval [start, end) of the filter date.
func (f Filter) dayBounds() (*time.Time, *time.Time) {
	if f.Date == nil {
		return nil, nil
	}
	start := *f.Date
	end := start.AddDate(0, 0, 1)
	return &start, &end
}

// ParseDeparture combines a calendar date ("2006-01-02") and a wall clock time
// ("15:04") into a UTC departure timestamp.
func ParseDeparture(date, clock string) (time.Time, error) {
	day, err := parseDay(date)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}
	return day.Add(time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute), nil
}

// parseDay accepts a plain date or an RFC3339 timestamp and truncates it to
// midnight UTC.
func parseDay(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns a user supplied substring into an ILIKE pattern.
func containsPattern(s *string) *string {
	if s == nil {
		return nil
	}
	p := "%" + likeEscaper.Replace(*s) + "%"
	return &p
}
