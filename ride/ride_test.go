package ride

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemainingSeats(t *testing.T) {
	assert.Equal(t, 1, Ride{Seats: 3, BookedSeats: 2}.RemainingSeats())
	assert.Equal(t, 0, Ride{Seats: 4, BookedSeats: 4}.RemainingSeats())
}

func TestParseFilter_Empty(t *testing.T) {
	f, err := ParseFilter("", "", "", "")
	require.NoError(t, err)
	assert.Nil(t, f.Source)
	assert.Nil(t, f.Destination)
	assert.Nil(t, f.Date)
	assert.Nil(t, f.Seats)
}

func TestParseFilter_AllFields(t *testing.T) {
	f, err := ParseFilter(" Dublin ", "Cork", "2025-03-14", "2")
	require.NoError(t, err)
	require.NotNil(t, f.Source)
	assert.Equal(t, "Dublin", *f.Source)
	assert.Equal(t, "Cork", *f.Destination)
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), *f.Date)
	assert.Equal(t, 2, *f.Seats)

	start, end := f.dayBounds()
	assert.Equal(t, time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), *start)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), *end)
}

func TestParseFilter_RFC3339DateTruncatedToUTCDay(t *testing.T) {
	f, err := ParseFilter("", "", "2025-03-14T23:30:00-02:00", "")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), *f.Date)
}

func TestParseFilter_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		date  string
		seats string
		want  error
	}{
		{name: "bad date", date: "14/03/2025", want: ErrInvalidDate},
		{name: "zero seats", seats: "0", want: ErrInvalidSeatFilter},
		{name: "negative seats", seats: "-1", want: ErrInvalidSeatFilter},
		{name: "non numeric seats", seats: "two", want: ErrInvalidSeatFilter},
		{name: "seats beyond int32", seats: "3000000000", want: ErrInvalidSeatFilter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilter("", "", tt.date, tt.seats)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseDeparture(t *testing.T) {
	got, err := ParseDeparture("2025-03-14", "08:45")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 14, 8, 45, 0, 0, time.UTC), got)

	_, err = ParseDeparture("2025-03-14", "8h45")
	assert.ErrorIs(t, err, ErrInvalidTime)

	_, err = ParseDeparture("tomorrow", "08:45")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestContainsPatternEscapesWildcards(t *testing.T) {
	assert.Nil(t, containsPattern(nil))

	s := `50%_off\`
	assert.Equal(t, `%50\%\_off\\%`, *containsPattern(&s))
}

func TestNewRideValidate(t *testing.T) {
	valid := NewRide{
		DriverID:     "auth0|driver",
		Source:       "Dublin",
		Destination:  "Cork",
		Departure:    time.Now(),
		Seats:        3,
		Price:        12.5,
		VehicleModel: "Corolla",
		FuelType:     "hybrid",
	}
	require.NoError(t, valid.Validate())

	missing := valid
	missing.FuelType = " "
	assert.ErrorIs(t, missing.Validate(), ErrMissingFields)

	noSeats := valid
	noSeats.Seats = 0
	assert.ErrorIs(t, noSeats.Validate(), ErrMissingFields)

	negSeats := valid
	negSeats.Seats = -2
	assert.ErrorIs(t, negSeats.Validate(), ErrInvalidSeats)

	hugeSeats := valid
	hugeSeats.Seats = MaxSeats + 1
	assert.ErrorIs(t, hugeSeats.Validate(), ErrTooManySeats)

	negPrice := valid
	negPrice.Price = -1
	assert.ErrorIs(t, negPrice.Validate(), ErrInvalidPrice)
}

func TestNormalizePreferences(t *testing.T) {
	assert.Equal(t, []string{"music", "pets"}, normalizePreferences([]string{" music", "", "pets", "music"}))
	assert.Empty(t, normalizePreferences(nil))
}
