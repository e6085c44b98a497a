package acceptance

import (
	"net/http"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/google/uuid"
)

type driverResponse struct {
	ID      string  `json:"id"`
	Name    *string `json:"name"`
	Rating  float64 `json:"rating"`
	Ratings int     `json:"ratings"`
}

type rideResponse struct {
	ID             string         `json:"id"`
	Source         string         `json:"source"`
	Destination    string         `json:"destination"`
	Departure      time.Time      `json:"departure"`
	Seats          int            `json:"seats"`
	BookedSeats    int            `json:"bookedSeats"`
	AvailableSeats int            `json:"availableSeats"`
	Price          float64        `json:"price"`
	Status         string         `json:"status"`
	Preferences    []string       `json:"preferences"`
	Driver         driverResponse `json:"driver"`
}

func rideIDs(rides []rideResponse) []string {
	ids := make([]string, 0, len(rides))
	for _, r := range rides {
		ids = append(ids, r.ID)
	}
	return ids
}

func (ts *TestServer) searchRides(t *testing.T, query string) []rideResponse {
	t.Helper()
	w := ts.GET("/rides"+query, as("auth0|rider"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var resp []rideResponse
	decode(t, w, &resp)
	return resp
}

func TestSearchRides_FullRideNeverListed(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.CreateTestRide(t, testRide{Seats: 4, BookedSeats: 4})
	ts.CreateTestRide(t, testRide{Seats: 4, Status: "cancelled"})

	if rides := ts.searchRides(t, ""); len(rides) != 0 {
		t.Errorf("expected no rides, got %s", spew.Sdump(rides))
	}
}

func TestSearchRides_SeatFilterUsesRemainingSeats(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	rideID := ts.CreateTestRide(t, testRide{Seats: 4, BookedSeats: 2})

	for _, seats := range []string{"1", "2"} {
		rides := ts.searchRides(t, "?seats="+seats)
		if len(rides) != 1 || rides[0].ID != rideID {
			t.Errorf("seats=%s: expected the ride, got %s", seats, spew.Sdump(rides))
		}
		if len(rides) == 1 && rides[0].AvailableSeats != 2 {
			t.Errorf("expected 2 available seats, got %d", rides[0].AvailableSeats)
		}
	}
	if rides := ts.searchRides(t, "?seats=3"); len(rides) != 0 {
		t.Errorf("seats=3: expected no rides, got %s", spew.Sdump(rides))
	}

	w := ts.GET("/rides?seats=-1", as("auth0|rider"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d for invalid seats, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestSearchRides_TextDateAndOrder(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	day := time.Now().UTC().AddDate(0, 0, 3).Truncate(24 * time.Hour)
	later := ts.CreateTestRide(t, testRide{Seats: 2, Source: "North Station", Departure: day.Add(18 * time.Hour)})
	earlier := ts.CreateTestRide(t, testRide{Seats: 2, Source: "Northgate", Departure: day.Add(8 * time.Hour)})
	ts.CreateTestRide(t, testRide{Seats: 2, Source: "North Station", Departure: day.AddDate(0, 0, 1).Add(8 * time.Hour)})
	ts.CreateTestRide(t, testRide{Seats: 2, Source: "South Park", Departure: day.Add(9 * time.Hour)})
	ts.CreateTestRide(t, testRide{Seats: 2, Source: "100% North", Departure: day.Add(10 * time.Hour)})

	rides := ts.searchRides(t, "?source=north&date="+day.Format("2006-01-02"))
	got := rideIDs(rides)
	if len(got) != 3 || got[0] != earlier || got[2] != later {
		t.Errorf("expected three northern rides on the day, earliest first, got %s", spew.Sdump(rides))
	}

	// Wildcards in the search text are matched literally.
	rides = ts.searchRides(t, "?source=100%25")
	if len(rides) != 1 || rides[0].Source != "100% North" {
		t.Errorf("expected only the literal match, got %s", spew.Sdump(rides))
	}

	w := ts.GET("/rides?date=tomorrow", as("auth0|rider"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d for invalid date, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCreateRide(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	body := map[string]interface{}{
		"source":       "Old Town",
		"destination":  "Tech Park",
		"date":         "2031-05-04",
		"time":         "07:45",
		"seats":        3,
		"price":        9.5,
		"vehicleModel": "Model 3",
		"fuelType":     "electric",
		"preferences":  []string{"no smoking", "music", "music"},
	}
	w := ts.POST("/rides", body, as("auth0|dana"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var created rideResponse
	decode(t, w, &created)
	want := time.Date(2031, 5, 4, 7, 45, 0, 0, time.UTC)
	if !created.Departure.Equal(want) || created.BookedSeats != 0 || created.Status != "active" || created.Driver.ID != "auth0|dana" {
		t.Errorf("unexpected ride: %s", spew.Sdump(created))
	}
	if len(created.Preferences) != 2 {
		t.Errorf("expected 2 distinct preferences, got %v", created.Preferences)
	}

	w = ts.GET("/rides/"+created.ID, as("auth0|rider"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	w = ts.GET("/me/rides", as("auth0|dana"))
	var mine []rideResponse
	decode(t, w, &mine)
	if len(mine) != 1 || mine[0].ID != created.ID {
		t.Errorf("expected the driver's ride, got %s", spew.Sdump(mine))
	}
}

func TestCreateRide_Validation(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	base := func() map[string]interface{} {
		return map[string]interface{}{
			"source": "A", "destination": "B", "date": "2031-05-04", "time": "07:45",
			"seats": 3, "price": 9.5, "vehicleModel": "Golf", "fuelType": "diesel",
		}
	}

	tests := []struct {
		name   string
		change func(map[string]interface{})
	}{
		{name: "missing source", change: func(m map[string]interface{}) { delete(m, "source") }},
		{name: "missing time", change: func(m map[string]interface{}) { delete(m, "time") }},
		{name: "bad date", change: func(m map[string]interface{}) { m["date"] = "04/05/2031" }},
		{name: "negative seats", change: func(m map[string]interface{}) { m["seats"] = -3 }},
		{name: "negative price", change: func(m map[string]interface{}) { m["price"] = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := base()
			tt.change(body)
			w := ts.POST("/rides", body, as("auth0|dana"))
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d: %s", http.StatusBadRequest, w.Code, w.Body.String())
			}
		})
	}
}

func TestGetRide_NotFound(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	for _, id := range []string{uuid.NewString(), "nonexistent-id"} {
		w := ts.GET("/rides/"+id, as("auth0|rider"))
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status %d for %s, got %d", http.StatusNotFound, id, w.Code)
		}
	}
}
