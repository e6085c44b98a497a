package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/smartcommutex-backend/internal/middleware"
	"github.com/semanticallynull/smartcommutex-backend/rating"
	"github.com/semanticallynull/smartcommutex-backend/ride"
)

type driverResponse struct {
	ID      string  `json:"id"`
	Name    *string `json:"name"`
	Image   *string `json:"image"`
	Rating  float64 `json:"rating"`
	Ratings int     `json:"ratings"`
}

type rideResponse struct {
	ID             uuid.UUID      `json:"id"`
	Source         string         `json:"source"`
	Destination    string         `json:"destination"`
	Departure      time.Time      `json:"departure"`
	Seats          int            `json:"seats"`
	BookedSeats    int            `json:"bookedSeats"`
	AvailableSeats int            `json:"availableSeats"`
	Price          float64        `json:"price"`
	VehicleModel   string         `json:"vehicleModel"`
	FuelType       string         `json:"fuelType"`
	Notes          *string        `json:"notes,omitempty"`
	Status         ride.Status    `json:"status"`
	Preferences    []string       `json:"preferences"`
	CreatedAt      time.Time      `json:"createdAt"`
	Driver         driverResponse `json:"driver"`
}

func toRideResponse(l ride.Listing, driver rating.Summary) rideResponse {
	resp := rideResponse{
		ID:             l.ID,
		Source:         l.Source,
		Destination:    l.Destination,
		Departure:      l.Departure,
		Seats:          l.Seats,
		BookedSeats:    l.BookedSeats,
		AvailableSeats: l.RemainingSeats(),
		Price:          l.Price,
		VehicleModel:   l.VehicleModel,
		FuelType:       l.FuelType,
		Status:         l.Status,
		Preferences:    l.Preferences,
		CreatedAt:      l.CreatedAt,
		Driver: driverResponse{
			ID:      l.DriverID,
			Rating:  driver.Average,
			Ratings: driver.Count,
		},
	}
	if resp.Preferences == nil {
		resp.Preferences = []string{}
	}
	if l.Notes.Valid {
		resp.Notes = &l.Notes.String
	}
	if l.DriverName.Valid {
		resp.Driver.Name = &l.DriverName.String
	}
	if l.DriverImage.Valid {
		resp.Driver.Image = &l.DriverImage.String
	}
	return resp
}

// toRideResponses annotates each ride with its driver's rating, looked up
// once for all drivers.
func (a *API) toRideResponses(ctx context.Context, listings []ride.Listing) ([]rideResponse, error) {
	driverIDs := make([]string, 0, len(listings))
	for _, l := range listings {
		driverIDs = append(driverIDs, l.DriverID)
	}
	drivers, err := a.rtr.DriverSummaries(ctx, driverIDs)
	if err != nil {
		return nil, err
	}

	out := make([]rideResponse, 0, len(listings))
	for _, l := range listings {
		out = append(out, toRideResponse(l, drivers[l.DriverID]))
	}
	return out, nil
}

func (a *API) searchRidesHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	ctx := c.Request.Context()

	f, err := ride.ParseFilter(c.Query("source"), c.Query("destination"), c.Query("date"), c.Query("seats"))
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_FILTER", err.Error()))
		return
	}

	listings, err := a.rr.Search(ctx, f)
	if err != nil {
		logger.ErrorContext(ctx, "failed to search rides", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to fetch rides"))
		return
	}

	resp, err := a.toRideResponses(ctx, listings)
	if err != nil {
		logger.ErrorContext(ctx, "failed to rate drivers", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to fetch rides"))
		return
	}

	c.JSON(http.StatusOK, resp)
}

type createRideRequest struct {
	Source       string   `json:"source"`
	Destination  string   `json:"destination"`
	Date         string   `json:"date"`
	Time         string   `json:"time"`
	Seats        int      `json:"seats"`
	Price        float64  `json:"price"`
	VehicleModel string   `json:"vehicleModel"`
	FuelType     string   `json:"fuelType"`
	Notes        string   `json:"notes"`
	Preferences  []string `json:"preferences"`
}

func (a *API) createRideHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	ctx := c.Request.Context()

	driverID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req createRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "Invalid request body"))
		return
	}

	if strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.Time) == "" {
		c.JSON(http.StatusBadRequest, errorBody("MISSING_FIELDS", "Missing required fields"))
		return
	}
	departure, err := ride.ParseDeparture(req.Date, req.Time)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_DEPARTURE", err.Error()))
		return
	}

	l, err := a.rr.Create(ctx, ride.NewRide{
		DriverID:     driverID,
		Source:       req.Source,
		Destination:  req.Destination,
		Departure:    departure,
		Seats:        req.Seats,
		Price:        req.Price,
		VehicleModel: req.VehicleModel,
		FuelType:     req.FuelType,
		Notes:        req.Notes,
		Preferences:  req.Preferences,
	})
	switch {
	case errors.Is(err, ride.ErrMissingFields):
		c.JSON(http.StatusBadRequest, errorBody("MISSING_FIELDS", "Missing required fields"))
		return
	case errors.Is(err, ride.ErrInvalidSeats):
		c.JSON(http.StatusBadRequest, errorBody("INVALID_SEATS", "Seats must be a positive integer"))
		return
	case errors.Is(err, ride.ErrTooManySeats):
		c.JSON(http.StatusBadRequest, errorBody("TOO_MANY_SEATS", "Too many seats"))
		return
	case errors.Is(err, ride.ErrInvalidPrice):
		c.JSON(http.StatusBadRequest, errorBody("INVALID_PRICE", "Price must be positive"))
		return
	case err != nil:
		logger.ErrorContext(ctx, "failed to create ride", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to create ride"))
		return
	}

	s, err := a.rtr.DriverSummary(ctx, driverID)
	if err != nil {
		logger.WarnContext(ctx, "failed to rate driver", "error", err)
	}
	c.JSON(http.StatusOK, toRideResponse(l, s))
}

func (a *API) getRideHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	ctx := c.Request.Context()

	l, err := a.rr.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, ride.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorBody("RIDE_NOT_FOUND", "Ride not found"))
			return
		}
		logger.ErrorContext(ctx, "failed to get ride", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to fetch ride"))
		return
	}

	resp, err := a.toRideResponses(ctx, []ride.Listing{l})
	if err != nil {
		logger.ErrorContext(ctx, "failed to rate driver", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to fetch ride"))
		return
	}

	c.JSON(http.StatusOK, resp[0])
}

func (a *API) myRidesHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	ctx := c.Request.Context()

	driverID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	listings, err := a.rr.ListByDriver(ctx, driverID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to list driver rides", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to fetch rides"))
		return
	}

	resp, err := a.toRideResponses(ctx, listings)
	if err != nil {
		logger.ErrorContext(ctx, "failed to rate driver", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to fetch rides"))
		return
	}

	c.JSON(http.StatusOK, resp)
}
