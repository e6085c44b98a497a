package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/smartcommutex-backend/booking"
	"github.com/semanticallynull/smartcommutex-backend/internal/middleware"
	"github.com/semanticallynull/smartcommutex-backend/internal/o11y"
	"github.com/semanticallynull/smartcommutex-backend/ride"
)

type bookingResponse struct {
	ID        uuid.UUID             `json:"id"`
	RideID    uuid.UUID             `json:"rideId"`
	UserID    string                `json:"userId"`
	Seats     int                   `json:"seats"`
	Status    booking.BookingStatus `json:"status"`
	CreatedAt time.Time             `json:"createdAt"`
	Ride      *rideResponse         `json:"ride,omitempty"`
}

func toBookingResponse(b booking.Booking) bookingResponse {
	return bookingResponse{
		ID:        b.ID,
		RideID:    b.RideID,
		UserID:    b.UserID,
		Seats:     b.Seats,
		Status:    b.Status,
		CreatedAt: b.CreatedAt,
	}
}

type createBookingRequest struct {
	RideID string `json:"rideId"`
	Seats  int    `json:"seats"`
}

func (a *API) createBookingHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	ctx := c.Request.Context()

	// A missing identity is passed through and refused by the admission
	// itself.
	userID, _ := middleware.GetUserID(c)

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.obs.Bookings.Refused(o11y.OutcomeRejected)
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "Invalid request body"))
		return
	}

	b, err := a.bkr.Create(ctx, userID, booking.Request{RideID: req.RideID, Seats: req.Seats})
	if err != nil {
		switch {
		case errors.Is(err, booking.ErrUnauthenticated):
			a.obs.Bookings.Refused(o11y.OutcomeRejected)
			unauthorized(c)
		case errors.Is(err, booking.ErrMissingFields):
			a.obs.Bookings.Refused(o11y.OutcomeRejected)
			c.JSON(http.StatusBadRequest, errorBody("MISSING_FIELDS", "Missing required fields"))
		case errors.Is(err, booking.ErrInvalidSeats):
			a.obs.Bookings.Refused(o11y.OutcomeRejected)
			c.JSON(http.StatusBadRequest, errorBody("INVALID_SEATS", "Seats must be a positive integer"))
		case errors.Is(err, ride.ErrTooManySeats):
			a.obs.Bookings.Refused(o11y.OutcomeRejected)
			c.JSON(http.StatusBadRequest, errorBody("TOO_MANY_SEATS", "Too many seats"))
		case errors.Is(err, ride.ErrNotFound):
			a.obs.Bookings.Refused(o11y.OutcomeNotFound)
			c.JSON(http.StatusNotFound, errorBody("RIDE_NOT_FOUND", "Ride not found"))
		case errors.Is(err, ride.ErrNotEnoughSeats):
			a.obs.Bookings.Refused(o11y.OutcomeNoSeats)
			remaining, _ := ride.RemainingFromCapacityError(err)
			c.JSON(http.StatusBadRequest, gin.H{
				"code":           "NOT_ENOUGH_SEATS",
				"error":          "Not enough seats available",
				"remainingSeats": remaining,
			})
		default:
			a.obs.Bookings.Refused(o11y.OutcomeStoreFail)
			logger.ErrorContext(ctx, "failed to create booking", "error", err, "ride_id", req.RideID)
			c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to create booking"))
		}
		return
	}

	a.obs.Bookings.Admitted(b.Seats)
	logger.InfoContext(ctx, "booking admitted",
		"booking_id", b.ID, "ride_id", b.RideID, "seats", b.Seats)

	c.JSON(http.StatusOK, toBookingResponse(b))
}

// bookingResponses attaches each booking's ride, with its driver's rating
// looked up once for all drivers.
func (a *API) bookingResponses(ctx context.Context, bookings []booking.Listing) ([]bookingResponse, error) {
	driverIDs := make([]string, 0, len(bookings))
	for _, b := range bookings {
		driverIDs = append(driverIDs, b.Ride.DriverID)
	}
	drivers, err := a.rtr.DriverSummaries(ctx, driverIDs)
	if err != nil {
		return nil, err
	}

	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		resp := toBookingResponse(b.Booking)
		r := toRideResponse(b.Ride, drivers[b.Ride.DriverID])
		resp.Ride = &r
		out = append(out, resp)
	}
	return out, nil
}

func (a *API) getBookingsHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	ctx := c.Request.Context()

	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	// Parse optional status filter
	var statusPtr *booking.BookingStatus
	if s := c.Query("status"); s != "" {
		status, err := booking.ParseStatus(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, errorBody("INVALID_STATUS", "Invalid booking status"))
			return
		}
		statusPtr = &status
	}

	bookings, err := a.bkr.GetByUserID(ctx, userID, statusPtr)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get user bookings", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to fetch bookings"))
		return
	}

	responses, err := a.bookingResponses(ctx, bookings)
	if err != nil {
		logger.ErrorContext(ctx, "failed to rate drivers", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to fetch bookings"))
		return
	}

	c.JSON(http.StatusOK, responses)
}

func (a *API) getBookingHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	ctx := c.Request.Context()

	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	b, err := a.bkr.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorBody("BOOKING_NOT_FOUND", "Booking not found"))
			return
		}
		logger.ErrorContext(ctx, "failed to get booking", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to fetch booking"))
		return
	}
	if b.UserID != userID {
		unauthorized(c)
		return
	}

	responses, err := a.bookingResponses(ctx, []booking.Listing{b})
	if err != nil {
		logger.ErrorContext(ctx, "failed to rate driver", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to fetch booking"))
		return
	}

	c.JSON(http.StatusOK, responses[0])
}
