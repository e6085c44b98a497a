package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/smartcommutex-backend/internal/middleware"
	"github.com/semanticallynull/smartcommutex-backend/rating"
)

type ratingResponse struct {
	ID        uuid.UUID `json:"id"`
	BookingID uuid.UUID `json:"bookingId"`
	RaterID   string    `json:"raterId"`
	UserID    string    `json:"userId"`
	Rating    int       `json:"rating"`
	Review    *string   `json:"review,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type createRatingRequest struct {
	BookingID string `json:"bookingId"`
	Rating    int    `json:"rating"`
	Review    string `json:"review"`
}

func (a *API) createRatingHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	ctx := c.Request.Context()

	userID, _ := middleware.GetUserID(c)

	var req createRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "Invalid request body"))
		return
	}

	rt, err := a.rtr.Create(ctx, userID, rating.Request{BookingID: req.BookingID, Value: req.Rating, Review: req.Review})
	switch {
	case errors.Is(err, rating.ErrUnauthenticated), errors.Is(err, rating.ErrNotYourBooking):
		unauthorized(c)
		return
	case errors.Is(err, rating.ErrMissingFields):
		c.JSON(http.StatusBadRequest, errorBody("MISSING_FIELDS", "Missing required fields"))
		return
	case errors.Is(err, rating.ErrOutOfRange):
		c.JSON(http.StatusBadRequest, errorBody("INVALID_RATING", "Rating must be between 1 and 5"))
		return
	case errors.Is(err, rating.ErrAlreadyRated):
		c.JSON(http.StatusBadRequest, errorBody("ALREADY_RATED", "Rating already exists"))
		return
	case errors.Is(err, rating.ErrNotFound):
		c.JSON(http.StatusNotFound, errorBody("BOOKING_NOT_FOUND", "Booking not found"))
		return
	case err != nil:
		logger.ErrorContext(ctx, "failed to create rating", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to create rating"))
		return
	}

	resp := ratingResponse{
		ID:        rt.ID,
		BookingID: rt.BookingID,
		RaterID:   rt.RaterID,
		UserID:    rt.UserID,
		Rating:    rt.Value,
		CreatedAt: rt.CreatedAt,
	}
	if rt.Review.Valid {
		resp.Review = &rt.Review.String
	}
	c.JSON(http.StatusOK, resp)
}

func (a *API) driverRatingHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	ctx := c.Request.Context()

	s, err := a.rtr.DriverSummary(ctx, c.Param("id"))
	if err != nil {
		logger.ErrorContext(ctx, "failed to rate driver", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to fetch rating"))
		return
	}

	c.JSON(http.StatusOK, s)
}
