package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/smartcommutex-backend/internal/middleware"
	"github.com/semanticallynull/smartcommutex-backend/user"
)

type profileResponse struct {
	ID        string    `json:"id"`
	Email     *string   `json:"email"`
	Name      *string   `json:"name"`
	Image     *string   `json:"image"`
	CreatedAt time.Time `json:"createdAt"`
}

func toProfileResponse(u *user.User) profileResponse {
	resp := profileResponse{ID: u.ID, CreatedAt: u.CreatedAt}
	if u.Email.Valid {
		resp.Email = &u.Email.String
	}
	if u.Name.Valid {
		resp.Name = &u.Name.String
	}
	if u.Image.Valid {
		resp.Image = &u.Image.String
	}
	return resp
}

func (a *API) getProfileHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	ctx := c.Request.Context()

	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	u, err := a.ur.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorBody("USER_NOT_FOUND", "User not found"))
			return
		}
		logger.ErrorContext(ctx, "failed to get user", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to fetch profile"))
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(u))
}

type updateProfileRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (a *API) updateProfileHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)
	ctx := c.Request.Context()

	userID, ok := middleware.GetUserID(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("INVALID_REQUEST", "Invalid request body"))
		return
	}

	u, err := a.ur.UpdateProfile(ctx, userID, req.Email, req.Name)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			c.JSON(http.StatusNotFound, errorBody("USER_NOT_FOUND", "User not found"))
			return
		}
		logger.ErrorContext(ctx, "failed to update profile", "error", err)
		c.JSON(http.StatusInternalServerError, errorBody("INTERNAL", "Failed to update profile"))
		return
	}

	c.JSON(http.StatusOK, toProfileResponse(u))
}
