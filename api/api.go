package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/semanticallynull/smartcommutex-backend/booking"
	"github.com/semanticallynull/smartcommutex-backend/chat"
	"github.com/semanticallynull/smartcommutex-backend/internal/auth0"
	"github.com/semanticallynull/smartcommutex-backend/internal/middleware"
	"github.com/semanticallynull/smartcommutex-backend/internal/o11y"
	"github.com/semanticallynull/smartcommutex-backend/rating"
	"github.com/semanticallynull/smartcommutex-backend/ride"
	"github.com/semanticallynull/smartcommutex-backend/user"
)

type Config struct {
	// Authenticator rejects requests without a valid identity and leaves the
	// validated claims in the request context.
	Authenticator gin.HandlerFunc
	// Identity fills the profile of users seen for the first time.
	Identity auth0.Client

	AllowedOrigins []string

	MetricsUsername string
	MetricsPassword string
}

type API struct {
	r   *gin.Engine
	obs *o11y.Observability

	rr  *ride.Repository
	bkr *booking.Repository
	ur  *user.Repository
	rtr *rating.Repository
	chr *chat.Repository
}

// New wires the HTTP routes. ratings may be built with a nil cache.
func New(db *sqlx.DB, ratingCache *rating.Cache, obs *o11y.Observability, cfg Config) *API {
	a := &API{
		r:   gin.New(),
		obs: obs,
		rr:  ride.NewRepository(db),
		bkr: booking.NewRepository(db),
		ur:  user.NewRepository(db),
		rtr: rating.NewRepository(db, ratingCache, obs.Logger),
		chr: chat.NewRepository(db),
	}

	a.r.Use(
		gin.Recovery(),
		middleware.Tracing(),
		middleware.Logging(obs.Logger),
		middleware.Metrics(obs.Registry),
	)
	if len(cfg.AllowedOrigins) > 0 {
		a.r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders:    []string{middleware.RequestIDHeader},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	metrics := gin.WrapH(promhttp.HandlerFor(obs.Registry, promhttp.HandlerOpts{}))
	if cfg.MetricsUsername != "" && cfg.MetricsPassword != "" {
		a.r.GET("/metrics", gin.BasicAuth(gin.Accounts{cfg.MetricsUsername: cfg.MetricsPassword}), metrics)
	} else {
		a.r.GET("/metrics", metrics)
	}

	protected := a.r.Group("/", cfg.Authenticator, middleware.EnsureUser(a.ur, cfg.Identity))
	{
		protected.GET("/rides", a.searchRidesHandler)
		protected.POST("/rides", a.createRideHandler)
		protected.GET("/rides/:id", a.getRideHandler)

		protected.GET("/bookings", a.getBookingsHandler)
		protected.POST("/bookings", a.createBookingHandler)
		protected.GET("/bookings/:id", a.getBookingHandler)

		protected.POST("/ratings", a.createRatingHandler)
		protected.GET("/users/:id/rating", a.driverRatingHandler)

		protected.GET("/chats", a.getChatsHandler)
		protected.POST("/chats", a.createChatHandler)
		protected.GET("/messages", a.getMessagesHandler)
		protected.POST("/messages", a.createMessageHandler)

		protected.GET("/me", a.getProfileHandler)
		protected.PUT("/me", a.updateProfileHandler)
		protected.GET("/me/rides", a.myRidesHandler)
	}

	return a
}

func (a *API) Router() *gin.Engine {
	return a.r
}

func errorBody(code, message string) gin.H {
	return gin.H{"code": code, "error": message}
}

func unauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, errorBody("UNAUTHORIZED", "Unauthorized"))
}
