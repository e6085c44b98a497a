package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	adapter "github.com/gwatts/gin-adapter"

	"github.com/semanticallynull/smartcommutex-backend/internal/auth0"
	"github.com/semanticallynull/smartcommutex-backend/user"
)

// GetUserID extracts the user ID (sub claim) from the JWT token in the Gin context
func GetUserID(c *gin.Context) (string, bool) {
	// The JWT middleware stores the validated claims in the request context
	claims, exists := c.Request.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	if !exists || claims.RegisteredClaims.Subject == "" {
		return "", false
	}

	return claims.RegisteredClaims.Subject, true
}

// WithUserID returns ctx carrying claims for subject, the way the JWT
// middleware leaves them after a successful validation.
func WithUserID(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, jwtmiddleware.ContextKey{}, &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: subject},
	})
}

// Auth0 validates RS256 bearer tokens issued by the tenant at domain for
// audience. Keys are fetched from the tenant's JWKS endpoint and cached.
func Auth0(domain, audience string) (gin.HandlerFunc, error) {
	if domain == "" || audience == "" {
		return nil, errors.New("auth0 domain and audience are required")
	}

	issuerURL, err := url.Parse("https://" + domain + "/")
	if err != nil {
		return nil, err
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{audience},
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, err
	}

	m := jwtmiddleware.New(jwtValidator.ValidateToken, jwtmiddleware.WithErrorHandler(unauthorized))
	return adapter.Wrap(m.CheckJWT), nil
}

func unauthorized(w http.ResponseWriter, _ *http.Request, err error) {
	slog.Debug("rejected bearer token", "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"code":"UNAUTHORIZED","error":"Unauthorized"}`))
}

// EnsureUser makes sure the authenticated caller has a local user row. On
// first sight the profile is taken from the identity provider; if that
// lookup fails the row is created without one.
func EnsureUser(users *user.Repository, idp auth0.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := GetUserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "error": "Unauthorized"})
			return
		}

		logger := GetLogger(c)
		ctx := c.Request.Context()

		exists, err := users.Exists(ctx, userID)
		if err != nil {
			logger.ErrorContext(ctx, "failed to look up user", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "error": "internal error"})
			return
		}
		if exists {
			c.Next()
			return
		}

		var profile user.Profile
		info, err := idp.GetUserInfo(ctx, bearerToken(c.Request))
		if err != nil {
			logger.WarnContext(ctx, "failed to fetch user profile", "error", err)
		} else {
			profile = user.Profile{Email: info.Email, Name: info.Name, Image: info.Picture}
		}

		if _, err := users.EnsureUser(ctx, userID, profile); err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "INTERNAL", "error": "internal error"})
			return
		}
		logger.InfoContext(ctx, "created user", "user_id", userID)

		c.Next()
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return h[7:]
	}
	return ""
}
