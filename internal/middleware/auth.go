package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"flatfinder/internal/config"
	"flatfinder/internal/models"
	"flatfinder/internal/repository"
	"flatfinder/internal/security"
)

const (
	msgNoToken      = "Access denied. No token provided."
	msgInvalidToken = "Invalid token"

	identityKey = "identity"
)

type UserLookup interface {
	GetByID(ctx context.Context, id string) (models.User, error)
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Auth verifies the bearer token and attaches the caller's Identity. The
// admin flag comes from the store on every request, so demotions and
// deleted accounts take effect before the token expires.
func Auth(cfg *config.AppConfig, users UserLookup, revocations RevocationChecker, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abort(c, http.StatusUnauthorized, msgNoToken)
			return
		}

		reject := func(reason string, err error) {
			log.Warn().
				Err(err).
				Str("reason", reason).
				Str("request_id", RequestIDFrom(c)).
				Str("path", c.Request.URL.Path).
				Msg("token rejected")
			abort(c, http.StatusUnauthorized, msgInvalidToken)
		}

		claims, err := security.ParseAccessToken(tokenStr, cfg.Security.JWTSecret)
		if err != nil {
			reject(security.TokenFailureReason(err), err)
			return
		}

		ctx := c.Request.Context()
		if revocations != nil {
			revoked, err := revocations.IsRevoked(ctx, claims.ID)
			if err != nil {
				log.Error().Err(err).Str("request_id", RequestIDFrom(c)).Msg("revocation check failed")
				abort(c, http.StatusInternalServerError, msgServerError)
				return
			}
			if revoked {
				reject("revoked", nil)
				return
			}
		}

		user, err := users.GetByID(ctx, claims.Subject)
		if errors.Is(err, repository.ErrUserNotFound) {
			reject("unknown_subject", nil)
			return
		}
		if err != nil {
			log.Error().Err(err).Str("request_id", RequestIDFrom(c)).Msg("load token subject failed")
			abort(c, http.StatusInternalServerError, msgServerError)
			return
		}

		identity := security.Identity{
			UserID:    user.ID,
			Email:     user.Email,
			IsAdmin:   user.IsAdmin,
			TokenID:   claims.ID,
			ExpiresAt: claims.ExpiresAt.Time,
		}
		c.Set(identityKey, identity)
		c.Request = c.Request.WithContext(security.WithIdentity(ctx, identity))

		c.Next()
	}
}

// CurrentIdentity returns the identity attached by Auth.
func CurrentIdentity(c *gin.Context) (security.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return security.Identity{}, false
	}
	id, ok := v.(security.Identity)
	return id, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
