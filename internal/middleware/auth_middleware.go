package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ArowuTest/raffle-backend/internal/models"
	"github.com/ArowuTest/raffle-backend/pkg/jwt"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const identityKey = "identity"

// TokenParser verifies identity tokens
type TokenParser interface {
	Parse(token string) (*jwt.Claims, error)
}

// JWTAuthMiddleware verifies the bearer token and stores the caller's
// models.Identity in the gin context.
func JWTAuthMiddleware(tokens TokenParser, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		const bearerSchema = "Bearer "
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header is required")
			return
		}
		if !strings.HasPrefix(authHeader, bearerSchema) {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header must start with Bearer")
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(authHeader[len(bearerSchema):]))
		if err != nil {
			log.Debug("token rejected", zap.String("request_id", GetRequestID(c)), zap.Error(err))
			if errors.Is(err, jwt.ErrExpiredToken) {
				abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token has expired")
			} else {
				abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			}
			return
		}

		role := claims.Role
		if role == "" {
			role = models.RoleBuyer
		}
		c.Set(identityKey, models.Identity{
			Subject: claims.Subject,
			Email:   claims.Email,
			Role:    role,
		})
		c.Next()
	}
}

// RequireRole rejects callers whose identity lacks role. It must run after
// JWTAuthMiddleware.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := GetIdentity(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
			return
		}
		if id.Role != role {
			abort(c, http.StatusForbidden, "FORBIDDEN", "insufficient role")
			return
		}
		c.Next()
	}
}

// GetIdentity returns the verified caller, if any
func GetIdentity(c *gin.Context) (models.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return models.Identity{}, false
	}
	id, ok := v.(models.Identity)
	return id, ok
}

func abort(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"kind": kind, "message": message}})
}
