package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bibliophile/server/internal/auth"
	"bibliophile/server/internal/logging"
)

const (
	// ContextKeyEmail holds the key for the verified caller email in Gin context.
	ContextKeyEmail = "email"
)

var (
	unauthorizedBody = gin.H{"message": "unauthorized access"}
	forbiddenBody    = gin.H{"message": "forbidden access"}
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(tokenString string) (*auth.Claims, error)
}

// RoleDirectory answers whether an email holds a role.
type RoleDirectory interface {
	HasRole(ctx context.Context, email string, role auth.Role) (bool, error)
}

// AuthMiddleware creates a Gin middleware for JWT authentication. A missing or
// malformed header is 401; a token that fails verification is 403.
func AuthMiddleware(tokens TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedBody)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, unauthorizedBody)
			return
		}

		claims, err := tokens.Verify(parts[1])
		if err != nil {
			if !errors.Is(err, auth.ErrTokenExpired) {
				logging.L().Debug("rejected bearer token", zap.String("path", c.FullPath()), zap.Error(err))
			}
			c.AbortWithStatusJSON(http.StatusForbidden, forbiddenBody)
			return
		}

		c.Set(ContextKeyEmail, claims.Email)
		c.Next()
	}
}

// RequireRole creates a Gin middleware admitting only callers whose directory
// record holds role. Assumes AuthMiddleware runs first.
func RequireRole(directory RoleDirectory, role auth.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := EmailFromContext(c)
		if email == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, forbiddenBody)
			return
		}

		ok, err := directory.HasRole(c.Request.Context(), email, role)
		if err != nil {
			logging.L().Error("role lookup failed", zap.String("email", email), zap.Stringer("role", role), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify role"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, forbiddenBody)
			return
		}
		c.Next()
	}
}

// RequireQueryOwner rejects requests whose ?param= differs from the token email,
// so callers can only list their own records.
func RequireQueryOwner(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query(param) != EmailFromContext(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, forbiddenBody)
			return
		}
		c.Next()
	}
}

// EmailFromContext returns the verified caller email, or "" when the request
// did not pass through AuthMiddleware.
func EmailFromContext(c *gin.Context) string {
	return c.GetString(ContextKeyEmail)
}
