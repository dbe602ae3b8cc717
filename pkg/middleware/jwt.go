package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"carlyn/auth-api/internal/model"
	"carlyn/auth-api/internal/users"
	"carlyn/auth-api/pkg/security"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserFinder is the part of the user store the JWT middleware needs
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// NewJWTMiddleware accepts a Bearer token, or the auth_token cookie as a
// fallback, and sets userID for the handlers that follow
func NewJWTMiddleware(t *security.Tokens, u UserFinder) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		raw := bearer(c.GetHeader("Authorization"))
		if raw == "" {
			raw, _ = c.Cookie("auth_token")
		}

		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token missing",
				"requestID": requestID,
			})
			return
		}

		claims, err := t.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "Authorization token invalid",
				"requestID": requestID,
			})

			zap.L().Debug("Failed to parse token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		// The account may have been removed after the token was issued
		if _, err := u.FindByID(c.Request.Context(), claims.Subject); err != nil {
			if errors.Is(err, users.ErrNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error":     "User not found",
					"requestID": requestID,
				})
				return
			}

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to check if user exists", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.Set("userID", claims.Subject)
		c.Next()
	}
}

func bearer(h string) string {
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
