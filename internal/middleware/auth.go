package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"telecare-backend/pkg/errors"
	"telecare-backend/pkg/jwt"
	"telecare-backend/pkg/response"
)

// AuthMiddleware validates the Bearer token on every request and sets
// user_id and role in the Gin context for downstream handlers
func AuthMiddleware(jwtManager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, http.StatusUnauthorized, string(errors.ErrCodeUnauthenticated), "Authorization header required")
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Error(c, http.StatusUnauthorized, string(errors.ErrCodeUnauthenticated), "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.Validate(parts[1])
		if err != nil {
			response.Error(c, http.StatusUnauthorized, string(errors.ErrCodeInvalidToken), "Invalid token")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Next()
	}
}
