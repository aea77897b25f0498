package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/washpoint/washpoint-backend/config"
	"github.com/washpoint/washpoint-backend/logger"
	"github.com/washpoint/washpoint-backend/types"
)

// Context keys set by AuthMiddleware.
const (
	UserIDKey   = "user_id"
	UserRoleKey = "user_role"
)

// authClaims are the claims we mint and validate. Role is carried so
// handlers can reject wrong-role access before hitting the store.
type authClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the Bearer token and stores the caller's identity
// in the gin context. WebSocket upgrade requests may carry the token in the
// "token" query parameter instead, since browsers cannot set headers on
// WebSocket handshakes.
func AuthMiddleware(cfg *config.ServerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger()

		var token string
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}

		if token == "" && isWebSocketUpgrade(c) {
			token = c.Query("token")
		}

		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization required",
			})
			return
		}

		claims := &authClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(cfg.JwtSecretKey), nil
		})
		if err != nil || !parsed.Valid || claims.Subject == "" {
			log.Warnw("Invalid JWT token",
				"error", err,
				"path", c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(UserRoleKey, claims.Role)
		c.Next()
	}
}

// GetUserID returns the authenticated user's ID from the gin context, or ""
// when the request was not authenticated.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetUserRole returns the authenticated user's role from the gin context.
func GetUserRole(c *gin.Context) types.UserRole {
	return types.UserRole(c.GetString(UserRoleKey))
}

func isWebSocketUpgrade(c *gin.Context) bool {
	return strings.EqualFold(c.GetHeader("Connection"), "upgrade") &&
		strings.EqualFold(c.GetHeader("Upgrade"), "websocket")
}
