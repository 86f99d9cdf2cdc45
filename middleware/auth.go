package middleware

import (
	"errors"
	"net/http"
	"strings"

	"trivialive/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by the auth middleware.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// AuthMiddleware requires a valid token and injects the caller's identity.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, err := identityFromRequest(c, jwtSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: must be logged in"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, userID)
		c.Set(ContextRole, role)
		c.Next()
	}
}

// OptionalAuth injects the caller's identity when a valid token is present
// and lets anonymous requests through untouched.
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role, err := identityFromRequest(c, jwtSecret)
		if err == nil {
			c.Set(ContextUserID, userID)
			c.Set(ContextRole, role)
		}
		c.Next()
	}
}

// AdminRequired runs after AuthMiddleware and rejects non-admin callers.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get(ContextRole)
		if !exists || role != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized: admin access required"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// identityFromRequest reads the token from the Authorization header, falling
// back to the "token" query parameter for websocket upgrades.
func identityFromRequest(c *gin.Context, jwtSecret string) (uint, string, error) {
	tokenString := ""
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		tokenString = strings.TrimPrefix(header, "Bearer ")
	} else if q := c.Query("token"); q != "" {
		tokenString = q
	}
	if tokenString == "" {
		return 0, "", errors.New("missing token")
	}
	return ParseToken(tokenString, jwtSecret)
}

// ParseToken validates a JWT and extracts the user id and role claims.
func ParseToken(tokenString, jwtSecret string) (uint, string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return 0, "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", errors.New("invalid claims")
	}

	userIDFloat, ok := claims["user_id"].(float64)
	if !ok || userIDFloat <= 0 {
		return 0, "", errors.New("invalid user_id claim")
	}

	role, ok := claims["role"].(string)
	if !ok {
		return 0, "", errors.New("invalid role claim")
	}

	return uint(userIDFloat), role, nil
}
