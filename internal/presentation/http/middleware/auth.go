package middleware

import (
	"net/http"
	"strings"

	"github.com/bingocast/bingocast-go/internal/application/services"
	"github.com/bingocast/bingocast-go/internal/infrastructure/security"
	"github.com/gin-gonic/gin"
)

const (
	subjectKey = "authSubject"
	roleKey    = "authRole"
)

// bearerToken extracts the token from the Authorization header or, for
// WebSocket upgrades where headers are awkward, the token query param.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// RequireAuth validates the token and stores subject/role on the context.
func RequireAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		subject, role, err := auth.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(subjectKey, subject)
		c.Set(roleKey, role)
		c.Next()
	}
}

// RequireBroadcaster rejects non-broadcaster tokens. Must run after
// RequireAuth.
func RequireBroadcaster() gin.HandlerFunc {
	return func(c *gin.Context) {
		if role, _ := c.Get(roleKey); role != security.RoleBroadcaster {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "broadcaster role required"})
			return
		}
		c.Next()
	}
}

// AuthSubject returns the authenticated subject stored by RequireAuth.
func AuthSubject(c *gin.Context) string {
	subject, _ := c.Get(subjectKey)
	s, _ := subject.(string)
	return s
}

// AuthRole returns the authenticated role stored by RequireAuth.
func AuthRole(c *gin.Context) string {
	role, _ := c.Get(roleKey)
	r, _ := role.(string)
	return r
}
