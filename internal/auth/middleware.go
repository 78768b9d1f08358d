package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userKey = "auth.user"

// BearerToken extracts the token from an Authorization header, or "".
func BearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}

// RequireSession rejects requests without a live session and stores the user
// in the gin context.
func RequireSession(g *Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		u, ok, err := g.CurrentUser(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}
		c.Set(userKey, u)
		c.Next()
	}
}

// UserFrom returns the user stored by RequireSession.
func UserFrom(c *gin.Context) (User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return User{}, false
	}
	u, ok := v.(User)
	return u, ok
}
