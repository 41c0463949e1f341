package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"routelynk/internal/logger"
	"routelynk/internal/models"
	"routelynk/internal/storage"
)

// Context keys under which the guard stores the verified caller identity.
const (
	ContextEmailKey = "email"
	ContextRoleKey  = "role"
)

// TokenVerifier validates an access token and returns the caller's email.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequireAuth checks the Bearer credential. Missing, malformed or expired
// tokens all answer 401 with the same message, so a probe learns nothing
// about which check failed.
func RequireAuth(tokens TokenVerifier, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized access"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized access"})
			return
		}

		email, err := tokens.Verify(parts[1])
		if err != nil {
			log.LogSecurity("TOKEN_REJECTED", fmt.Sprintf("Rejected token from %s: %v", c.ClientIP(), err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized access"})
			return
		}

		c.Set(ContextEmailKey, email)
		c.Next()
	}
}

// OptionalAuth resolves the caller identity when a valid Bearer token is
// present but lets anonymous requests through untouched.
func OptionalAuth(tokens TokenVerifier, store storage.Store, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if email, err := tokens.Verify(parts[1]); err == nil {
				c.Set(ContextEmailKey, email)
				if user, err := store.GetUser(email); err == nil {
					c.Set(ContextRoleKey, string(user.Role))
				}
			}
		}
		c.Next()
	}
}

// RequireRole loads the caller's user record and checks the role. The check
// reads the store on every request, so a role revoked after the token was
// issued takes effect immediately; a fraud-flagged account never passes.
func RequireRole(store storage.Store, log *logger.Logger, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString(ContextEmailKey)

		user, err := store.GetUser(email)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "forbidden access"})
			return
		}

		if user.Role == models.RoleFraud {
			log.LogSecurity("FRAUD_BLOCKED", fmt.Sprintf("Fraud-flagged account %s blocked from %s", email, c.FullPath()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "forbidden access"})
			return
		}

		for _, role := range roles {
			if user.Role == role {
				c.Set(ContextRoleKey, string(user.Role))
				c.Next()
				return
			}
		}

		log.LogSecurity("ROLE_MISMATCH", fmt.Sprintf("%s (role %s) denied %s", email, user.Role, c.FullPath()))
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "forbidden access"})
	}
}

// RequireSelfOrRole allows the request when the path parameter matches the
// caller's own email, otherwise falls back to a role check.
func RequireSelfOrRole(store storage.Store, log *logger.Logger, param string, roles ...models.Role) gin.HandlerFunc {
	roleCheck := RequireRole(store, log, roles...)
	return func(c *gin.Context) {
		if c.Param(param) == c.GetString(ContextEmailKey) {
			c.Next()
			return
		}
		roleCheck(c)
	}
}
