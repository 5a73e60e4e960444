package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/folioworks/portfolio-api/internal/ratelimit"
	"github.com/folioworks/portfolio-api/internal/security"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Authenticator resolves a bearer token into a caller identity.
type Authenticator interface {
	Configured() bool
	Authenticate(ctx context.Context, token string) (*security.Identity, error)
}

// AuthMiddleware verifies the bearer token and stores the identity in context.
// Requests without a valid token never reach the handler.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if auth == nil || !auth.Configured() {
			log.Error("auth middleware: verifier not configured")
			RespondError(c, security.ErrNotConfigured)
			return
		}

		token, errToken := security.BearerToken(c.GetHeader("Authorization"))
		if errToken != nil {
			RespondError(c, errToken)
			return
		}

		identity, errAuth := auth.Authenticate(c.Request.Context(), token)
		if errAuth != nil {
			log.WithError(errAuth).Debug("bearer token rejected")
			RespondError(c, errAuth)
			return
		}

		c.Set(ContextKeyIdentity, identity)
		c.Next()
	}
}

// RequireAdmin rejects authenticated callers missing from the admin allow-list.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		if !identity.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware limits requests per client IP. Limiter failures let the
// request through.
func RateLimitMiddleware(limiter ratelimit.Limiter, scope, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		decision, err := limiter.Allow(c.Request.Context(), scope+":"+c.ClientIP())
		if err != nil {
			log.WithError(err).WithField("scope", scope).Warn("rate limiter unavailable; allowing request")
			c.Next()
			return
		}
		if !decision.Allowed {
			if secs := int(decision.RetryAfter.Seconds()); secs > 0 {
				c.Header("Retry-After", strconv.Itoa(secs))
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": message})
			return
		}
		c.Next()
	}
}
