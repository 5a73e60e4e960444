package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/folioworks/portfolio-api/internal/contact"
	"github.com/folioworks/portfolio-api/internal/content"
	"github.com/folioworks/portfolio-api/internal/security"
	"github.com/folioworks/portfolio-api/internal/storage"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Context keys shared by middleware and handlers.
const (
	ContextKeyIdentity   = "identity"
	ContextKeyRequestID  = "requestID"
	contextKeyProduction = "productionErrors"
)

const genericError = "internal server error"

// ErrorMode records whether upstream error details may be shown to callers.
func ErrorMode(production bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextKeyProduction, production)
		c.Next()
	}
}

// RespondError maps err to a status code and writes {"error": message}.
func RespondError(c *gin.Context, err error) {
	status, message := classify(err)
	if status >= http.StatusInternalServerError {
		entry := log.WithError(err).WithField("path", c.FullPath())
		if id, ok := c.Get(ContextKeyRequestID); ok {
			entry = entry.WithField("request_id", id)
		}
		entry.Error("request failed")
		if message == "" {
			message = genericError
			if !c.GetBool(contextKeyProduction) {
				message = err.Error()
			}
		}
	}
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

func classify(err error) (int, string) {
	var validation *contact.ValidationError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, validation.Error()
	case content.IsClientError(err):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, content.ErrNotFound), errors.Is(err, contact.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "file too large"
	case errors.Is(err, security.ErrNotConfigured):
		return http.StatusInternalServerError, security.ErrNotConfigured.Error()
	case errors.Is(err, security.ErrMissingToken),
		errors.Is(err, security.ErrInvalidToken),
		errors.Is(err, security.ErrExpiredToken):
		return http.StatusUnauthorized, unauthorizedMessage(err)
	case errors.Is(err, content.ErrNotConfigured),
		errors.Is(err, contact.ErrNotConfigured),
		errors.Is(err, storage.ErrNotConfigured):
		return http.StatusServiceUnavailable, "service unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	default:
		return http.StatusInternalServerError, ""
	}
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, security.ErrMissingToken):
		return "missing bearer token"
	case errors.Is(err, security.ErrExpiredToken):
		return "token expired"
	default:
		return "invalid token"
	}
}

// IdentityFrom returns the authenticated caller, if any.
func IdentityFrom(c *gin.Context) (*security.Identity, bool) {
	v, ok := c.Get(ContextKeyIdentity)
	if !ok {
		return nil, false
	}
	id, ok := v.(*security.Identity)
	return id, ok && id != nil
}
