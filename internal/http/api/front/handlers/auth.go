package handlers

import (
	"net/http"

	apihttp "github.com/folioworks/portfolio-api/internal/http"
	"github.com/gin-gonic/gin"
)

// AuthHandler exposes the authenticated caller.
type AuthHandler struct{}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

// meUser is the user shape returned by /auth/me.
type meUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Me returns the verified identity and whether it is an admin.
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := apihttp.IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user": meUser{
			ID:        identity.ID,
			Email:     identity.Email,
			FirstName: identity.FirstName,
			LastName:  identity.LastName,
		},
		"isAdmin": identity.IsAdmin,
	})
}
