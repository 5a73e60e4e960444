package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/folioworks/portfolio-api/internal/contact"
	apihttp "github.com/folioworks/portfolio-api/internal/http"
	"github.com/folioworks/portfolio-api/internal/models"
	"github.com/gin-gonic/gin"
)

// EmailHandler manages contact form submissions.
type EmailHandler struct {
	store *contact.Store
}

// NewEmailHandler constructs an EmailHandler.
func NewEmailHandler(store *contact.Store) *EmailHandler {
	return &EmailHandler{store: store}
}

// List returns submissions newest first, optionally filtered by ?q=.
func (h *EmailHandler) List(c *gin.Context) {
	rows, err := h.store.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	if rows == nil {
		rows = []models.ContactSubmission{}
	}
	c.JSON(http.StatusOK, rows)
}

// Delete removes a submission.
func (h *EmailHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
}
