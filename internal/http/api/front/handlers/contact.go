package handlers

import (
	"net/http"

	"github.com/folioworks/portfolio-api/internal/contact"
	apihttp "github.com/folioworks/portfolio-api/internal/http"
	"github.com/gin-gonic/gin"
)

// ContactHandler accepts public contact form submissions.
type ContactHandler struct {
	store *contact.Store
}

// NewContactHandler constructs a ContactHandler.
func NewContactHandler(store *contact.Store) *ContactHandler {
	return &ContactHandler{store: store}
}

// Submit validates and stores a submission.
func (h *ContactHandler) Submit(c *gin.Context) {
	var body contact.Input
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	body.IP = c.ClientIP()
	body.UserAgent = c.Request.UserAgent()

	row, err := h.store.Create(c.Request.Context(), body)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "id": row.ID})
}
