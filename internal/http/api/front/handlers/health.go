package handlers

import (
	"net/http"

	"github.com/folioworks/portfolio-api/internal/db"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	db                *gorm.DB
	storageConfigured bool
}

// NewHealthHandler constructs a HealthHandler. db may be nil.
func NewHealthHandler(db *gorm.DB, storageConfigured bool) *HealthHandler {
	return &HealthHandler{db: db, storageConfigured: storageConfigured}
}

// Health always reports ok. Dependency flags appear only for configured backends.
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{"ok": true}
	if h.db != nil {
		body["database"] = db.Ping(c.Request.Context(), h.db) == nil
	}
	if h.storageConfigured {
		body["storage"] = true
	}
	c.JSON(http.StatusOK, body)
}
