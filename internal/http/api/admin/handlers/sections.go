package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/folioworks/portfolio-api/internal/content"
	apihttp "github.com/folioworks/portfolio-api/internal/http"
	"github.com/gin-gonic/gin"
)

// SectionHandler serves parent row endpoints.
type SectionHandler struct {
	engine *content.Engine
}

// NewSectionHandler constructs a SectionHandler.
func NewSectionHandler(engine *content.Engine) *SectionHandler {
	return &SectionHandler{engine: engine}
}

// List returns the known section names.
func (h *SectionHandler) List(c *gin.Context) {
	sections := content.Sections()
	names := make([]string, 0, len(sections))
	for _, s := range sections {
		names = append(names, string(s))
	}
	c.JSON(http.StatusOK, gin.H{"sections": names})
}

// Get returns the section's default row, or the n-th live row with ?index=.
func (h *SectionHandler) Get(c *gin.Context) {
	section, err := parseSection(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	index := 0
	if raw := strings.TrimSpace(c.Query("index")); raw != "" {
		parsed, errParse := strconv.Atoi(raw)
		if errParse != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a non-negative integer"})
			return
		}
		index = parsed
	}
	row, err := h.engine.DefaultRow(c.Request.Context(), section, index)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// PatchDefault updates the section's default row.
func (h *SectionHandler) PatchDefault(c *gin.Context) {
	section, err := parseSection(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	body, err := bindBody(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	row, err := h.engine.PatchDefaultRow(c.Request.Context(), section, body)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// ListRows returns every live row of a section.
func (h *SectionHandler) ListRows(c *gin.Context) {
	section, err := parseSection(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	rows, err := h.engine.ListRows(c.Request.Context(), section)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	if rows == nil {
		rows = []content.Row{}
	}
	c.JSON(http.StatusOK, rows)
}

// CreateRow inserts a row into a section whose rows are items (gallery).
func (h *SectionHandler) CreateRow(c *gin.Context) {
	section, err := parseSection(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	body, err := bindBody(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	row, err := h.engine.CreateRow(c.Request.Context(), section, body)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// PatchRow updates a row by id. Item-like sections are whitelisted; other
// parent rows take the body as-is.
func (h *SectionHandler) PatchRow(c *gin.Context) {
	section, err := parseSection(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	id, err := parseID(c, "id")
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	body, err := bindBody(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}

	schema, err := content.SchemaFor(section)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	var row content.Row
	if len(schema.RowFields) > 0 {
		row, err = h.engine.PatchRowItem(c.Request.Context(), section, id, body)
	} else {
		row, err = h.engine.PatchRow(c.Request.Context(), section, id, body)
	}
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// DeleteRow removes an item-like row and its assets.
func (h *SectionHandler) DeleteRow(c *gin.Context) {
	section, err := parseSection(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	id, err := parseID(c, "id")
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	outcome, err := h.engine.DeleteRow(c.Request.Context(), section, id)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}
