package handlers

import (
	"net/http"

	"github.com/folioworks/portfolio-api/internal/content"
	apihttp "github.com/folioworks/portfolio-api/internal/http"
	"github.com/gin-gonic/gin"
)

// NestedHandler serves nested item CRUD under
// /sections/:section/nested/:parentTable/:parentId/:nestedType.
type NestedHandler struct {
	engine *content.Engine
}

// NewNestedHandler constructs a NestedHandler.
func NewNestedHandler(engine *content.Engine) *NestedHandler {
	return &NestedHandler{engine: engine}
}

type nestedTarget struct {
	parentTable string
	parentID    int64
	nestedType  string
}

// target validates that parentTable is a child table of the section.
func (h *NestedHandler) target(c *gin.Context) (nestedTarget, error) {
	section, err := parseSection(c)
	if err != nil {
		return nestedTarget{}, err
	}
	schema, err := content.SchemaFor(section)
	if err != nil {
		return nestedTarget{}, err
	}
	rel, err := schema.ChildByTable(c.Param("parentTable"))
	if err != nil {
		return nestedTarget{}, err
	}
	pid, err := parseID(c, "parentId")
	if err != nil {
		return nestedTarget{}, err
	}
	return nestedTarget{parentTable: rel.Table, parentID: pid, nestedType: c.Param("nestedType")}, nil
}

// List returns nested items under a child item.
func (h *NestedHandler) List(c *gin.Context) {
	t, err := h.target(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	rows, err := h.engine.ListNested(c.Request.Context(), t.parentTable, t.parentID, t.nestedType)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

// Create inserts a nested item.
func (h *NestedHandler) Create(c *gin.Context) {
	t, err := h.target(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	body, err := bindBody(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	row, err := h.engine.CreateNested(c.Request.Context(), t.parentTable, t.parentID, t.nestedType, body)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, row)
}

// Patch updates a nested item.
func (h *NestedHandler) Patch(c *gin.Context) {
	t, err := h.target(c)
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
	row, err := h.engine.PatchNested(c.Request.Context(), t.parentTable, t.parentID, t.nestedType, id, body)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

// Delete removes a nested item.
func (h *NestedHandler) Delete(c *gin.Context) {
	t, err := h.target(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	id, err := parseID(c, "id")
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	outcome, err := h.engine.DeleteNested(c.Request.Context(), t.parentTable, t.parentID, t.nestedType, id)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}
