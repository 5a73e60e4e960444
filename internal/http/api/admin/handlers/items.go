package handlers

import (
	"net/http"

	"github.com/folioworks/portfolio-api/internal/content"
	apihttp "github.com/folioworks/portfolio-api/internal/http"
	"github.com/gin-gonic/gin"
)

// ItemHandler serves child item CRUD. The relation comes from ?itemType= or
// the body's itemType; single-relation sections may omit it.
type ItemHandler struct {
	engine *content.Engine
}

// NewItemHandler constructs an ItemHandler.
func NewItemHandler(engine *content.Engine) *ItemHandler {
	return &ItemHandler{engine: engine}
}

// List returns the child items under the default (or ?parentId=) row.
func (h *ItemHandler) List(c *gin.Context) {
	section, err := parseSection(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	pid, err := parentID(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	items, err := h.engine.ListItems(c.Request.Context(), section, itemType(c, nil), pid)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

// Create inserts a child item.
func (h *ItemHandler) Create(c *gin.Context) {
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
	pid, err := parentID(c)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	item, err := h.engine.CreateItem(c.Request.Context(), section, itemType(c, body), pid, body)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// Patch updates whitelisted fields of a child item.
func (h *ItemHandler) Patch(c *gin.Context) {
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
	item, err := h.engine.PatchItem(c.Request.Context(), section, itemType(c, body), id, body)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// Delete removes a child item and, best effort, its stored image.
func (h *ItemHandler) Delete(c *gin.Context) {
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
	outcome, err := h.engine.DeleteItem(c.Request.Context(), section, itemType(c, nil), id)
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}
