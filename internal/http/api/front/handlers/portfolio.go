package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/folioworks/portfolio-api/internal/content"
	apihttp "github.com/folioworks/portfolio-api/internal/http"
	"github.com/gin-gonic/gin"
)

// PortfolioHandler serves the public read model assembled from live rows.
type PortfolioHandler struct {
	engine *content.Engine
}

// NewPortfolioHandler constructs a PortfolioHandler.
func NewPortfolioHandler(engine *content.Engine) *PortfolioHandler {
	return &PortfolioHandler{engine: engine}
}

// Get writes the portfolio with a content hash ETag and honours If-None-Match.
func (h *PortfolioHandler) Get(c *gin.Context) {
	portfolio, err := h.engine.Portfolio(c.Request.Context())
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	body, errMarshal := json.Marshal(portfolio)
	if errMarshal != nil {
		apihttp.RespondError(c, errMarshal)
		return
	}

	etag := `"` + strconv.FormatUint(xxhash.Sum64(body), 16) + `"`
	c.Header("ETag", etag)
	c.Header("Cache-Control", "no-cache")
	if etagMatches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}
