package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/folioworks/portfolio-api/internal/content"
	apihttp "github.com/folioworks/portfolio-api/internal/http"
	"github.com/gin-gonic/gin"
)

// multipartMemory is how much of a multipart form is buffered in memory.
const multipartMemory = 8 << 20

// AssetHandler serves storage upload and listing.
type AssetHandler struct {
	engine   *content.Engine
	maxBytes int64
}

// NewAssetHandler constructs an AssetHandler accepting files up to maxBytes.
func NewAssetHandler(engine *content.Engine, maxBytes int64) *AssetHandler {
	return &AssetHandler{engine: engine, maxBytes: maxBytes}
}

// Upload stores the multipart "file" field and returns its path and public URL.
// Optional form fields: section, experienceType, path.
func (h *AssetHandler) Upload(c *gin.Context) {
	// The multipart envelope adds a little overhead on top of the file itself.
	limit := h.maxBytes + 64<<10
	if c.Request.ContentLength > limit {
		apihttp.RespondError(c, &http.MaxBytesError{Limit: limit})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	if errParse := c.Request.ParseMultipartForm(multipartMemory); errParse != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(errParse, &tooLarge) {
			apihttp.RespondError(c, tooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid multipart form"})
		return
	}
	fileHeader, errFile := c.FormFile("file")
	if errFile != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > h.maxBytes {
		apihttp.RespondError(c, &http.MaxBytesError{Limit: h.maxBytes})
		return
	}

	file, errOpen := fileHeader.Open()
	if errOpen != nil {
		apihttp.RespondError(c, errOpen)
		return
	}
	defer func() { _ = file.Close() }()

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	res, err := h.engine.UploadAsset(c.Request.Context(), content.UploadInput{
		Body:        file,
		Filename:    fileHeader.Filename,
		ContentType: contentType,
		Section:     strings.TrimSpace(c.PostForm("section")),
		SubType:     strings.TrimSpace(c.PostForm("experienceType")),
		Path:        strings.TrimSpace(c.PostForm("path")),
	})
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// List returns the files under ?prefix=.
func (h *AssetHandler) List(c *gin.Context) {
	objects, err := h.engine.ListAssets(c.Request.Context(), c.Query("prefix"))
	if err != nil {
		apihttp.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": objects})
}
