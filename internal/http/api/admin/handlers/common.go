package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/folioworks/portfolio-api/internal/content"
	"github.com/gin-gonic/gin"
)

// bindBody decodes a JSON object body. Numbers stay json.Number so integer
// columns keep their precision.
func bindBody(c *gin.Context) (map[string]any, error) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	body := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return body, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if errDecode := dec.Decode(&body); errDecode != nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", content.ErrInvalidPayload)
	}
	return body, nil
}

func parseID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", content.ErrInvalidPayload, name)
	}
	return id, nil
}

func parseSection(c *gin.Context) (content.Section, error) {
	return content.ParseSection(c.Param("section"))
}

// itemType reads the child relation name from the query, falling back to the body.
func itemType(c *gin.Context, body map[string]any) string {
	if v := strings.TrimSpace(c.Query("itemType")); v != "" {
		return v
	}
	if body != nil {
		if v, ok := body["itemType"].(string); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// parentID reads an optional parentId query parameter.
func parentID(c *gin.Context) (*int64, error) {
	raw := strings.TrimSpace(c.Query("parentId"))
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: parentId must be a positive integer", content.ErrInvalidPayload)
	}
	return &id, nil
}
