package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// listPageSize bounds a single list call.
const listPageSize = 1000

// SupabaseStore talks to the Supabase Storage REST API with a service key.
type SupabaseStore struct {
	locator    Locator
	serviceKey string
	client     *http.Client
}

// NewSupabaseStore constructs a store for bucket on the project at baseURL.
// It returns nil when the endpoint or key is missing so callers can treat storage
// as disabled.
func NewSupabaseStore(baseURL, serviceKey, bucket string, client *http.Client) *SupabaseStore {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	serviceKey = strings.TrimSpace(serviceKey)
	bucket = strings.Trim(strings.TrimSpace(bucket), "/")
	if baseURL == "" || serviceKey == "" || bucket == "" {
		return nil
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &SupabaseStore{
		locator:    Locator{BaseURL: baseURL, Bucket: bucket},
		serviceKey: serviceKey,
		client:     client,
	}
}

// PublicURL implements Store.
func (s *SupabaseStore) PublicURL(key string) string { return s.locator.PublicURL(key) }

// StorageKey implements Store.
func (s *SupabaseStore) StorageKey(ref string) string { return s.locator.StorageKey(ref) }

// Upload implements Store with upsert semantics.
func (s *SupabaseStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req, errReq := s.newRequest(ctx, http.MethodPost, s.objectURL(key), body)
	if errReq != nil {
		return errReq
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")
	req.Header.Set("cache-control", "max-age=3600")
	return s.do(req, nil)
}

// removeRequest is the body of a bulk delete.
type removeRequest struct {
	Prefixes []string `json:"prefixes"`
}

// Remove implements Store.
func (s *SupabaseStore) Remove(ctx context.Context, keys ...string) error {
	cleaned := make([]string, 0, len(keys))
	for _, key := range keys {
		if key = strings.TrimPrefix(strings.TrimSpace(key), "/"); key != "" {
			cleaned = append(cleaned, key)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	payload, errMarshal := json.Marshal(removeRequest{Prefixes: cleaned})
	if errMarshal != nil {
		return fmt.Errorf("storage: encode remove: %w", errMarshal)
	}
	req, errReq := s.newRequest(ctx, http.MethodDelete, s.endpoint("object", s.locator.Bucket), bytes.NewReader(payload))
	if errReq != nil {
		return errReq
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, nil)
}

// listRequest is the body of a list call.
type listRequest struct {
	Prefix string     `json:"prefix"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
	SortBy listSortBy `json:"sortBy"`
}

type listSortBy struct {
	Column string `json:"column"`
	Order  string `json:"order"`
}

// listEntry is one row of a list response. Directories come back without an id.
type listEntry struct {
	Name      string         `json:"name"`
	ID        *string        `json:"id"`
	UpdatedAt *time.Time     `json:"updated_at"`
	Metadata  map[string]any `json:"metadata"`
}

// List implements Store.
func (s *SupabaseStore) List(ctx context.Context, prefix string) ([]Object, error) {
	prefix = Sanitize(prefix)
	payload, errMarshal := json.Marshal(listRequest{
		Prefix: prefix,
		Limit:  listPageSize,
		SortBy: listSortBy{Column: "name", Order: "asc"},
	})
	if errMarshal != nil {
		return nil, fmt.Errorf("storage: encode list: %w", errMarshal)
	}
	req, errReq := s.newRequest(ctx, http.MethodPost, s.endpoint("object", "list", s.locator.Bucket), bytes.NewReader(payload))
	if errReq != nil {
		return nil, errReq
	}
	req.Header.Set("Content-Type", "application/json")

	var entries []listEntry
	if errDo := s.do(req, &entries); errDo != nil {
		return nil, errDo
	}

	out := make([]Object, 0, len(entries))
	for _, entry := range entries {
		if entry.ID == nil || entry.Name == "" || entry.Name == ".emptyFolderPlaceholder" {
			continue
		}
		key := entry.Name
		if prefix != "" {
			key = prefix + "/" + entry.Name
		}
		obj := Object{
			Name: entry.Name,
			Path: key,
			URL:  s.locator.PublicURL(key),
		}
		if entry.UpdatedAt != nil {
			obj.UpdatedAt = *entry.UpdatedAt
		}
		if size, ok := entry.Metadata["size"].(float64); ok {
			obj.Size = int64(size)
		}
		if mime, ok := entry.Metadata["mimetype"].(string); ok {
			obj.ContentType = mime
		}
		out = append(out, obj)
	}
	return out, nil
}

func (s *SupabaseStore) objectURL(key string) string {
	segments := []string{"object", s.locator.Bucket}
	segments = append(segments, strings.Split(strings.TrimPrefix(key, "/"), "/")...)
	return s.endpoint(segments...)
}

func (s *SupabaseStore) endpoint(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, seg := range segments {
		escaped[i] = url.PathEscape(seg)
	}
	return s.locator.BaseURL + "/storage/v1/" + strings.Join(escaped, "/")
}

func (s *SupabaseStore) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("storage: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
	return req, nil
}

// apiError is the error envelope returned by the storage API.
type apiError struct {
	StatusCode string `json:"statusCode"`
	Error      string `json:"error"`
	Message    string `json:"message"`
}

func (s *SupabaseStore) do(req *http.Request, out any) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("storage: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, errRead := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if errRead != nil {
		return fmt.Errorf("storage: read response: %w", errRead)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		var apiErr apiError
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &apiErr) == nil && (apiErr.Message != "" || apiErr.Error != "") {
			msg = apiErr.Message
			if msg == "" {
				msg = apiErr.Error
			}
		}
		return fmt.Errorf("storage: %s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, msg)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if errDecode := json.Unmarshal(data, out); errDecode != nil {
		return fmt.Errorf("storage: decode response: %w", errDecode)
	}
	return nil
}
