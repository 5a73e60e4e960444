// Package storagetest provides an in-memory fake of the Supabase Storage REST
// API for tests. It implements the upload, remove, list and public download
// routes used by storage.SupabaseStore and records every removal request.
package storagetest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"
)

// Server is a fake storage endpoint backed by a map.
type Server struct {
	*httptest.Server

	Bucket string

	mu         sync.Mutex
	objects    map[string]object
	removals   [][]string
	failRemove bool
}

type object struct {
	data        []byte
	contentType string
	updatedAt   time.Time
}

// NewServer starts a fake storage server for bucket. Callers must Close it.
func NewServer(bucket string) *Server {
	s := &Server{Bucket: bucket, objects: map[string]object{}}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Put seeds an object directly.
func (s *Server) Put(key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: data, contentType: "application/octet-stream", updatedAt: time.Now().UTC()}
}

// Object returns the stored bytes for key.
func (s *Server) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj.data, ok
}

// SetFailRemove makes every delete call return a 500 while enabled.
func (s *Server) SetFailRemove(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failRemove = fail
}

// Removals returns every key list received by the delete endpoint.
func (s *Server) Removals() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.removals))
	copy(out, s.removals)
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	objectPrefix := "/storage/v1/object/" + s.Bucket
	publicPrefix := "/storage/v1/object/public/" + s.Bucket + "/"
	listPath := "/storage/v1/object/list/" + s.Bucket

	switch {
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, publicPrefix):
		s.serve(w, strings.TrimPrefix(r.URL.Path, publicPrefix))
	case r.Method == http.MethodPost && r.URL.Path == listPath:
		s.requireAuth(w, r, s.list)
	case r.Method == http.MethodDelete && r.URL.Path == objectPrefix:
		s.requireAuth(w, r, s.remove)
	case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, objectPrefix+"/"):
		s.requireAuth(w, r, func(w http.ResponseWriter, r *http.Request) {
			s.upload(w, r, strings.TrimPrefix(r.URL.Path, objectPrefix+"/"))
		})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "route not found"})
	}
}

func (s *Server) requireAuth(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") || r.Header.Get("apikey") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized", "message": "missing key"})
		return
	}
	next(w, r)
}

func (s *Server) serve(w http.ResponseWriter, key string) {
	s.mu.Lock()
	obj, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "message": "Object not found"})
		return
	}
	w.Header().Set("Content-Type", obj.contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.data)
}

func (s *Server) upload(w http.ResponseWriter, r *http.Request, key string) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	s.mu.Lock()
	_, exists := s.objects[key]
	if exists && r.Header.Get("x-upsert") != "true" {
		s.mu.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Duplicate", "message": "The resource already exists"})
		return
	}
	s.objects[key] = object{data: data, contentType: r.Header.Get("Content-Type"), updatedAt: time.Now().UTC()}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"Key": s.Bucket + "/" + key})
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prefixes []string `json:"prefixes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	s.mu.Lock()
	s.removals = append(s.removals, body.Prefixes)
	if s.failRemove {
		s.mu.Unlock()
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal", "message": "remove failed"})
		return
	}
	removed := make([]map[string]string, 0, len(body.Prefixes))
	for _, key := range body.Prefixes {
		if _, ok := s.objects[key]; ok {
			delete(s.objects, key)
			removed = append(removed, map[string]string{"name": key})
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, removed)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Prefix string `json:"prefix"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}
	prefix := strings.Trim(body.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}

	s.mu.Lock()
	files := map[string]object{}
	dirs := map[string]struct{}{}
	for key, obj := range s.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			dirs[rest[:idx]] = struct{}{}
			continue
		}
		files[rest] = obj
	}
	s.mu.Unlock()

	out := make([]map[string]any, 0, len(files)+len(dirs))
	for name := range dirs {
		out = append(out, map[string]any{"name": name, "id": nil, "metadata": nil})
	}
	for name, obj := range files {
		out = append(out, map[string]any{
			"name":       name,
			"id":         "obj-" + name,
			"updated_at": obj.updatedAt.Format(time.RFC3339Nano),
			"metadata":   map[string]any{"size": len(obj.data), "mimetype": obj.contentType},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i]["name"].(string) < out[j]["name"].(string) })
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
