package storage

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

// RootPrefix is the single top-level directory every upload lands under.
const RootPrefix = "assets/images"

// Experience sub-types that get their own upload directories.
const (
	SubTypeProfessional = "professional"
	SubTypeLeadership   = "leadership"
)

// ResolveUploadPath derives the object key for an uploaded file.
//
// Sections with a dedicated directory always upload into it; a caller path that
// already carries that directory is stripped so it is not nested twice. Other
// sections honour the sanitized caller path and fall back to
// "{section}/{timestamp}.{ext}".
func ResolveUploadPath(section, subType, callerPath, filename string, now time.Time) string {
	generated := fmt.Sprintf("%d.%s", now.UnixMilli(), extension(filename))
	rel := Sanitize(callerPath)
	isDir := strings.HasSuffix(strings.TrimSpace(callerPath), "/")

	if dir, ok := dedicatedDir(section, subType); ok {
		rel = stripPrefixes(rel, RootPrefix+"/"+dir, dir, RootPrefix)
		if rel == "" {
			rel = generated
		} else if isDir {
			rel = rel + "/" + generated
		}
		return RootPrefix + "/" + dir + "/" + rel
	}

	rel = stripPrefixes(rel, RootPrefix)
	if rel == "" {
		sectionDir := Sanitize(section)
		if sectionDir == "" {
			sectionDir = "misc"
		}
		return RootPrefix + "/" + sectionDir + "/" + generated
	}
	if isDir {
		rel = rel + "/" + generated
	}
	return RootPrefix + "/" + rel
}

// Sanitize removes traversal segments, empty segments and leading slashes from a
// caller-supplied relative path.
func Sanitize(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		switch strings.TrimSpace(part) {
		case "", ".", "..":
			continue
		}
		kept = append(kept, part)
	}
	return strings.Join(kept, "/")
}

// dedicatedDir reports the fixed sub-directory for a section, if it has one.
func dedicatedDir(section, subType string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(section)) {
	case "education":
		return "education", true
	case "gallery":
		return "gallery", true
	case "projects":
		return "projects", true
	case "experience":
		switch strings.ToLower(strings.TrimSpace(subType)) {
		case SubTypeProfessional:
			return "experience/" + SubTypeProfessional, true
		case SubTypeLeadership:
			return "experience/" + SubTypeLeadership, true
		}
	}
	return "", false
}

// stripPrefixes removes the first matching directory prefix, repeatedly, so
// "assets/images/gallery/gallery/x.png" still collapses to "x.png".
func stripPrefixes(rel string, prefixes ...string) string {
	for {
		stripped := false
		for _, prefix := range prefixes {
			if rel == prefix {
				return ""
			}
			if strings.HasPrefix(rel, prefix+"/") {
				rel = strings.TrimPrefix(rel, prefix+"/")
				stripped = true
				break
			}
		}
		if !stripped {
			return rel
		}
	}
}

func extension(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(strings.TrimSpace(filename))), ".")
	if ext == "" {
		return "bin"
	}
	return ext
}

// Locator builds public object URLs and maps them back to storage keys.
type Locator struct {
	BaseURL string
	Bucket  string
}

// marker is the path fragment that precedes the object key in a public URL.
func (l Locator) marker() string {
	return "/object/public/" + l.Bucket + "/"
}

// PublicURL returns the fully-qualified public URL for a storage key.
func (l Locator) PublicURL(key string) string {
	key = strings.TrimPrefix(key, "/")
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(l.BaseURL, "/") + "/storage/v1" + l.marker() + strings.Join(segments, "/")
}

// StorageKey reverses a public URL into its storage key. Inputs without the
// public marker are treated as relative keys. It never fails; undecodable
// tails are returned as-is.
func (l Locator) StorageKey(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	idx := strings.Index(ref, l.marker())
	if idx < 0 {
		if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
			return ref
		}
		return strings.TrimPrefix(ref, "/")
	}
	tail := ref[idx+len(l.marker()):]
	if q := strings.IndexAny(tail, "?#"); q >= 0 {
		tail = tail[:q]
	}
	decoded, errUnescape := url.PathUnescape(tail)
	if errUnescape != nil {
		return tail
	}
	return decoded
}

// NormalizeURL turns a bare storage key into a public URL of s. Absolute URLs
// are trimmed and returned; blank strings pass through unchanged.
func NormalizeURL(s Store, ref string) string {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" || s == nil {
		return ref
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") || strings.HasPrefix(lower, "data:") {
		return trimmed
	}
	return s.PublicURL(trimmed)
}
