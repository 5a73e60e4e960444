package naming

import (
	"strings"
	"unicode"
)

// ToSnake converts a camelCase key into snake_case by inserting an underscore
// before every uppercase letter and lowercasing it.
func ToSnake(key string) string {
	var b strings.Builder
	b.Grow(len(key) + 4)
	for _, r := range key {
		if unicode.IsUpper(r) {
			b.WriteByte('_')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Flatten strips underscores and lowercases the key, so that "educationImageUrl",
// "education_image_url" and "EducationImageURL" all compare equal.
func Flatten(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, "_", ""))
}

// SnakeKeys returns a copy of v with every object key converted to snake_case,
// descending into nested maps and slices.
func SnakeKeys(v any) any {
	return rekey(v, ToSnake)
}

// FlattenKeys returns a copy of v with every object key flattened.
func FlattenKeys(v any) any {
	return rekey(v, Flatten)
}

func rekey(v any, fn func(string) string) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, val := range typed {
			out[fn(k)] = rekey(val, fn)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, val := range typed {
			out[i] = rekey(val, fn)
		}
		return out
	default:
		return v
	}
}

// Lookup finds field in payload. The exact key wins; otherwise the first key whose
// flattened form equals the flattened field is used. Keys are visited in sorted
// order so the fallback is deterministic.
func Lookup(payload map[string]any, field string) (any, bool) {
	if payload == nil {
		return nil, false
	}
	if v, ok := payload[field]; ok {
		return v, true
	}
	want := Flatten(field)
	var (
		match string
		found bool
	)
	for k := range payload {
		if Flatten(k) != want {
			continue
		}
		if !found || k < match {
			match = k
			found = true
		}
	}
	if !found {
		return nil, false
	}
	return payload[match], true
}

// Pick returns the whitelisted fields present in payload, keyed by their
// canonical field name. Unknown keys are dropped and absent fields are omitted.
func Pick(payload map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		if v, ok := Lookup(payload, field); ok {
			out[field] = v
		}
	}
	return out
}
