package naming

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSnake(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"educationImageUrl": "education_image_url",
		"homeId":            "home_id",
		"skill":             "skill",
		"already_snake":     "already_snake",
		"":                  "",
	}
	for in, want := range cases {
		assert.Equal(t, want, ToSnake(in), "ToSnake(%q)", in)
	}
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "educationimageurl", Flatten("education_image_url"))
	assert.Equal(t, "educationimageurl", Flatten("educationImageUrl"))
	assert.Equal(t, "educationimageurl", Flatten("EducationImageURL"))
}

func TestSnakeKeysRecursesThroughMapsAndSlices(t *testing.T) {
	t.Parallel()

	in := map[string]any{
		"projectItem": map[string]any{
			"githubUrl": "https://example.com",
			"techList":  []any{map[string]any{"sortOrder": 1}, "plain"},
		},
	}

	out, ok := SnakeKeys(in).(map[string]any)
	require.True(t, ok)
	item, ok := out["project_item"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "https://example.com", item["github_url"])
	list, ok := item["tech_list"].([]any)
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.Equal(t, map[string]any{"sort_order": 1}, list[0])
	assert.Equal(t, "plain", list[1])
}

func TestFlattenKeys(t *testing.T) {
	t.Parallel()

	out := FlattenKeys(map[string]any{"sort_order": 2, "imageUrl": "x"}).(map[string]any)
	assert.Equal(t, map[string]any{"sortorder": 2, "imageurl": "x"}, out)
}

func TestLookupPrefersExactKey(t *testing.T) {
	t.Parallel()

	payload := map[string]any{
		"image_url": "snake",
		"imageUrl":  "exact",
	}
	v, ok := Lookup(payload, "imageUrl")
	require.True(t, ok)
	assert.Equal(t, "exact", v)
}

func TestLookupFallsBackToFlattenedMatch(t *testing.T) {
	t.Parallel()

	v, ok := Lookup(map[string]any{"education_image_url": "a.png"}, "educationImageUrl")
	require.True(t, ok)
	assert.Equal(t, "a.png", v)

	_, ok = Lookup(map[string]any{"other": 1}, "educationImageUrl")
	assert.False(t, ok)

	_, ok = Lookup(nil, "x")
	assert.False(t, ok)
}

func TestPickDropsUnknownKeys(t *testing.T) {
	t.Parallel()

	payload := map[string]any{
		"Skill":      "Rust",
		"sort_order": 3,
		"isAdmin":    true,
		"id":         99,
	}
	got := Pick(payload, []string{"skill", "category", "sortOrder"})
	assert.Equal(t, map[string]any{"skill": "Rust", "sortOrder": 3}, got)
}

func TestPickKeepsExplicitNulls(t *testing.T) {
	t.Parallel()

	got := Pick(map[string]any{"endDate": nil}, []string{"endDate"})
	v, ok := got["endDate"]
	assert.True(t, ok)
	assert.Nil(t, v)
	_, ok = Lookup(map[string]any{"end_date": nil}, "endDate")
	assert.True(t, ok)
}
