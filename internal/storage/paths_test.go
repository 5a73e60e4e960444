package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var fixedNow = time.UnixMilli(1700000000123)

func TestResolveUploadPathDedicatedDirectories(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name, section, subType, callerPath, filename, want string
	}{
		{"gallery no path", "gallery", "", "", "photo.PNG", "assets/images/gallery/1700000000123.png"},
		{"gallery duplicate prefix", "gallery", "", "assets/images/gallery/beach.jpg", "x.jpg", "assets/images/gallery/beach.jpg"},
		{"gallery short prefix", "gallery", "", "gallery/beach.jpg", "x.jpg", "assets/images/gallery/beach.jpg"},
		{"education traversal", "education", "", "../../etc/passwd", "a.png", "assets/images/education/etc/passwd"},
		{"projects directory path", "projects", "", "projects/site/", "shot.webp", "assets/images/projects/site/1700000000123.webp"},
		{"experience professional", "experience", "professional", "experience/professional/acme.png", "acme.png", "assets/images/experience/professional/acme.png"},
		{"experience leadership", "experience", "Leadership", "", "club.svg", "assets/images/experience/leadership/1700000000123.svg"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ResolveUploadPath(tc.section, tc.subType, tc.callerPath, tc.filename, fixedNow)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolveUploadPathDefaultSections(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "assets/images/home/1700000000123.jpg",
		ResolveUploadPath("home", "", "", "me.jpg", fixedNow))
	assert.Equal(t, "assets/images/logos/acme.png",
		ResolveUploadPath("home", "", "/logos/acme.png", "acme.png", fixedNow))
	assert.Equal(t, "assets/images/logos/acme.png",
		ResolveUploadPath("home", "", "assets/images/logos/acme.png", "acme.png", fixedNow))
	assert.Equal(t, "assets/images/experience/1700000000123.bin",
		ResolveUploadPath("experience", "", "", "noext", fixedNow))
	assert.Equal(t, "assets/images/misc/1700000000123.png",
		ResolveUploadPath("", "", "", "a.png", fixedNow))
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a/b/c.png", Sanitize("/a/./b/../c.png"))
	assert.Equal(t, "x/y", Sanitize(`..\x\y`))
	assert.Equal(t, "", Sanitize("  ../.. "))
}

func TestLocatorRoundTrip(t *testing.T) {
	t.Parallel()

	loc := Locator{BaseURL: "https://proj.supabase.co/", Bucket: "portfolio"}
	for _, key := range []string{
		"assets/images/gallery/1700000000123.png",
		"assets/images/education/my school logo.png",
		"assets/images/projects/ünïcode.jpg",
	} {
		u := loc.PublicURL(key)
		assert.Equal(t, key, loc.StorageKey(u), "round trip via %s", u)
	}
	assert.Equal(t,
		"https://proj.supabase.co/storage/v1/object/public/portfolio/assets/images/a%20b.png",
		loc.PublicURL("/assets/images/a b.png"))
}

func TestLocatorStorageKeyBestEffort(t *testing.T) {
	t.Parallel()

	loc := Locator{BaseURL: "https://proj.supabase.co", Bucket: "portfolio"}
	assert.Equal(t, "assets/images/x.png", loc.StorageKey("/assets/images/x.png"))
	assert.Equal(t, "assets/images/x.png",
		loc.StorageKey("https://proj.supabase.co/storage/v1/object/public/portfolio/assets/images/x.png?t=1"))
	assert.Equal(t, "assets/images/%zz.png",
		loc.StorageKey("https://proj.supabase.co/storage/v1/object/public/portfolio/assets/images/%zz.png"))
	assert.Equal(t, "https://cdn.example.com/x.png", loc.StorageKey("https://cdn.example.com/x.png"))
	assert.Equal(t, "", loc.StorageKey("  "))
}

func TestNormalizeURL(t *testing.T) {
	t.Parallel()

	store := NewSupabaseStore("https://proj.supabase.co", "service-role", "portfolio", nil)
	assert.Equal(t, "https://proj.supabase.co/storage/v1/object/public/portfolio/assets/images/x.png",
		NormalizeURL(store, " assets/images/x.png "))
	assert.Equal(t, "https://cdn.example.com/x.png", NormalizeURL(store, " https://cdn.example.com/x.png"))
	assert.Equal(t, "data:image/png;base64,AA", NormalizeURL(store, "data:image/png;base64,AA"))
	assert.Equal(t, "", NormalizeURL(store, ""))
	assert.Equal(t, "assets/images/x.png", NormalizeURL(nil, "assets/images/x.png"))
}
