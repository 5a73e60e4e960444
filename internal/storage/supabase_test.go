package storage_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/folioworks/portfolio-api/internal/storage"
	"github.com/folioworks/portfolio-api/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*storage.SupabaseStore, *storagetest.Server) {
	t.Helper()
	srv := storagetest.NewServer("portfolio")
	t.Cleanup(srv.Close)
	store := storage.NewSupabaseStore(srv.URL, "service-key", "portfolio", srv.Client())
	require.NotNil(t, store)
	return store, srv
}

func TestNewSupabaseStoreDisabledWithoutCredentials(t *testing.T) {
	t.Parallel()

	assert.Nil(t, storage.NewSupabaseStore("", "key", "bucket", nil))
	assert.Nil(t, storage.NewSupabaseStore("https://x.supabase.co", "", "bucket", nil))
	assert.Nil(t, storage.NewSupabaseStore("https://x.supabase.co", "key", "", nil))
}

func TestSupabaseStoreUploadServesBytesAtPublicURL(t *testing.T) {
	t.Parallel()

	store, srv := newTestStore(t)
	ctx := context.Background()
	key := "assets/images/gallery/1700000000000.png"

	require.NoError(t, store.Upload(ctx, key, bytes.NewReader([]byte("first")), "image/png"))
	require.NoError(t, store.Upload(ctx, key, bytes.NewReader([]byte("second")), "image/png"))

	resp, err := srv.Client().Get(store.PublicURL(key))
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "second", string(body))
	assert.Equal(t, key, store.StorageKey(store.PublicURL(key)))
}

func TestSupabaseStoreListSkipsDirectories(t *testing.T) {
	t.Parallel()

	store, srv := newTestStore(t)
	srv.Put("assets/images/gallery/a.png", []byte("a"))
	srv.Put("assets/images/gallery/b.png", []byte("bb"))
	srv.Put("assets/images/gallery/nested/c.png", []byte("c"))

	objects, err := store.List(context.Background(), "/assets/images/../gallery/../assets/images/gallery")
	require.NoError(t, err)
	require.Len(t, objects, 0, "traversal segments are stripped, not resolved")

	objects, err = store.List(context.Background(), "assets/images/gallery/")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "a.png", objects[0].Name)
	assert.Equal(t, "assets/images/gallery/a.png", objects[0].Path)
	assert.Equal(t, store.PublicURL("assets/images/gallery/a.png"), objects[0].URL)
	assert.Equal(t, int64(2), objects[1].Size)
}

func TestSupabaseStoreRemove(t *testing.T) {
	t.Parallel()

	store, srv := newTestStore(t)
	srv.Put("assets/images/x.png", []byte("x"))

	require.NoError(t, store.Remove(context.Background(), "/assets/images/x.png", " "))
	_, ok := srv.Object("assets/images/x.png")
	assert.False(t, ok)
	assert.Equal(t, [][]string{{"assets/images/x.png"}}, srv.Removals())

	require.NoError(t, store.Remove(context.Background()))
	assert.Len(t, srv.Removals(), 1)
}

func TestSupabaseStoreSurfacesAPIErrors(t *testing.T) {
	t.Parallel()

	store, srv := newTestStore(t)
	srv.SetFailRemove(true)

	err := store.Remove(context.Background(), "assets/images/x.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "remove failed")
	assert.Contains(t, err.Error(), "500")
}
