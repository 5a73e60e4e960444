package contact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/folioworks/portfolio-api/internal/db"
	"github.com/folioworks/portfolio-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()

	conn, errOpen := db.Open(fmt.Sprintf("file:contact_%d?mode=memory&cache=shared", time.Now().UnixNano()))
	require.NoError(t, errOpen)
	require.NoError(t, db.Migrate(conn))
	return NewStore(conn), conn
}

func validInput() Input {
	return Input{
		FirstName: " Ada ",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Subject:   "Hello",
		Message:   "Nice site",
		IP:        "203.0.113.7",
		UserAgent: "test-agent",
	}
}

func TestValidateRejectsBlankFields(t *testing.T) {
	in := validInput()
	in.Message = "   "
	in.Subject = ""

	err := in.Validate()
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"subject", "message"}, verr.Missing)
}

func TestValidateAcceptsContentAlias(t *testing.T) {
	in := validInput()
	in.Message = ""
	in.Content = "via content"
	require.NoError(t, in.Validate())
	assert.Equal(t, "via content", in.Normalize().Message)
}

func TestCreateListDelete(t *testing.T) {
	store, conn := openStore(t)
	ctx := context.Background()

	row, err := store.Create(ctx, validInput())
	require.NoError(t, err)
	assert.NotZero(t, row.ID)
	assert.Equal(t, "Ada", row.FirstName)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(row.Metadata, &meta))
	assert.Equal(t, "203.0.113.7", meta["ip"])

	second, err := store.Create(ctx, validInput())
	require.NoError(t, err)

	rows, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, second.ID, rows[0].ID)

	require.NoError(t, store.Delete(ctx, row.ID))
	assert.True(t, errors.Is(store.Delete(ctx, row.ID), ErrNotFound))

	var count int64
	require.NoError(t, conn.Model(&models.ContactSubmission{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestListSearchMatchesIgnoringCase(t *testing.T) {
	store, _ := openStore(t)
	ctx := context.Background()

	ada := validInput()
	_, err := store.Create(ctx, ada)
	require.NoError(t, err)

	grace := validInput()
	grace.FirstName = "Grace"
	grace.Email = "grace@navy.example"
	grace.Subject = "100% compilers"
	_, err = store.Create(ctx, grace)
	require.NoError(t, err)

	rows, err := store.List(ctx, "  NAVY ")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Grace", rows[0].FirstName)

	rows, err = store.List(ctx, "lovelace")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = store.List(ctx, "100%")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "grace@navy.example", rows[0].Email)

	rows, err = store.List(ctx, "_")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCreateInvalidWritesNothing(t *testing.T) {
	store, conn := openStore(t)
	in := validInput()
	in.Message = "\t"

	_, err := store.Create(context.Background(), in)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))

	var count int64
	require.NoError(t, conn.Model(&models.ContactSubmission{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestNilStore(t *testing.T) {
	var store *Store
	_, err := store.List(context.Background(), "")
	assert.True(t, errors.Is(err, ErrNotConfigured))
}
