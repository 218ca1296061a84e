// internal/store/recipients_cache_test.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	apperrors "portal-notifier/internal/common/errors"
	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachedStore(t *testing.T, db *RecipientStore) (*CachedRecipientStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCachedRecipientStore(db, client, time.Minute, logger.NewNoOpLogger()), mr
}

func TestCachedRecipientStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "phone", "email", "preferences"}).
		AddRow("user-001", "Alice", "+15550001111", "alice@example.com", []byte(`{}`))

	// Exactly one database read: the second Get must be served from cache.
	mock.ExpectQuery(`SELECT (.+) FROM recipients WHERE id = \$1`).
		WithArgs("user-001").
		WillReturnRows(rows)

	cached, _ := newCachedStore(t, NewRecipientStore(db))
	ctx := context.Background()

	first, err := cached.Get(ctx, "user-001")
	require.NoError(t, err)
	assert.Equal(t, "Alice", first.Name)

	second, err := cached.Get(ctx, "user-001")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedRecipientStore_Get_ServesFromCache(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cached, mr := newCachedStore(t, NewRecipientStore(db))

	rec := models.Recipient{ID: "user-001", Name: "Alice", Phone: "+15550001111"}
	payload, err := json.Marshal(rec)
	require.NoError(t, err)
	require.NoError(t, mr.Set("recipient:user-001", string(payload)))

	got, err := cached.Get(context.Background(), "user-001")

	require.NoError(t, err)
	assert.Equal(t, "Alice", got.Name)
}

func TestCachedRecipientStore_Get_NotFoundNotCached(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// Both lookups reach the database.
	for i := 0; i < 2; i++ {
		mock.ExpectQuery(`SELECT (.+) FROM recipients WHERE id = \$1`).
			WithArgs("user-missing").
			WillReturnError(sql.ErrNoRows)
	}

	cached, mr := newCachedStore(t, NewRecipientStore(db))
	ctx := context.Background()

	_, err = cached.Get(ctx, "user-missing")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRecipientNotFound, apperrors.CodeOf(err))

	_, err = cached.Get(ctx, "user-missing")
	require.Error(t, err)

	assert.False(t, mr.Exists("recipient:user-missing"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCachedRecipientStore_Invalidate(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cached, mr := newCachedStore(t, NewRecipientStore(db))
	require.NoError(t, mr.Set("recipient:user-001", `{"id":"user-001"}`))

	require.NoError(t, cached.Invalidate(context.Background(), "user-001"))
	assert.False(t, mr.Exists("recipient:user-001"))
}
