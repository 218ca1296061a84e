// internal/store/recipients_test.go
package store

import (
	"context"
	"database/sql"
	"testing"

	apperrors "portal-notifier/internal/common/errors"
	"portal-notifier/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecipientStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "phone", "email", "preferences"}).
		AddRow("user-001", "Alice", "+15550001111", "alice@example.com",
			[]byte(`{"muted":["daily_agenda"],"channel":"email"}`))

	mock.ExpectQuery(`SELECT (.+) FROM recipients WHERE id = \$1`).
		WithArgs("user-001").
		WillReturnRows(rows)

	s := NewRecipientStore(db)
	rec, err := s.Get(context.Background(), "user-001")

	require.NoError(t, err)
	assert.Equal(t, "Alice", rec.Name)
	assert.Equal(t, "+15550001111", rec.Phone)
	assert.Equal(t, models.ChannelEmail, rec.Preferences.Channel)
	assert.True(t, rec.Preferences.IsMuted(models.TypeDailyAgenda))
	assert.False(t, rec.Preferences.IsMuted(models.TypeTaskOverdue))
}

func TestRecipientStore_Get_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM recipients WHERE id = \$1`).
		WithArgs("user-missing").
		WillReturnError(sql.ErrNoRows)

	s := NewRecipientStore(db)
	_, err = s.Get(context.Background(), "user-missing")

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeRecipientNotFound, apperrors.CodeOf(err))
}

func TestRecipientStore_Get_EmptyPreferences(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "phone", "email", "preferences"}).
		AddRow("user-002", "Bob", "", "bob@example.com", []byte(`{}`))

	mock.ExpectQuery(`SELECT (.+) FROM recipients WHERE id = \$1`).
		WithArgs("user-002").
		WillReturnRows(rows)

	s := NewRecipientStore(db)
	rec, err := s.Get(context.Background(), "user-002")

	require.NoError(t, err)
	assert.Empty(t, rec.Preferences.Channel)
	assert.False(t, rec.Preferences.IsMuted(models.TypeTaskOverdue))
}
