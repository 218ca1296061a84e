// internal/store/recipients.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "portal-notifier/internal/common/errors"
	"portal-notifier/internal/models"
)

// RecipientStore resolves recipient ids to deliverable addresses and
// notification preferences.
type RecipientStore struct {
	db *sql.DB
}

func NewRecipientStore(db *sql.DB) *RecipientStore {
	return &RecipientStore{db: db}
}

func (s *RecipientStore) Get(ctx context.Context, id string) (*models.Recipient, error) {
	var (
		r     models.Recipient
		prefs []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(phone, ''), COALESCE(email, ''), COALESCE(preferences, '{}')
		 FROM recipients WHERE id = $1`, id).
		Scan(&r.ID, &r.Name, &r.Phone, &r.Email, &prefs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewRecipientNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get recipient %s: %w", id, err)
	}

	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &r.Preferences); err != nil {
			return nil, fmt.Errorf("unmarshal preferences for %s: %w", id, err)
		}
	}
	return &r, nil
}
