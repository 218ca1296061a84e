// internal/store/recipients_cache.go
package store

import (
	"context"
	"encoding/json"
	"time"

	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/models"

	"github.com/redis/go-redis/v9"
)

// CachedRecipientStore puts a Redis read-through cache in front of recipient
// lookups. Dispatch cycles hit the same handful of recipients repeatedly (a
// daily agenda run resolves every active user); profile edits are rare enough
// that a short TTL is an acceptable staleness window. Cache failures fall
// through to Postgres.
type CachedRecipientStore struct {
	inner  *RecipientStore
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedRecipientStore(inner *RecipientStore, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedRecipientStore {
	return &CachedRecipientStore{inner: inner, client: client, ttl: ttl, logger: log}
}

func recipientCacheKey(id string) string {
	return "recipient:" + id
}

func (s *CachedRecipientStore) Get(ctx context.Context, id string) (*models.Recipient, error) {
	key := recipientCacheKey(id)

	if payload, err := s.client.Get(ctx, key).Bytes(); err == nil {
		var rec models.Recipient
		if err := json.Unmarshal(payload, &rec); err == nil {
			return &rec, nil
		}
		// Unreadable entry: drop it and fall through.
		s.client.Del(ctx, key)
	} else if err != redis.Nil {
		s.logger.WithError(err).Debug("recipient cache read failed", map[string]interface{}{"recipientId": id})
	}

	rec, err := s.inner.Get(ctx, id)
	if err != nil {
		// Not-found is not cached: a recipient created moments later should be
		// resolvable on the next cycle.
		return nil, err
	}

	if payload, err := json.Marshal(rec); err == nil {
		if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
			s.logger.WithError(err).Debug("recipient cache write failed", map[string]interface{}{"recipientId": id})
		}
	}
	return rec, nil
}

// Invalidate removes a cached recipient, for callers that know the profile
// just changed.
func (s *CachedRecipientStore) Invalidate(ctx context.Context, id string) error {
	return s.client.Del(ctx, recipientCacheKey(id)).Err()
}
