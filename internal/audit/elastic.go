// internal/audit/elastic.go

// Package audit indexes per-attempt delivery outcomes into Elasticsearch.
// The sink is best-effort: an indexing failure is logged and dropped, the
// notification row already carries the authoritative status.
package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

type ElasticSink struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewElasticSink(client *elasticsearch.Client, index string, log logger.Logger) *ElasticSink {
	return &ElasticSink{client: client, index: index, logger: log}
}

func (s *ElasticSink) Record(ctx context.Context, attempt models.DeliveryAttempt) {
	body, err := json.Marshal(attempt)
	if err != nil {
		s.logger.WithError(err).Warn("audit marshal failed", map[string]interface{}{
			"notificationId": attempt.NotificationID,
		})
		return
	}

	indexCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req := esapi.IndexRequest{
		Index:      s.index,
		DocumentID: fmt.Sprintf("%s-%d", attempt.NotificationID, attempt.AttemptNumber),
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(indexCtx, s.client)
	if err != nil {
		s.logger.WithError(err).Warn("audit index failed", map[string]interface{}{
			"notificationId": attempt.NotificationID,
		})
		return
	}
	defer res.Body.Close()

	if res.IsError() {
		s.logger.Warn("audit index rejected", map[string]interface{}{
			"notificationId": attempt.NotificationID,
			"status":         res.Status(),
		})
	}
}
