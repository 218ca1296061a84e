// internal/audit/elastic_test.go
package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElasticSink_Record(t *testing.T) {
	var gotPath string
	var gotDoc models.DeliveryAttempt

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotDoc))
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"result":"created"}`))
	}))
	defer srv.Close()

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	sink := NewElasticSink(client, "notification-audit", logger.NewNoOpLogger())

	sink.Record(context.Background(), models.DeliveryAttempt{
		NotificationID:   "n-1",
		RecipientID:      "user-001",
		NotificationType: models.TypeTaskOverdue,
		Channel:          models.ChannelWhatsApp,
		AttemptNumber:    2,
		Status:           models.StatusSent,
		GatewayMessageID: "wamid.abc123",
		Timestamp:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	})

	// One document per attempt, keyed so a replayed record overwrites
	// instead of duplicating.
	assert.Equal(t, "/notification-audit/_doc/n-1-2", gotPath)
	assert.Equal(t, "n-1", gotDoc.NotificationID)
	assert.Equal(t, 2, gotDoc.AttemptNumber)
	assert.Equal(t, models.StatusSent, gotDoc.Status)
}

// Indexing failures are swallowed: the sink must never panic or error out of
// the dispatch path.
func TestElasticSink_Record_BackendDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{url}})
	require.NoError(t, err)

	sink := NewElasticSink(client, "notification-audit", logger.NewNoOpLogger())

	assert.NotPanics(t, func() {
		sink.Record(context.Background(), models.DeliveryAttempt{NotificationID: "n-1", AttemptNumber: 1})
	})
}
