// internal/dispatch/scenario_test.go

// End-to-end cycle tests against a fake messaging gateway over real HTTP.
package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/gateway"
	"portal-notifier/internal/models"
	"portal-notifier/internal/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchCycle_OverdueReminderDelivered(t *testing.T) {
	var gotReq map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(map[string]string{"messageId": "wamid.e2e"})
	}))
	defer srv.Close()

	store := NewMockStore()
	store.SelectDueFunc = func(ctx context.Context, now time.Time, limit int) ([]models.PendingNotification, error) {
		return []models.PendingNotification{testNotification("n-1")}, nil
	}
	resolver := &MockResolver{GetFunc: func(ctx context.Context, id string) (*models.Recipient, error) {
		return testRecipient(), nil
	}}

	wa := gateway.NewWhatsAppClient(srv.URL, "test-key", 5*time.Second)
	p := NewProcessor(testProcessorConfig(), store, resolver,
		template.NewRegistry(), gateway.NewRouter(wa), nil, logger.NewNoOpLogger())
	o := NewOrchestrator(OrchestratorConfig{BatchSize: 10}, store, p, nil, nil, logger.NewNoOpLogger())

	summary, err := o.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProcessedCount)
	assert.Equal(t, 1, summary.SuccessCount)
	assert.Equal(t, models.StatusSent, store.StatusOf("n-1"))

	assert.Equal(t, "+15550001111", gotReq["phone"])
	assert.Equal(t, `Reminder: task "Submit report" in Q3 Planning is 2 day(s) overdue.`, gotReq["message"])
}

func TestDispatchCycle_GatewayServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"reason":"upstream unavailable"}`))
	}))
	defer srv.Close()

	store := NewMockStore()
	store.SelectDueFunc = func(ctx context.Context, now time.Time, limit int) ([]models.PendingNotification, error) {
		return []models.PendingNotification{testNotification("n-1")}, nil
	}
	resolver := &MockResolver{GetFunc: func(ctx context.Context, id string) (*models.Recipient, error) {
		return testRecipient(), nil
	}}

	wa := gateway.NewWhatsAppClient(srv.URL, "test-key", 5*time.Second)

	// With a single-attempt budget the 500 is terminal.
	cfg := testProcessorConfig()
	cfg.MaxAttempts = 1
	p := NewProcessor(cfg, store, resolver,
		template.NewRegistry(), gateway.NewRouter(wa), nil, logger.NewNoOpLogger())
	o := NewOrchestrator(OrchestratorConfig{BatchSize: 10}, store, p, nil, nil, logger.NewNoOpLogger())

	summary, err := o.RunCycle(context.Background())

	// The cycle itself completed; the failure lives on the row and in the
	// summary, not in the return error.
	require.NoError(t, err)
	assert.Equal(t, 1, summary.ProcessedCount)
	assert.Equal(t, 1, summary.FailureCount)
	assert.Equal(t, models.StatusFailed, store.StatusOf("n-1"))
	assert.Contains(t, store.ReasonOf("n-1"), "upstream unavailable")
}

func TestDispatchCycle_GatewayServerErrorWithRetryBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	store := NewMockStore()
	store.SelectDueFunc = func(ctx context.Context, now time.Time, limit int) ([]models.PendingNotification, error) {
		return []models.PendingNotification{testNotification("n-1")}, nil
	}
	resolver := &MockResolver{GetFunc: func(ctx context.Context, id string) (*models.Recipient, error) {
		return testRecipient(), nil
	}}

	wa := gateway.NewWhatsAppClient(srv.URL, "test-key", 5*time.Second)
	p := NewProcessor(testProcessorConfig(), store, resolver,
		template.NewRegistry(), gateway.NewRouter(wa), nil, logger.NewNoOpLogger())
	o := NewOrchestrator(OrchestratorConfig{BatchSize: 10}, store, p, nil, nil, logger.NewNoOpLogger())

	summary, err := o.RunCycle(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, summary.FailureCount)
	// Attempts remain, so the row went back to pending with a pushed send_at.
	assert.Equal(t, models.StatusPending, store.StatusOf("n-1"))
	assert.False(t, store.released["n-1"].IsZero())
}
