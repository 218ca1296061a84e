// internal/dispatch/processor.go
package dispatch

import (
	"context"
	"fmt"
	"time"

	apperrors "portal-notifier/internal/common/errors"
	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/common/metrics"
	"portal-notifier/internal/gateway"
	"portal-notifier/internal/models"
	"portal-notifier/internal/template"
)

// NotificationStore is the store surface the dispatcher needs.
type NotificationStore interface {
	SelectDue(ctx context.Context, now time.Time, limit int) ([]models.PendingNotification, error)
	Claim(ctx context.Context, id string) (bool, error)
	MarkSent(ctx context.Context, id, gatewayMessageID string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id, reason string) error
	Release(ctx context.Context, id string, nextSendAt time.Time, reason string) error
	ReactivateFailed(ctx context.Context, cutoff, now time.Time) (int64, error)
}

// RecipientResolver maps a recipient id to address and preferences.
type RecipientResolver interface {
	Get(ctx context.Context, id string) (*models.Recipient, error)
}

// AuditSink records one delivery attempt. Implementations must be
// best-effort: audit failures never affect the row's status.
type AuditSink interface {
	Record(ctx context.Context, attempt models.DeliveryAttempt)
}

// Outcome is a single item's result as seen by the cycle orchestrator.
type Outcome int

const (
	OutcomeSent Outcome = iota
	OutcomeFailed
	// OutcomeSkipped means the claim found the row already owned by another
	// cycle; the item is not counted as processed.
	OutcomeSkipped
	// OutcomeRetried means a transient failure released the row back to
	// pending with backoff. Counted as a failure in the cycle summary.
	OutcomeRetried
)

// ProcessorConfig carries the per-item knobs, passed by parameter.
type ProcessorConfig struct {
	MaxAttempts int
	BackoffBase time.Duration
	BackoffMax  time.Duration
	ItemTimeout time.Duration
}

// Processor turns one PendingNotification into one delivery attempt,
// isolated from its siblings: any error, panic included, ends as a row
// status plus a log line, never as a cycle error.
type Processor struct {
	cfg        ProcessorConfig
	store      NotificationStore
	recipients RecipientResolver
	templates  *template.Registry
	router     *gateway.Router
	audit      AuditSink
	logger     logger.Logger
	now        func() time.Time
}

func NewProcessor(
	cfg ProcessorConfig,
	store NotificationStore,
	recipients RecipientResolver,
	templates *template.Registry,
	router *gateway.Router,
	audit AuditSink,
	log logger.Logger,
) *Processor {
	return &Processor{
		cfg:        cfg,
		store:      store,
		recipients: recipients,
		templates:  templates,
		router:     router,
		audit:      audit,
		logger:     log,
		now:        time.Now,
	}
}

// Process runs the full per-item pipeline: claim, resolve, render, send,
// record. The returned Outcome feeds the cycle summary.
func (p *Processor) Process(ctx context.Context, n models.PendingNotification) (outcome Outcome) {
	log := p.logger.WithFields(map[string]interface{}{
		"notificationId":   n.ID,
		"notificationType": n.NotificationType,
		"recipientId":      n.RecipientID,
	})

	claimed, err := p.store.Claim(ctx, n.ID)
	if err != nil {
		log.WithError(err).Error("claim failed", nil)
		return OutcomeSkipped
	}
	if !claimed {
		log.Debug("row already claimed by another cycle", nil)
		return OutcomeSkipped
	}
	attempt := n.AttemptCount + 1

	// The claim succeeded, so from here every exit path must leave the row
	// in a terminal or released state. A panic inside item processing is a
	// programming error on this item's data; convert it instead of letting
	// it kill the batch.
	defer func() {
		if r := recover(); r != nil {
			reason := fmt.Sprintf("panic: %v", r)
			log.Error("item processing panicked", map[string]interface{}{"panic": reason})
			p.markFailed(ctx, n, attempt, apperrors.NewItemPanicError(reason))
			outcome = OutcomeFailed
		}
	}()

	itemCtx, cancel := context.WithTimeout(ctx, p.cfg.ItemTimeout)
	defer cancel()

	channel, gatewayMessageID, err := p.deliver(itemCtx, n)
	if err != nil {
		if apperrors.IsRetryable(err) && attempt < p.cfg.MaxAttempts {
			return p.release(ctx, n, attempt, channel, err)
		}
		p.markFailed(ctx, n, attempt, err)
		return OutcomeFailed
	}

	sentAt := p.now().UTC()
	if err := p.store.MarkSent(ctx, n.ID, gatewayMessageID, sentAt); err != nil {
		// The message went out; a bookkeeping failure must not trigger a
		// duplicate send, so log and still report success.
		log.WithError(err).Error("mark sent failed after successful delivery", nil)
	}

	metrics.NotificationsProcessed.WithLabelValues(models.StatusSent, n.NotificationType).Inc()
	p.recordAudit(ctx, n, attempt, channel, models.StatusSent, nil, gatewayMessageID)
	log.Info("notification sent", map[string]interface{}{
		"channel":          channel,
		"attempt":          attempt,
		"gatewayMessageId": gatewayMessageID,
	})
	return OutcomeSent
}

// deliver resolves the recipient, renders the message and calls the gateway.
// It returns the channel used and the gateway message id.
func (p *Processor) deliver(ctx context.Context, n models.PendingNotification) (string, string, error) {
	rec, err := p.recipients.Get(ctx, n.RecipientID)
	if err != nil {
		return "", "", err
	}

	if rec.Preferences.IsMuted(n.NotificationType) {
		return "", "", apperrors.NewRecipientOptedOutError(n.RecipientID, n.NotificationType)
	}

	rendered, err := p.templates.Render(n.NotificationType, n.ContextData)
	if err != nil {
		return "", "", err
	}

	sender, address, err := p.router.Resolve(rec)
	if err != nil {
		return "", "", err
	}

	start := p.now()
	gatewayMessageID, err := sender.Send(ctx, gateway.Message{
		Address: address,
		Subject: rendered.Subject,
		Body:    rendered.Body,
	})
	metrics.GatewayRequestDuration.WithLabelValues(sender.Channel()).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GatewayErrors.WithLabelValues(sender.Channel(), string(apperrors.CodeOf(err))).Inc()
		return sender.Channel(), "", err
	}
	return sender.Channel(), gatewayMessageID, nil
}

func (p *Processor) release(ctx context.Context, n models.PendingNotification, attempt int, channel string, cause error) Outcome {
	delay := NextBackoff(attempt, p.cfg.BackoffBase, p.cfg.BackoffMax)
	nextSendAt := p.now().UTC().Add(delay)

	if err := p.store.Release(ctx, n.ID, nextSendAt, cause.Error()); err != nil {
		p.logger.WithError(err).Error("release failed", map[string]interface{}{"notificationId": n.ID})
	}

	metrics.NotificationsProcessed.WithLabelValues(models.StatusPending, n.NotificationType).Inc()
	p.recordAudit(ctx, n, attempt, channel, models.StatusPending, cause, "")
	p.logger.Warn("transient failure, released with backoff", map[string]interface{}{
		"notificationId": n.ID,
		"attempt":        attempt,
		"nextSendAt":     nextSendAt,
		"reason":         cause.Error(),
	})
	return OutcomeRetried
}

func (p *Processor) markFailed(ctx context.Context, n models.PendingNotification, attempt int, cause error) {
	if err := p.store.MarkFailed(ctx, n.ID, cause.Error()); err != nil {
		p.logger.WithError(err).Error("mark failed errored", map[string]interface{}{"notificationId": n.ID})
	}

	metrics.NotificationsProcessed.WithLabelValues(models.StatusFailed, n.NotificationType).Inc()
	p.recordAudit(ctx, n, attempt, "", models.StatusFailed, cause, "")
	p.logger.Error("notification failed", map[string]interface{}{
		"notificationId": n.ID,
		"attempt":        attempt,
		"errorCode":      string(apperrors.CodeOf(cause)),
		"reason":         cause.Error(),
	})
}

func (p *Processor) recordAudit(ctx context.Context, n models.PendingNotification, attempt int, channel, status string, cause error, gatewayMessageID string) {
	if p.audit == nil {
		return
	}
	rec := models.DeliveryAttempt{
		NotificationID:   n.ID,
		RecipientID:      n.RecipientID,
		NotificationType: n.NotificationType,
		Channel:          channel,
		AttemptNumber:    attempt,
		Status:           status,
		GatewayMessageID: gatewayMessageID,
		Timestamp:        p.now().UTC(),
	}
	if cause != nil {
		rec.ErrorCode = string(apperrors.CodeOf(cause))
		rec.ErrorReason = cause.Error()
	}
	p.audit.Record(ctx, rec)
}
