// internal/dispatch/orchestrator.go
package dispatch

import (
	"context"
	"sync"
	"time"

	apperrors "portal-notifier/internal/common/errors"
	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/common/metrics"
	"portal-notifier/internal/common/observability"
	"portal-notifier/internal/models"

	"github.com/google/uuid"
)

// Locker is the cycle-level lock; nil disables locking.
type Locker interface {
	Acquire(ctx context.Context, owner string) (bool, error)
	Release(ctx context.Context, owner string) error
}

// OrchestratorConfig carries the cycle-level knobs.
type OrchestratorConfig struct {
	BatchSize          int
	ReactivateFailed   bool
	ReactivateAfter    time.Duration
	ReactivateInterval time.Duration
}

// Orchestrator runs one dispatch cycle: select the due batch, fan the items
// out concurrently, settle-all, aggregate. A per-item failure never becomes
// a cycle error; only selection itself can.
type Orchestrator struct {
	cfg       OrchestratorConfig
	store     NotificationStore
	processor *Processor
	locker    Locker
	obs       *observability.Observability
	logger    logger.Logger
	now       func() time.Time
}

func NewOrchestrator(
	cfg OrchestratorConfig,
	store NotificationStore,
	processor *Processor,
	locker Locker,
	obs *observability.Observability,
	log logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		store:     store,
		processor: processor,
		locker:    locker,
		obs:       obs,
		logger:    log,
		now:       time.Now,
	}
}

// RunCycle executes one full dispatch cycle and returns its summary. The
// returned error is non-nil only for invocation-wide failures (selection);
// a locked cycle returns a zero-work summary with Locked set.
func (o *Orchestrator) RunCycle(ctx context.Context) (models.DispatchSummary, error) {
	start := o.now()
	owner := uuid.New().String()

	if o.locker != nil {
		acquired, err := o.locker.Acquire(ctx, owner)
		if err != nil {
			// Redis being down must not stop dispatch: the row claim still
			// protects against double sends.
			o.logger.WithError(err).Warn("cycle lock unavailable, proceeding without it", nil)
		} else if !acquired {
			o.logger.Info("cycle skipped, lock held by another invocation", nil)
			metrics.DispatchCycles.WithLabelValues("locked").Inc()
			return models.DispatchSummary{Locked: true}, nil
		} else {
			defer func() {
				if err := o.locker.Release(context.WithoutCancel(ctx), owner); err != nil {
					o.logger.WithError(err).Warn("cycle lock release failed", nil)
				}
			}()
		}
	}

	if o.cfg.ReactivateFailed {
		now := o.now().UTC()
		cutoff := now.Add(-o.cfg.ReactivateAfter)
		if n, err := o.store.ReactivateFailed(ctx, cutoff, now); err != nil {
			o.logger.WithError(err).Warn("failed-row reactivation sweep errored", nil)
		} else if n > 0 {
			o.logger.Info("reactivated failed rows", map[string]interface{}{"count": n})
		}
	}

	batch, err := o.store.SelectDue(ctx, o.now().UTC(), o.cfg.BatchSize)
	if err != nil {
		metrics.DispatchCycles.WithLabelValues("selection_error").Inc()
		o.recordCycle(ctx, start, "selection_error")
		return models.DispatchSummary{}, apperrors.NewSelectionFailedError(err.Error())
	}

	metrics.BatchSelected.Observe(float64(len(batch)))

	if len(batch) == 0 {
		o.logger.Info("no due notifications this cycle", nil)
		metrics.DispatchCycles.WithLabelValues("empty").Inc()
		o.recordCycle(ctx, start, "empty")
		return models.DispatchSummary{}, nil
	}

	// Settle-all fan-out: every item runs regardless of sibling outcomes.
	outcomes := make([]Outcome, len(batch))
	var wg sync.WaitGroup
	for i, n := range batch {
		wg.Add(1)
		go func(i int, n models.PendingNotification) {
			defer wg.Done()
			outcomes[i] = o.processor.Process(ctx, n)
		}(i, n)
	}
	wg.Wait()

	var summary models.DispatchSummary
	for _, out := range outcomes {
		switch out {
		case OutcomeSent:
			summary.ProcessedCount++
			summary.SuccessCount++
		case OutcomeFailed, OutcomeRetried:
			summary.ProcessedCount++
			summary.FailureCount++
		case OutcomeSkipped:
			summary.SkippedCount++
		}
		if o.obs != nil {
			o.obs.RecordItemProcessed(ctx, outcomeLabel(out))
		}
	}

	o.logger.Info("dispatch cycle completed", map[string]interface{}{
		"selected":  len(batch),
		"processed": summary.ProcessedCount,
		"success":   summary.SuccessCount,
		"failure":   summary.FailureCount,
		"skipped":   summary.SkippedCount,
		"duration":  o.now().Sub(start).String(),
	})
	metrics.DispatchCycles.WithLabelValues("completed").Inc()
	o.recordCycle(ctx, start, "completed")

	return summary, nil
}

func outcomeLabel(out Outcome) string {
	switch out {
	case OutcomeSent:
		return "sent"
	case OutcomeFailed:
		return "failed"
	case OutcomeRetried:
		return "retried"
	case OutcomeSkipped:
		return "skipped"
	}
	return "unknown"
}

func (o *Orchestrator) recordCycle(ctx context.Context, start time.Time, outcome string) {
	if o.obs != nil {
		o.obs.RecordCycleDuration(ctx, o.now().Sub(start), outcome)
	}
}
