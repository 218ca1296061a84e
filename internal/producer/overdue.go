// internal/producer/overdue.go

// Package producer creates pending notification rows from portal data. The
// dispatcher only consumes rows; this is its upstream counterpart.
package producer

import (
	"context"
	"time"

	"portal-notifier/internal/common/logger"
	"portal-notifier/internal/models"
	"portal-notifier/internal/store"
)

// TaskSource lists tasks eligible for an overdue reminder.
type TaskSource interface {
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]store.OverdueTask, error)
}

// NotificationWriter creates pending rows.
type NotificationWriter interface {
	Insert(ctx context.Context, n *models.PendingNotification) error
}

// ScanSummary reports one reminder scan.
type ScanSummary struct {
	ScannedCount int `json:"scannedCount"`
	CreatedCount int `json:"createdCount"`
	ErrorCount   int `json:"errorCount"`
}

// OverdueScanner turns overdue tasks into task_overdue notifications due
// immediately. A failed insert for one task does not stop the scan.
type OverdueScanner struct {
	tasks         TaskSource
	notifications NotificationWriter
	scanLimit     int
	logger        logger.Logger
	now           func() time.Time
}

func NewOverdueScanner(tasks TaskSource, notifications NotificationWriter, scanLimit int, log logger.Logger) *OverdueScanner {
	return &OverdueScanner{
		tasks:         tasks,
		notifications: notifications,
		scanLimit:     scanLimit,
		logger:        log,
		now:           time.Now,
	}
}

func (s *OverdueScanner) Scan(ctx context.Context) (ScanSummary, error) {
	now := s.now().UTC()

	overdue, err := s.tasks.ListOverdue(ctx, now, s.scanLimit)
	if err != nil {
		return ScanSummary{}, err
	}

	summary := ScanSummary{ScannedCount: len(overdue)}
	for _, t := range overdue {
		daysOverdue := int(now.Sub(t.DueDate).Hours() / 24)
		if daysOverdue < 1 {
			daysOverdue = 1
		}

		n := models.PendingNotification{
			RecipientID:      t.AssigneeID,
			NotificationType: models.TypeTaskOverdue,
			ContextData: map[string]interface{}{
				"task_id":      t.ID,
				"task_title":   t.Title,
				"project_name": t.ProjectName,
				"days_overdue": daysOverdue,
			},
			SendAt:    now,
			CreatedAt: now,
		}

		if err := s.notifications.Insert(ctx, &n); err != nil {
			summary.ErrorCount++
			s.logger.WithError(err).Error("failed to create overdue reminder", map[string]interface{}{
				"taskId": t.ID,
			})
			continue
		}
		summary.CreatedCount++
	}

	s.logger.Info("reminder scan completed", map[string]interface{}{
		"scanned": summary.ScannedCount,
		"created": summary.CreatedCount,
		"errors":  summary.ErrorCount,
	})
	return summary, nil
}
