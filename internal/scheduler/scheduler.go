// internal/scheduler/scheduler.go

// Package scheduler runs the dispatch cycle and the reminder scan on cron
// schedules for single-binary deployments where no external scheduler hits
// the trigger endpoints.
package scheduler

import (
	"context"

	"portal-notifier/internal/common/logger"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron   *cron.Cron
	logger logger.Logger
}

func New(log logger.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: log,
	}
}

// Add registers a job under a standard 5-field cron expression.
func (s *Scheduler) Add(spec, name string, job func(ctx context.Context)) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.logger.Debug("scheduled job firing", map[string]interface{}{"job": name})
		job(context.Background())
	})
	if err != nil {
		return err
	}
	s.logger.Info("scheduled job registered", map[string]interface{}{"job": name, "spec": spec})
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// ValidateSpec checks a cron expression before wiring it.
func ValidateSpec(spec string) error {
	_, err := cron.ParseStandard(spec)
	return err
}
