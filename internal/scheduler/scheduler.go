// Package scheduler runs recurring pipeline passes on a cron schedule.
package scheduler

import (
	"github.com/robfig/cron/v3"

	"github.com/deusflow/newsriver/internal/logger"
)

type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// Start registers the job under the given cron expression and starts
// ticking.
func (s *Scheduler) Start(spec string, job func()) error {
	if _, err := s.cron.AddFunc(spec, job); err != nil {
		return err
	}
	s.cron.Start()
	logger.Info("scheduler started", "spec", spec)
	return nil
}

// Stop halts the ticker and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("scheduler stopped")
}
