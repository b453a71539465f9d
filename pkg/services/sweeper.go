package services

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// DefaultSweepSchedule runs the idle form sweep every minute.
const DefaultSweepSchedule = "* * * * *"

// FormSweeper periodically discards idle forms on a cron schedule.
type FormSweeper struct {
	forms    *Forms
	schedule string
	logger   *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// NewFormSweeper validates schedule, a standard five-field cron expression.
func NewFormSweeper(forms *Forms, schedule string, logger *slog.Logger) (*FormSweeper, error) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid form sweep schedule '%s': %w", schedule, err)
	}

	return &FormSweeper{
		forms:    forms,
		schedule: schedule,
		logger:   logger,
	}, nil
}

// Start schedules the sweep.
func (s *FormSweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.forms.Sweep()
	})
	if err != nil {
		s.cron = nil

		return fmt.Errorf("failed to add form sweep job: %w", err)
	}

	s.cron.Start()
	s.logger.Info("Form sweeper started", "schedule", s.schedule, "entry_id", entryID)

	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *FormSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}

	<-s.cron.Stop().Done()
	s.cron = nil
	s.logger.Info("Form sweeper stopped")
}
