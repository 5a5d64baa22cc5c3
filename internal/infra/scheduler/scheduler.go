package scheduler

import (
	"context"
	"fmt"
	"time"

	"use_of_force/internal/infra/metrics"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReminderRunner is one pass of the reminder job.
type ReminderRunner interface {
	Run(ctx context.Context) (int, error)
}

type ReminderScheduler struct {
	cronEngine *cron.Cron
	runner     ReminderRunner
	logger     *logrus.Entry
	cronSpec   string
	runTimeout time.Duration
}

func NewReminderScheduler(runner ReminderRunner, logger *logrus.Entry, cronSpec string, runTimeout time.Duration) *ReminderScheduler {
	logger = logger.WithField("component", "scheduler")
	cronLogger := cron.PrintfLogger(logger)

	return &ReminderScheduler{
		// An overrunning run is skipped rather than stacked; the next tick picks up what is left.
		cronEngine: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		runner:     runner,
		logger:     logger,
		cronSpec:   cronSpec,
		runTimeout: runTimeout,
	}
}

func (s *ReminderScheduler) Start() error {
	s.logger.Info("Starting reminder scheduler...")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Debug("Cron job triggered for statement reminders.")
		s.Run(context.Background())
	})
	if err != nil {
		return fmt.Errorf("could not add reminder cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Reminder scheduler started.")
	return nil
}

// Run runs the job once under the configured timeout and records the run's metrics.
func (s *ReminderScheduler) Run(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	start := time.Now()
	sent, err := s.runner.Run(ctx)
	metrics.ReminderRunDuration.Observe(time.Since(start).Seconds())
	metrics.RemindersPerRun.Observe(float64(sent))

	if err != nil {
		metrics.ReminderRuns.WithLabelValues("failure").Inc()
		s.logger.WithError(err).WithField("sent", sent).Error("Error during reminder run")
		return sent, err
	}
	metrics.ReminderRuns.WithLabelValues("success").Inc()
	s.logger.WithField("sent", sent).Info("Reminder run finished")
	return sent, nil
}

func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Reminder scheduler gracefully stopped.")
}
