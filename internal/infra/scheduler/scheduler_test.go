package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"use_of_force/internal/infra/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
)

type fakeRunner struct {
	sent     int
	err      error
	deadline bool
}

func (f *fakeRunner) Run(ctx context.Context) (int, error) {
	_, f.deadline = ctx.Deadline()
	return f.sent, f.err
}

func discardLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func TestRunRecordsSuccess(t *testing.T) {
	runner := &fakeRunner{sent: 3}
	s := NewReminderScheduler(runner, discardLogger(), "*/5 * * * *", time.Minute)
	before := testutil.ToFloat64(metrics.ReminderRuns.WithLabelValues("success"))

	sent, err := s.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sent != 3 || !runner.deadline {
		t.Fatalf("expected 3 sent under a deadline, got %d (deadline %v)", sent, runner.deadline)
	}
	if got := testutil.ToFloat64(metrics.ReminderRuns.WithLabelValues("success")); got != before+1 {
		t.Fatalf("success counter not incremented: %v -> %v", before, got)
	}
}

func TestRunRecordsFailure(t *testing.T) {
	runner := &fakeRunner{sent: 1, err: errors.New("database unavailable")}
	s := NewReminderScheduler(runner, discardLogger(), "*/5 * * * *", time.Minute)
	before := testutil.ToFloat64(metrics.ReminderRuns.WithLabelValues("failure"))

	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("expected the run error to be returned")
	}
	if got := testutil.ToFloat64(metrics.ReminderRuns.WithLabelValues("failure")); got != before+1 {
		t.Fatalf("failure counter not incremented: %v -> %v", before, got)
	}
}

func TestStartRejectsInvalidSpec(t *testing.T) {
	s := NewReminderScheduler(&fakeRunner{}, discardLogger(), "not a cron spec", time.Minute)
	if err := s.Start(); err == nil {
		t.Fatal("expected an error for an invalid cron spec")
	}
}
