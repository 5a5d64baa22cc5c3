package app

import (
	"context"
	"fmt"

	"use_of_force/internal/domain/statement"
	"use_of_force/internal/domain/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// MaxRemindersPerRun bounds the work, and the lock contention, of a single run.
const MaxRemindersPerRun = 50

// Outcome is what happened to one claimed statement.
type Outcome string

const (
	OutcomeComplete         Outcome = "COMPLETE" // Nothing left to claim
	OutcomeReminderSent     Outcome = "REMINDER_SENT"
	OutcomeEmailResolved    Outcome = "EMAIL_RESOLVED"
	OutcomeReminderDeferred Outcome = "REMINDER_DEFERRED"
	OutcomeFailed           Outcome = "FAILED"
)

// ReminderService drains due statements, one claim per transaction. Several instances may run
// at once against the same database; the claim skips rows another instance holds.
type ReminderService struct {
	store    store.Store
	sender   *ReminderSender
	resolver *EmailResolver
	clock    Clock
	logger   *logrus.Entry
}

func NewReminderService(st store.Store, sender *ReminderSender, resolver *EmailResolver, clock Clock, logger *logrus.Entry) *ReminderService {
	return &ReminderService{
		store:    st,
		sender:   sender,
		resolver: resolver,
		clock:    clock,
		logger:   logger.WithField("component", "reminder_service"),
	}
}

// Run processes due statements until none are left or MaxRemindersPerRun reminders have been sent,
// and returns how many were sent.
//
// A statement whose processing fails is rolled back, left as it was for the next run, and excluded
// from the rest of this one. Only a failure to claim aborts the run.
func (s *ReminderService) Run(ctx context.Context) (int, error) {
	runLog := s.logger.WithField("run_id", uuid.NewString())
	runLog.Info("Reminder run started")

	sent := 0
	var failed []int64
	for sent < MaxRemindersPerRun && len(failed) < MaxRemindersPerRun {
		if err := ctx.Err(); err != nil {
			runLog.WithError(err).Warn("Reminder run interrupted")
			return sent, err
		}

		outcome, claimed, err := s.processNext(ctx, failed)
		if err != nil {
			if claimed == nil {
				runLog.WithError(err).Error("Could not claim next due statement")
				return sent, fmt.Errorf("failed to claim next due statement: %w", err)
			}
			runLog.WithError(err).WithField("statement_id", claimed.ID).Error("Failed to process statement, leaving it for the next run")
			failed = append(failed, claimed.ID)
			continue
		}

		switch outcome {
		case OutcomeComplete:
			runLog.WithFields(logrus.Fields{"sent": sent, "failed": len(failed)}).Info("Reminder run complete")
			return sent, nil
		case OutcomeReminderSent:
			sent++
		}
		runLog.WithFields(logrus.Fields{"statement_id": claimed.ID, "outcome": outcome}).Debug("Processed statement")
	}

	runLog.WithFields(logrus.Fields{"sent": sent, "failed": len(failed)}).Info("Reminder run stopped at batch limit")
	return sent, nil
}

// processNext claims and handles one statement in its own transaction. The returned reminder is
// nil when the claim itself failed or found nothing.
func (s *ReminderService) processNext(ctx context.Context, exclude []int64) (Outcome, *statement.Reminder, error) {
	outcome := OutcomeComplete
	var claimed *statement.Reminder

	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		reminder, err := tx.Statements().ClaimNextDue(ctx, s.clock.Now(), exclude)
		if err != nil {
			return err
		}
		if reminder == nil {
			return nil
		}
		claimed = reminder

		outcome, err = s.process(ctx, tx, reminder)
		return err
	})
	if err != nil {
		return OutcomeFailed, claimed, err
	}
	return outcome, claimed, nil
}

func (s *ReminderService) process(ctx context.Context, tx store.Tx, reminder *statement.Reminder) (Outcome, error) {
	if reminder.Email.Valid {
		if err := s.sender.Send(ctx, tx, reminder); err != nil {
			return OutcomeFailed, err
		}
		return OutcomeReminderSent, nil
	}

	resolved, err := s.resolver.ResolveEmail(ctx, tx, reminder.UserID, reminder.ReportID)
	if err != nil {
		return OutcomeFailed, err
	}
	if resolved {
		// Still due: the next claim sends the reminder now that the address is known.
		return OutcomeEmailResolved, nil
	}

	next := nextReminderDate(reminder, s.clock.Now())
	if err := tx.Statements().SetNextReminderDate(ctx, reminder.ID, next); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to defer reminder for statement %d: %w", reminder.ID, err)
	}
	return OutcomeReminderDeferred, nil
}
