package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"use_of_force/internal/domain/notification"
	"use_of_force/internal/domain/statement"
	"use_of_force/internal/domain/store"

	"github.com/sirupsen/logrus"
)

// ReminderSender notifies the owner of a claimed statement and moves its reminder schedule on.
type ReminderSender struct {
	notifications *NotificationService
	links         *RemovalLinks
	clock         Clock
	logger        *logrus.Entry
}

func NewReminderSender(notifications *NotificationService, links *RemovalLinks, clock Clock, logger *logrus.Entry) *ReminderSender {
	return &ReminderSender{
		notifications: notifications,
		links:         links,
		clock:         clock,
		logger:        logger.WithField("component", "reminder_sender"),
	}
}

// Send requires reminder.Email to be set. A failed dispatch is published as an event and the
// schedule still advances, so a permanently failing address cannot hold the statement in a loop.
func (s *ReminderSender) Send(ctx context.Context, tx store.Tx, reminder *statement.Reminder) error {
	if !reminder.Email.Valid {
		return fmt.Errorf("statement %d has no email address", reminder.ID)
	}

	now := s.clock.Now()
	overdue := reminder.IsOverdue(now)
	kind := notification.ReminderKind(reminder.IsReporter(), overdue)

	payload, err := s.payload(reminder, overdue)
	if err != nil {
		return err
	}
	ref := notification.Reference{ReportID: reminder.ReportID, StatementID: reminder.ID}

	logCtx := s.logger.WithFields(logrus.Fields{
		"statement_id": reminder.ID,
		"report_id":    reminder.ReportID,
		"kind":         kind,
	})
	if err := s.notifications.Send(ctx, kind, reminder.Email.String, payload, ref); err != nil {
		logCtx.WithError(err).Warn("Reminder dispatch failed, advancing schedule anyway")
	}

	next := nextReminderDate(reminder, now)
	if err := tx.Statements().SetNextReminderDate(ctx, reminder.ID, next); err != nil {
		return fmt.Errorf("failed to update next reminder date for statement %d: %w", reminder.ID, err)
	}
	return nil
}

func (s *ReminderSender) payload(reminder *statement.Reminder, overdue bool) (notification.Payload, error) {
	payload := notification.Payload{
		RecipientName: reminder.Name,
		ReporterName:  reminder.ReporterName,
		IncidentDate:  reminder.IncidentDate,
		SubmittedDate: reminder.ReportSubmittedDate.Time,
	}
	if !overdue {
		payload.OverdueDate = reminder.OverdueDate
	}
	if !reminder.IsReporter() {
		link, err := s.links.Link(reminder.ID)
		if err != nil {
			return notification.Payload{}, err
		}
		payload.RemovalRequestLink = link
	}
	return payload, nil
}

// nextReminderDate is one reminder interval after the current one, or null once the statement is overdue.
func nextReminderDate(reminder *statement.Reminder, now time.Time) sql.NullTime {
	if reminder.IsOverdue(now) {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: reminder.NextReminderDate.Time.Add(reminderInterval), Valid: true}
}
