// internal/app/notification_service.go
package app

import (
	"context"
	"fmt"
	"strconv"

	"use_of_force/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// NotificationService sends the statement notifications and reports every attempt to the event publisher.
type NotificationService struct {
	client notification.Client
	events notification.EventPublisher
	logger *logrus.Entry
}

func NewNotificationService(client notification.Client, events notification.EventPublisher, logger *logrus.Entry) *NotificationService {
	return &NotificationService{
		client: client,
		events: events,
		logger: logger.WithField("component", "notification_service"),
	}
}

func (s *NotificationService) SendStatementRequest(ctx context.Context, emailAddress string, payload notification.Payload, ref notification.Reference) error {
	return s.send(ctx, notification.KindStatementRequest, emailAddress, payload, ref)
}

func (s *NotificationService) SendReporterReminder(ctx context.Context, emailAddress string, payload notification.Payload, ref notification.Reference) error {
	return s.send(ctx, notification.KindReporterReminder, emailAddress, payload, ref)
}

func (s *NotificationService) SendInvolvedReminder(ctx context.Context, emailAddress string, payload notification.Payload, ref notification.Reference) error {
	return s.send(ctx, notification.KindInvolvedReminder, emailAddress, payload, ref)
}

func (s *NotificationService) SendReporterOverdue(ctx context.Context, emailAddress string, payload notification.Payload, ref notification.Reference) error {
	return s.send(ctx, notification.KindReporterOverdue, emailAddress, payload, ref)
}

func (s *NotificationService) SendInvolvedOverdue(ctx context.Context, emailAddress string, payload notification.Payload, ref notification.Reference) error {
	return s.send(ctx, notification.KindInvolvedOverdue, emailAddress, payload, ref)
}

// Send dispatches by kind. Used where the kind is computed rather than fixed at the call site.
func (s *NotificationService) Send(ctx context.Context, kind notification.Kind, emailAddress string, payload notification.Payload, ref notification.Reference) error {
	switch kind {
	case notification.KindStatementRequest:
		return s.SendStatementRequest(ctx, emailAddress, payload, ref)
	case notification.KindReporterReminder:
		return s.SendReporterReminder(ctx, emailAddress, payload, ref)
	case notification.KindInvolvedReminder:
		return s.SendInvolvedReminder(ctx, emailAddress, payload, ref)
	case notification.KindReporterOverdue:
		return s.SendReporterOverdue(ctx, emailAddress, payload, ref)
	case notification.KindInvolvedOverdue:
		return s.SendInvolvedOverdue(ctx, emailAddress, payload, ref)
	default:
		return fmt.Errorf("unknown notification kind: %s", kind)
	}
}

func (s *NotificationService) send(ctx context.Context, kind notification.Kind, emailAddress string, payload notification.Payload, ref notification.Reference) error {
	logCtx := s.logger.WithFields(logrus.Fields{
		"kind":         kind,
		"report_id":    ref.ReportID,
		"statement_id": ref.StatementID,
	})

	properties := map[string]string{
		"kind":        string(kind),
		"reportId":    strconv.FormatInt(ref.ReportID, 10),
		"statementId": strconv.FormatInt(ref.StatementID, 10),
	}

	err := s.client.Send(ctx, kind, emailAddress, payload, ref)
	if err != nil {
		logCtx.WithError(err).Error("Failed to send notification")
		properties["outcome"] = notification.OutcomeFailure
		s.events.Publish(ctx, notification.Event{
			Name:       notification.EventName(kind, notification.OutcomeFailure),
			Properties: properties,
			Detail:     err.Error(),
		})
		return fmt.Errorf("failed to send %s notification for statement %d: %w", kind, ref.StatementID, err)
	}

	logCtx.Info("Notification sent")
	properties["outcome"] = notification.OutcomeSuccess
	s.events.Publish(ctx, notification.Event{
		Name:       notification.EventName(kind, notification.OutcomeSuccess),
		Properties: properties,
	})
	return nil
}
