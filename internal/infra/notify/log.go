package notify

import (
	"context"

	"use_of_force/internal/domain/notification"

	"github.com/sirupsen/logrus"
)

// LogClient only logs what would have been sent. For development without an email provider.
type LogClient struct {
	logger *logrus.Entry
}

var _ notification.Client = (*LogClient)(nil)

func NewLogClient(logger *logrus.Entry) *LogClient {
	return &LogClient{logger: logger.WithField("component", "log_email_client")}
}

func (c *LogClient) Send(ctx context.Context, kind notification.Kind, emailAddress string, payload notification.Payload, ref notification.Reference) error {
	c.logger.WithFields(logrus.Fields{
		"kind":            kind,
		"email":           emailAddress,
		"reference":       ref.String(),
		"personalisation": payload.Personalisation(),
	}).Info("Email not sent, log backend configured")
	return nil
}
