package telegram

import (
	"context"
	"fmt"
	"strings"

	"use_of_force/internal/domain/notification"
	"use_of_force/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// AlertPublisher forwards failed notification events to the operations chat. Successes are ignored.
type AlertPublisher struct {
	client telegram.Client
	chatID int64
	logger *logrus.Entry
}

func NewAlertPublisher(client telegram.Client, chatID int64, logger *logrus.Entry) *AlertPublisher {
	return &AlertPublisher{
		client: client,
		chatID: chatID,
		logger: logger.WithField("component", "telegram_alerts"),
	}
}

func (p *AlertPublisher) Publish(ctx context.Context, event notification.Event) {
	if !event.Failed() {
		return
	}

	if err := p.client.SendMessage(p.chatID, alertText(event), &telebot.SendOptions{DisableWebPagePreview: true}); err != nil {
		p.logger.WithError(err).WithField("event", event.Name).Error("Could not send alert to telegram")
	}
}

func alertText(event notification.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "⚠️ %s\n", event.Name)
	fmt.Fprintf(&b, "Report %s, statement %s\n", event.Properties["reportId"], event.Properties["statementId"])
	if event.Detail != "" {
		b.WriteString(event.Detail)
	}
	return b.String()
}
