package events

import (
	"context"

	"use_of_force/internal/domain/notification"
	"use_of_force/internal/infra/metrics"

	"github.com/sirupsen/logrus"
)

// Fanout hands every event to each publisher in turn.
type Fanout []notification.EventPublisher

func (f Fanout) Publish(ctx context.Context, event notification.Event) {
	for _, p := range f {
		p.Publish(ctx, event)
	}
}

type LogPublisher struct {
	logger *logrus.Entry
}

func NewLogPublisher(logger *logrus.Entry) *LogPublisher {
	return &LogPublisher{logger: logger.WithField("component", "events")}
}

func (p *LogPublisher) Publish(ctx context.Context, event notification.Event) {
	fields := logrus.Fields{"event": event.Name}
	for k, v := range event.Properties {
		fields[k] = v
	}
	logCtx := p.logger.WithFields(fields)

	if event.Failed() {
		logCtx.WithField("detail", event.Detail).Warn("Notification event")
		return
	}
	logCtx.Info("Notification event")
}

// MetricsPublisher counts events by notification kind and outcome.
type MetricsPublisher struct{}

func (MetricsPublisher) Publish(ctx context.Context, event notification.Event) {
	metrics.NotificationsSent.WithLabelValues(event.Properties["kind"], event.Properties["outcome"]).Inc()
}
