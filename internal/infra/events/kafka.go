package events

import (
	"context"
	"encoding/json"
	"time"

	"use_of_force/internal/domain/notification"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const kafkaWriteTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher streams events to a topic, keyed by report id so a report's events stay in order.
type KafkaPublisher struct {
	writer messageWriter
	logger *logrus.Entry
	now    func() time.Time
}

const kafkaBatchTimeout = 10 * time.Millisecond

// NewKafkaPublisher writes asynchronously: Publish runs inside the reminder transaction and must not
// hold the claimed row while a batch fills or the broker is unreachable. Delivery errors are logged.
func NewKafkaPublisher(brokers []string, topic string, logger *logrus.Entry) *KafkaPublisher {
	return newKafkaPublisher(newKafkaWriter(brokers, topic, logger), logger)
}

func newKafkaWriter(brokers []string, topic string, logger *logrus.Entry) *kafka.Writer {
	log := logger.WithFields(logrus.Fields{"component": "kafka_events", "topic": topic})
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: kafkaBatchTimeout,
		WriteTimeout: kafkaWriteTimeout,
		Async:        true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.WithError(err).WithField("messages", len(messages)).Error("Could not publish events to kafka")
			}
		},
	}
}

func newKafkaPublisher(writer messageWriter, logger *logrus.Entry) *KafkaPublisher {
	return &KafkaPublisher{
		writer: writer,
		logger: logger.WithField("component", "kafka_events"),
		now:    time.Now,
	}
}

type eventMessage struct {
	Name       string            `json:"name"`
	Properties map[string]string `json:"properties"`
	Detail     string            `json:"detail,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Publish does not let a slow or unavailable broker hold up the caller for more than kafkaWriteTimeout.
// With the async writer it only enqueues.
func (p *KafkaPublisher) Publish(ctx context.Context, event notification.Event) {
	value, err := json.Marshal(eventMessage{
		Name:       event.Name,
		Properties: event.Properties,
		Detail:     event.Detail,
		Timestamp:  p.now().UTC(),
	})
	if err != nil {
		p.logger.WithError(err).WithField("event", event.Name).Error("Could not encode event")
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), kafkaWriteTimeout)
	defer cancel()

	msg := kafka.Message{Key: []byte(event.Properties["reportId"]), Value: value}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithError(err).WithField("event", event.Name).Error("Could not publish event to kafka")
	}
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
