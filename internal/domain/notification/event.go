// internal/domain/notification/event.go
package notification

import "context"

// Event is a telemetry record about a notification attempt.
type Event struct {
	Name       string
	Properties map[string]string
	Detail     string
}

// Failed reports whether the event records an unsuccessful dispatch.
func (e Event) Failed() bool {
	return e.Properties["outcome"] == OutcomeFailure
}

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// EventPublisher receives events. Publishing never fails the caller; sinks deal with their own errors.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// EventName builds the event name for a notification kind and outcome, e.g. "REPORTER_REMINDER_SUCCESS".
func EventName(kind Kind, outcome string) string {
	if outcome == OutcomeFailure {
		return string(kind) + "_FAILURE"
	}
	return string(kind) + "_SUCCESS"
}
