package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	NotificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "use_of_force_notifications_total",
		Help: "Total notification attempts by kind and outcome",
	}, []string{"kind", "outcome"})

	ReminderRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "use_of_force_reminder_runs_total",
		Help: "Total reminder runs by result",
	}, []string{"result"})

	RemindersPerRun = prometheus.NewSummary(prometheus.SummaryOpts{
		Name: "use_of_force_reminders_per_run",
		Help: "Reminders sent by each run",
	})

	ReminderRunDuration = prometheus.NewSummary(prometheus.SummaryOpts{
		Name: "use_of_force_reminder_run_seconds",
		Help: "Duration of reminder runs in seconds",
	})
)

// NewRegistry returns a registry holding the runtime collectors and every metric above.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		NotificationsSent,
		ReminderRuns,
		RemindersPerRun,
		ReminderRunDuration,
	)

	return registry
}
