package app

import "time"

// Clock is the time source for every deadline computed by the services.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

const (
	reminderInterval = 24 * time.Hour
	overdueAfter     = 3 * 24 * time.Hour
)

// statementDeadlines returns the first reminder and the overdue date for statements requested at anchor.
func statementDeadlines(anchor time.Time) (firstReminder, overdueDate time.Time) {
	return anchor.Add(reminderInterval), anchor.Add(overdueAfter)
}
