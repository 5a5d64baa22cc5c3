// internal/domain/statement/statement.go
package statement

import (
	"database/sql"
	"time"
)

// Status represents whether a staff member has provided their account yet.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusSubmitted Status = "SUBMITTED"
)

// Statement is one staff member's account of an incident.
// Corresponds to the 'statement' table.
type Statement struct {
	ID                     int64
	ReportID               int64
	UserID                 string
	Name                   string
	Email                  sql.NullString // Null until the user's address has been verified
	Status                 Status
	NextReminderDate       sql.NullTime // Null means no further reminders
	OverdueDate            time.Time
	SubmittedDate          sql.NullTime
	RemovalRequestedDate   sql.NullTime
	RemovalRequestedReason sql.NullString
	Deleted                sql.NullTime
}

// IsOverdue is only meaningful while the statement is pending.
func (s *Statement) IsOverdue(now time.Time) bool {
	return !s.OverdueDate.After(now)
}

// Reminder is a claimed statement together with the report details needed to notify its owner.
type Reminder struct {
	Statement
	ReporterUsername    string
	ReporterName        string
	IncidentDate        time.Time
	ReportSubmittedDate sql.NullTime
}

func (r *Reminder) IsReporter() bool {
	return r.UserID == r.ReporterUsername
}

// Staff identifies a member of staff a statement is requested from.
type Staff struct {
	UserID string
	Name   string
	Email  sql.NullString
}
