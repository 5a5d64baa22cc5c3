// internal/domain/report/report.go
package report

import (
	"database/sql"
	"time"
)

// Status is the lifecycle state of a use of force report.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS" // Drafting, owned by the reporter
	StatusSubmitted  Status = "SUBMITTED"   // At least one statement still pending
	StatusComplete   Status = "COMPLETE"    // No pending statements left
)

// Report is the aggregate incident record that statements belong to.
// Corresponds to the 'report' table.
type Report struct {
	ID            int64
	Status        Status
	SubmittedDate sql.NullTime // Set once, when the reporter submits
	AgencyID      string
	BookingID     int64
	Username      string // Reporter's user id, matched against statement.user_id
	ReporterName  string
	IncidentDate  time.Time
}

// IsPersisted reports whether the report has a server-assigned identity.
func (r *Report) IsPersisted() bool {
	return r != nil && r.ID != 0
}
