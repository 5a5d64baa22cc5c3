// internal/domain/notification/payload.go
package notification

import (
	"fmt"
	"time"
)

const (
	dateFormat = "Monday 2 January 2006"
	timeFormat = "15:04"
)

// Payload carries the values a provider template is personalised with.
type Payload struct {
	RecipientName      string
	ReporterName       string
	IncidentDate       time.Time
	SubmittedDate      time.Time
	OverdueDate        time.Time // Zero for overdue notifications
	RemovalRequestLink string    // Involved staff only
}

// Reference ties a sent notification back to the statement it concerns.
type Reference struct {
	ReportID    int64
	StatementID int64
}

func (r Reference) String() string {
	return fmt.Sprintf("%d/%d", r.ReportID, r.StatementID)
}

// Personalisation flattens the payload into template variables. Optional values are omitted.
func (p Payload) Personalisation() map[string]string {
	values := map[string]string{
		"recipientName": p.RecipientName,
		"incidentDate":  p.IncidentDate.Format(dateFormat),
		"incidentTime":  p.IncidentDate.Format(timeFormat),
		"submittedDate": p.SubmittedDate.Format(dateFormat),
	}
	if p.ReporterName != "" {
		values["reporterName"] = p.ReporterName
	}
	if !p.OverdueDate.IsZero() {
		values["overdueDate"] = p.OverdueDate.Format(dateFormat)
		values["overdueTime"] = p.OverdueDate.Format(timeFormat)
	}
	if p.RemovalRequestLink != "" {
		values["removalRequestLink"] = p.RemovalRequestLink
	}
	return values
}
