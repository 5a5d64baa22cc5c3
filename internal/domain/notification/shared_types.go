// internal/domain/notification/shared_types.go
package notification

// Kind identifies which notification is sent; each maps to one provider template.
type Kind string

const (
	KindStatementRequest Kind = "STATEMENT_REQUEST"
	KindReporterReminder Kind = "REPORTER_REMINDER"
	KindInvolvedReminder Kind = "INVOLVED_REMINDER"
	KindReporterOverdue  Kind = "REPORTER_OVERDUE"
	KindInvolvedOverdue  Kind = "INVOLVED_OVERDUE"
)

// Kinds lists every notification kind, in a stable order.
var Kinds = []Kind{
	KindStatementRequest,
	KindReporterReminder,
	KindInvolvedReminder,
	KindReporterOverdue,
	KindInvolvedOverdue,
}

// ReminderKind picks the reminder or overdue kind for the statement owner's role.
func ReminderKind(isReporter, isOverdue bool) Kind {
	switch {
	case isReporter && isOverdue:
		return KindReporterOverdue
	case isReporter:
		return KindReporterReminder
	case isOverdue:
		return KindInvolvedOverdue
	default:
		return KindInvolvedReminder
	}
}

// IsOverdueKind reports whether the kind tells the recipient their statement is late.
func (k Kind) IsOverdueKind() bool {
	return k == KindReporterOverdue || k == KindInvolvedOverdue
}
