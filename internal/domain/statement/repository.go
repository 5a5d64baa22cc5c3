// internal/domain/statement/repository.go
package statement

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var ErrNotFound = errors.New("statement not found")

// Repository defines statement persistence. Implementations are bound to a single transaction,
// so every call made through one instance takes part in that transaction.
type Repository interface {
	// ClaimNextDue locks and returns the oldest pending statement whose reminder is due, skipping
	// rows locked by other transactions and any id in exclude. It returns nil when nothing is due.
	ClaimNextDue(ctx context.Context, now time.Time, exclude []int64) (*Reminder, error)
	SetNextReminderDate(ctx context.Context, id int64, date sql.NullTime) error
	SetEmail(ctx context.Context, userID string, reportID int64, email string) error

	CreateStatements(ctx context.Context, reportID int64, firstReminder, overdueDate time.Time, staff []Staff) ([]*Statement, error)
	Get(ctx context.Context, reportID int64, userID string) (*Statement, error)
	GetByID(ctx context.Context, id int64) (*Statement, error)
	ListByReport(ctx context.Context, reportID int64) ([]*Statement, error)
	// Submit marks the user's pending statement as submitted.
	Submit(ctx context.Context, reportID int64, userID string, submittedDate time.Time) error
	Delete(ctx context.Context, id int64, deletedDate time.Time) error
	// CountPending counts non-deleted pending statements on a report.
	CountPending(ctx context.Context, reportID int64) (int, error)
}

// ErrDuplicate is returned when a user already has a live statement on the report.
var ErrDuplicate = errors.New("statement already exists for user on report")
