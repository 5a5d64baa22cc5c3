// internal/domain/report/repository.go
package report

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("report not found")
	ErrNotInProgress = errors.New("report is not in progress")
)

// Repository defines report persistence. Implementations are bound to a single transaction.
type Repository interface {
	Create(ctx context.Context, r *Report) error
	Get(ctx context.Context, id int64) (*Report, error)
	// Lock reads the report and holds a row lock on it until the transaction ends.
	Lock(ctx context.Context, id int64) (*Report, error)
	// MarkSubmitted moves an IN_PROGRESS report to SUBMITTED, returning ErrNotInProgress otherwise.
	MarkSubmitted(ctx context.Context, id int64, submittedDate time.Time) error
	// ChangeStatus moves the report from one status to another. It returns false, without error,
	// when the report was not in the expected status.
	ChangeStatus(ctx context.Context, id int64, from, to Status) (bool, error)
}
