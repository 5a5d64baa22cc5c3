package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"use_of_force/internal/domain/statement"

	"github.com/lib/pq"
)

type PostgresStatementRepository struct {
	q querier
}

func NewPostgresStatementRepository(q querier) *PostgresStatementRepository {
	return &PostgresStatementRepository{q: q}
}

const statementColumns = `s.id, s.report_id, s.user_id, s.name, s.email, s.statement_status, s.next_reminder_date,
       s.overdue_date, s.submitted_date, s.removal_requested_date, s.removal_requested_reason, s.deleted`

// ClaimNextDue locks the lowest-id due statement. Rows held by another transaction are skipped
// rather than waited on, so concurrent runs never claim the same statement.
func (r *PostgresStatementRepository) ClaimNextDue(ctx context.Context, now time.Time, exclude []int64) (*statement.Reminder, error) {
	query := `SELECT ` + statementColumns + `,
               r.username, r.reporter_name, r.incident_date, r.submitted_date
               FROM statement s
               JOIN report r ON r.id = s.report_id
               WHERE s.next_reminder_date < $1
                 AND s.statement_status = $2
                 AND s.deleted IS NULL
                 AND s.removal_requested_date IS NULL
                 AND NOT (s.id = ANY($3::bigint[]))
               ORDER BY s.id
               LIMIT 1
               FOR UPDATE OF s SKIP LOCKED`

	if exclude == nil {
		exclude = []int64{}
	}
	row := r.q.QueryRowContext(ctx, query, now, statement.StatusPending, pq.Array(exclude))

	reminder := &statement.Reminder{}
	dest := append(statementDest(&reminder.Statement),
		&reminder.ReporterUsername, &reminder.ReporterName, &reminder.IncidentDate, &reminder.ReportSubmittedDate)
	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error claiming next due statement: %w", err)
	}
	return reminder, nil
}

func (r *PostgresStatementRepository) SetNextReminderDate(ctx context.Context, id int64, date sql.NullTime) error {
	query := `UPDATE statement SET next_reminder_date = $1, updated_date = NOW() WHERE id = $2`
	return r.execOne(ctx, "updating next reminder date", query, date, id)
}

func (r *PostgresStatementRepository) SetEmail(ctx context.Context, userID string, reportID int64, email string) error {
	query := `UPDATE statement SET email = $1, updated_date = NOW()
               WHERE user_id = $2 AND report_id = $3 AND deleted IS NULL`
	return r.execOne(ctx, "setting statement email", query, email, userID, reportID)
}

func (r *PostgresStatementRepository) CreateStatements(ctx context.Context, reportID int64, firstReminder, overdueDate time.Time, staff []statement.Staff) ([]*statement.Statement, error) {
	query := `INSERT INTO statement (report_id, user_id, name, email, statement_status, next_reminder_date, overdue_date)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id`
	stmt, err := r.q.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error preparing statement insert: %w", err)
	}
	defer stmt.Close()

	created := make([]*statement.Statement, 0, len(staff))
	for _, member := range staff {
		st := &statement.Statement{
			ReportID:         reportID,
			UserID:           member.UserID,
			Name:             member.Name,
			Email:            member.Email,
			Status:           statement.StatusPending,
			NextReminderDate: sql.NullTime{Time: firstReminder, Valid: true},
			OverdueDate:      overdueDate,
		}
		err := stmt.QueryRowContext(ctx,
			st.ReportID, st.UserID, st.Name, st.Email, st.Status, st.NextReminderDate, st.OverdueDate,
		).Scan(&st.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, statement.ErrDuplicate
			}
			return nil, fmt.Errorf("error creating statement for user %s: %w", member.UserID, err)
		}
		created = append(created, st)
	}
	return created, nil
}

func (r *PostgresStatementRepository) Get(ctx context.Context, reportID int64, userID string) (*statement.Statement, error) {
	query := `SELECT ` + statementColumns + ` FROM statement s
               WHERE s.report_id = $1 AND s.user_id = $2 AND s.deleted IS NULL`
	return r.scanOne(r.q.QueryRowContext(ctx, query, reportID, userID))
}

func (r *PostgresStatementRepository) GetByID(ctx context.Context, id int64) (*statement.Statement, error) {
	query := `SELECT ` + statementColumns + ` FROM statement s WHERE s.id = $1 AND s.deleted IS NULL`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

func (r *PostgresStatementRepository) ListByReport(ctx context.Context, reportID int64) ([]*statement.Statement, error) {
	query := `SELECT ` + statementColumns + ` FROM statement s
               WHERE s.report_id = $1 AND s.deleted IS NULL
               ORDER BY s.id`
	rows, err := r.q.QueryContext(ctx, query, reportID)
	if err != nil {
		return nil, fmt.Errorf("error listing statements for report %d: %w", reportID, err)
	}
	defer rows.Close()

	var statements []*statement.Statement
	for rows.Next() {
		st := &statement.Statement{}
		if err := rows.Scan(statementDest(st)...); err != nil {
			return nil, fmt.Errorf("error scanning statement: %w", err)
		}
		statements = append(statements, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating statements: %w", err)
	}
	return statements, nil
}

func (r *PostgresStatementRepository) Submit(ctx context.Context, reportID int64, userID string, submittedDate time.Time) error {
	query := `UPDATE statement
               SET statement_status = $1, submitted_date = $2, updated_date = NOW()
               WHERE report_id = $3 AND user_id = $4 AND statement_status = $5 AND deleted IS NULL`
	return r.execOne(ctx, "submitting statement", query,
		statement.StatusSubmitted, submittedDate, reportID, userID, statement.StatusPending)
}

func (r *PostgresStatementRepository) Delete(ctx context.Context, id int64, deletedDate time.Time) error {
	query := `UPDATE statement SET deleted = $1, updated_date = NOW() WHERE id = $2 AND deleted IS NULL`
	return r.execOne(ctx, "deleting statement", query, deletedDate, id)
}

func (r *PostgresStatementRepository) CountPending(ctx context.Context, reportID int64) (int, error) {
	query := `SELECT COUNT(*) FROM statement
               WHERE report_id = $1 AND statement_status = $2 AND deleted IS NULL`
	var count int
	if err := r.q.QueryRowContext(ctx, query, reportID, statement.StatusPending).Scan(&count); err != nil {
		return 0, fmt.Errorf("error counting pending statements for report %d: %w", reportID, err)
	}
	return count, nil
}

// execOne runs an update that must touch exactly one row; zero rows maps to ErrNotFound.
func (r *PostgresStatementRepository) execOne(ctx context.Context, action, query string, args ...any) error {
	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("error %s: %w", action, err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error %s: %w", action, err)
	}
	if updated == 0 {
		return statement.ErrNotFound
	}
	return nil
}

func (r *PostgresStatementRepository) scanOne(row *sql.Row) (*statement.Statement, error) {
	st := &statement.Statement{}
	if err := row.Scan(statementDest(st)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, statement.ErrNotFound
		}
		return nil, fmt.Errorf("error getting statement: %w", err)
	}
	return st, nil
}

func statementDest(st *statement.Statement) []any {
	return []any{
		&st.ID, &st.ReportID, &st.UserID, &st.Name, &st.Email, &st.Status, &st.NextReminderDate,
		&st.OverdueDate, &st.SubmittedDate, &st.RemovalRequestedDate, &st.RemovalRequestedReason, &st.Deleted,
	}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}
