package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"use_of_force/internal/domain/report"
)

type PostgresReportRepository struct {
	q querier
}

func NewPostgresReportRepository(q querier) *PostgresReportRepository {
	return &PostgresReportRepository{q: q}
}

const reportColumns = `id, status, submitted_date, agency_id, booking_id, username, reporter_name, incident_date`

func (r *PostgresReportRepository) Create(ctx context.Context, rpt *report.Report) error {
	if rpt.Status == "" {
		rpt.Status = report.StatusInProgress
	}
	query := `INSERT INTO report (status, submitted_date, agency_id, booking_id, username, reporter_name, incident_date)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               RETURNING id`
	err := r.q.QueryRowContext(ctx, query,
		rpt.Status, rpt.SubmittedDate, rpt.AgencyID, rpt.BookingID, rpt.Username, rpt.ReporterName, rpt.IncidentDate,
	).Scan(&rpt.ID)
	if err != nil {
		return fmt.Errorf("error creating report: %w", err)
	}
	return nil
}

func (r *PostgresReportRepository) Get(ctx context.Context, id int64) (*report.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM report WHERE id = $1`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

func (r *PostgresReportRepository) Lock(ctx context.Context, id int64) (*report.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM report WHERE id = $1 FOR UPDATE`
	return r.scanOne(r.q.QueryRowContext(ctx, query, id))
}

func (r *PostgresReportRepository) scanOne(row *sql.Row) (*report.Report, error) {
	rpt := &report.Report{}
	err := row.Scan(&rpt.ID, &rpt.Status, &rpt.SubmittedDate, &rpt.AgencyID, &rpt.BookingID,
		&rpt.Username, &rpt.ReporterName, &rpt.IncidentDate)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, report.ErrNotFound
		}
		return nil, fmt.Errorf("error getting report: %w", err)
	}
	return rpt, nil
}

func (r *PostgresReportRepository) MarkSubmitted(ctx context.Context, id int64, submittedDate time.Time) error {
	query := `UPDATE report
               SET status = $1, submitted_date = $2, updated_date = NOW()
               WHERE id = $3 AND status = $4`
	res, err := r.q.ExecContext(ctx, query, report.StatusSubmitted, submittedDate, id, report.StatusInProgress)
	if err != nil {
		return fmt.Errorf("error submitting report: %w", err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error submitting report: %w", err)
	}
	if updated == 1 {
		return nil
	}

	// Nothing updated: tell a missing report apart from one that already left IN_PROGRESS.
	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM report WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("error checking report existence: %w", err)
	}
	if !exists {
		return report.ErrNotFound
	}
	return report.ErrNotInProgress
}

func (r *PostgresReportRepository) ChangeStatus(ctx context.Context, id int64, from, to report.Status) (bool, error) {
	query := `UPDATE report SET status = $1, updated_date = NOW() WHERE id = $2 AND status = $3`
	res, err := r.q.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("error changing report status from %s to %s: %w", from, to, err)
	}
	updated, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error changing report status: %w", err)
	}
	return updated == 1, nil
}
