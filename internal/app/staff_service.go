package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"use_of_force/internal/domain/identity"
	"use_of_force/internal/domain/report"
	"use_of_force/internal/domain/statement"
	"use_of_force/internal/domain/store"

	"github.com/sirupsen/logrus"
)

// Custom application-level errors for staff management
var ErrStaffAlreadyInvolved = errors.New("staff member already has a statement on this report")
var ErrReportNotSubmitted = errors.New("report has not been submitted")

// StaffService keeps a report's status in line with its pending statements as staff are added,
// removed, or submit their statements.
type StaffService struct {
	store     store.Store
	tokens    identity.TokenSupplier
	directory identity.Service
	clock     Clock
	logger    *logrus.Entry
}

func NewStaffService(st store.Store, tokens identity.TokenSupplier, directory identity.Service, clock Clock, logger *logrus.Entry) *StaffService {
	return &StaffService{
		store:     st,
		tokens:    tokens,
		directory: directory,
		clock:     clock,
		logger:    logger.WithField("component", "staff_service"),
	}
}

// AddInvolvedStaff requests a statement from another member of staff after submission.
// Deadlines are anchored on the report's submitted date. A complete report goes back to submitted.
func (s *StaffService) AddInvolvedStaff(ctx context.Context, reportID int64, username string) (*statement.Statement, error) {
	logCtx := s.logger.WithFields(logrus.Fields{"report_id": reportID, "user_id": username})

	// Look the user up before opening the transaction; the identity call can be slow.
	token, err := s.tokens.SystemToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain system token: %w", err)
	}
	user, err := s.directory.GetUser(ctx, username, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up staff member %s: %w", username, err)
	}

	// The identity service may store the username in another case; statements are keyed by ours.
	staff := statement.Staff{UserID: username, Name: user.Name}
	if user.Email.Verified && user.Email.Address != "" {
		staff.Email = sql.NullString{String: user.Email.Address, Valid: true}
	}

	var added *statement.Statement
	err = s.store.WithinTx(ctx, func(tx store.Tx) error {
		rpt, err := tx.Reports().Lock(ctx, reportID)
		if err != nil {
			return err
		}
		if rpt.Status == report.StatusInProgress || !rpt.SubmittedDate.Valid {
			return ErrReportNotSubmitted
		}

		_, err = tx.Statements().Get(ctx, reportID, staff.UserID)
		if err == nil {
			return ErrStaffAlreadyInvolved
		}
		if !errors.Is(err, statement.ErrNotFound) {
			return fmt.Errorf("failed to check existing statement: %w", err)
		}

		firstReminder, overdueDate := statementDeadlines(rpt.SubmittedDate.Time)
		created, err := tx.Statements().CreateStatements(ctx, reportID, firstReminder, overdueDate, []statement.Staff{staff})
		if err != nil {
			return fmt.Errorf("failed to create statement: %w", err)
		}
		added = created[0]

		if rpt.Status == report.StatusComplete {
			if _, err := tx.Reports().ChangeStatus(ctx, reportID, report.StatusComplete, report.StatusSubmitted); err != nil {
				return fmt.Errorf("failed to reopen report: %w", err)
			}
			logCtx.Info("Report reopened, new statement pending")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx.WithField("statement_id", added.ID).Info("Involved staff added")
	return added, nil
}

// RemoveInvolvedStaff soft-deletes a statement. When it was the last pending one the report becomes complete.
func (s *StaffService) RemoveInvolvedStaff(ctx context.Context, reportID, statementID int64) error {
	logCtx := s.logger.WithFields(logrus.Fields{"report_id": reportID, "statement_id": statementID})

	return s.store.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Reports().Lock(ctx, reportID); err != nil {
			return err
		}

		st, err := tx.Statements().GetByID(ctx, statementID)
		if err != nil {
			return err
		}
		if st.ReportID != reportID {
			return fmt.Errorf("statement %d does not belong to report %d: %w", statementID, reportID, statement.ErrNotFound)
		}

		pendingBefore, err := tx.Statements().CountPending(ctx, reportID)
		if err != nil {
			return fmt.Errorf("failed to count pending statements: %w", err)
		}
		if err := tx.Statements().Delete(ctx, statementID, s.clock.Now()); err != nil {
			return fmt.Errorf("failed to delete statement: %w", err)
		}
		pendingAfter, err := tx.Statements().CountPending(ctx, reportID)
		if err != nil {
			return fmt.Errorf("failed to count pending statements: %w", err)
		}

		if pendingBefore > 0 && pendingAfter == 0 {
			return s.complete(ctx, tx, reportID, logCtx)
		}
		logCtx.WithField("pending", pendingAfter).Info("Involved staff removed")
		return nil
	})
}

// SubmitStatement records that the user has provided their statement.
func (s *StaffService) SubmitStatement(ctx context.Context, reportID int64, userID string) error {
	logCtx := s.logger.WithFields(logrus.Fields{"report_id": reportID, "user_id": userID})

	return s.store.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Reports().Lock(ctx, reportID); err != nil {
			return err
		}
		if err := tx.Statements().Submit(ctx, reportID, userID, s.clock.Now()); err != nil {
			return err
		}

		pending, err := tx.Statements().CountPending(ctx, reportID)
		if err != nil {
			return fmt.Errorf("failed to count pending statements: %w", err)
		}
		if pending == 0 {
			return s.complete(ctx, tx, reportID, logCtx)
		}
		logCtx.WithField("pending", pending).Info("Statement submitted")
		return nil
	})
}

func (s *StaffService) complete(ctx context.Context, tx store.Tx, reportID int64, logCtx *logrus.Entry) error {
	changed, err := tx.Reports().ChangeStatus(ctx, reportID, report.StatusSubmitted, report.StatusComplete)
	if err != nil {
		return fmt.Errorf("failed to complete report: %w", err)
	}
	if changed {
		logCtx.Info("Last pending statement resolved, report complete")
	}
	return nil
}
