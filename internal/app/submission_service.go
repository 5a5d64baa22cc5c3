package app

import (
	"context"
	"fmt"
	"time"

	"use_of_force/internal/domain/notification"
	"use_of_force/internal/domain/report"
	"use_of_force/internal/domain/statement"
	"use_of_force/internal/domain/store"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const statementRequestConcurrency = 4

// SubmissionService turns an in-progress report into a submitted one and asks the involved staff for statements.
type SubmissionService struct {
	store         store.Store
	notifications *NotificationService
	links         *RemovalLinks
	clock         Clock
	logger        *logrus.Entry
}

func NewSubmissionService(st store.Store, notifications *NotificationService, links *RemovalLinks, clock Clock, logger *logrus.Entry) *SubmissionService {
	return &SubmissionService{
		store:         st,
		notifications: notifications,
		links:         links,
		clock:         clock,
		logger:        logger.WithField("component", "submission_service"),
	}
}

// Submit creates one pending statement per involved member of staff (the reporter included) and
// marks the report as submitted, all in one transaction. It returns false without an error when
// the report has not been persisted yet.
//
// Statement requests are sent after the commit; their failures are logged and never undo the submission.
func (s *SubmissionService) Submit(ctx context.Context, rpt *report.Report, involved []statement.Staff) (int64, bool, error) {
	if !rpt.IsPersisted() {
		s.logger.Warn("Submit called for a report without an id, ignoring")
		return 0, false, nil
	}

	// One timestamp for the whole submission so every statement shares the same deadlines.
	now := s.clock.Now()
	firstReminder, overdueDate := statementDeadlines(now)
	staff := withReporter(rpt, involved)

	logCtx := s.logger.WithFields(logrus.Fields{"report_id": rpt.ID, "staff_count": len(staff)})

	var created []*statement.Statement
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		created, err = tx.Statements().CreateStatements(ctx, rpt.ID, firstReminder, overdueDate, staff)
		if err != nil {
			return fmt.Errorf("failed to create statements: %w", err)
		}
		if err := tx.Reports().MarkSubmitted(ctx, rpt.ID, now); err != nil {
			return fmt.Errorf("failed to mark report submitted: %w", err)
		}
		return nil
	})
	if err != nil {
		logCtx.WithError(err).Error("Report submission failed")
		return 0, false, fmt.Errorf("failed to submit report %d: %w", rpt.ID, err)
	}
	logCtx.Info("Report submitted")

	s.requestStatements(ctx, rpt, created, now)
	return rpt.ID, true, nil
}

// requestStatements emails every involved member of staff whose address is known.
// The reporter is skipped, as are staff still waiting on a verified address; the reminder run picks those up.
func (s *SubmissionService) requestStatements(ctx context.Context, rpt *report.Report, created []*statement.Statement, submittedDate time.Time) {
	recipients := lo.Filter(created, func(st *statement.Statement, _ int) bool {
		return st.Email.Valid && st.UserID != rpt.Username
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(statementRequestConcurrency)
	for _, st := range recipients {
		st := st
		g.Go(func() error {
			logCtx := s.logger.WithFields(logrus.Fields{"report_id": rpt.ID, "statement_id": st.ID})

			link, err := s.links.Link(st.ID)
			if err != nil {
				logCtx.WithError(err).Error("Could not build removal link for statement request")
				return nil
			}
			payload := notification.Payload{
				RecipientName:      st.Name,
				ReporterName:       rpt.ReporterName,
				IncidentDate:       rpt.IncidentDate,
				SubmittedDate:      submittedDate,
				OverdueDate:        st.OverdueDate,
				RemovalRequestLink: link,
			}
			ref := notification.Reference{ReportID: rpt.ID, StatementID: st.ID}
			if err := s.notifications.SendStatementRequest(gctx, st.Email.String, payload, ref); err != nil {
				logCtx.WithError(err).Warn("Statement request not delivered")
			}
			return nil
		})
	}
	_ = g.Wait()
}

// withReporter de-duplicates staff by user id and makes sure the reporter has an entry.
func withReporter(rpt *report.Report, involved []statement.Staff) []statement.Staff {
	staff := lo.UniqBy(involved, func(st statement.Staff) string { return st.UserID })
	hasReporter := lo.ContainsBy(staff, func(st statement.Staff) bool { return st.UserID == rpt.Username })
	if !hasReporter && rpt.Username != "" {
		staff = append(staff, statement.Staff{UserID: rpt.Username, Name: rpt.ReporterName})
	}
	return staff
}
