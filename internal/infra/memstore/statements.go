package memstore

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"use_of_force/internal/domain/statement"
)

type statementRepository struct {
	tx *memTx
}

func (r *statementRepository) ClaimNextDue(ctx context.Context, now time.Time, exclude []int64) (*statement.Reminder, error) {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	skip := make(map[int64]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	for _, st := range s.sortedStatements() {
		if skip[st.ID] || !isDue(st, now) {
			continue
		}
		if owner, held := s.claimed[st.ID]; held && owner != r.tx {
			continue
		}
		rpt, ok := s.reports[st.ReportID]
		if !ok {
			continue
		}

		s.claimed[st.ID] = r.tx
		return &statement.Reminder{
			Statement:           *st,
			ReporterUsername:    rpt.Username,
			ReporterName:        rpt.ReporterName,
			IncidentDate:        rpt.IncidentDate,
			ReportSubmittedDate: rpt.SubmittedDate,
		}, nil
	}
	return nil, nil
}

func isDue(st *statement.Statement, now time.Time) bool {
	return st.NextReminderDate.Valid &&
		st.NextReminderDate.Time.Before(now) &&
		st.Status == statement.StatusPending &&
		!st.Deleted.Valid &&
		!st.RemovalRequestedDate.Valid
}

func (r *statementRepository) SetNextReminderDate(ctx context.Context, id int64, date sql.NullTime) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.statements[id]
	if !ok {
		return statement.ErrNotFound
	}
	previous := st.NextReminderDate
	r.tx.onRollback(func() { st.NextReminderDate = previous })
	st.NextReminderDate = date
	return nil
}

func (r *statementRepository) SetEmail(ctx context.Context, userID string, reportID int64, email string) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.live(reportID, userID)
	if st == nil {
		return statement.ErrNotFound
	}
	previous := st.Email
	r.tx.onRollback(func() { st.Email = previous })
	st.Email = sql.NullString{String: email, Valid: true}
	return nil
}

func (r *statementRepository) CreateStatements(ctx context.Context, reportID int64, firstReminder, overdueDate time.Time, staff []statement.Staff) ([]*statement.Statement, error) {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	created := make([]*statement.Statement, 0, len(staff))
	for _, member := range staff {
		if s.live(reportID, member.UserID) != nil {
			return nil, statement.ErrDuplicate
		}

		s.lastStatementID++
		st := &statement.Statement{
			ID:               s.lastStatementID,
			ReportID:         reportID,
			UserID:           member.UserID,
			Name:             member.Name,
			Email:            member.Email,
			Status:           statement.StatusPending,
			NextReminderDate: sql.NullTime{Time: firstReminder, Valid: true},
			OverdueDate:      overdueDate,
		}
		s.statements[st.ID] = st

		id := st.ID
		r.tx.onRollback(func() { delete(s.statements, id) })

		out := *st
		created = append(created, &out)
	}
	return created, nil
}

func (r *statementRepository) Get(ctx context.Context, reportID int64, userID string) (*statement.Statement, error) {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.live(reportID, userID)
	if st == nil {
		return nil, statement.ErrNotFound
	}
	out := *st
	return &out, nil
}

func (r *statementRepository) GetByID(ctx context.Context, id int64) (*statement.Statement, error) {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.statements[id]
	if !ok || st.Deleted.Valid {
		return nil, statement.ErrNotFound
	}
	out := *st
	return &out, nil
}

func (r *statementRepository) ListByReport(ctx context.Context, reportID int64) ([]*statement.Statement, error) {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	statements := make([]*statement.Statement, 0)
	for _, st := range s.sortedStatements() {
		if st.ReportID == reportID && !st.Deleted.Valid {
			out := *st
			statements = append(statements, &out)
		}
	}
	return statements, nil
}

func (r *statementRepository) Submit(ctx context.Context, reportID int64, userID string, submittedDate time.Time) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.live(reportID, userID)
	if st == nil || st.Status != statement.StatusPending {
		return statement.ErrNotFound
	}
	previousStatus, previousDate := st.Status, st.SubmittedDate
	r.tx.onRollback(func() { st.Status, st.SubmittedDate = previousStatus, previousDate })
	st.Status = statement.StatusSubmitted
	st.SubmittedDate = sql.NullTime{Time: submittedDate, Valid: true}
	return nil
}

func (r *statementRepository) Delete(ctx context.Context, id int64, deletedDate time.Time) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.statements[id]
	if !ok || st.Deleted.Valid {
		return statement.ErrNotFound
	}
	previous := st.Deleted
	r.tx.onRollback(func() { st.Deleted = previous })
	st.Deleted = sql.NullTime{Time: deletedDate, Valid: true}
	return nil
}

func (r *statementRepository) CountPending(ctx context.Context, reportID int64) (int, error) {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, st := range s.statements {
		if st.ReportID == reportID && st.Status == statement.StatusPending && !st.Deleted.Valid {
			count++
		}
	}
	return count, nil
}

// live finds the non-deleted statement for a user on a report. Caller holds the lock.
func (s *Store) live(reportID int64, userID string) *statement.Statement {
	for _, st := range s.statements {
		if st.ReportID == reportID && st.UserID == userID && !st.Deleted.Valid {
			return st
		}
	}
	return nil
}

func (s *Store) sortedStatements() []*statement.Statement {
	statements := make([]*statement.Statement, 0, len(s.statements))
	for _, st := range s.statements {
		statements = append(statements, st)
	}
	sort.Slice(statements, func(i, j int) bool { return statements[i].ID < statements[j].ID })
	return statements
}
