package memstore

import (
	"context"
	"time"

	"use_of_force/internal/domain/report"
)

type reportRepository struct {
	tx *memTx
}

func (r *reportRepository) Create(ctx context.Context, rpt *report.Report) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastReportID++
	rpt.ID = s.lastReportID
	if rpt.Status == "" {
		rpt.Status = report.StatusInProgress
	}
	stored := *rpt
	s.reports[rpt.ID] = &stored

	id := rpt.ID
	r.tx.onRollback(func() { delete(s.reports, id) })
	return nil
}

func (r *reportRepository) Get(ctx context.Context, id int64) (*report.Report, error) {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rpt, ok := s.reports[id]
	if !ok {
		return nil, report.ErrNotFound
	}
	out := *rpt
	return &out, nil
}

// Lock blocks while another transaction holds the report, or until ctx is done.
func (r *reportRepository) Lock(ctx context.Context, id int64) (*report.Report, error) {
	s := r.tx.store

	// Wake the waiters when ctx ends. Taking mu first means the broadcast cannot slip in between
	// the ctx check below and Wait.
	stop := context.AfterFunc(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.cond.Broadcast()
	})
	defer stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return nil, report.ErrNotFound
	}
	for {
		owner, held := s.lockedReports[id]
		if !held || owner == r.tx {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.cond.Wait()
	}
	s.lockedReports[id] = r.tx

	rpt, ok := s.reports[id]
	if !ok {
		return nil, report.ErrNotFound
	}
	out := *rpt
	return &out, nil
}

func (r *reportRepository) MarkSubmitted(ctx context.Context, id int64, submittedDate time.Time) error {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rpt, ok := s.reports[id]
	if !ok {
		return report.ErrNotFound
	}
	if rpt.Status != report.StatusInProgress {
		return report.ErrNotInProgress
	}
	previousStatus, previousDate := rpt.Status, rpt.SubmittedDate
	r.tx.onRollback(func() { rpt.Status, rpt.SubmittedDate = previousStatus, previousDate })
	rpt.Status = report.StatusSubmitted
	rpt.SubmittedDate.Time, rpt.SubmittedDate.Valid = submittedDate, true
	return nil
}

func (r *reportRepository) ChangeStatus(ctx context.Context, id int64, from, to report.Status) (bool, error) {
	s := r.tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rpt, ok := s.reports[id]
	if !ok || rpt.Status != from {
		return false, nil
	}
	previous := rpt.Status
	r.tx.onRollback(func() { rpt.Status = previous })
	rpt.Status = to
	return true, nil
}
