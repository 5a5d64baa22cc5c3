// Package memstore keeps reports and statements in process memory. It serves single-process
// deployments and tests; claims and report locks behave like their row-lock counterparts
// but only within this process.
package memstore

import (
	"context"
	"sync"

	"use_of_force/internal/domain/report"
	"use_of_force/internal/domain/statement"
	"use_of_force/internal/domain/store"
)

type Store struct {
	mu   sync.Mutex
	cond *sync.Cond

	reports    map[int64]*report.Report
	statements map[int64]*statement.Statement

	claimed       map[int64]*memTx // statement id -> transaction holding the claim
	lockedReports map[int64]*memTx

	lastReportID    int64
	lastStatementID int64
}

func New() *Store {
	s := &Store{
		reports:       make(map[int64]*report.Report),
		statements:    make(map[int64]*statement.Statement),
		claimed:       make(map[int64]*memTx),
		lockedReports: make(map[int64]*memTx),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

var _ store.Store = (*Store)(nil)

// WithinTx runs fn with repositories bound to a new transaction. Changes are applied as they are
// made and undone in reverse order when fn returns an error. Locks are released either way.
func (s *Store) WithinTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	t := &memTx{store: s}
	defer func() {
		s.mu.Lock()
		if err != nil {
			for i := len(t.undo) - 1; i >= 0; i-- {
				t.undo[i]()
			}
		}
		for id, owner := range s.claimed {
			if owner == t {
				delete(s.claimed, id)
			}
		}
		for id, owner := range s.lockedReports {
			if owner == t {
				delete(s.lockedReports, id)
			}
		}
		s.mu.Unlock()
		s.cond.Broadcast()
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(t)
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

type memTx struct {
	store *Store
	undo  []func() // run with store.mu held; each restores only the fields its write changed
}

func (t *memTx) Statements() statement.Repository { return &statementRepository{tx: t} }
func (t *memTx) Reports() report.Repository       { return &reportRepository{tx: t} }

func (t *memTx) onRollback(fn func()) {
	t.undo = append(t.undo, fn)
}
