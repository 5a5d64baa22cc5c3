package database

import (
	"context"
	"database/sql"
	"fmt"

	"use_of_force/internal/domain/report"
	"use_of_force/internal/domain/statement"
	"use_of_force/internal/domain/store"
)

// PostgresStore hands out repositories bound to an explicit *sql.Tx.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ store.Store = (*PostgresStore)(nil)

// WithinTx commits when fn succeeds and rolls back otherwise, releasing any row locks taken by claims.
func (s *PostgresStore) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	txn, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer txn.Rollback() // Rollback if not committed

	if err := fn(&postgresTx{txn: txn}); err != nil {
		return err
	}

	if err := txn.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type postgresTx struct {
	txn *sql.Tx
}

func (t *postgresTx) Statements() statement.Repository {
	return NewPostgresStatementRepository(t.txn)
}

func (t *postgresTx) Reports() report.Repository {
	return NewPostgresReportRepository(t.txn)
}
