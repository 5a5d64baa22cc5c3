// internal/domain/store/store.go
package store

import (
	"context"

	"use_of_force/internal/domain/report"
	"use_of_force/internal/domain/statement"
)

// Tx exposes the repositories bound to one open transaction.
type Tx interface {
	Statements() statement.Repository
	Reports() report.Repository
}

// Store opens transactions. The callback's repositories are only valid until it returns;
// a non-nil error rolls everything back, including locks taken by claims.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
}
