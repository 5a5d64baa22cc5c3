package app

import (
	"context"
	"fmt"

	"use_of_force/internal/domain/identity"
	"use_of_force/internal/domain/store"

	"github.com/sirupsen/logrus"
)

// EmailResolver finds out whether a member of staff has verified their email address since
// their statement was created, and records it on the statement when they have.
type EmailResolver struct {
	tokens    identity.TokenSupplier
	directory identity.Service
	logger    *logrus.Entry
}

func NewEmailResolver(tokens identity.TokenSupplier, directory identity.Service, logger *logrus.Entry) *EmailResolver {
	return &EmailResolver{
		tokens:    tokens,
		directory: directory,
		logger:    logger.WithField("component", "email_resolver"),
	}
}

// ResolveEmail returns true when the address is now verified and has been stored.
// Identity service errors are returned as-is so the caller's transaction rolls back.
func (r *EmailResolver) ResolveEmail(ctx context.Context, tx store.Tx, userID string, reportID int64) (bool, error) {
	token, err := r.tokens.SystemToken(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to obtain system token: %w", err)
	}

	email, err := r.directory.GetEmail(ctx, userID, token)
	if err != nil {
		return false, fmt.Errorf("failed to look up email for user %s: %w", userID, err)
	}

	logCtx := r.logger.WithFields(logrus.Fields{"user_id": userID, "report_id": reportID})
	if !email.Verified || email.Address == "" {
		logCtx.Debug("Email still not verified")
		return false, nil
	}

	if err := tx.Statements().SetEmail(ctx, userID, reportID, email.Address); err != nil {
		return false, fmt.Errorf("failed to store resolved email for user %s: %w", userID, err)
	}
	logCtx.Info("Resolved verified email for statement")
	return true, nil
}
