package memstore_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"use_of_force/internal/domain/report"
	"use_of_force/internal/domain/statement"
	"use_of_force/internal/domain/store"
	"use_of_force/internal/infra/memstore"
)

var now = time.Date(2019, 9, 8, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, s *memstore.Store, users ...string) int64 {
	t.Helper()
	ctx := context.Background()

	rpt := &report.Report{Username: "JOE", ReporterName: "Joe Bloggs", IncidentDate: now.Add(-72 * time.Hour)}
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.Reports().Create(ctx, rpt); err != nil {
			return err
		}
		staff := make([]statement.Staff, 0, len(users))
		for _, u := range users {
			staff = append(staff, statement.Staff{UserID: u, Name: u, Email: sql.NullString{String: u + "@example.com", Valid: true}})
		}
		if _, err := tx.Statements().CreateStatements(ctx, rpt.ID, now.Add(-time.Hour), now.Add(48*time.Hour), staff); err != nil {
			return err
		}
		return tx.Reports().MarkSubmitted(ctx, rpt.ID, now.Add(-25*time.Hour))
	})
	if err != nil {
		t.Fatal(err)
	}
	return rpt.ID
}

func TestClaimSkipsRowsHeldByAnotherTransaction(t *testing.T) {
	s := memstore.New()
	seed(t, s, "BOB", "CAROL")
	ctx := context.Background()

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- s.WithinTx(ctx, func(tx store.Tx) error {
			r, err := tx.Statements().ClaimNextDue(ctx, now, nil)
			if err != nil {
				return err
			}
			if r == nil || r.UserID != "BOB" {
				t.Errorf("expected BOB to be claimed first, got %+v", r)
			}
			close(held)
			<-release
			return nil
		})
	}()

	<-held
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		r, err := tx.Statements().ClaimNextDue(ctx, now, nil)
		if err != nil {
			return err
		}
		if r == nil || r.UserID != "CAROL" {
			t.Errorf("expected the held row to be skipped, got %+v", r)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	// Both transactions finished without moving the schedule, so BOB is claimable again.
	err = s.WithinTx(ctx, func(tx store.Tx) error {
		r, err := tx.Statements().ClaimNextDue(ctx, now, nil)
		if err == nil && (r == nil || r.UserID != "BOB") {
			t.Errorf("expected claim to be released, got %+v", r)
		}
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestClaimHonoursExclusionsAndDueDate(t *testing.T) {
	s := memstore.New()
	seed(t, s, "BOB", "CAROL")
	ctx := context.Background()

	err := s.WithinTx(ctx, func(tx store.Tx) error {
		r, err := tx.Statements().ClaimNextDue(ctx, now, []int64{1, 2})
		if err != nil {
			return err
		}
		if r != nil {
			t.Errorf("every due statement was excluded, got %+v", r)
		}

		r, err = tx.Statements().ClaimNextDue(ctx, now.Add(-2*time.Hour), nil)
		if err != nil {
			return err
		}
		if r != nil {
			t.Errorf("nothing is due yet, got %+v", r)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestFailedTransactionIsUndone(t *testing.T) {
	s := memstore.New()
	reportID := seed(t, s, "BOB")
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.Statements().SetEmail(ctx, "BOB", reportID, "changed@example.com"); err != nil {
			return err
		}
		if _, err := tx.Statements().CreateStatements(ctx, reportID, now, now, []statement.Staff{{UserID: "CAROL"}}); err != nil {
			return err
		}
		if _, err := tx.Reports().ChangeStatus(ctx, reportID, report.StatusSubmitted, report.StatusComplete); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	err = s.WithinTx(ctx, func(tx store.Tx) error {
		bob, err := tx.Statements().Get(ctx, reportID, "BOB")
		if err != nil {
			return err
		}
		if bob.Email.String != "BOB@example.com" {
			t.Errorf("email change should be undone, got %q", bob.Email.String)
		}
		if _, err := tx.Statements().Get(ctx, reportID, "CAROL"); !errors.Is(err, statement.ErrNotFound) {
			t.Errorf("created statement should be undone, got %v", err)
		}
		rpt, err := tx.Reports().Get(ctx, reportID)
		if err != nil {
			return err
		}
		if rpt.Status != report.StatusSubmitted {
			t.Errorf("status change should be undone, got %s", rpt.Status)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestDuplicateLiveStatementRejected(t *testing.T) {
	s := memstore.New()
	reportID := seed(t, s, "BOB")
	ctx := context.Background()

	err := s.WithinTx(ctx, func(tx store.Tx) error {
		_, err := tx.Statements().CreateStatements(ctx, reportID, now, now, []statement.Staff{{UserID: "BOB"}})
		return err
	})
	if !errors.Is(err, statement.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	err = s.WithinTx(ctx, func(tx store.Tx) error {
		bob, err := tx.Statements().Get(ctx, reportID, "BOB")
		if err != nil {
			return err
		}
		if err := tx.Statements().Delete(ctx, bob.ID, now); err != nil {
			return err
		}
		_, err = tx.Statements().CreateStatements(ctx, reportID, now, now, []statement.Staff{{UserID: "BOB"}})
		return err
	})
	if err != nil {
		t.Fatalf("a deleted statement should not block a new one: %v", err)
	}
}

func TestLockWaitsForHolder(t *testing.T) {
	s := memstore.New()
	reportID := seed(t, s, "BOB")
	ctx := context.Background()

	locked := make(chan struct{})
	order := make(chan string, 2)

	go func() {
		s.WithinTx(ctx, func(tx store.Tx) error {
			if _, err := tx.Reports().Lock(ctx, reportID); err != nil {
				return err
			}
			close(locked)
			time.Sleep(50 * time.Millisecond)
			order <- "first"
			return nil
		})
	}()

	<-locked
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		_, err := tx.Reports().Lock(ctx, reportID)
		order <- "second"
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	if first := <-order; first != "first" {
		t.Fatalf("second lock acquired before the first was released")
	}
}

func TestRollbackKeepsChangesCommittedByOthers(t *testing.T) {
	s := memstore.New()
	reportID := seed(t, s, "BOB")
	ctx := context.Background()
	boom := errors.New("boom")

	written := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- s.WithinTx(ctx, func(tx store.Tx) error {
			bob, err := tx.Statements().Get(ctx, reportID, "BOB")
			if err != nil {
				return err
			}
			next := sql.NullTime{Time: now.Add(24 * time.Hour), Valid: true}
			if err := tx.Statements().SetNextReminderDate(ctx, bob.ID, next); err != nil {
				return err
			}
			close(written)
			<-release
			return boom
		})
	}()

	<-written
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		return tx.Statements().Submit(ctx, reportID, "BOB", now)
	})
	if err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	err = s.WithinTx(ctx, func(tx store.Tx) error {
		bob, err := tx.Statements().Get(ctx, reportID, "BOB")
		if err != nil {
			return err
		}
		if bob.Status != statement.StatusSubmitted || !bob.SubmittedDate.Valid {
			t.Errorf("committed submission was lost by the other rollback: %+v", bob)
		}
		if !bob.NextReminderDate.Time.Equal(now.Add(-time.Hour)) {
			t.Errorf("rolled back reminder date should be restored, got %v", bob.NextReminderDate.Time)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestLockGivesUpWhenContextEnds(t *testing.T) {
	s := memstore.New()
	reportID := seed(t, s, "BOB")
	ctx := context.Background()

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error)

	go func() {
		done <- s.WithinTx(ctx, func(tx store.Tx) error {
			if _, err := tx.Reports().Lock(ctx, reportID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		_, err := tx.Reports().Lock(waitCtx, reportID)
		return err
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected the wait to end with the context, got %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
