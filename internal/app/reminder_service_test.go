package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"use_of_force/internal/app"
	"use_of_force/internal/domain/notification"
	"use_of_force/internal/domain/statement"
)

func TestRunSendsReminders(t *testing.T) {
	env := newTestEnv(t)
	rpt := env.submit(t, staff("BOB", "bob@example.com"), staff("JOE", "joe@example.com"))
	env.clock.Set(submittedAt.Add(25 * time.Hour))

	if sent := env.run(t); sent != 2 {
		t.Fatalf("expected 2 reminders, got %d", sent)
	}

	byEmail := map[string]notification.Kind{}
	for _, s := range env.client.Sent() {
		byEmail[s.email] = s.kind
		if s.payload.OverdueDate.IsZero() {
			t.Fatalf("reminder before the overdue date should carry it: %+v", s.payload)
		}
	}
	if byEmail["bob@example.com"] != notification.KindInvolvedReminder || byEmail["joe@example.com"] != notification.KindReporterReminder {
		t.Fatalf("unexpected kinds: %v", byEmail)
	}

	for _, userID := range []string{"BOB", "JOE"} {
		next := env.statement(t, rpt.ID, userID).NextReminderDate
		if !next.Valid || !next.Time.Equal(submittedAt.Add(48*time.Hour)) {
			t.Fatalf("%s: next reminder should move on a day, got %v", userID, next)
		}
	}

	if sent := env.run(t); sent != 0 {
		t.Fatalf("nothing should be due on an immediate second run, got %d", sent)
	}
}

func TestRemovalLinkOnlyForInvolvedStaff(t *testing.T) {
	env := newTestEnv(t)
	env.submit(t, staff("BOB", "bob@example.com"), staff("JOE", "joe@example.com"))
	env.clock.Set(submittedAt.Add(25 * time.Hour))
	env.run(t)

	for _, s := range env.client.Sent() {
		hasLink := s.payload.RemovalRequestLink != ""
		if s.email == "bob@example.com" && !hasLink {
			t.Fatal("involved staff reminder should carry a removal link")
		}
		if s.email == "joe@example.com" && hasLink {
			t.Fatal("reporter reminder should not carry a removal link")
		}
	}
}

func TestOverdueReminderSentOnce(t *testing.T) {
	env := newTestEnv(t)
	rpt := env.submit(t, staff("BOB", "bob@example.com"), staff("JOE", "joe@example.com"))
	env.clock.Set(submittedAt.Add(73 * time.Hour))

	if sent := env.run(t); sent != 2 {
		t.Fatalf("expected 2 overdue notices, got %d", sent)
	}
	for _, s := range env.client.Sent() {
		if !s.kind.IsOverdueKind() {
			t.Fatalf("expected overdue kind, got %s", s.kind)
		}
		if !s.payload.OverdueDate.IsZero() {
			t.Fatalf("overdue notice should not carry an overdue date: %+v", s.payload)
		}
	}
	if next := env.statement(t, rpt.ID, "BOB").NextReminderDate; next.Valid {
		t.Fatalf("overdue statement should have no next reminder, got %v", next.Time)
	}

	env.clock.Set(submittedAt.Add(30 * 24 * time.Hour))
	if sent := env.run(t); sent != 0 {
		t.Fatalf("overdue statements must not be reminded again, got %d", sent)
	}
}

func TestUnresolvedEmailDefersReminder(t *testing.T) {
	env := newTestEnv(t)
	rpt := env.submit(t, staff("CAROL", ""))
	env.clock.Set(submittedAt.Add(25 * time.Hour))

	if sent := env.run(t); sent != 0 {
		t.Fatalf("no reminder can be sent without an address, got %d", sent)
	}
	if len(env.client.Sent()) != 0 {
		t.Fatalf("unexpected emails: %+v", env.client.Sent())
	}
	next := env.statement(t, rpt.ID, "CAROL").NextReminderDate
	if !next.Valid || !next.Time.Equal(submittedAt.Add(48*time.Hour)) {
		t.Fatalf("reminder should be deferred a day, got %v", next)
	}

	env.clock.Set(submittedAt.Add(73 * time.Hour))
	env.run(t)
	if next := env.statement(t, rpt.ID, "CAROL").NextReminderDate; next.Valid {
		t.Fatalf("deferral past the overdue date should clear the schedule, got %v", next.Time)
	}
}

func TestResolvedEmailIsRemindedInSameRun(t *testing.T) {
	env := newTestEnv(t)
	rpt := env.submit(t, staff("CAROL", ""))
	env.directory.Verify("CAROL", "Carol", "carol@example.com")
	env.clock.Set(submittedAt.Add(25 * time.Hour))

	if sent := env.run(t); sent != 1 {
		t.Fatalf("expected the newly resolved address to be reminded, got %d", sent)
	}
	sent := env.client.Sent()
	if len(sent) != 1 || sent[0].email != "carol@example.com" {
		t.Fatalf("unexpected emails: %+v", sent)
	}
	if st := env.statement(t, rpt.ID, "CAROL"); st.Email.String != "carol@example.com" {
		t.Fatalf("resolved address should be stored, got %+v", st.Email)
	}
}

func TestIdentityFailureIsIsolated(t *testing.T) {
	env := newTestEnv(t)
	rpt := env.submit(t, staff("CAROL", ""), staff("BOB", "bob@example.com"))
	env.directory.failFor["CAROL"] = true
	env.clock.Set(submittedAt.Add(25 * time.Hour))

	sent, err := env.reminders.Run(context.Background())
	if err != nil {
		t.Fatalf("a failing lookup must not abort the run: %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected BOB to still be reminded, got %d", sent)
	}
	if env.directory.lookups["CAROL"] != 1 {
		t.Fatalf("failed statement should be skipped for the rest of the run, looked up %d times", env.directory.lookups["CAROL"])
	}
	if next := env.statement(t, rpt.ID, "CAROL").NextReminderDate; !next.Time.Equal(submittedAt.Add(24 * time.Hour)) {
		t.Fatalf("failed statement should be left as it was, got %v", next.Time)
	}
}

func TestDispatchFailureStillAdvancesSchedule(t *testing.T) {
	env := newTestEnv(t)
	rpt := env.submit(t, staff("BOB", "bob@example.com"))
	env.client.failFor["bob@example.com"] = true
	env.clock.Set(submittedAt.Add(25 * time.Hour))

	env.run(t)

	if next := env.statement(t, rpt.ID, "BOB").NextReminderDate; !next.Time.Equal(submittedAt.Add(48 * time.Hour)) {
		t.Fatalf("schedule should advance after a failed dispatch, got %v", next.Time)
	}
	failures := env.events.Failures()
	if len(failures) != 1 || failures[0].Name != "INVOLVED_REMINDER_FAILURE" || failures[0].Detail == "" {
		t.Fatalf("expected a failure event, got %+v", failures)
	}
}

func manyStaff(n int) []statement.Staff {
	involved := make([]statement.Staff, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("STAFF%02d", i)
		involved = append(involved, staff(id, id+"@example.com"))
	}
	return involved
}

func TestRunStopsAtBatchLimit(t *testing.T) {
	env := newTestEnv(t)
	env.submit(t, manyStaff(60)...)
	env.clock.Set(submittedAt.Add(25 * time.Hour))

	if sent := env.run(t); sent != app.MaxRemindersPerRun {
		t.Fatalf("expected the run to stop at %d, got %d", app.MaxRemindersPerRun, sent)
	}
	if sent := env.run(t); sent != 10 {
		t.Fatalf("expected the remaining 10 on the next run, got %d", sent)
	}
}

func TestConcurrentRunsRemindEachStatementOnce(t *testing.T) {
	env := newTestEnv(t)
	env.submit(t, manyStaff(40)...)
	env.clock.Set(submittedAt.Add(25 * time.Hour))

	var wg sync.WaitGroup
	totals := make([]int, 3)
	for i := range totals {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			sent, err := env.reminders.Run(context.Background())
			if err != nil {
				t.Errorf("run %d failed: %v", i, err)
			}
			totals[i] = sent
		}()
	}
	wg.Wait()

	if sum := totals[0] + totals[1] + totals[2]; sum != 40 {
		t.Fatalf("expected 40 reminders across runs, got %d (%v)", sum, totals)
	}
	perStatement := map[int64]int{}
	for _, s := range env.client.Sent() {
		perStatement[s.ref.StatementID]++
	}
	for id, n := range perStatement {
		if n != 1 {
			t.Fatalf("statement %d reminded %d times", id, n)
		}
	}
}

func TestRunStopsWhenContextCancelled(t *testing.T) {
	env := newTestEnv(t)
	env.submit(t, staff("BOB", "bob@example.com"))
	env.clock.Set(submittedAt.Add(25 * time.Hour))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := env.reminders.Run(ctx); err == nil {
		t.Fatal("expected a cancelled run to return an error")
	}
	if len(env.client.Sent()) != 0 {
		t.Fatal("nothing should be sent after cancellation")
	}
}
