package app_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"use_of_force/internal/app"
	"use_of_force/internal/domain/identity"
	"use_of_force/internal/domain/notification"
	"use_of_force/internal/domain/report"
	"use_of_force/internal/domain/statement"
	"use_of_force/internal/domain/store"
	"use_of_force/internal/infra/memstore"

	"github.com/sirupsen/logrus"
)

var submittedAt = time.Date(2019, 9, 6, 21, 26, 18, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type sentEmail struct {
	kind    notification.Kind
	email   string
	payload notification.Payload
	ref     notification.Reference
}

type recordingClient struct {
	mu      sync.Mutex
	sent    []sentEmail
	failFor map[string]bool
}

func (c *recordingClient) Send(ctx context.Context, kind notification.Kind, emailAddress string, payload notification.Payload, ref notification.Reference) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentEmail{kind, emailAddress, payload, ref})
	if c.failFor[emailAddress] {
		return errors.New("recipient rejected")
	}
	return nil
}

func (c *recordingClient) Sent() []sentEmail {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sentEmail(nil), c.sent...)
}

func (c *recordingClient) Reset() {
	c.mu.Lock()
	c.sent = nil
	c.mu.Unlock()
}

type fakeDirectory struct {
	mu      sync.Mutex
	users   map[string]identity.User
	failFor map[string]bool
	lookups map[string]int
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{users: map[string]identity.User{}, failFor: map[string]bool{}, lookups: map[string]int{}}
}

func (d *fakeDirectory) SystemToken(ctx context.Context) (string, error) { return "token", nil }

func (d *fakeDirectory) GetUser(ctx context.Context, username, token string) (*identity.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[username]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return &u, nil
}

func (d *fakeDirectory) GetEmail(ctx context.Context, username, token string) (identity.Email, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lookups[username]++
	if d.failFor[username] {
		return identity.Email{}, errors.New("identity service unavailable")
	}
	return d.users[username].Email, nil
}

func (d *fakeDirectory) Verify(username, name, email string) {
	d.mu.Lock()
	d.users[username] = identity.User{Username: username, Name: name, Email: identity.Email{Verified: true, Address: email}}
	d.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notification.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event notification.Event) {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
}

func (p *recordingPublisher) Failures() []notification.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var failed []notification.Event
	for _, e := range p.events {
		if e.Failed() {
			failed = append(failed, e)
		}
	}
	return failed
}

type testEnv struct {
	store      *memstore.Store
	clock      *fakeClock
	client     *recordingClient
	directory  *fakeDirectory
	events     *recordingPublisher
	links      *app.RemovalLinks
	submission *app.SubmissionService
	staff      *app.StaffService
	reminders  *app.ReminderService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)
	logger := logrus.NewEntry(log)

	env := &testEnv{
		store:     memstore.New(),
		clock:     &fakeClock{now: submittedAt},
		client:    &recordingClient{failFor: map[string]bool{}},
		directory: newFakeDirectory(),
		events:    &recordingPublisher{},
	}
	env.links = app.NewRemovalLinks("http://localhost:3000", "secret", env.clock)
	notifications := app.NewNotificationService(env.client, env.events, logger)
	sender := app.NewReminderSender(notifications, env.links, env.clock, logger)
	resolver := app.NewEmailResolver(env.directory, env.directory, logger)

	env.submission = app.NewSubmissionService(env.store, notifications, env.links, env.clock, logger)
	env.staff = app.NewStaffService(env.store, env.directory, env.directory, env.clock, logger)
	env.reminders = app.NewReminderService(env.store, sender, resolver, env.clock, logger)
	return env
}

func staff(userID, email string) statement.Staff {
	st := statement.Staff{UserID: userID, Name: "Name of " + userID}
	if email != "" {
		st.Email = sql.NullString{String: email, Valid: true}
	}
	return st
}

// createReport stores an in-progress report raised by JOE.
func (e *testEnv) createReport(t *testing.T) *report.Report {
	t.Helper()
	rpt := &report.Report{
		AgencyID:     "MDI",
		BookingID:    2,
		Username:     "JOE",
		ReporterName: "Joe Bloggs",
		IncidentDate: time.Date(2019, 9, 5, 9, 30, 0, 0, time.UTC),
	}
	err := e.store.WithinTx(context.Background(), func(tx store.Tx) error {
		return tx.Reports().Create(context.Background(), rpt)
	})
	if err != nil {
		t.Fatal(err)
	}
	return rpt
}

func (e *testEnv) submit(t *testing.T, involved ...statement.Staff) *report.Report {
	t.Helper()
	rpt := e.createReport(t)
	if _, ok, err := e.submission.Submit(context.Background(), rpt, involved); err != nil || !ok {
		t.Fatalf("submit failed: ok=%v err=%v", ok, err)
	}
	e.client.Reset()
	return rpt
}

func (e *testEnv) report(t *testing.T, id int64) *report.Report {
	t.Helper()
	var rpt *report.Report
	err := e.store.WithinTx(context.Background(), func(tx store.Tx) error {
		var err error
		rpt, err = tx.Reports().Get(context.Background(), id)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return rpt
}

func (e *testEnv) statement(t *testing.T, reportID int64, userID string) *statement.Statement {
	t.Helper()
	var st *statement.Statement
	err := e.store.WithinTx(context.Background(), func(tx store.Tx) error {
		var err error
		st, err = tx.Statements().Get(context.Background(), reportID, userID)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func (e *testEnv) run(t *testing.T) int {
	t.Helper()
	sent, err := e.reminders.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return sent
}
