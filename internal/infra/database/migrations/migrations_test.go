package migrations_test

import (
	"database/sql"
	"io"
	"testing"
	"time"

	"use_of_force/internal/infra/database/migrations"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setup(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	log := logrus.New()
	log.SetOutput(io.Discard)
	if err := migrations.RunMigrations(db, logrus.NewEntry(log)); err != nil {
		t.Fatal(err)
	}
	return db
}

func createReport(t *testing.T, db *gorm.DB) int64 {
	rpt := migrations.Report{
		Status:       "SUBMITTED",
		AgencyID:     "MDI",
		BookingID:    2,
		Username:     "REPORTER",
		ReporterName: "Joe Bloggs",
		IncidentDate: time.Date(2019, 9, 5, 9, 0, 0, 0, time.UTC),
	}
	if err := db.Create(&rpt).Error; err != nil {
		t.Fatal(err)
	}
	return rpt.ID
}

func newStatement(reportID int64, userID string) *migrations.Statement {
	return &migrations.Statement{
		ReportID:         reportID,
		UserID:           userID,
		Name:             "Staff " + userID,
		StatementStatus:  "PENDING",
		NextReminderDate: sql.NullTime{Time: time.Now().Add(24 * time.Hour), Valid: true},
		OverdueDate:      time.Now().Add(72 * time.Hour),
	}
}

func TestMigrationsCreateTables(t *testing.T) {
	db := setup(t)

	for _, table := range []string{"report", "statement"} {
		if !db.Migrator().HasTable(table) {
			t.Fatalf("expected table %s to exist", table)
		}
	}
	if !db.Migrator().HasColumn(&migrations.Statement{}, "removal_requested_date") {
		t.Fatal("expected statement.removal_requested_date column")
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := setup(t)

	log := logrus.New()
	log.SetOutput(io.Discard)
	if err := migrations.RunMigrations(db, logrus.NewEntry(log)); err != nil {
		t.Fatalf("second migration run failed: %v", err)
	}
}

func TestOneLiveStatementPerUserAndReport(t *testing.T) {
	db := setup(t)
	reportID := createReport(t, db)

	first := newStatement(reportID, "BOB")
	if err := db.Create(first).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(newStatement(reportID, "BOB")).Error; err == nil {
		t.Fatal("expected duplicate live statement to be rejected")
	}

	if err := db.Model(first).Update("deleted", time.Now()).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(newStatement(reportID, "BOB")).Error; err != nil {
		t.Fatalf("statement for a user whose previous one was deleted should be accepted: %v", err)
	}
}
