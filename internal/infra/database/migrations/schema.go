package migrations

import (
	"database/sql"
	"time"
)

// Report and Statement describe the tables the repositories in the parent package query with raw SQL.
type Report struct {
	ID            int64  `gorm:"primaryKey;autoIncrement"`
	Status        string `gorm:"size:20;not null"`
	SubmittedDate sql.NullTime
	AgencyID      string    `gorm:"size:6;not null"`
	BookingID     int64     `gorm:"not null"`
	Username      string    `gorm:"size:32;not null;index"`
	ReporterName  string    `gorm:"size:255;not null"`
	IncidentDate  time.Time `gorm:"not null"`
	CreatedDate   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedDate   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Report) TableName() string { return "report" }

type Statement struct {
	ID                     int64          `gorm:"primaryKey;autoIncrement"`
	ReportID               int64          `gorm:"not null;index"`
	Report                 *Report        `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE"`
	UserID                 string         `gorm:"size:32;not null"`
	Name                   string         `gorm:"size:255;not null"`
	Email                  sql.NullString `gorm:"size:255"`
	StatementStatus        string         `gorm:"size:20;not null"`
	NextReminderDate       sql.NullTime
	OverdueDate            time.Time `gorm:"not null"`
	SubmittedDate          sql.NullTime
	RemovalRequestedDate   sql.NullTime
	RemovalRequestedReason sql.NullString
	Deleted                sql.NullTime
	CreatedDate            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedDate            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Statement) TableName() string { return "statement" }
