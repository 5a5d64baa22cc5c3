package migrations

import (
	"database/sql"
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	liveStatementIndex = "statement_report_user_live_idx"
	dueReminderIndex   = "statement_due_reminder_idx"
)

// OpenGorm wraps an existing pool so migrations share the connection the repositories use.
func OpenGorm(db *sql.DB) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}
	return gdb, nil
}

func GetMigrator(db *gorm.DB) *gormigrate.Gormigrate {
	migrator := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID:       "0",
			Migrate:  createTables,
			Rollback: dropTables,
		},
		{
			ID:       "1",
			Migrate:  createStatementIndexes,
			Rollback: dropStatementIndexes,
		},
	})

	// Clean database: build the latest schema in one go instead of replaying every version.
	migrator.InitSchema(func(txn *gorm.DB) error {
		if err := createTables(txn); err != nil {
			return err
		}
		return createStatementIndexes(txn)
	})

	return migrator
}

func RunMigrations(db *gorm.DB, log *logrus.Entry) error {
	log.Info("Running db migrations")

	if err := GetMigrator(db).Migrate(); err != nil {
		return fmt.Errorf("db migration failed: %w", err)
	}

	log.Info("Db migrations complete")
	return nil
}

func createTables(db *gorm.DB) error {
	if err := db.AutoMigrate(&Report{}, &Statement{}); err != nil {
		return fmt.Errorf("creating report and statement tables failed: %w", err)
	}
	return nil
}

func dropTables(db *gorm.DB) error {
	return db.Migrator().DropTable(&Statement{}, &Report{})
}

// A user has at most one live statement per report; soft-deleted rows do not count.
func createStatementIndexes(db *gorm.DB) error {
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS ` + liveStatementIndex + ` ON statement (report_id, user_id) WHERE deleted IS NULL`,
		`CREATE INDEX IF NOT EXISTS ` + dueReminderIndex + ` ON statement (next_reminder_date) WHERE statement_status = 'PENDING' AND deleted IS NULL`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("creating statement indexes failed: %w", err)
		}
	}
	return nil
}

func dropStatementIndexes(db *gorm.DB) error {
	for _, name := range []string{liveStatementIndex, dueReminderIndex} {
		if err := db.Exec(`DROP INDEX IF EXISTS ` + name).Error; err != nil {
			return fmt.Errorf("dropping index %s failed: %w", name, err)
		}
	}
	return nil
}
