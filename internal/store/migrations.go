package store

import (
	"database/sql"
	"fmt"

	"github.com/hyperengineering/pulse/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations applies all pending migrations for dialect using the
// embedded SQL files. Each dialect has its own migration directory.
func RunMigrations(db *sql.DB, dialect string) error {
	// Disable goose's default logging to avoid stdout noise
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.FS)

	var gooseDialect string
	switch dialect {
	case DialectSQLite:
		gooseDialect = "sqlite3"
	case DialectMySQL:
		gooseDialect = "mysql"
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDialect, dialect)
	}

	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(db, dialect); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}
