package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/hyperengineering/pulse/internal/types"
	_ "modernc.org/sqlite"
)

// Supported SQL dialects.
const (
	DialectSQLite = "sqlite"
	DialectMySQL  = "mysql"
)

// timeLayout is fixed width so that timestamps stored as strings sort
// lexicographically in created_at order on every dialect.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Options selects and configures the backing database.
type Options struct {
	Driver       string
	Path         string // sqlite file path
	DSN          string // mysql DSN
	MaxOpenConns int
}

// SQLStore is the database/sql implementation of Store.
type SQLStore struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

var _ Store = (*SQLStore)(nil)

// NewSQLiteStore opens (creating if needed) a SQLite database at dbPath and
// runs migrations.
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	return Open(Options{Driver: DialectSQLite, Path: dbPath})
}

// Open connects to the configured database, verifies the connection and
// applies pending migrations.
func Open(opts Options) (*SQLStore, error) {
	var (
		db  *sql.DB
		err error
	)

	switch opts.Driver {
	case DialectSQLite, "":
		opts.Driver = DialectSQLite
		db, err = openSQLite(opts.Path)
	case DialectMySQL:
		db, err = openMySQL(opts.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDialect, opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db, opts.Driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLStore{db: db, dialect: opts.Driver, now: time.Now}, nil
}

// openSQLite applies pragmas through the DSN so that every pooled
// connection gets them. Write transactions take the lock up front
// (_txlock=immediate), which serialises goal upserts.
func openSQLite(dbPath string) (*sql.DB, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	pragmas := []string{
		"_pragma=journal_mode(WAL)",
		"_pragma=busy_timeout(5000)",
		"_pragma=foreign_keys(1)",
		"_pragma=synchronous(NORMAL)",
		"_txlock=immediate",
	}
	db, err := sql.Open("sqlite", dbPath+"?"+strings.Join(pragmas, "&"))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func openMySQL(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	if _, ok := cfg.Params["charset"]; !ok {
		cfg.Params["charset"] = "utf8mb4"
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// Dialect reports which SQL dialect backs the store.
func (s *SQLStore) Dialect() string {
	return s.dialect
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// GetStats returns aggregate row counts.
func (s *SQLStore) GetStats(ctx context.Context) (*types.StoreStats, error) {
	var stats types.StoreStats
	counts := []struct {
		table string
		dest  *int64
	}{
		{"objectives", &stats.Objectives},
		{"action_maps", &stats.ActionMaps},
		{"audit_logs", &stats.AuditEntries},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("count %s: %w", c.table, err)
		}
	}
	return &stats, nil
}

// forUpdate returns the row-locking suffix for reads inside a write
// transaction. SQLite already holds the write lock from BEGIN IMMEDIATE.
func (s *SQLStore) forUpdate() string {
	if s.dialect == DialectMySQL {
		return " FOR UPDATE"
	}
	return ""
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullString(p *string) sql.NullString {
	if p == nil || *p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}
