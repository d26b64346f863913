package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// Dialect identifies the SQL flavour spoken by the underlying store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
)

// DB wraps a *sql.DB together with the dialect its queries must be written in.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// Rebind rewrites '?' placeholders into the dialect's bind variables.
func (db *DB) Rebind(query string) string {
	if db.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Placeholders returns "?, ?, ..." with n bind variables, for IN clauses.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// InitDB opens the store behind storeURL and ensures the schema is up to date.
// Supported URLs:
//   - ":memory:" or "file:..." for a local SQLite database
//   - "postgres://..." for Postgres
//   - anything else ("libsql://", "https://") is treated as a remote Turso/libSQL database
//     authenticated with authToken.
//
// The returned teardown closes the connection pool.
func InitDB(storeURL, authToken, migrationsDir string) (*DB, func(), error) {
	driver, dsn, dialect := resolveDriver(storeURL, authToken)

	log.Info("Initializing database", "driver", driver, "dialect", dialect)
	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	db := &DB{DB: sqlDB, Dialect: dialect}
	teardown := func() {
		if err := sqlDB.Close(); err != nil {
			log.Error("Failed to close database", "error", err)
		}
	}

	if driver == "sqlite3" {
		// In-memory databases exist per connection, so keep exactly one.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		// Foreign key support is not enabled by default in SQLite
		if _, err := sqlDB.Exec("PRAGMA foreign_keys = ON;"); err != nil {
			teardown()
			return nil, nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := sqlDB.Ping(); err != nil {
		teardown()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := migrate(db, migrationsDir); err != nil {
		teardown()
		return nil, nil, err
	}

	log.Info("Database initialized successfully")
	return db, teardown, nil
}

func resolveDriver(storeURL, authToken string) (driver, dsn string, dialect Dialect) {
	switch {
	case storeURL == ":memory:" || strings.HasPrefix(storeURL, "file:"):
		return "sqlite3", storeURL, DialectSQLite
	case strings.HasPrefix(storeURL, "postgres://"), strings.HasPrefix(storeURL, "postgresql://"):
		return "pgx", storeURL, DialectPostgres
	default:
		sep := "?"
		if strings.Contains(storeURL, "?") {
			sep = "&"
		}
		return "libsql", storeURL + sep + "authToken=" + authToken, DialectSQLite
	}
}

func migrate(db *DB, migrationsDir string) error {
	goose.SetLogger(log.Default())
	if err := goose.SetDialect(string(db.Dialect)); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db.DB, migrationsDir); err != nil {
		return fmt.Errorf("failed to run migrations from %s: %w", migrationsDir, err)
	}
	return nil
}
