// Package sqlstore implements the repository interfaces on database/sql.
//
// Two dialects are supported, chosen from the DATABASE_URL:
//   - "postgres://…" or "postgresql://…" → PostgreSQL through lib/pq
//   - anything else                       → SQLite through modernc.org/sqlite
//     (a file path, "file:" URI, or ":memory:")
//
// Queries are built with squirrel so the same code emits "?" placeholders
// for SQLite and "$1" placeholders for PostgreSQL.
//
// SQLITE CONNECTIONS:
// The pool is capped at one open connection. SQLite serializes writers
// anyway, and a ":memory:" database exists per connection. With one
// connection, a *sql.Rows that is still open blocks every other query, so
// list reads always drain and close their rows before loading tags.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Dialect names the SQL flavour a Store speaks.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Store is the SQL-backed repository. It implements both
// repository.UserRepository and repository.IdeaRepository.
type Store struct {
	conn    *sql.DB
	dialect Dialect
	sb      sq.StatementBuilderType
	now     func() time.Time
}

// New opens the database named by databaseURL, verifies the connection,
// and applies the schema.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	dialect, dsn := parseURL(databaseURL)

	var (
		conn *sql.DB
		err  error
	)
	switch dialect {
	case Postgres:
		conn, err = sql.Open("postgres", dsn)
	default:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		conn, err = sql.Open("sqlite", dsn)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening %s database: %w", dialect, err)
	}

	if dialect == SQLite {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pinging %s database: %w", dialect, err)
	}

	if dialect == SQLite {
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
			if _, err := conn.ExecContext(ctx, pragma); err != nil {
				conn.Close()
				return nil, fmt.Errorf("sqlstore: %s: %w", pragma, err)
			}
		}
	}

	s := NewWithDB(conn, dialect)
	if err := s.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an already open connection without touching the schema.
// Tests use it with go-sqlmock.
func NewWithDB(conn *sql.DB, dialect Dialect) *Store {
	var placeholder sq.PlaceholderFormat = sq.Question
	if dialect == Postgres {
		placeholder = sq.Dollar
	}
	return &Store{
		conn:    conn,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(placeholder),
		now:     time.Now,
	}
}

// Dialect reports which SQL flavour the store speaks.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// DB exposes the connection pool for stats collection.
func (s *Store) DB() *sql.DB {
	return s.conn
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.conn.Close()
}

// timestamp is the creation time stored for new rows. UTC keeps string
// ordering of SQLite DATETIME values consistent with time ordering.
func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// parseURL picks the dialect for databaseURL and returns the DSN to hand
// to the driver.
func parseURL(databaseURL string) (Dialect, string) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"),
		strings.HasPrefix(databaseURL, "postgresql://"):
		return Postgres, databaseURL
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return SQLite, strings.TrimPrefix(databaseURL, "sqlite://")
	default:
		return SQLite, databaseURL
	}
}

// ensureDir creates the parent directory of a file-backed SQLite DSN.
func ensureDir(dsn string) error {
	if dsn == "" || strings.HasPrefix(dsn, ":memory:") || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sqlstore: creating database directory %s: %w", dir, err)
	}
	return nil
}
