// Package sqlstore implements the repository interfaces on top of a SQL
// database. Two backends are supported:
//
//   - SQLite through modernc.org/sqlite (pure Go, no CGo), the default.
//     Use a file path such as "data/recipes.db", or ":memory:" in tests.
//   - PostgreSQL through the pgx stdlib driver, for a real deployment.
//
// HOW THE PIECES FIT:
//   - goose applies the embedded migrations in migrations/<dialect>/
//   - squirrel builds every query, so the same code emits "?" for SQLite
//     and "$1, $2" for Postgres
//   - sqlx scans result rows straight into structs by their `db` tags
//
// Both backends speak the same schema and the same on-disk formats; the only
// dialect-specific things are the placeholder style and the error codes for
// constraint violations (see errors.go).
package sqlstore

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	// Drivers register themselves with database/sql in init():
	// "sqlite" for modernc and "pgx" for the Postgres stdlib adapter.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported dialects. They match config.DriverSQLite / config.DriverPostgres.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// Store is the SQL-backed implementation of repository.UserRepository and
// repository.RecipeRepository.
//
// One Store owns one connection pool. It is created once at startup and
// shared by every request; *sqlx.DB is safe for concurrent use.
type Store struct {
	db      *sqlx.DB
	dialect string
	sb      sq.StatementBuilderType
	logger  *slog.Logger
}

// Open connects to the database for the given dialect.
//
// SQLITE SPECIFICS:
// The pool is capped at ONE open connection. SQLite allows a single writer
// anyway, and an ":memory:" database exists per connection, so a second
// connection would see an empty database. Foreign keys are switched on
// (SQLite leaves them off by default) and file databases use WAL mode.
func Open(ctx context.Context, dialect, dsn string, logger *slog.Logger) (*Store, error) {
	var (
		db  *sqlx.DB
		err error
	)

	switch dialect {
	case DialectSQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		db, err = sqlx.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: opening sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)

		for _, pragma := range []string{
			"PRAGMA foreign_keys = ON",
			"PRAGMA journal_mode = WAL",
			"PRAGMA busy_timeout = 5000",
		} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				db.Close()
				return nil, fmt.Errorf("sqlstore: %s: %w", pragma, err)
			}
		}

	case DialectPostgres:
		db, err = sqlx.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("sqlstore: opening postgres: %w", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxIdleTime(5 * time.Minute)

	default:
		return nil, fmt.Errorf("sqlstore: unsupported dialect %q", dialect)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlstore: pinging %s: %w", dialect, err)
	}

	return New(db, dialect, logger), nil
}

// New wraps an existing pool. Tests use it with go-sqlmock.
func New(db *sqlx.DB, dialect string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var placeholder sq.PlaceholderFormat = sq.Question
	if dialect == DialectPostgres {
		placeholder = sq.Dollar
	}

	return &Store{
		db:      db,
		dialect: dialect,
		sb:      sq.StatementBuilder.PlaceholderFormat(placeholder),
		logger:  logger,
	}
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable. Used by GET /health.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ensureDir creates the parent directory of a SQLite file so a fresh
// checkout can start without a manual mkdir.
func ensureDir(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("sqlstore: creating database directory %s: %w", dir, err)
	}
	return nil
}

// =========================================================================
// MIGRATIONS
// =========================================================================

// goose keeps its settings (base FS, dialect, logger) in package globals,
// so concurrent migrations on two stores must not interleave.
var gooseMu sync.Mutex

// MigrateUp applies every pending migration.
func (s *Store) MigrateUp(ctx context.Context) error {
	return s.withGoose(func(dir string) error {
		return goose.UpContext(ctx, s.db.DB, dir)
	})
}

// MigrateDown rolls back the most recent migration.
func (s *Store) MigrateDown(ctx context.Context) error {
	return s.withGoose(func(dir string) error {
		return goose.DownContext(ctx, s.db.DB, dir)
	})
}

// MigrationStatus logs which migrations have been applied.
func (s *Store) MigrationStatus(ctx context.Context) error {
	return s.withGoose(func(dir string) error {
		return goose.StatusContext(ctx, s.db.DB, dir)
	})
}

func (s *Store) withGoose(fn func(dir string) error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	gooseDialect := "sqlite3"
	if s.dialect == DialectPostgres {
		gooseDialect = "pgx"
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{s.logger})
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("sqlstore: goose dialect %s: %w", gooseDialect, err)
	}

	if err := fn("migrations/" + s.dialect); err != nil {
		return fmt.Errorf("sqlstore: migrations: %w", err)
	}
	return nil
}

// gooseLogger sends goose's Printf-style output to slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "goose"))
}
