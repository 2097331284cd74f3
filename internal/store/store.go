package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("store: not found")

// Store is the SQLite-backed audit log of LLM calls and assembled papers.
type Store struct {
	db  *sql.DB
	drv *entsql.Driver
}

// Open connects to the SQLite database at path, applies pragmas and
// migrates the schema. Pass MemoryDSN for a throwaway database.
func Open(path string) (*Store, error) {
	dsn := path
	memory := path == MemoryDSN
	if !memory {
		dsn = "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if memory {
		// Every new connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := applyPragmas(db, memory); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := migrate(context.Background(), drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return &Store{db: db, drv: drv}, nil
}

func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, Tables...)
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo {
	return &eventRepo{db: s.db}
}

// PaperRepo returns a PaperRepo backed by this store.
func (s *Store) PaperRepo() PaperRepo {
	return &paperRepo{db: s.db}
}

func applyPragmas(db *sql.DB, memory bool) error {
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	if !memory {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. BLOOMSBOT_DB environment variable
// 2. $XDG_DATA_HOME/bloomsbot/bloomsbot.db
// 3. ~/.local/share/bloomsbot/bloomsbot.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("BLOOMSBOT_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "bloomsbot", "bloomsbot.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of a database path.
func EnsureDir(path string) error {
	if path == MemoryDSN {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// builder produces SQLite-flavoured statements.
func builder() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}
