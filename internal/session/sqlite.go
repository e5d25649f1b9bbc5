package session

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"
)

// TokenKey is the well-known key the credential is stored under.
const TokenKey = "token"

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ Persister = (*SQLiteStore)(nil)

// SQLiteStore persists the credential in a local SQLite settings table so it
// survives restarts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies migrations.
// Use ":memory:" for a store that lives only as long as the process.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serialises writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping session db: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context) (string, error) {
	const query = `SELECT value FROM settings WHERE key = ?`
	var token string
	err := s.db.QueryRowContext(ctx, query, TokenKey).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load %s: %w", TokenKey, err)
	}
	return token, nil
}

func (s *SQLiteStore) Save(ctx context.Context, token string) error {
	const query = `INSERT OR REPLACE INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	if _, err := s.db.ExecContext(ctx, query, TokenKey, token); err != nil {
		return fmt.Errorf("save %s: %w", TokenKey, err)
	}
	return nil
}

// Delete removes the key entirely.
func (s *SQLiteStore) Delete(ctx context.Context) error {
	const query = `DELETE FROM settings WHERE key = ?`
	if _, err := s.db.ExecContext(ctx, query, TokenKey); err != nil {
		return fmt.Errorf("delete %s: %w", TokenKey, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
