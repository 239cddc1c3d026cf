// Package store implements the persistent record store for projektbot.
//
// It uses SQLite (modernc, pure Go) to keep three kinds of records: users,
// projects and repository links. All reads and writes that belong to one
// command run inside a single transaction opened with WithTx; the
// transaction is rolled back on every exit path that does not commit.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds record store configuration.
type Config struct {
	DataDir       string
	BusyTimeoutMS int
}

// DefaultConfig returns the default configuration for the record store.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:       filepath.Join(home, ".projektbot"),
		BusyTimeoutMS: 5000,
	}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the record store backed by SQLite.
type Store struct {
	db    *sql.DB
	cfg   Config
	hooks storeHooks
}

// storeHooks lets tests fail a transaction at the boundary.
type storeHooks struct {
	beginTx func(ctx context.Context, db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func (s *Store) beginTxHook(ctx context.Context) (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(ctx, s.db)
	}
	return s.db.BeginTx(ctx, nil)
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// New creates a new Store with the given configuration.
// It creates the data directory if needed, opens SQLite with WAL mode,
// and runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}
	if cfg.BusyTimeoutMS <= 0 {
		cfg.BusyTimeoutMS = 5000
	}

	db, err := openDB("sqlite", dsn(filepath.Join(cfg.DataDir, "projektbot.db"), cfg.BusyTimeoutMS))
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}

	return s, nil
}

// dsn builds the connection string. Pragmas in the DSN apply to every pooled
// connection. Transactions take the write lock at BEGIN (_txlock=immediate).
func dsn(path string, busyTimeoutMS int) string {
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeoutMS))
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(ON)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS projects (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			name           TEXT    NOT NULL UNIQUE,
			description    TEXT    NOT NULL DEFAULT '',
			leader_id      TEXT,
			member_role_id TEXT    NOT NULL UNIQUE,
			leader_role_id TEXT    NOT NULL UNIQUE,
			color          INTEGER NOT NULL DEFAULT 0,
			created_at     TEXT    NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS users (
			id           TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			project_id   INTEGER,
			birth_year   INTEGER,
			class_label  TEXT,
			created_at   TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at   TEXT NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE SET NULL
		);

		CREATE INDEX IF NOT EXISTS idx_users_project ON users(project_id);

		CREATE TABLE IF NOT EXISTS repo_links (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			label      TEXT    NOT NULL,
			url        TEXT    NOT NULL,
			created_at TEXT    NOT NULL DEFAULT (datetime('now')),
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_links_unique ON repo_links(project_id, label);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Transactions ────────────────────────────────────────────────────────────

// WithTx runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back otherwise, including on panic.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.beginTxHook(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&Tx{ctx: ctx, tx: sqlTx}); err != nil {
		return err
	}

	if err := s.commitHook(sqlTx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Tx is a single open write session. It is only valid inside the WithTx
// callback that produced it.
type Tx struct {
	ctx context.Context
	tx  *sql.Tx
}

// Projects returns every project ordered by name. The sequence runs a fresh
// query each time it is ranged over, so it can be consumed more than once.
func (s *Store) Projects(ctx context.Context) iter.Seq2[Project, error] {
	return func(yield func(Project, error) bool) {
		rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY name COLLATE NOCASE`)
		if err != nil {
			yield(Project{}, fmt.Errorf("listing projects: %w", err))
			return
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			p, err := scanProject(rows)
			if err != nil {
				yield(Project{}, err)
				return
			}
			if !yield(*p, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Project{}, err)
		}
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
