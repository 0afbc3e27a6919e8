// Package store persists the clipboard history in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"go.klb.dev/recall/internal/history"
)

// SchemaVersion is the latest schema version. Bump it when adding
// migrations.
const SchemaVersion = 2

// FileName is the database file created inside the data directory.
const FileName = "history.db"

// Store is a history.Store backed by a SQLite file.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) dir/history.db and migrates it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	_ = os.Chmod(path, 0o600)

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Load returns the named history, newest first. An unknown name yields no
// items.
func (s *Store) Load(ctx context.Context, name string) ([]history.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, created_at FROM items WHERE history = ? ORDER BY position ASC`, name)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []history.Item
	for rows.Next() {
		var (
			it      history.Item
			created int64
		)
		if err := rows.Scan(&it.ID, &it.Text, &created); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.CreatedAt = time.UnixMilli(created)
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// Save replaces the named history with items in one transaction.
func (s *Store) Save(ctx context.Context, name string, items []history.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO histories (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return fmt.Errorf("register history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE history = ?`, name); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (history, id, position, text, created_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, it := range items {
		if _, err := stmt.ExecContext(ctx, name, it.ID, i, it.Text, it.CreatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert item %s: %w", it.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Names returns the stored history names, sorted.
func (s *Store) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM histories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query histories: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan history name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate histories: %w", err)
	}
	return names, nil
}

// Remove deletes the named history and its items.
func (s *Store) Remove(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE history = ?`, name); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM histories WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS items (
		  id         TEXT PRIMARY KEY,
		  position   INTEGER NOT NULL,
		  text       TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_items_position ON items(position);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", 1)); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
	}

	// Version 2 adds named histories. Existing items move to the default one.
	if version < 2 {
		schema := fmt.Sprintf(`
		CREATE TABLE histories (
		  name TEXT PRIMARY KEY
		);

		CREATE TABLE items_v2 (
		  history    TEXT NOT NULL REFERENCES histories(name),
		  id         TEXT NOT NULL,
		  position   INTEGER NOT NULL,
		  text       TEXT NOT NULL,
		  created_at INTEGER NOT NULL,
		  PRIMARY KEY (history, id)
		);

		INSERT INTO histories (name) SELECT '%[1]s' WHERE EXISTS (SELECT 1 FROM items);
		INSERT INTO items_v2 (history, id, position, text, created_at)
		  SELECT '%[1]s', id, position, text, created_at FROM items;
		DROP TABLE items;
		ALTER TABLE items_v2 RENAME TO items;

		CREATE INDEX idx_items_history_position ON items(history, position);
		PRAGMA user_version = 2;
		`, history.DefaultName)
		if err := execTx(db, schema); err != nil {
			return fmt.Errorf("migration 2 failed: %w", err)
		}
	}

	return nil
}

func execTx(db *sql.DB, script string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(script); err != nil {
		return err
	}
	return tx.Commit()
}
