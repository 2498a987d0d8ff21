// Package sqlite is a document backend that keeps the DevPulse document in a
// single SQLite row, giving a durable single-node alternative to the Gist
// backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of SQLite, so the binary builds anywhere Go builds.
//
// The row carries an integer version. Save is a single conditional UPDATE
// (WHERE version = ?), so the optimistic check and the write are one atomic
// statement.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/devpulse/internal/repository/docstore"
)

// documentID is the primary key of the one document this backend stores.
const documentID = "devpulse"

var _ docstore.Backend = (*DB)(nil)

// DB wraps a sql.DB connection pool and implements docstore.Backend.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/devpulse.db"  → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Every pooled connection to ":memory:" would get its own empty
	// database, and the backend never needs parallel statements anyway.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the documents table and seeds an empty document at
// version 0. CREATE TABLE IF NOT EXISTS and INSERT OR IGNORE keep it safe to
// run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS documents (
			id         TEXT PRIMARY KEY,
			version    INTEGER NOT NULL DEFAULT 0,
			body       TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating documents table: %w", err)
	}

	empty, err := docstore.NewDocument().Encode()
	if err != nil {
		return err
	}

	_, err = db.conn.Exec(
		`INSERT OR IGNORE INTO documents (id, version, body) VALUES (?, 0, ?)`,
		documentID, string(empty),
	)
	if err != nil {
		return fmt.Errorf("seeding document: %w", err)
	}

	return nil
}

// Load reads the document and its current version.
func (db *DB) Load(ctx context.Context) (*docstore.Document, string, error) {
	var (
		version int64
		body    string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT version, body FROM documents WHERE id = ?`,
		documentID,
	).Scan(&version, &body)
	if err != nil {
		return nil, "", fmt.Errorf("sqlite: loading document: %w", err)
	}

	doc, err := docstore.Decode([]byte(body))
	if err != nil {
		return nil, "", err
	}
	return doc, strconv.FormatInt(version, 10), nil
}

// Save writes doc if the stored version still equals version.
// Zero rows affected means another writer saved first.
func (db *DB) Save(ctx context.Context, doc *docstore.Document, version string) (string, error) {
	expected, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return "", fmt.Errorf("sqlite: malformed version %q: %w", version, err)
	}

	body, err := doc.Encode()
	if err != nil {
		return "", err
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE documents
		 SET body = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		string(body),
		time.Now().UTC(),
		documentID,
		expected,
	)
	if err != nil {
		return "", fmt.Errorf("sqlite: saving document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return "", docstore.ErrVersionConflict
	}

	return strconv.FormatInt(expected+1, 10), nil
}
