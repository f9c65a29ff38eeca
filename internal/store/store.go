// Package store provides the SQLite-backed local note store, including the
// conditional ("compare-and-update") writes the sync engine depends on.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS accounts (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	url         TEXT NOT NULL,
	username    TEXT NOT NULL DEFAULT '',
	etag        TEXT NOT NULL DEFAULT '',
	modified    INTEGER NOT NULL DEFAULT 0,
	api_version TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS notes (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	remote_id  INTEGER NOT NULL DEFAULT 0,
	account_id INTEGER NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	status     TEXT NOT NULL DEFAULT 'SYNCED',
	title      TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL DEFAULT '',
	excerpt    TEXT NOT NULL DEFAULT '',
	favorite   INTEGER NOT NULL DEFAULT 0,
	etag       TEXT NOT NULL DEFAULT '',
	modified   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_notes_account_status ON notes(account_id, status);
CREATE INDEX IF NOT EXISTS idx_notes_account_remote ON notes(account_id, remote_id);
`

// Store defines the local persistence contract consumed by the sync engine
// and the editing surface. Consumers should depend on this interface rather
// than the concrete *DB type to facilitate testing with mocks.
type Store interface {
	// Sync engine side.
	DirtyNotes(accountID int64) ([]models.Note, error)
	SetRemoteID(noteID, remoteID int64) error
	UpdateIfUnchanged(noteID int64, remote models.RemoteNote, excerpt string, prev models.Note) (bool, error)
	ApplyRemote(noteID int64, remote models.RemoteNote, excerpt string) (bool, error)
	DeleteIfUnchanged(noteID int64) (bool, error)
	DeleteNote(noteID int64) error
	RemoteIDMap(accountID int64) (map[int64]int64, error)
	CreateFromRemote(accountID int64, remote models.RemoteNote, excerpt string) (int64, error)

	// Editing surface side.
	CreateNote(note models.Note) (int64, error)
	UpdateNote(note models.Note) error
	MarkDeleted(noteID int64) error
	GetNote(noteID int64) (*models.Note, error)
	ListNotes(accountID int64, category string) ([]models.Note, error)
	Search(accountID int64, query string, limit int) ([]models.Note, error)

	// Accounts.
	CreateAccount(account models.Account) (int64, error)
	GetAccount(accountID int64) (*models.Account, error)
	GetAccountByName(name string) (*models.Account, error)
	ListAccounts() ([]models.Account, error)
	UpdateETag(accountID int64, etag string) error
	UpdateModified(accountID int64, modified time.Time) error
	UpdateAPIVersion(accountID int64, version string) (bool, error)

	Close() error
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// DB wraps a sql.DB with note-store operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
