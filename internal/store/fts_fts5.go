//go:build sqlite_fts5

package store

import (
	"database/sql"
	"fmt"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
)

// The FTS table is external-content over notes and kept current by
// triggers, so none of the conditional write paths need to touch it.
func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
			title,
			content,
			content = 'notes',
			content_rowid = 'id',
			tokenize = 'unicode61 remove_diacritics 2'
		);

		CREATE TRIGGER IF NOT EXISTS notes_fts_insert AFTER INSERT ON notes BEGIN
			INSERT INTO notes_fts (rowid, title, content) VALUES (new.id, new.title, new.content);
		END;
		CREATE TRIGGER IF NOT EXISTS notes_fts_delete AFTER DELETE ON notes BEGIN
			INSERT INTO notes_fts (notes_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
		END;
		CREATE TRIGGER IF NOT EXISTS notes_fts_update AFTER UPDATE ON notes BEGIN
			INSERT INTO notes_fts (notes_fts, rowid, title, content) VALUES ('delete', old.id, old.title, old.content);
			INSERT INTO notes_fts (rowid, title, content) VALUES (new.id, new.title, new.content);
		END;
	`)
	return err
}

// Search performs an FTS5 full-text search over the account's notes.
func (db *DB) Search(accountID int64, query string, limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT `+prefixedNoteColumns("n")+`
		FROM notes_fts f
		JOIN notes n ON n.id = f.rowid
		WHERE notes_fts MATCH ? AND n.account_id = ? AND n.status != ?
		ORDER BY rank
		LIMIT ?
	`, query, accountID, models.StatusLocallyDeleted, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	defer rows.Close()

	var out []models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan note: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
