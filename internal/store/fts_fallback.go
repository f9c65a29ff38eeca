//go:build !sqlite_fts5

package store

import (
	"database/sql"
	"fmt"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not compiled in; search uses a LIKE fallback over title/content.
	return nil
}

// Search performs a LIKE-based search (fallback when FTS5 is not available).
func (db *DB) Search(accountID int64, query string, limit int) ([]models.Note, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT `+noteColumns+` FROM notes
		WHERE account_id = ? AND status != ? AND (title LIKE ? OR content LIKE ? OR category LIKE ?)
		ORDER BY favorite DESC, modified DESC
		LIMIT ?
	`, accountID, models.StatusLocallyDeleted, like, like, like, limit)
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
