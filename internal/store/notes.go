package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/apperr"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
)

const noteColumns = `id, remote_id, account_id, status, title, category, content, excerpt, favorite, etag, modified`

// prefixedNoteColumns qualifies every note column with a table alias for
// queries that join against other tables.
func prefixedNoteColumns(alias string) string {
	cols := strings.Split(noteColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(r rowScanner) (models.Note, error) {
	var n models.Note
	var modified int64
	err := r.Scan(&n.ID, &n.RemoteID, &n.AccountID, &n.Status, &n.Title, &n.Category,
		&n.Content, &n.Excerpt, &n.Favorite, &n.ETag, &modified)
	if err != nil {
		return models.Note{}, err
	}
	if modified != 0 {
		n.Modified = time.Unix(modified, 0).UTC()
	}
	return n, nil
}

func unix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

// DirtyNotes returns all locally edited or deleted notes of the account in
// ascending local-id order, so pushes are processed deterministically.
func (db *DB) DirtyNotes(accountID int64) ([]models.Note, error) {
	rows, err := db.conn.Query(`
		SELECT `+noteColumns+` FROM notes
		WHERE account_id = ? AND status IN (?, ?)
		ORDER BY id ASC
	`, accountID, models.StatusLocallyEdited, models.StatusLocallyDeleted)
	if err != nil {
		return nil, fmt.Errorf("store: dirty notes: %w", err)
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

// SetRemoteID records the remote identifier assigned by a successful create.
func (db *DB) SetRemoteID(noteID, remoteID int64) error {
	_, err := db.conn.Exec(`UPDATE notes SET remote_id = ? WHERE id = ?`, remoteID, noteID)
	if err != nil {
		return fmt.Errorf("store: set remote id: %w", err)
	}
	return nil
}

// UpdateIfUnchanged applies the server-confirmed values of a push to the row,
// but only if the row's dirty content is still exactly the snapshot that was
// sent (prev). A single conditional UPDATE, so a concurrent local edit or
// delete during the round trip is never clobbered; in that case the row keeps
// its newer dirty state and false is returned.
func (db *DB) UpdateIfUnchanged(noteID int64, remote models.RemoteNote, excerpt string, prev models.Note) (bool, error) {
	res, err := db.conn.Exec(`
		UPDATE notes SET status = ?, modified = ?, title = ?, favorite = ?, etag = ?, content = ?, excerpt = ?
		WHERE id = ? AND status = ? AND content = ? AND category = ? AND favorite = ?
	`, models.StatusSynced, unix(remote.Modified), remote.Title, remote.Favorite, remote.ETag,
		remote.Content, excerpt,
		noteID, models.StatusLocallyEdited, prev.Content, prev.Category, prev.Favorite)
	if err != nil {
		return false, fmt.Errorf("store: conditional update: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: conditional update: %w", err)
	}
	return affected > 0, nil
}

// ApplyRemote merges a pulled remote note into the row, but only while the
// row has no unresolved local edits and at least one remote-derived column
// actually changed. Local edits win over an in-flight pull's stale view.
func (db *DB) ApplyRemote(noteID int64, remote models.RemoteNote, excerpt string) (bool, error) {
	res, err := db.conn.Exec(`
		UPDATE notes SET modified = ?, title = ?, favorite = ?, category = ?, etag = ?, content = ?, excerpt = ?
		WHERE id = ? AND status = ?
		  AND (modified != ? OR title != ? OR favorite != ? OR category != ? OR etag != ? OR content != ?)
	`, unix(remote.Modified), remote.Title, remote.Favorite, remote.Category, remote.ETag,
		remote.Content, excerpt,
		noteID, models.StatusSynced,
		unix(remote.Modified), remote.Title, remote.Favorite, remote.Category, remote.ETag, remote.Content)
	if err != nil {
		return false, fmt.Errorf("store: apply remote: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: apply remote: %w", err)
	}
	return affected > 0, nil
}

// DeleteIfUnchanged removes the row only while it is still marked
// LocallyDeleted. A concurrent edit during the remote delete round trip
// flips the status and keeps the row for the next push cycle.
func (db *DB) DeleteIfUnchanged(noteID int64) (bool, error) {
	res, err := db.conn.Exec(`DELETE FROM notes WHERE id = ? AND status = ?`,
		noteID, models.StatusLocallyDeleted)
	if err != nil {
		return false, fmt.Errorf("store: conditional delete: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: conditional delete: %w", err)
	}
	return affected > 0, nil
}

// DeleteNote removes the row unconditionally (remote deletion during pull).
func (db *DB) DeleteNote(noteID int64) error {
	if _, err := db.conn.Exec(`DELETE FROM notes WHERE id = ?`, noteID); err != nil {
		return fmt.Errorf("store: delete note: %w", err)
	}
	return nil
}

// RemoteIDMap returns the remote-id to local-id mapping for every note of
// the account that has been created remotely at least once.
func (db *DB) RemoteIDMap(accountID int64) (map[int64]int64, error) {
	rows, err := db.conn.Query(`SELECT remote_id, id FROM notes WHERE account_id = ? AND remote_id != 0`, accountID)
	if err != nil {
		return nil, fmt.Errorf("store: remote id map: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]int64)
	for rows.Next() {
		var remoteID, localID int64
		if err := rows.Scan(&remoteID, &localID); err != nil {
			return nil, fmt.Errorf("store: scan id map: %w", err)
		}
		out[remoteID] = localID
	}
	return out, rows.Err()
}

// CreateFromRemote inserts a new note from a remote fetch with status Synced.
func (db *DB) CreateFromRemote(accountID int64, remote models.RemoteNote, excerpt string) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO notes (remote_id, account_id, status, title, category, content, excerpt, favorite, etag, modified)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, remote.RemoteID, accountID, models.StatusSynced, remote.Title, remote.Category,
		remote.Content, excerpt, remote.Favorite, remote.ETag, unix(remote.Modified))
	if err != nil {
		return 0, fmt.Errorf("store: create from remote: %w", err)
	}
	return res.LastInsertId()
}

// CreateNote inserts a new locally created note with status LocallyEdited.
func (db *DB) CreateNote(note models.Note) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO notes (remote_id, account_id, status, title, category, content, excerpt, favorite, etag, modified)
		VALUES (0, ?, ?, ?, ?, ?, ?, ?, '', ?)
	`, note.AccountID, models.StatusLocallyEdited, note.Title, note.Category,
		note.Content, note.Excerpt, note.Favorite, unix(note.Modified))
	if err != nil {
		return 0, fmt.Errorf("store: create note: %w", err)
	}
	return res.LastInsertId()
}

// UpdateNote overwrites the editable fields and re-dirties the row. This is
// the editing surface's write path; the UI is authoritative for its own
// edits, so no precondition applies here.
func (db *DB) UpdateNote(note models.Note) error {
	res, err := db.conn.Exec(`
		UPDATE notes SET status = ?, title = ?, category = ?, content = ?, excerpt = ?, favorite = ?, modified = ?
		WHERE id = ?
	`, models.StatusLocallyEdited, note.Title, note.Category, note.Content,
		note.Excerpt, note.Favorite, unix(note.Modified), note.ID)
	if err != nil {
		return fmt.Errorf("store: update note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update note: %w", err)
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// MarkDeleted flags the row for deletion by the next push cycle.
func (db *DB) MarkDeleted(noteID int64) error {
	res, err := db.conn.Exec(`UPDATE notes SET status = ? WHERE id = ?`,
		models.StatusLocallyDeleted, noteID)
	if err != nil {
		return fmt.Errorf("store: mark deleted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: mark deleted: %w", err)
	}
	if affected == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// GetNote returns a single note by local id.
func (db *DB) GetNote(noteID int64) (*models.Note, error) {
	row := db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, noteID)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get note: %w", err)
	}
	return &n, nil
}

// ListNotes returns the account's notes visible to the UI (everything not
// pending deletion), optionally filtered by category, favorites first.
func (db *DB) ListNotes(accountID int64, category string) ([]models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes WHERE account_id = ? AND status != ?`
	args := []any{accountID, models.StatusLocallyDeleted}
	if category != "" {
		query += ` AND category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY favorite DESC, modified DESC`

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: list notes: %w", err)
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
