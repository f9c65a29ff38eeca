package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/apperr"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
)

const accountColumns = `id, name, url, username, etag, modified, api_version`

func scanAccount(r rowScanner) (models.Account, error) {
	var a models.Account
	var modified int64
	err := r.Scan(&a.ID, &a.Name, &a.URL, &a.Username, &a.ETag, &modified, &a.APIVersion)
	if err != nil {
		return models.Account{}, err
	}
	if modified != 0 {
		a.Modified = time.Unix(modified, 0).UTC()
	}
	return a, nil
}

// CreateAccount inserts a new account and returns its local id.
func (db *DB) CreateAccount(account models.Account) (int64, error) {
	res, err := db.conn.Exec(`
		INSERT INTO accounts (name, url, username, etag, modified, api_version)
		VALUES (?, ?, ?, ?, ?, ?)
	`, account.Name, account.URL, account.Username, account.ETag, unix(account.Modified), account.APIVersion)
	if err != nil {
		return 0, fmt.Errorf("store: create account: %w", err)
	}
	return res.LastInsertId()
}

// GetAccount returns a single account by id.
func (db *DB) GetAccount(accountID int64) (*models.Account, error) {
	row := db.conn.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, accountID)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get account: %w", err)
	}
	return &a, nil
}

// GetAccountByName returns a single account by its unique name.
func (db *DB) GetAccountByName(name string) (*models.Account, error) {
	row := db.conn.QueryRow(`SELECT `+accountColumns+` FROM accounts WHERE name = ?`, name)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get account by name: %w", err)
	}
	return &a, nil
}

// ListAccounts returns all configured accounts.
func (db *DB) ListAccounts() ([]models.Account, error) {
	rows, err := db.conn.Query(`SELECT ` + accountColumns + ` FROM accounts ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("store: list accounts: %w", err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateETag persists the listing ETag after a fully processed pull.
func (db *DB) UpdateETag(accountID int64, etag string) error {
	if _, err := db.conn.Exec(`UPDATE accounts SET etag = ? WHERE id = ?`, etag, accountID); err != nil {
		return fmt.Errorf("store: update etag: %w", err)
	}
	return nil
}

// UpdateModified persists the last-modified watermark after a fully
// processed pull.
func (db *DB) UpdateModified(accountID int64, modified time.Time) error {
	if _, err := db.conn.Exec(`UPDATE accounts SET modified = ? WHERE id = ?`, unix(modified), accountID); err != nil {
		return fmt.Errorf("store: update modified: %w", err)
	}
	return nil
}

// UpdateAPIVersion persists the server's advertised API version if it
// changed, reporting whether a change was written.
func (db *DB) UpdateAPIVersion(accountID int64, version string) (bool, error) {
	res, err := db.conn.Exec(`UPDATE accounts SET api_version = ? WHERE id = ? AND api_version != ?`,
		version, accountID, version)
	if err != nil {
		return false, fmt.Errorf("store: update api version: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("store: update api version: %w", err)
	}
	return affected > 0, nil
}
