// Package testutil provides shared test helpers for setting up databases
// and accounts.
package testutil

import (
	"os"
	"testing"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/store"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notes-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestAccount creates an account in the database and returns it.
func TestAccount(t *testing.T, db *store.DB) models.Account {
	t.Helper()
	account := models.Account{
		Name:     "tester@example.com",
		URL:      "https://cloud.example.com",
		Username: "tester",
	}
	id, err := db.CreateAccount(account)
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	account.ID = id
	return account
}
