// Package models defines the domain types shared by the store, the remote
// client, and the sync engine.
package models

import (
	"fmt"
	"time"
)

// Status describes what the push phase must do with a note. Exactly one
// status holds at any time.
type Status string

const (
	// StatusSynced marks a note whose local state matches the last known
	// remote state. Push ignores it.
	StatusSynced Status = "SYNCED"
	// StatusLocallyEdited marks a note created or changed on this device
	// since the last successful push.
	StatusLocallyEdited Status = "LOCAL_EDITED"
	// StatusLocallyDeleted marks a note the user deleted locally; the row is
	// kept until the remote deletion is confirmed.
	StatusLocallyDeleted Status = "LOCAL_DELETED"
)

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusSynced, StatusLocallyEdited, StatusLocallyDeleted:
		return true
	}
	return false
}

// Dirty reports whether a note with this status needs a push.
func (s Status) Dirty() bool {
	return s == StatusLocallyEdited || s == StatusLocallyDeleted
}

// Note is a unit of user content bound to exactly one account.
//
// ID is the stable local identifier, assigned once and never reused.
// RemoteID is zero until the first successful remote create; a note with a
// non-zero RemoteID has been created remotely at least once.
type Note struct {
	ID        int64     `json:"id"`
	RemoteID  int64     `json:"remote_id,omitempty"`
	AccountID int64     `json:"account_id"`
	Status    Status    `json:"status"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	Excerpt   string    `json:"excerpt"`
	Favorite  bool      `json:"favorite"`
	ETag      string    `json:"etag"`
	Modified  time.Time `json:"modified"`
}

func (n Note) String() string {
	return fmt.Sprintf("note{id=%d remote=%d status=%s title=%q}", n.ID, n.RemoteID, n.Status, n.Title)
}

// RemoteNote is a note as returned by the remote service.
//
// A zero Modified timestamp marks an unchanged placeholder in an incremental
// listing: the server confirms the note still exists but sends no content.
type RemoteNote struct {
	RemoteID int64     `json:"id"`
	Title    string    `json:"title"`
	Category string    `json:"category"`
	Content  string    `json:"content"`
	Favorite bool      `json:"favorite"`
	ETag     string    `json:"etag"`
	Modified time.Time `json:"-"`
}
