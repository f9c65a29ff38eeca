// Package remote implements the HTTP client for the Notes REST API
// (list with pruneBefore + If-None-Match, create/edit/delete per note).
package remote

import (
	"context"
	"time"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
)

// Session is one authenticated connection handle against a notes server.
type Session struct {
	BaseURL  string
	Username string
	Token    string
}

// ListResponse is the outcome of an incremental listing.
type ListResponse struct {
	Notes        []models.RemoteNote
	ETag         string
	LastModified time.Time
	APIVersion   string
}

// Client is the remote dependency boundary of the sync engine. HTTP
// semantics surface as the apperr sentinels: apperr.ErrNotModified from
// List, apperr.ErrNotFound from Edit and Delete, apperr.ErrAuthMismatch
// from any call.
type Client interface {
	// List fetches the incremental delta: notes changed since pruneBefore,
	// unchanged ones as placeholders without a modified timestamp. The etag
	// is sent as a conditional-fetch precondition.
	List(ctx context.Context, session Session, pruneBefore time.Time, etag string) (*ListResponse, error)

	// Create uploads a new note and returns it with its assigned remote id.
	Create(ctx context.Context, session Session, note models.Note) (*models.RemoteNote, error)

	// Edit uploads changed content for an existing remote note.
	Edit(ctx context.Context, session Session, note models.Note) (*models.RemoteNote, error)

	// Delete removes a note on the server by remote id.
	Delete(ctx context.Context, session Session, remoteID int64) error
}
