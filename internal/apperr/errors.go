// Package apperr defines the sentinel errors of the sync error taxonomy.
package apperr

import "errors"

var (
	// ErrNotFound is returned when the remote side no longer knows a note.
	// The reconcilers treat it as a recovery path (recreate on edit,
	// already-gone on delete), never as a hard failure.
	ErrNotFound = errors.New("not found")

	// ErrNotModified is the conditional-fetch short circuit (HTTP 304).
	// Success with no work to do.
	ErrNotModified = errors.New("not modified")

	// ErrAuthMismatch marks a credential/session mismatch (HTTP 401). It
	// triggers credential-cache invalidation and is recorded as a failure.
	ErrAuthMismatch = errors.New("authentication mismatch")

	// ErrInvalidStatus marks a note row carrying an unrecognized status
	// value. Fatal for that note only.
	ErrInvalidStatus = errors.New("invalid note status")
)
