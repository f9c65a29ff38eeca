package api

import "github.com/stefan-niedermann/OwnCloud-Notes/internal/models"

// CreateNoteRequest is the request body for creating a note.
type CreateNoteRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
	Favorite bool   `json:"favorite"`
}

// UpdateNoteRequest is the request body for updating a note.
type UpdateNoteRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
	Favorite bool   `json:"favorite"`
}

// NoteListResponse wraps note listings.
type NoteListResponse struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// AccountListResponse wraps the configured accounts.
type AccountListResponse struct {
	Accounts []models.Account `json:"accounts"`
}

// SyncResponse reports the outcome of a completed synchronization pass.
type SyncResponse struct {
	PushSuccessful bool     `json:"push_successful"`
	PullSuccessful bool     `json:"pull_successful"`
	Errors         []string `json:"errors,omitempty"`
}

func newSyncResponse(result models.SyncResult) SyncResponse {
	out := SyncResponse{
		PushSuccessful: result.PushSuccessful,
		PullSuccessful: result.PullSuccessful,
	}
	for _, err := range result.Errors {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}
