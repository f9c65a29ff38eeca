package models

import "time"

// Account is one remote identity this device synchronizes against.
//
// ETag and Modified form the pull watermark: they are advanced only after a
// pull has fully and successfully processed a listing, so a failed pull
// retries the same delta.
type Account struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Username   string    `json:"username"`
	ETag       string    `json:"etag,omitempty"`
	Modified   time.Time `json:"modified,omitempty"`
	APIVersion string    `json:"api_version,omitempty"`
}

// SyncResult is the outcome of one orchestrator pass. Per-note failures do
// not stop the pass; they flip the relevant flag and are collected in order.
type SyncResult struct {
	PushSuccessful bool
	PullSuccessful bool
	Errors         []error
}

// Successful reports whether both phases completed without captured errors.
func (r SyncResult) Successful() bool {
	return r.PushSuccessful && r.PullSuccessful && len(r.Errors) == 0
}
