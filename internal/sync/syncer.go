package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/apperr"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/excerpt"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/remote"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/store"
)

// Syncer executes single synchronization passes. It never retries and never
// panics outward; every pass produces a SyncResult with the captured
// failures. Retry and scheduling are the caller's concern.
type Syncer struct {
	store  store.Store
	client remote.Client
	creds  remote.CredentialCache
	logger *slog.Logger
}

// NewSyncer creates a Syncer over the given store, remote client, and
// credential cache.
func NewSyncer(st store.Store, client remote.Client, creds remote.CredentialCache, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{store: st, client: client, creds: creds, logger: logger}
}

// Run executes exactly one synchronization pass for the account: push, then
// (unless pushOnly) pull. The caller must serialize passes per account.
func (s *Syncer) Run(ctx context.Context, account models.Account, session remote.Session, pushOnly bool) models.SyncResult {
	s.logger.Info("sync: starting", slog.Int64("account", account.ID), slog.Bool("push_only", pushOnly))

	var result models.SyncResult
	result.PushSuccessful = s.pushLocalChanges(ctx, account, session, &result.Errors)
	result.PullSuccessful = true
	if !pushOnly {
		result.PullSuccessful = s.pullRemoteChanges(ctx, account, session, &result.Errors)
	}

	s.logger.Info("sync: finished",
		slog.Int64("account", account.ID),
		slog.Bool("push_ok", result.PushSuccessful),
		slog.Bool("pull_ok", result.PullSuccessful),
		slog.Int("errors", len(result.Errors)))
	return result
}

// pushLocalChanges uploads every dirty note of the account, each one
// independently. It returns true iff no note failed.
func (s *Syncer) pushLocalChanges(ctx context.Context, account models.Account, session remote.Session, errs *[]error) bool {
	notes, err := s.store.DirtyNotes(account.ID)
	if err != nil {
		*errs = append(*errs, err)
		return false
	}

	success := true
	for _, note := range notes {
		s.logger.Debug("sync: push note", slog.Int64("id", note.ID), slog.String("status", string(note.Status)))
		if err := s.pushNote(ctx, session, note); err != nil {
			if errors.Is(err, apperr.ErrNotModified) {
				// Success with nothing to merge.
				continue
			}
			if errors.Is(err, apperr.ErrAuthMismatch) {
				s.creds.Invalidate(account.ID)
			}
			s.logger.Warn("sync: push note failed", slog.Int64("id", note.ID), slog.String("error", err.Error()))
			*errs = append(*errs, err)
			success = false
		}
	}
	return success
}

// pushNote reconciles one dirty note with the server, dispatching on its
// status.
func (s *Syncer) pushNote(ctx context.Context, session remote.Session, note models.Note) error {
	switch note.Status {
	case models.StatusLocallyEdited:
		var confirmed *models.RemoteNote
		var err error
		if note.RemoteID != 0 {
			confirmed, err = s.client.Edit(ctx, session, note)
			if errors.Is(err, apperr.ErrNotFound) {
				// Deleted out-of-band on the server; recreate instead of failing.
				s.logger.Debug("sync: note gone on server, recreating", slog.Int64("id", note.ID))
				confirmed, err = s.create(ctx, session, note)
			}
		} else {
			confirmed, err = s.create(ctx, session, note)
		}
		if err != nil {
			return err
		}

		// Optimistic merge: the confirmed server values apply only while the
		// row still carries the content snapshot that was actually sent.
		applied, err := s.store.UpdateIfUnchanged(note.ID, *confirmed,
			excerpt.Generate(confirmed.Content, confirmed.Title), note)
		if err != nil {
			return err
		}
		if !applied {
			s.logger.Debug("sync: note changed during round trip, merge skipped", slog.Int64("id", note.ID))
		}
		return nil

	case models.StatusLocallyDeleted:
		if note.RemoteID != 0 {
			err := s.client.Delete(ctx, session, note.RemoteID)
			if err != nil && !errors.Is(err, apperr.ErrNotFound) {
				// Not-found means it is already gone; anything else fails
				// this note only.
				return err
			}
		}
		// Remove the row unless it was re-dirtied while the delete was in
		// flight.
		applied, err := s.store.DeleteIfUnchanged(note.ID)
		if err != nil {
			return err
		}
		if !applied {
			s.logger.Debug("sync: note edited during delete, row kept", slog.Int64("id", note.ID))
		}
		return nil

	default:
		return fmt.Errorf("%w: %q on %s", apperr.ErrInvalidStatus, note.Status, note)
	}
}

// create uploads a brand-new note and records the assigned remote id.
func (s *Syncer) create(ctx context.Context, session remote.Session, note models.Note) (*models.RemoteNote, error) {
	confirmed, err := s.client.Create(ctx, session, note)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetRemoteID(note.ID, confirmed.RemoteID); err != nil {
		return nil, err
	}
	return confirmed, nil
}

// pullRemoteChanges fetches the incremental delta and merges it into the
// store. The watermark advances only when the whole listing was processed.
func (s *Syncer) pullRemoteChanges(ctx context.Context, account models.Account, session remote.Session, errs *[]error) bool {
	// Snapshot before issuing the request; push ran first in this pass, so
	// the map reflects its outcome.
	idMap, err := s.store.RemoteIDMap(account.ID)
	if err != nil {
		*errs = append(*errs, err)
		return false
	}

	response, err := s.client.List(ctx, session, account.Modified, account.ETag)
	if err != nil {
		if errors.Is(err, apperr.ErrNotModified) {
			s.logger.Debug("sync: listing not modified", slog.Int64("account", account.ID))
			return true
		}
		if errors.Is(err, apperr.ErrAuthMismatch) {
			s.creds.Invalidate(account.ID)
		}
		*errs = append(*errs, err)
		return false
	}

	seen := make(map[int64]struct{}, len(response.Notes))
	for _, rn := range response.Notes {
		seen[rn.RemoteID] = struct{}{}
		if rn.Modified.IsZero() {
			// Unchanged placeholder; the server confirms existence only.
			continue
		}
		if localID, ok := idMap[rn.RemoteID]; ok {
			if _, err := s.store.ApplyRemote(localID, rn, excerpt.Generate(rn.Content, rn.Title)); err != nil {
				*errs = append(*errs, err)
				return false
			}
		} else {
			if _, err := s.store.CreateFromRemote(account.ID, rn, excerpt.Generate(rn.Content, rn.Title)); err != nil {
				*errs = append(*errs, err)
				return false
			}
		}
	}

	// Everything known locally but absent from the fresh listing was deleted
	// remotely. Local edits were already resolved by the push phase.
	for remoteID, localID := range idMap {
		if _, ok := seen[remoteID]; !ok {
			s.logger.Debug("sync: note deleted remotely", slog.Int64("id", localID))
			if err := s.store.DeleteNote(localID); err != nil {
				*errs = append(*errs, err)
				return false
			}
		}
	}

	if err := s.store.UpdateETag(account.ID, response.ETag); err != nil {
		*errs = append(*errs, err)
		return false
	}
	if err := s.store.UpdateModified(account.ID, response.LastModified); err != nil {
		*errs = append(*errs, err)
		return false
	}
	// A failed API version update is captured but does not fail the pull.
	if _, err := s.store.UpdateAPIVersion(account.ID, response.APIVersion); err != nil {
		*errs = append(*errs, err)
	}
	return true
}
