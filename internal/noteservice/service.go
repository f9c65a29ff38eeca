// Package noteservice implements the local editing operations offered to
// the UI surfaces (REST, MCP). Writes only mutate the local store and mark
// rows dirty; the sync engine owns every remote call.
package noteservice

import (
	"context"
	"strings"
	"time"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/excerpt"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/store"
)

// Service coordinates local note edits against the store.
type Service struct {
	store    store.Store
	onChange func(models.Note)
}

// NewService creates a new note service.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// SetChangeListener registers an observer for every local write. Must be
// called before the service is handed to the API surfaces.
func (s *Service) SetChangeListener(fn func(models.Note)) {
	s.onChange = fn
}

func (s *Service) notify(note models.Note) {
	if s.onChange != nil {
		s.onChange(note)
	}
}

// CreateNote creates a new local note with status LocallyEdited. An empty
// title is derived from the first content line.
func (s *Service) CreateNote(_ context.Context, accountID int64, title, category, content string, favorite bool) (*models.Note, error) {
	title = nonEmptyTitle(title, content)
	note := models.Note{
		AccountID: accountID,
		Status:    models.StatusLocallyEdited,
		Title:     title,
		Category:  category,
		Content:   content,
		Excerpt:   excerpt.Generate(content, title),
		Favorite:  favorite,
		Modified:  time.Now().UTC(),
	}
	id, err := s.store.CreateNote(note)
	if err != nil {
		return nil, err
	}
	created, err := s.store.GetNote(id)
	if err != nil {
		return nil, err
	}
	s.notify(*created)
	return created, nil
}

// UpdateNote overwrites a note's editable fields and re-dirties it.
func (s *Service) UpdateNote(_ context.Context, noteID int64, title, category, content string, favorite bool) (*models.Note, error) {
	note, err := s.store.GetNote(noteID)
	if err != nil {
		return nil, err
	}
	note.Title = nonEmptyTitle(title, content)
	note.Category = category
	note.Content = content
	note.Excerpt = excerpt.Generate(content, note.Title)
	note.Favorite = favorite
	note.Modified = time.Now().UTC()
	if err := s.store.UpdateNote(*note); err != nil {
		return nil, err
	}
	updated, err := s.store.GetNote(noteID)
	if err != nil {
		return nil, err
	}
	s.notify(*updated)
	return updated, nil
}

// ToggleFavorite flips the favorite flag, re-dirtying the note.
func (s *Service) ToggleFavorite(ctx context.Context, noteID int64) (*models.Note, error) {
	note, err := s.store.GetNote(noteID)
	if err != nil {
		return nil, err
	}
	return s.UpdateNote(ctx, noteID, note.Title, note.Category, note.Content, !note.Favorite)
}

// DeleteNote marks a note for deletion. The row stays until the next push
// confirms the remote delete (or finds nothing was ever uploaded).
func (s *Service) DeleteNote(_ context.Context, noteID int64) error {
	note, err := s.store.GetNote(noteID)
	if err != nil {
		return err
	}
	if err := s.store.MarkDeleted(noteID); err != nil {
		return err
	}
	note.Status = models.StatusLocallyDeleted
	s.notify(*note)
	return nil
}

// GetNote returns a single note by local id.
func (s *Service) GetNote(_ context.Context, noteID int64) (*models.Note, error) {
	return s.store.GetNote(noteID)
}

// ListNotes returns the account's notes, optionally filtered by category.
func (s *Service) ListNotes(_ context.Context, accountID int64, category string) ([]models.Note, error) {
	return s.store.ListNotes(accountID, category)
}

// Search performs a full-text search over the account's notes.
func (s *Service) Search(_ context.Context, accountID int64, query string, limit int) ([]models.Note, error) {
	return s.store.Search(accountID, query, limit)
}

// nonEmptyTitle falls back to the first non-blank content line when no
// explicit title is given.
func nonEmptyTitle(title, content string) string {
	title = strings.TrimSpace(title)
	if title != "" {
		return title
	}
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line != "" {
			return line
		}
	}
	return "New note"
}
