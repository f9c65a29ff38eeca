package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/apperr"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/models"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/noteservice"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/store"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/sync"
)

// Handler holds API route handlers.
type Handler struct {
	svc   *noteservice.Service
	store store.Store
	coord *sync.Coordinator
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, st store.Store, coord *sync.Coordinator) *Handler {
	return &Handler{svc: svc, store: st, coord: coord}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

// ListAccounts handles GET /accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, _ *http.Request) {
	accounts, err := h.store.ListAccounts()
	if err != nil {
		slog.Error("list accounts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if accounts == nil {
		accounts = []models.Account{}
	}
	writeJSON(w, http.StatusOK, AccountListResponse{Accounts: accounts})
}

// ListNotes handles GET /accounts/{accountID}/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(r, "accountID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid account id"))
		return
	}
	notes, err := h.svc.ListNotes(r.Context(), accountID, r.URL.Query().Get("category"))
	if err != nil {
		slog.Error("list notes failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// CreateNote handles POST /accounts/{accountID}/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(r, "accountID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid account id"))
		return
	}
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Content == "" && req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title or content is required"))
		return
	}
	note, err := h.svc.CreateNote(r.Context(), accountID, req.Title, req.Category, req.Content, req.Favorite)
	if err != nil {
		slog.Error("create note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// GetNote handles GET /notes/{noteID}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := pathID(r, "noteID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	note, err := h.svc.GetNote(r.Context(), noteID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
			return
		}
		slog.Error("get note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// UpdateNote handles PUT /notes/{noteID}.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := pathID(r, "noteID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	var req UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), noteID, req.Title, req.Category, req.Content, req.Favorite)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
			return
		}
		slog.Error("update note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /notes/{noteID}. The note is only marked for
// deletion; the next sync pass confirms it remotely.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	noteID, ok := pathID(r, "noteID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid note id"))
		return
	}
	if err := h.svc.DeleteNote(r.Context(), noteID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("note not found"))
			return
		}
		slog.Error("delete note failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /accounts/{accountID}/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(r, "accountID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid account id"))
		return
	}
	query := r.URL.Query().Get("q")
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notes, err := h.svc.Search(r.Context(), accountID, query, limit)
	if err != nil {
		slog.Error("search failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if notes == nil {
		notes = []models.Note{}
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: notes, Total: len(notes)})
}

// TriggerSync handles POST /accounts/{accountID}/sync. By default the pass
// runs in the background and 202 is returned; with ?wait=true the handler
// blocks and returns the aggregated result.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(r, "accountID")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid account id"))
		return
	}
	if _, err := h.store.GetAccount(accountID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("account not found"))
			return
		}
		slog.Error("resolve account failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	pushOnly := r.URL.Query().Get("push_only") == "true"

	if r.URL.Query().Get("wait") != "true" {
		h.coord.RunSync(accountID, pushOnly, nil)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	done := make(chan models.SyncResult, 1)
	h.coord.RunSync(accountID, pushOnly, func(result models.SyncResult) { done <- result })
	select {
	case result := <-done:
		writeJSON(w, http.StatusOK, newSyncResponse(result))
	case <-r.Context().Done():
		// The pass keeps running; only the waiting client went away.
	}
}
