package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stefan-niedermann/OwnCloud-Notes/internal/noteservice"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/store"
	"github.com/stefan-niedermann/OwnCloud-Notes/internal/sync"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, st store.Store, coord *sync.Coordinator, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, st, coord)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Accounts.
	r.Get("/accounts", h.ListAccounts)

	// Notes CRUD (writes only mark rows dirty; sync uploads them).
	r.Get("/accounts/{accountID}/notes", h.ListNotes)
	r.Post("/accounts/{accountID}/notes", h.CreateNote)
	r.Get("/notes/{noteID}", h.GetNote)
	r.Put("/notes/{noteID}", h.UpdateNote)
	r.Delete("/notes/{noteID}", h.DeleteNote)

	// Search.
	r.Get("/accounts/{accountID}/search", h.Search)

	// Sync trigger.
	r.Post("/accounts/{accountID}/sync", h.TriggerSync)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
