package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/averlund/orion/internal/paraservice"
	"github.com/averlund/orion/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, serves GET /events and receives entity change
// events from the mutating handlers.
func NewRouter(svc *paraservice.Service, authEnabled bool, token string, broker *sse.Broker) chi.Router {
	h := NewHandler(svc, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Path resolution.
	r.Get("/resolve", h.Resolve)

	// Entity CRUD.
	r.Get("/entities", h.ListEntities)
	r.Get("/entities/*", h.GetEntity)
	r.Put("/entities/*", h.PutEntity)
	r.Delete("/entities/*", h.DeleteEntity)

	// Archival.
	r.Post("/archive/projects", h.ArchiveProject)
	r.Post("/archive/areas", h.ArchiveArea)

	// Inbox capture.
	r.Get("/inbox", h.GetInbox)
	r.Post("/inbox", h.CaptureInbox)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by the same auth middleware).
	if broker != nil {
		r.Get("/events", broker.ServeHTTP)
	}

	return r
}
