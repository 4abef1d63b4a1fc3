package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/averlund/orion/internal/apperr"
	"github.com/averlund/orion/internal/archive"
	"github.com/averlund/orion/internal/indexfile"
	"github.com/averlund/orion/internal/models"
	"github.com/averlund/orion/internal/paraservice"
	"github.com/averlund/orion/internal/search"
	"github.com/averlund/orion/internal/sse"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *paraservice.Service
	broker *sse.Broker
}

// NewHandler creates a new Handler. broker may be nil when SSE is disabled.
func NewHandler(svc *paraservice.Service, broker *sse.Broker) *Handler {
	return &Handler{svc: svc, broker: broker}
}

// entityAddress extracts the logical address from the URL (everything
// after /api/entities/). Supports encoded slashes from OpenAPI clients
// (e.g. projects%2Fp1%2F_meta).
func entityAddress(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch apperr.CodeOf(err) {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeValidationError, apperr.CodeParseError,
		apperr.CodeInvalidCategory, apperr.CodeNotParaPath:
		return http.StatusBadRequest
	case apperr.CodeNotArchivable, apperr.CodeAlreadyArchived:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders an error with its taxonomy code. Internal errors are
// logged and masked.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, status, errorBody(string(apperr.CodeOf(err)), "internal error"))
		return
	}
	writeJSON(w, status, errorBody(string(apperr.CodeOf(err)), err.Error()))
}

func (h *Handler) publish(kind, path string) {
	if h.broker != nil {
		h.broker.PublishEntityEvent(kind, path)
	}
}

// Resolve handles GET /api/resolve.
//
//	@Summary		Resolve a logical address to its physical path
//	@Tags			resolver
//	@Produce		json
//	@Param			address	query		string	true	"Logical address (para://..., namespace-rooted, or category-relative)"
//	@Success		200		{object}	ResolveResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [get]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	if address == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("BAD_REQUEST", "query parameter 'address' is required"))
		return
	}
	res, err := h.svc.Resolve(r.Context(), address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListEntities handles GET /api/entities.
//
//	@Summary		List entities with optional pagination and category filter
//	@Tags			entities
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			category	query		string	false	"Filter by category"
//	@Success		200			{object}	EntityListResponse
//	@Security		BearerAuth
//	@Router			/entities [get]
func (h *Handler) ListEntities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.ListEntities(r.Context(), q.Get("category"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := EntityListResponse{Entities: make([]EntityListItem, len(items)), Total: total}
	for i, row := range items {
		resp.Entities[i] = EntityListItem{
			Path:      row.Path,
			Category:  row.Category,
			ID:        row.EntityID,
			Title:     row.Title,
			Status:    row.Status,
			Checksum:  row.Checksum,
			UpdatedAt: row.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetEntity handles GET /api/entities/*.
//
//	@Summary		Get a single entity by logical address
//	@Tags			entities
//	@Produce		json
//	@Param			address	path		string	true	"Logical address"
//	@Success		200		{object}	EntityDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{address} [get]
func (h *Handler) GetEntity(w http.ResponseWriter, r *http.Request) {
	address := entityAddress(r)
	if address == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("BAD_REQUEST", "address is required"))
		return
	}
	detail, err := h.svc.GetEntity(r.Context(), address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// PutEntity handles PUT /api/entities/*.
//
//	@Summary		Create or update an entity (atomic write with backup)
//	@Tags			entities
//	@Accept			json
//	@Produce		json
//	@Param			address	path		string				true	"Logical address"
//	@Param			body	body		PutEntityRequest	true	"Entity YAML content"
//	@Success		200		{object}	EntityDetail
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{address} [put]
func (h *Handler) PutEntity(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	address := entityAddress(r)
	if address == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("BAD_REQUEST", "address is required"))
		return
	}
	var req PutEntityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("BAD_REQUEST", "invalid JSON body"))
		return
	}
	if req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("BAD_REQUEST", "content is required"))
		return
	}

	detail, err := h.svc.PutEntity(r.Context(), address, []byte(req.Content))
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish("updated", detail.Path)
	writeJSON(w, http.StatusOK, detail)
}

// DeleteEntity handles DELETE /api/entities/*.
//
//	@Summary		Delete an entity (backup kept, index filtered)
//	@Tags			entities
//	@Param			address	path	string	true	"Logical address"
//	@Success		204		"Entity deleted"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/entities/{address} [delete]
func (h *Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	address := entityAddress(r)
	if address == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("BAD_REQUEST", "address is required"))
		return
	}
	path, err := h.svc.DeleteEntity(r.Context(), address)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish("deleted", path)
	w.WriteHeader(http.StatusNoContent)
}

// ArchiveProject handles POST /api/archive/projects.
//
//	@Summary		Archive a completed project under Archive/projects/YYYY-MM/
//	@Tags			archive
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ArchiveRequest	true	"Project to archive"
//	@Success		200		{object}	archive.Result
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/archive/projects [post]
func (h *Handler) ArchiveProject(w http.ResponseWriter, r *http.Request) {
	h.archiveEntity(w, r, h.svc.ArchiveProject)
}

// ArchiveArea handles POST /api/archive/areas.
//
//	@Summary		Archive a dormant area under Archive/areas/YYYY-MM/
//	@Tags			archive
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ArchiveRequest	true	"Area to archive"
//	@Success		200		{object}	archive.Result
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/archive/areas [post]
func (h *Handler) ArchiveArea(w http.ResponseWriter, r *http.Request) {
	h.archiveEntity(w, r, h.svc.ArchiveArea)
}

func (h *Handler) archiveEntity(w http.ResponseWriter, r *http.Request,
	do func(ctx context.Context, address string, opts ...archive.Option) (*archive.Result, error),
) {
	var req ArchiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("BAD_REQUEST", "invalid JSON body"))
		return
	}
	if req.Address == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("BAD_REQUEST", "address is required"))
		return
	}
	var opts []archive.Option
	if req.Reason != "" {
		opts = append(opts, archive.WithReason(req.Reason))
	}
	res, err := do(r.Context(), req.Address, opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	h.publish("archived", res.ArchivedTo)
	writeJSON(w, http.StatusOK, res)
}

// CaptureInbox handles POST /api/inbox.
//
//	@Summary		Capture an item into the inbox queue
//	@Tags			inbox
//	@Accept			json
//	@Produce		json
//	@Param			body	body		InboxRequest	true	"Item to capture"
//	@Success		201		{object}	models.InboxItem
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/inbox [post]
func (h *Handler) CaptureInbox(w http.ResponseWriter, r *http.Request) {
	var req InboxRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("BAD_REQUEST", "invalid JSON body"))
		return
	}
	item, err := h.svc.CaptureInbox(r.Context(), models.InboxItem{
		ID:    req.ID,
		Title: req.Title,
		Notes: req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// GetInbox handles GET /api/inbox.
//
//	@Summary		Read the inbox queue document
//	@Tags			inbox
//	@Produce		json
//	@Success		200	{object}	InboxResponse
//	@Security		BearerAuth
//	@Router			/inbox [get]
func (h *Handler) GetInbox(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Inbox(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	items := doc.Entries
	if items == nil {
		items = []indexfile.Entry{}
	}
	writeJSON(w, http.StatusOK, InboxResponse{
		Version:   doc.Version,
		UpdatedAt: doc.UpdatedAt,
		Items:     items,
	})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across entities
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("BAD_REQUEST", "query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}
