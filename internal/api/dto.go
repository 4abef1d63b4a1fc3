package api

import (
	"time"

	"github.com/averlund/orion/internal/indexfile"
	"github.com/averlund/orion/internal/paraservice"
)

// PutEntityRequest is the request body for creating or updating an entity.
type PutEntityRequest struct {
	Content string `json:"content" example:"id: proj_1\ntitle: Launch\nstatus: active" validate:"required"`
}

// ArchiveRequest asks for a project or area to be archived.
type ArchiveRequest struct {
	Address string `json:"address" example:"para://projects/website-redesign" validate:"required"`
	Reason  string `json:"reason,omitempty" example:"manual"`
}

// InboxRequest is the request body for capturing an inbox item.
type InboxRequest struct {
	ID    string `json:"id" example:"in_20250615_01" validate:"required"`
	Title string `json:"title" example:"Call dentist" validate:"required"`
	Notes string `json:"notes,omitempty"`
}

// ResolveResponse is the resolution answer (aliased from the domain layer).
type ResolveResponse = paraservice.ResolveResult

// EntityDetail is the full entity response type (aliased from the domain layer).
type EntityDetail = paraservice.EntityDetail

// EntityListItem is a lightweight item in a list response.
type EntityListItem struct {
	Path      string    `json:"path" example:"Orion/Projects/p1/_meta.yaml"`
	Category  string    `json:"category" example:"projects"`
	ID        string    `json:"id" example:"proj_1"`
	Title     string    `json:"title" example:"Launch"`
	Status    string    `json:"status,omitempty" example:"active"`
	Checksum  string    `json:"checksum" example:"abc123..."`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityListResponse wraps paginated entity listings.
type EntityListResponse struct {
	Entities []EntityListItem `json:"entities" validate:"required"`
	Total    int              `json:"total" example:"42" validate:"required"`
}

// InboxResponse wraps the inbox queue document.
type InboxResponse struct {
	Version   int               `json:"version" example:"3"`
	UpdatedAt time.Time         `json:"updated_at"`
	Items     []indexfile.Entry `json:"items"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"Orion/Resources/notes/hello.yaml" validate:"required"`
	Title   string `json:"title" example:"Hello" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}
