// Package paraservice coordinates the resolver, the entity store, the
// archival engine, and the search index behind one API used by the HTTP
// handlers and the MCP server.
package paraservice

import (
	"context"
	"path"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/averlund/orion/internal/apperr"
	"github.com/averlund/orion/internal/archive"
	"github.com/averlund/orion/internal/entity"
	"github.com/averlund/orion/internal/indexfile"
	"github.com/averlund/orion/internal/models"
	"github.com/averlund/orion/internal/para"
	"github.com/averlund/orion/internal/search"
	"github.com/averlund/orion/internal/vault"
)

// ResolveResult is the answer to a path resolution request.
type ResolveResult struct {
	Address  string `json:"address"`
	Path     string `json:"path"`
	Category string `json:"category"`
}

// EntityDetail is the full representation of a stored entity.
type EntityDetail struct {
	Address   string    `json:"address"`
	Path      string    `json:"path"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Service coordinates namespace operations.
type Service struct {
	fs       vault.Provider
	store    *entity.Store
	engine   *archive.Engine
	resolver *para.Resolver
	db       *search.DB
}

// NewService creates a service. db may be nil when the search index is
// disabled; search and list operations then fail with FS_ERROR.
func NewService(fs vault.Provider, store *entity.Store, engine *archive.Engine, db *search.DB) *Service {
	return &Service{
		fs:       fs,
		store:    store,
		engine:   engine,
		resolver: store.Resolver(),
		db:       db,
	}
}

// Resolve translates a logical address to its physical path and category.
func (s *Service) Resolve(_ context.Context, address string) (*ResolveResult, error) {
	p, err := s.resolver.Resolve(address)
	if err != nil {
		return nil, err
	}
	res := &ResolveResult{Address: address, Path: p}
	if cat, catErr := s.resolver.CategoryOfPath(p); catErr == nil {
		res.Category = string(cat)
	}
	return res, nil
}

// GetEntity reads and validates the entity at a logical address and
// returns it with its raw content and checksum.
func (s *Service) GetEntity(_ context.Context, address string) (*EntityDetail, error) {
	p, err := s.resolver.Resolve(address)
	if err != nil {
		return nil, err
	}

	ok, err := s.fs.Exists(p)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFSError, err, "check %s", p)
	}
	if !ok {
		return nil, apperr.E(apperr.CodeNotFound, "entity not found: %s", p)
	}
	data, err := s.fs.Read(p)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeReadError, err, "read %s", p)
	}

	cat, _ := s.resolver.CategoryOfPath(p)
	if _, err := s.decode(cat, p, data); err != nil {
		return nil, err
	}
	return s.buildDetail(p, cat, data), nil
}

// PutEntity parses content against the category schema for the address,
// then persists it through the store's atomic write path (backup on
// overwrite, category index upsert). The stored form is the normalized
// re-serialization of the typed entity.
func (s *Service) PutEntity(_ context.Context, address string, content []byte) (*EntityDetail, error) {
	p, err := s.resolver.Resolve(address)
	if err != nil {
		return nil, err
	}
	cat, err := s.resolver.CategoryOfPath(p)
	if err != nil {
		return nil, err
	}

	e, err := s.decode(cat, p, content)
	if err != nil {
		return nil, err
	}
	if err := s.store.Write(p, e); err != nil {
		return nil, err
	}

	stored, err := s.fs.Read(p)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeReadError, err, "read back %s", p)
	}
	s.reindex(p, stored)
	return s.buildDetail(p, cat, stored), nil
}

// DeleteEntity removes the entity at a logical address, keeping a backup
// and filtering the category index.
func (s *Service) DeleteEntity(_ context.Context, address string) (string, error) {
	p, err := s.resolver.Resolve(address)
	if err != nil {
		return "", err
	}
	if err := s.store.Delete(p); err != nil {
		return "", err
	}
	if s.db != nil {
		_ = s.db.Delete(p)
	}
	return p, nil
}

// ArchiveProject reads the project behind the address and relocates its
// directory under Archive/projects/<YYYY-MM>/.
func (s *Service) ArchiveProject(_ context.Context, address string, opts ...archive.Option) (*archive.Result, error) {
	dir, metaPath, err := s.entityDir(address)
	if err != nil {
		return nil, err
	}
	p, err := entity.Read[models.Project](s.store, metaPath)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.ArchiveProject(p, dir, opts...)
	if err != nil {
		return nil, err
	}
	if s.db != nil {
		_ = s.db.Delete(metaPath)
	}
	return res, nil
}

// ArchiveArea reads the area behind the address and relocates its
// directory under Archive/areas/<YYYY-MM>/.
func (s *Service) ArchiveArea(_ context.Context, address string, opts ...archive.Option) (*archive.Result, error) {
	dir, metaPath, err := s.entityDir(address)
	if err != nil {
		return nil, err
	}
	a, err := entity.Read[models.Area](s.store, metaPath)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.ArchiveArea(a, dir, opts...)
	if err != nil {
		return nil, err
	}
	if s.db != nil {
		_ = s.db.Delete(metaPath)
	}
	return res, nil
}

// CaptureInbox appends a captured item to the inbox queue document.
func (s *Service) CaptureInbox(_ context.Context, item models.InboxItem) (*models.InboxItem, error) {
	if item.CapturedAt.IsZero() {
		item.CapturedAt = time.Now().UTC()
	}
	if err := item.Validate(); err != nil {
		return nil, apperr.Wrap(apperr.CodeValidationError, err, "validate inbox item %s", item.ID)
	}
	err := s.store.UpdateIndex(para.Inbox, func(doc *indexfile.Document) {
		doc.Upsert(indexfile.Entry{
			"id":          item.ID,
			"title":       item.Title,
			"notes":       item.Notes,
			"captured_at": item.CapturedAt.Format(time.RFC3339),
		})
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Inbox returns the current inbox queue document.
func (s *Service) Inbox(_ context.Context) (*indexfile.Document, error) {
	return s.store.ReadIndex(para.Inbox)
}

// ListEntities returns paginated entity summaries from the search index,
// optionally filtered by category.
func (s *Service) ListEntities(_ context.Context, category string, limit, offset int) ([]search.EntityRow, int, error) {
	if s.db == nil {
		return nil, 0, apperr.E(apperr.CodeFSError, "search index is disabled")
	}
	if category != "" {
		cat, err := para.ParseCategory(category)
		if err != nil {
			return nil, 0, err
		}
		category = string(cat)
	}
	return s.db.List(category, limit, offset)
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]search.Result, error) {
	if s.db == nil {
		return nil, apperr.E(apperr.CodeFSError, "search index is disabled")
	}
	return s.db.Search(query, limit)
}

// decode unmarshals data into the category's typed entity and validates
// it. Categories without a typed schema are rejected.
func (s *Service) decode(cat para.Category, p string, data []byte) (models.Entity, error) {
	proto, ok := models.ForCategory(cat)
	if !ok {
		return nil, apperr.E(apperr.CodeInvalidCategory, "category %q does not hold single entities", cat)
	}
	if err := yaml.Unmarshal(data, proto); err != nil {
		return nil, apperr.Wrap(apperr.CodeParseError, err, "parse %s", p)
	}
	if v, ok := proto.(entity.Validator); ok {
		if err := v.Validate(); err != nil {
			return nil, apperr.Wrap(apperr.CodeValidationError, err, "validate %s", p)
		}
	}
	return proto, nil
}

// entityDir maps an address to the entity directory and its _meta.yaml
// path. Both "projects/p1" and "projects/p1/_meta" forms are accepted.
func (s *Service) entityDir(address string) (dir, metaPath string, err error) {
	p, err := s.resolver.Resolve(address)
	if err != nil {
		return "", "", err
	}
	if strings.HasSuffix(p, "/_meta"+para.Extension) {
		return path.Dir(p), p, nil
	}
	dir = strings.TrimSuffix(p, para.Extension)
	return dir, dir + "/_meta" + para.Extension, nil
}

func (s *Service) buildDetail(p string, cat para.Category, data []byte) *EntityDetail {
	d := &EntityDetail{
		Path:     p,
		Category: string(cat),
		Content:  string(data),
		Checksum: vault.Checksum(data),
	}
	if addr, err := s.resolver.ToLogicalAddress(p); err == nil {
		d.Address = addr
	}
	var m map[string]any
	if yaml.Unmarshal(data, &m) == nil {
		switch v := m["updated_at"].(type) {
		case time.Time:
			d.UpdatedAt = v
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				d.UpdatedAt = t
			}
		}
	}
	return d
}

// reindex upserts a stored entity into the search index. Best-effort:
// the index is a derivable cache and sync repairs any gap.
func (s *Service) reindex(p string, data []byte) {
	if s.db == nil {
		return
	}
	var m map[string]any
	_ = yaml.Unmarshal(data, &m)
	row := search.EntityRow{
		Path:      p,
		Checksum:  vault.Checksum(data),
		UpdatedAt: time.Now().UTC(),
	}
	if id, ok := m["id"].(string); ok {
		row.EntityID = id
	}
	if title, ok := m["title"].(string); ok {
		row.Title = title
	} else if name, ok := m["name"].(string); ok {
		row.Title = name
	}
	if status, ok := m["status"].(string); ok {
		row.Status = status
	}
	if cat, err := s.resolver.CategoryOfPath(p); err == nil {
		row.Category = string(cat)
	}
	_ = s.db.Upsert(row, string(data))
}
