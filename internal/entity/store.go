// Package entity implements the persistence primitives for single entity
// files: validated reads, atomic writes with backup and best-effort index
// synchronization, and deletes that keep the category index in step.
//
// Atomicity discipline: the destination file is only ever reached through
// one rename of a fully written temporary file, so readers never observe
// a partially written entity. Category indexes are a derivable cache of
// the entity files; their maintenance here is best-effort by design (the
// archival engine in internal/archive holds its index to a stricter
// rollback discipline).
package entity

import (
	"log/slog"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/averlund/orion/internal/apperr"
	"github.com/averlund/orion/internal/indexfile"
	"github.com/averlund/orion/internal/models"
	"github.com/averlund/orion/internal/para"
	"github.com/averlund/orion/internal/vault"
)

// Validator is implemented by entities carrying their own schema.
type Validator interface {
	Validate() error
}

// Suffixes of write artifacts.
const (
	BackupSuffix = ".bak"
	TempSuffix   = ".tmp"
)

// indexRetries bounds the optimistic retry loop for index read-modify-write.
const indexRetries = 3

// Store reads, writes, and deletes entity files within one namespace.
type Store struct {
	fs       vault.Provider
	resolver *para.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// NewStore creates a store over the given provider and resolver.
func NewStore(fs vault.Provider, resolver *para.Resolver, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{fs: fs, resolver: resolver, logger: logger, now: time.Now}
}

// Resolver returns the store's path resolver.
func (s *Store) Resolver() *para.Resolver { return s.resolver }

// Read loads the entity file at path into T. Absence is NOT_FOUND, parse
// failure is PARSE_ERROR, and schema mismatch is VALIDATION_ERROR; the
// underlying failure is preserved as the cause in every case.
func Read[T any](s *Store, path string, opts ...Option) (*T, error) {
	o := newOptions(opts)

	ok, err := s.fs.Exists(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFSError, err, "check %s", path)
	}
	if !ok {
		return nil, apperr.E(apperr.CodeNotFound, "entity not found: %s", path)
	}

	data, err := s.fs.Read(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeReadError, err, "read %s", path)
	}

	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, apperr.Wrap(apperr.CodeParseError, err, "parse %s", path)
	}

	if o.validate {
		if val, ok := any(&v).(Validator); ok {
			if err := val.Validate(); err != nil {
				return nil, apperr.Wrap(apperr.CodeValidationError, err, "validate %s", path)
			}
		}
	}
	return &v, nil
}

// Write persists e at path. Steps, in order, each failure short-circuiting
// with its own code: validate (VALIDATION_ERROR), existence check
// (FS_ERROR), backup of the prior version (BACKUP_ERROR, overwrites only),
// temp-file write (WRITE_ERROR), atomic rename (RENAME_ERROR), then a
// best-effort category index upsert whose failure is logged, not returned.
func (s *Store) Write(path string, e models.Entity, opts ...Option) error {
	o := newOptions(opts)

	if o.validate {
		if val, ok := e.(Validator); ok {
			if err := val.Validate(); err != nil {
				return apperr.Wrap(apperr.CodeValidationError, err, "validate %s", path)
			}
		}
	}

	exists, err := s.fs.Exists(path)
	if err != nil {
		return apperr.Wrap(apperr.CodeFSError, err, "check %s", path)
	}

	if exists && o.createBackup {
		if err := s.fs.Copy(path, path+BackupSuffix); err != nil {
			return apperr.Wrap(apperr.CodeBackupError, err, "backup %s", path)
		}
	}

	data, err := yaml.Marshal(e)
	if err != nil {
		return apperr.Wrap(apperr.CodeWriteError, err, "serialize %s", path)
	}
	if err := s.atomicWrite(path, data); err != nil {
		return err
	}

	if o.updateIndex {
		s.syncIndex(path, e, data)
	}
	return nil
}

// Delete removes the entity file at path. The entity id is captured
// before removal so the category index can be filtered afterwards; both
// the capture and the index rewrite are best-effort.
func (s *Store) Delete(path string, opts ...Option) error {
	o := newOptions(opts)

	exists, err := s.fs.Exists(path)
	if err != nil {
		return apperr.Wrap(apperr.CodeFSError, err, "check %s", path)
	}
	if !exists {
		return apperr.E(apperr.CodeNotFound, "entity not found: %s", path)
	}

	var id string
	if o.removeFromIndex {
		// Failure to read the id just skips index removal.
		if data, readErr := s.fs.Read(path); readErr == nil {
			var m map[string]any
			if yaml.Unmarshal(data, &m) == nil {
				id, _ = m["id"].(string)
			}
		}
	}

	if o.createBackup {
		if err := s.fs.Copy(path, path+BackupSuffix); err != nil {
			return apperr.Wrap(apperr.CodeBackupError, err, "backup %s", path)
		}
	}

	if err := s.fs.Remove(path); err != nil {
		return apperr.Wrap(apperr.CodeDeleteError, err, "delete %s", path)
	}

	if id != "" && o.removeFromIndex {
		cat, catErr := s.resolver.CategoryOfPath(path)
		if catErr != nil {
			return nil
		}
		if err := s.UpdateIndex(cat, func(doc *indexfile.Document) {
			doc.Remove(id)
		}); err != nil {
			s.logger.Warn("index removal failed",
				slog.String("path", path),
				slog.String("id", id),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// atomicWrite writes data to path through a temporary file and one rename.
// The temporary artifact is removed on every failure path.
func (s *Store) atomicWrite(path string, data []byte) error {
	tmp := path + TempSuffix
	if err := s.fs.Write(tmp, data); err != nil {
		return apperr.Wrap(apperr.CodeWriteError, err, "write temp for %s", path)
	}
	success := false
	defer func() {
		if !success {
			_ = s.fs.Remove(tmp)
		}
	}()
	if err := s.fs.Rename(tmp, path); err != nil {
		return apperr.Wrap(apperr.CodeRenameError, err, "rename into %s", path)
	}
	success = true
	return nil
}

// syncIndex upserts the entity's summary into its category index.
// Best-effort: failure is logged and swallowed so an otherwise successful
// write is not failed by a lagging cache.
func (s *Store) syncIndex(path string, e models.Entity, data []byte) {
	cat, err := s.resolver.CategoryOfPath(path)
	if err != nil || cat == para.Archive {
		return
	}
	entry := indexEntry(e, data)
	if err := s.UpdateIndex(cat, func(doc *indexfile.Document) {
		doc.Upsert(entry)
	}); err != nil {
		s.logger.Warn("index update failed",
			slog.String("path", path),
			slog.String("category", string(cat)),
			slog.String("error", err.Error()))
	}
}

// UpdateIndex applies mutate to the category's index document under an
// optimistic version check: the document version observed at load time
// must still be on disk just before the rename, otherwise the
// read-modify-write is retried. The rewritten index bumps version and
// updated_at and lands via the same temp-then-rename sequence as entities.
func (s *Store) UpdateIndex(cat para.Category, mutate func(*indexfile.Document)) error {
	indexPath := s.resolver.IndexPathFor(cat)

	for attempt := 0; attempt < indexRetries; attempt++ {
		doc, observed, err := s.loadIndex(indexPath, cat.ListKey())
		if err != nil {
			return err
		}

		mutate(doc)
		doc.Version = observed + 1
		doc.UpdatedAt = s.now().UTC()

		data, err := doc.Encode()
		if err != nil {
			return apperr.Wrap(apperr.CodeWriteError, err, "encode index %s", indexPath)
		}

		// Compare-and-swap: someone else bumped the version since we read.
		if current := s.peekVersion(indexPath, cat.ListKey()); current != observed {
			continue
		}
		return s.atomicWrite(indexPath, data)
	}
	return apperr.E(apperr.CodeWriteError, "index %s: version conflict after %d attempts", indexPath, indexRetries)
}

// ReadIndex returns the decoded index document for a category.
func (s *Store) ReadIndex(cat para.Category) (*indexfile.Document, error) {
	doc, _, err := s.loadIndex(s.resolver.IndexPathFor(cat), cat.ListKey())
	return doc, err
}

// loadIndex reads an index document and the version observed on disk;
// a missing file loads as a fresh document with observed version 0.
func (s *Store) loadIndex(indexPath, listKey string) (*indexfile.Document, int, error) {
	ok, err := s.fs.Exists(indexPath)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeFSError, err, "check index %s", indexPath)
	}
	if !ok {
		return indexfile.New(listKey), 0, nil
	}
	data, err := s.fs.Read(indexPath)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeReadError, err, "read index %s", indexPath)
	}
	doc, err := indexfile.Decode(data, listKey)
	if err != nil {
		return nil, 0, apperr.Wrap(apperr.CodeParseError, err, "parse index %s", indexPath)
	}
	return doc, doc.Version, nil
}

// peekVersion returns the version currently on disk, or 0 when the index
// is missing or unreadable.
func (s *Store) peekVersion(indexPath, listKey string) int {
	data, err := s.fs.Read(indexPath)
	if err != nil {
		return 0
	}
	doc, err := indexfile.Decode(data, listKey)
	if err != nil {
		return 0
	}
	return doc.Version
}

// indexEntry builds the summary record stored in a category index:
// the id plus the common display fields present on the entity.
func indexEntry(e models.Entity, data []byte) indexfile.Entry {
	entry := indexfile.Entry{"id": e.EntityID()}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return entry
	}
	for _, key := range []string{"title", "name", "status", "updated_at"} {
		if v, ok := m[key]; ok {
			if t, isTime := v.(time.Time); isTime {
				entry[key] = t.UTC().Format(time.RFC3339)
				continue
			}
			entry[key] = v
		}
	}
	return entry
}
