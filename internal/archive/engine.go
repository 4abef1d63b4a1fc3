// Package archive moves project and area directories into the Archive
// category under time-bucketed paths and maintains the global archive
// index. Unlike the writer's best-effort category indexes, the archive
// index must succeed: a failed index write rolls the directory move back.
package archive

import (
	"log/slog"
	"path"
	"time"

	"github.com/averlund/orion/internal/apperr"
	"github.com/averlund/orion/internal/entity"
	"github.com/averlund/orion/internal/indexfile"
	"github.com/averlund/orion/internal/models"
	"github.com/averlund/orion/internal/para"
	"github.com/averlund/orion/internal/vault"
)

// monthBucket is the YYYY-MM layout for archive subdirectories.
const monthBucket = "2006-01"

// Result describes a completed archival.
type Result struct {
	ArchivedTo   string    `json:"archived_to"`
	ArchivedAt   time.Time `json:"archived_at"`
	OriginalPath string    `json:"original_path"`
}

// Option adjusts a single archival call.
type Option func(*callOptions)

type callOptions struct {
	reason string
}

// WithReason overrides the reason recorded in the archive index
// (for example "manual" or "cancelled").
func WithReason(reason string) Option {
	return func(o *callOptions) { o.reason = reason }
}

// Engine orchestrates cross-category moves.
type Engine struct {
	fs       vault.Provider
	store    *entity.Store
	resolver *para.Resolver
	logger   *slog.Logger
	now      func() time.Time
}

// NewEngine creates an archival engine sharing the store's provider and
// resolver.
func NewEngine(fs vault.Provider, store *entity.Store, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		fs:       fs,
		store:    store,
		resolver: store.Resolver(),
		logger:   logger,
		now:      time.Now,
	}
}

// ArchiveProject relocates a project directory into
// Archive/projects/<YYYY-MM>/. Only completed projects are archivable.
func (e *Engine) ArchiveProject(p *models.Project, originalPath string, opts ...Option) (*Result, error) {
	if p.Status != models.ProjectCompleted {
		return nil, apperr.E(apperr.CodeNotArchivable,
			"project %s has status %q; only %q projects can be archived",
			p.ID, p.Status, models.ProjectCompleted)
	}
	o := applyOptions(opts, indexfile.ReasonCompleted)
	return e.archive(indexfile.ArchivedItem{
		ID:     p.ID,
		Type:   indexfile.ItemTypeProject,
		Reason: o.reason,
		Title:  p.Title,
	}, "projects", p.UpdatedAt, originalPath)
}

// ArchiveArea relocates an area directory into Archive/areas/<YYYY-MM>/.
// Only dormant areas are archivable.
func (e *Engine) ArchiveArea(a *models.Area, originalPath string, opts ...Option) (*Result, error) {
	if a.Status != models.AreaDormant {
		return nil, apperr.E(apperr.CodeNotArchivable,
			"area %s has status %q; only %q areas can be archived",
			a.ID, a.Status, models.AreaDormant)
	}
	o := applyOptions(opts, indexfile.ReasonInactive)
	return e.archive(indexfile.ArchivedItem{
		ID:     a.ID,
		Type:   indexfile.ItemTypeArea,
		Reason: o.reason,
		Title:  a.Title,
	}, "areas", a.UpdatedAt, originalPath)
}

func applyOptions(opts []Option, defaultReason string) callOptions {
	o := callOptions{reason: defaultReason}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// archive performs the move and the must-succeed index append.
func (e *Engine) archive(item indexfile.ArchivedItem, subdir string, updatedAt time.Time, originalPath string) (*Result, error) {
	if e.resolver.UnderArchive(originalPath) {
		return nil, apperr.E(apperr.CodeAlreadyArchived, "%s is already under the archive", originalPath)
	}

	bucket := updatedAt.UTC().Format(monthBucket)
	dest := e.resolver.Root() + "/" + para.Archive.Dir() + "/" + subdir + "/" + bucket + "/" + path.Base(originalPath)

	// Check-then-create the destination's parent.
	parent := path.Dir(dest)
	ok, err := e.fs.Exists(parent)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFSError, err, "check %s", parent)
	}
	if !ok {
		if err := e.fs.MkdirAll(parent); err != nil {
			return nil, apperr.Wrap(apperr.CodeFSError, err, "create %s", parent)
		}
	}

	// Re-verify the source immediately before the move.
	ok, err = e.fs.Exists(originalPath)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeFSError, err, "check %s", originalPath)
	}
	if !ok {
		return nil, apperr.E(apperr.CodeNotFound, "source does not exist: %s", originalPath)
	}

	// One atomic rename moves the whole entity tree.
	if err := e.fs.Rename(originalPath, dest); err != nil {
		return nil, apperr.Wrap(apperr.CodeFSError, err, "move %s to %s", originalPath, dest)
	}

	archivedAt := e.now().UTC()
	item.OriginalPath = originalPath
	item.ArchivedTo = dest
	item.ArchivedAt = archivedAt

	if err := e.appendToArchiveIndex(item); err != nil {
		// Compensate: put the directory back where it was.
		if rbErr := e.fs.Rename(dest, originalPath); rbErr != nil {
			e.logger.Error("rollback failed after index write failure",
				slog.String("dest", dest),
				slog.String("original", originalPath),
				slog.String("error", rbErr.Error()))
		}
		return nil, apperr.Wrap(apperr.CodeFSError, err, "archive index update failed; move rolled back")
	}

	// Mirror delete's behavior: drop the entity from the source
	// category's index. Best-effort, like the writer's index upkeep.
	if cat, catErr := e.resolver.CategoryOfPath(originalPath); catErr == nil {
		if idxErr := e.store.UpdateIndex(cat, func(doc *indexfile.Document) {
			doc.Remove(item.ID)
		}); idxErr != nil {
			e.logger.Warn("source index cleanup failed",
				slog.String("id", item.ID),
				slog.String("category", string(cat)),
				slog.String("error", idxErr.Error()))
		}
	}

	return &Result{
		ArchivedTo:   dest,
		ArchivedAt:   archivedAt,
		OriginalPath: originalPath,
	}, nil
}

// appendToArchiveIndex appends item and refreshes the stats and timestamp,
// writing the whole document in one temp-then-rename operation so no
// reader can see the item list and the stats out of step.
func (e *Engine) appendToArchiveIndex(item indexfile.ArchivedItem) error {
	indexPath := e.resolver.IndexPathFor(para.Archive)

	idx := indexfile.NewArchiveIndex()
	ok, err := e.fs.Exists(indexPath)
	if err != nil {
		return err
	}
	if ok {
		data, readErr := e.fs.Read(indexPath)
		if readErr != nil {
			return readErr
		}
		if idx, err = indexfile.DecodeArchive(data); err != nil {
			return err
		}
		idx.Version++
	}

	idx.Append(item)
	idx.GeneratedAt = e.now().UTC()

	data, err := idx.Encode()
	if err != nil {
		return err
	}

	tmp := indexPath + entity.TempSuffix
	if err := e.fs.Write(tmp, data); err != nil {
		return err
	}
	success := false
	defer func() {
		if !success {
			_ = e.fs.Remove(tmp)
		}
	}()
	if err := e.fs.Rename(tmp, indexPath); err != nil {
		return err
	}
	success = true
	return nil
}
