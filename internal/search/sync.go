package search

import (
	"log/slog"
	"path"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/averlund/orion/internal/para"
	"github.com/averlund/orion/internal/vault"
)

// Sync walks the namespace and brings the index up to date:
//   - new/changed entity files are parsed and upserted
//   - files removed from disk are deleted from the index
//
// Derived documents (_index.yaml, _queue.yaml) are never indexed; they are
// projections of the same data.
func Sync(db *DB, store vault.Provider, resolver *para.Resolver, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		if isDerived(m.Path) {
			continue
		}
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, resolver, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.Delete(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// isDerived reports whether path names a generated index document rather
// than an entity file.
func isDerived(p string) bool {
	base := path.Base(p)
	return base == "_index.yaml" || base == "_queue.yaml"
}

// indexFile parses an entity document and upserts it into the DB. Fields
// the document lacks are indexed as empty strings; a file that is not a
// YAML mapping still gets a row keyed by path so search covers it.
func indexFile(db *DB, resolver *para.Resolver, relPath string, data []byte) error {
	var doc map[string]any
	_ = yaml.Unmarshal(data, &doc)

	row := EntityRow{
		Path:      relPath,
		EntityID:  stringField(doc, "id"),
		Title:     stringField(doc, "title"),
		Status:    stringField(doc, "status"),
		Checksum:  vault.Checksum(data),
		UpdatedAt: timeField(doc, "updated_at"),
	}
	if row.Title == "" {
		row.Title = stringField(doc, "name")
	}
	if cat, err := resolver.CategoryOfPath(relPath); err == nil {
		row.Category = string(cat)
	}
	return db.Upsert(row, string(data))
}

func stringField(doc map[string]any, key string) string {
	if s, ok := doc[key].(string); ok {
		return s
	}
	return ""
}

func timeField(doc map[string]any, key string) time.Time {
	switch v := doc[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}
