// Package para implements the logical addressing scheme of the namespace:
// the closed category set, the per-category index registry, and the
// resolver that translates para:// addresses to physical paths and back.
package para

import (
	"strings"

	"github.com/averlund/orion/internal/apperr"
)

// Category is one of the fixed organizational buckets of the namespace.
type Category string

const (
	Projects    Category = "projects"
	Areas       Category = "areas"
	Resources   Category = "resources"
	Contacts    Category = "contacts"
	Notes       Category = "notes"
	Templates   Category = "templates"
	Procedures  Category = "procedures"
	Preferences Category = "preferences"
	Archive     Category = "archive"
	Inbox       Category = "inbox"
)

// Extension is the storage file extension for entity files.
const Extension = ".yaml"

// categoryInfo is one registry entry: where a category lives on disk,
// where its index file is, and which list key that index uses.
type categoryInfo struct {
	dir      string // physical directory relative to the namespace root
	index    string // index file path relative to the namespace root
	listKey  string // name of the list field inside the index document
	isEntity bool   // final path segment gets Extension auto-appended
}

// registry is the static category table. Subtype directories nest under
// Resources; the Archive index is the global archive document.
var registry = map[Category]categoryInfo{
	Projects:    {dir: "Projects", index: "Projects/_index.yaml", listKey: "projects"},
	Areas:       {dir: "Areas", index: "Areas/_index.yaml", listKey: "areas"},
	Resources:   {dir: "Resources", index: "Resources/_index.yaml", listKey: "items"},
	Contacts:    {dir: "Resources/contacts", index: "Resources/contacts/_index.yaml", listKey: "contacts", isEntity: true},
	Notes:       {dir: "Resources/notes", index: "Resources/notes/_index.yaml", listKey: "notes", isEntity: true},
	Templates:   {dir: "Resources/templates", index: "Resources/templates/_index.yaml", listKey: "templates", isEntity: true},
	Procedures:  {dir: "Resources/procedures", index: "Resources/procedures/_index.yaml", listKey: "procedures", isEntity: true},
	Preferences: {dir: "Resources/preferences", index: "Resources/preferences/_index.yaml", listKey: "preferences", isEntity: true},
	Archive:     {dir: "Archive", index: "Archive/_index.yaml", listKey: "archived_items"},
	Inbox:       {dir: "Inbox", index: "Inbox/_queue.yaml", listKey: "items"},
}

// matchOrder lists categories with nested (two-segment) directories first
// so that longest-prefix matching of physical paths is deterministic.
var matchOrder = []Category{
	Contacts, Notes, Templates, Procedures, Preferences,
	Projects, Areas, Resources, Archive, Inbox,
}

// Categories returns the canonical (lower-case) category names, in
// registry match order. Used for INVALID_CATEGORY error payloads.
func Categories() []string {
	out := make([]string, 0, len(matchOrder))
	for _, c := range matchOrder {
		out = append(out, string(c))
	}
	return out
}

// All returns every category, in registry match order.
func All() []Category {
	return append([]Category(nil), matchOrder...)
}

// Dir returns the category's physical directory relative to the root.
func (c Category) Dir() string { return registry[c].dir }

// IndexPath returns the category's index file path relative to the root.
func (c Category) IndexPath() string { return registry[c].index }

// ListKey returns the name of the list field in the category's index.
func (c Category) ListKey() string { return registry[c].listKey }

// IsEntity reports whether paths in this category auto-append Extension.
func (c Category) IsEntity() bool { return registry[c].isEntity }

// ParseCategory matches name case-insensitively against the category set.
func ParseCategory(name string) (Category, error) {
	c := Category(strings.ToLower(name))
	if _, ok := registry[c]; ok {
		return c, nil
	}
	return "", apperr.E(apperr.CodeInvalidCategory,
		"unknown category %q (valid: %s)", name, strings.Join(Categories(), ", "))
}

// CategoryOf infers the category of a root-relative physical path by
// longest-prefix match against the registry directories. It is the pure
// dispatch function used to pick which index a write or delete updates.
func CategoryOf(path string) (Category, error) {
	p := strings.Trim(path, "/")
	for _, c := range matchOrder {
		dir := registry[c].dir
		if p == dir || strings.HasPrefix(p, dir+"/") {
			return c, nil
		}
	}
	return "", apperr.E(apperr.CodeNotParaPath, "path %q is not under any category", path)
}
