// Package indexfile parses and serializes the per-category index documents
// and the global archive index. A category index is a YAML document of the
// shape {version, updated_at, <list-key>: [entries]} where the list key
// varies by category; entries are opaque records keyed by "id".
package indexfile

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Entry is one record in a category index.
type Entry = map[string]any

// Document is a decoded category index.
type Document struct {
	Version   int
	UpdatedAt time.Time
	ListKey   string
	Entries   []Entry
}

// New returns an empty index document for the given list key.
func New(listKey string) *Document {
	return &Document{Version: 1, ListKey: listKey}
}

// Decode parses a category index document. Missing fields default to a
// fresh document so a half-initialized index file is still usable.
func Decode(data []byte, listKey string) (*Document, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("indexfile: parse: %w", err)
	}
	doc := New(listKey)
	if raw == nil {
		return doc, nil
	}
	if v, ok := raw["version"].(int); ok {
		doc.Version = v
	}
	switch ts := raw["updated_at"].(type) {
	case time.Time:
		doc.UpdatedAt = ts
	case string:
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			doc.UpdatedAt = parsed
		}
	}
	list, ok := raw[listKey].([]any)
	if !ok {
		return doc, nil
	}
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			doc.Entries = append(doc.Entries, m)
		}
	}
	return doc, nil
}

// Encode serializes the document with a stable top-level field order:
// version, updated_at, then the list key.
func (d *Document) Encode() ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}

	var version yaml.Node
	if err := version.Encode(d.Version); err != nil {
		return nil, fmt.Errorf("indexfile: encode version: %w", err)
	}
	var updated yaml.Node
	if err := updated.Encode(d.UpdatedAt.UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("indexfile: encode updated_at: %w", err)
	}
	list := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	if len(d.Entries) > 0 {
		list = &yaml.Node{}
		if err := list.Encode(d.Entries); err != nil {
			return nil, fmt.Errorf("indexfile: encode entries: %w", err)
		}
	}

	root.Content = append(root.Content,
		scalar("version"), &version,
		scalar("updated_at"), &updated,
		scalar(d.ListKey), list,
	)
	out, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("indexfile: marshal: %w", err)
	}
	return out, nil
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: s}
}

// Upsert inserts entry or replaces the existing entry with the same id.
// Every entity appears at most once per index.
func (d *Document) Upsert(entry Entry) {
	id, _ := entry["id"].(string)
	for i, existing := range d.Entries {
		if eid, _ := existing["id"].(string); eid == id {
			d.Entries[i] = entry
			return
		}
	}
	d.Entries = append(d.Entries, entry)
}

// Remove filters out the entry with the given id. It reports whether an
// entry was removed.
func (d *Document) Remove(id string) bool {
	for i, existing := range d.Entries {
		if eid, _ := existing["id"].(string); eid == id {
			d.Entries = append(d.Entries[:i], d.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// Find returns the entry with the given id, or nil.
func (d *Document) Find(id string) Entry {
	for _, existing := range d.Entries {
		if eid, _ := existing["id"].(string); eid == id {
			return existing
		}
	}
	return nil
}
