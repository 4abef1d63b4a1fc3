package indexfile

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Archive reasons.
const (
	ReasonCompleted = "completed"
	ReasonCancelled = "cancelled"
	ReasonInactive  = "inactive"
	ReasonManual    = "manual"
)

// Archived item types.
const (
	ItemTypeProject = "project"
	ItemTypeArea    = "area"
)

// ArchivedItem records one archival in the global archive index.
type ArchivedItem struct {
	ID           string    `yaml:"id"`
	Type         string    `yaml:"type"`
	OriginalPath string    `yaml:"original_path"`
	ArchivedTo   string    `yaml:"archived_to"`
	ArchivedAt   time.Time `yaml:"archived_at"`
	Reason       string    `yaml:"reason"`
	Title        string    `yaml:"title,omitempty"`
	Notes        string    `yaml:"notes,omitempty"`
}

// ArchiveStats aggregates counts over the archived items.
// Invariant: Total == len(ArchivedItems) and Projects + Areas == Total.
type ArchiveStats struct {
	Total    int `yaml:"total"`
	Projects int `yaml:"projects"`
	Areas    int `yaml:"areas"`
}

// ArchiveIndex is the distinguished global archive document. The item
// list and the stats live in one document so both are written in one
// atomic operation; no reader can observe one without the other.
type ArchiveIndex struct {
	Version       int            `yaml:"version"`
	GeneratedAt   time.Time      `yaml:"generated_at"`
	ArchivedItems []ArchivedItem `yaml:"archived_items"`
	Stats         ArchiveStats   `yaml:"stats"`
}

// NewArchiveIndex returns an empty archive index.
func NewArchiveIndex() *ArchiveIndex {
	return &ArchiveIndex{Version: 1, ArchivedItems: []ArchivedItem{}}
}

// DecodeArchive parses the global archive index document.
func DecodeArchive(data []byte) (*ArchiveIndex, error) {
	idx := NewArchiveIndex()
	if err := yaml.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("indexfile: parse archive index: %w", err)
	}
	if idx.Version == 0 {
		idx.Version = 1
	}
	return idx, nil
}

// Encode serializes the archive index.
func (a *ArchiveIndex) Encode() ([]byte, error) {
	out, err := yaml.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("indexfile: marshal archive index: %w", err)
	}
	return out, nil
}

// Append adds item and increments Total plus the type-specific counter,
// keeping the stats invariant intact by construction.
func (a *ArchiveIndex) Append(item ArchivedItem) {
	a.ArchivedItems = append(a.ArchivedItems, item)
	a.Stats.Total++
	switch item.Type {
	case ItemTypeProject:
		a.Stats.Projects++
	case ItemTypeArea:
		a.Stats.Areas++
	}
}

// Consistent reports whether the stats match the item list.
func (a *ArchiveIndex) Consistent() bool {
	if a.Stats.Total != len(a.ArchivedItems) {
		return false
	}
	var projects, areas int
	for _, item := range a.ArchivedItems {
		switch item.Type {
		case ItemTypeProject:
			projects++
		case ItemTypeArea:
			areas++
		}
	}
	return projects == a.Stats.Projects && areas == a.Stats.Areas
}
