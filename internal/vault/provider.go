// Package vault defines the namespace file-system abstraction.
//
// All paths are relative to the namespace home directory (the directory
// that contains the Orion root). Writer-level atomicity (tmp + rename)
// is composed by callers from these primitives so each step can be
// reported with its own error code.
package vault

import "time"

// FileMeta is a lightweight description of one file, returned by List.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for namespace file operations.
type Provider interface {
	// Exists reports whether path exists (file or directory).
	Exists(path string) (bool, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write writes content to path, creating parent directories.
	// The write is NOT atomic; callers compose tmp+rename for that.
	Write(path string, content []byte) error
	// Copy duplicates the file at src to dst.
	Copy(src, dst string) error
	// Rename atomically moves oldPath to newPath (file or directory),
	// creating newPath's parent directories.
	Rename(oldPath, newPath string) error
	// Remove deletes the file at path.
	Remove(path string) error
	// RemoveAll deletes path and everything under it.
	RemoveAll(path string) error
	// MkdirAll creates the directory at path with any missing parents.
	MkdirAll(path string) error
	// List walks dir and returns metadata for every .yaml file under it.
	List(dir string) ([]FileMeta, error)
}
