// Package testutil provides shared test helpers for setting up namespace
// homes, stores, and fault-injecting providers.
package testutil

import (
	"log/slog"
	"testing"

	"github.com/averlund/orion/internal/entity"
	"github.com/averlund/orion/internal/para"
	"github.com/averlund/orion/internal/vault"
)

// TestHome creates a temporary namespace home with a vault.Provider.
func TestHome(t *testing.T) (string, *vault.FS) {
	t.Helper()
	home := t.TempDir()
	fs, err := vault.NewFS(home)
	if err != nil {
		t.Fatal(err)
	}
	return home, fs
}

// TestStore creates an entity store over a temporary home with the
// default Orion root.
func TestStore(t *testing.T) (*entity.Store, *vault.FS, *para.Resolver) {
	t.Helper()
	_, fs := TestHome(t)
	r := para.NewResolver("")
	return entity.NewStore(fs, r, slog.Default()), fs, r
}

// FaultFS wraps a Provider and injects failures through optional hooks.
// A nil hook (or a hook returning nil) falls through to the wrapped
// provider.
type FaultFS struct {
	vault.Provider

	WriteErr  func(path string) error
	RenameErr func(oldPath, newPath string) error
	CopyErr   func(src, dst string) error
	RemoveErr func(path string) error
	ReadErr   func(path string) error
	ExistsErr func(path string) error
}

// Write injects WriteErr before delegating.
func (f *FaultFS) Write(path string, content []byte) error {
	if f.WriteErr != nil {
		if err := f.WriteErr(path); err != nil {
			return err
		}
	}
	return f.Provider.Write(path, content)
}

// Rename injects RenameErr before delegating.
func (f *FaultFS) Rename(oldPath, newPath string) error {
	if f.RenameErr != nil {
		if err := f.RenameErr(oldPath, newPath); err != nil {
			return err
		}
	}
	return f.Provider.Rename(oldPath, newPath)
}

// Copy injects CopyErr before delegating.
func (f *FaultFS) Copy(src, dst string) error {
	if f.CopyErr != nil {
		if err := f.CopyErr(src, dst); err != nil {
			return err
		}
	}
	return f.Provider.Copy(src, dst)
}

// Remove injects RemoveErr before delegating.
func (f *FaultFS) Remove(path string) error {
	if f.RemoveErr != nil {
		if err := f.RemoveErr(path); err != nil {
			return err
		}
	}
	return f.Provider.Remove(path)
}

// Read injects ReadErr before delegating.
func (f *FaultFS) Read(path string) ([]byte, error) {
	if f.ReadErr != nil {
		if err := f.ReadErr(path); err != nil {
			return nil, err
		}
	}
	return f.Provider.Read(path)
}

// Exists injects ExistsErr before delegating.
func (f *FaultFS) Exists(path string) (bool, error) {
	if f.ExistsErr != nil {
		if err := f.ExistsErr(path); err != nil {
			return false, err
		}
	}
	return f.Provider.Exists(path)
}
