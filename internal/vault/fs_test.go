package vault

import (
	"os"
	"path/filepath"
	"testing"
)

func tempHome(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempHome(t)
	content := []byte("id: proj_1\ntitle: Hello\n")
	if err := s.Write("Orion/Projects/p1/_meta.yaml", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("Orion/Projects/p1/_meta.yaml")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestExists(t *testing.T) {
	s := tempHome(t)
	ok, err := s.Exists("missing.yaml")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if ok {
		t.Error("missing file reported as existing")
	}
	_ = s.Write("present.yaml", []byte("x: 1\n"))
	ok, err = s.Exists("present.yaml")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !ok {
		t.Error("present file reported as missing")
	}
}

func TestCopy(t *testing.T) {
	s := tempHome(t)
	_ = s.Write("a.yaml", []byte("original"))
	if err := s.Copy("a.yaml", "a.yaml.bak"); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	got, err := s.Read("a.yaml.bak")
	if err != nil {
		t.Fatalf("Read backup: %v", err)
	}
	if string(got) != "original" {
		t.Errorf("backup content = %q", got)
	}
}

func TestRenameDirectory(t *testing.T) {
	s := tempHome(t)
	_ = s.Write("Orion/Projects/p1/_meta.yaml", []byte("id: p1"))
	if err := s.Rename("Orion/Projects/p1", "Orion/Archive/projects/2025-12/p1"); err != nil {
		t.Fatalf("Rename: %v", err)
	}
	got, err := s.Read("Orion/Archive/projects/2025-12/p1/_meta.yaml")
	if err != nil {
		t.Fatalf("Read after rename: %v", err)
	}
	if string(got) != "id: p1" {
		t.Errorf("content = %q", got)
	}
	if ok, _ := s.Exists("Orion/Projects/p1"); ok {
		t.Error("old directory should not exist")
	}
}

func TestRemove(t *testing.T) {
	s := tempHome(t)
	_ = s.Write("del.yaml", []byte("bye"))
	if err := s.Remove("del.yaml"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if ok, _ := s.Exists("del.yaml"); ok {
		t.Error("removed file should not exist")
	}
}

func TestList(t *testing.T) {
	s := tempHome(t)
	_ = s.Write("Orion/Projects/p1/_meta.yaml", []byte("a: 1"))
	_ = s.Write("Orion/Resources/contacts/john.yaml", []byte("b: 2"))
	_ = s.Write("Orion/Projects/p1/_meta.yaml.bak", []byte("old"))
	_ = s.Write("notes.txt", []byte("not yaml"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("len = %d, want 2: %v", len(items), items)
	}
	for _, it := range items {
		if it.Checksum == "" {
			t.Errorf("missing checksum for %s", it.Path)
		}
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempHome(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.yaml",
		"/etc/shadow",
	}
	for _, p := range cases {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(os.TempDir(), "orion-does-not-exist-"+t.Name()))
	if err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp("", "orion-test-*")
	_ = f.Close()
	defer os.Remove(f.Name())
	_, err := NewFS(f.Name())
	if err == nil {
		t.Error("expected error when home is a file")
	}
}
