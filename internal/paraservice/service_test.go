package paraservice_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/averlund/orion/internal/apperr"
	"github.com/averlund/orion/internal/archive"
	"github.com/averlund/orion/internal/models"
	"github.com/averlund/orion/internal/paraservice"
	"github.com/averlund/orion/internal/search"
	"github.com/averlund/orion/internal/testutil"
	"github.com/averlund/orion/internal/vault"
)

func testService(t *testing.T) (*paraservice.Service, vault.Provider) {
	t.Helper()
	store, fs, _ := testutil.TestStore(t)

	f, err := os.CreateTemp("", "orion-svc-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })
	db, err := search.Open(f.Name())
	if err != nil {
		t.Fatalf("search.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	eng := archive.NewEngine(fs, store, nil)
	return paraservice.NewService(fs, store, eng, db), fs
}

func TestResolve(t *testing.T) {
	svc, _ := testService(t)
	res, err := svc.Resolve(context.Background(), "para://projects/website-redesign/_meta")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Path != "Orion/Projects/website-redesign/_meta.yaml" {
		t.Errorf("path = %q", res.Path)
	}
	if res.Category != "projects" {
		t.Errorf("category = %q", res.Category)
	}
}

func TestPutAndGetEntity(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	addr := "para://resources/contacts/john"

	put, err := svc.PutEntity(ctx, addr, []byte("id: contact_1\nname: John Doe\nemail: john@example.com\n"))
	if err != nil {
		t.Fatalf("PutEntity: %v", err)
	}
	if put.Path != "Orion/Resources/contacts/john.yaml" {
		t.Errorf("path = %q", put.Path)
	}
	if put.Checksum == "" {
		t.Error("checksum should be populated")
	}

	got, err := svc.GetEntity(ctx, addr)
	if err != nil {
		t.Fatalf("GetEntity: %v", err)
	}
	if got.Checksum != put.Checksum {
		t.Errorf("checksum mismatch: %q vs %q", got.Checksum, put.Checksum)
	}
	if !strings.Contains(got.Content, "John Doe") {
		t.Errorf("content = %q", got.Content)
	}
	if got.Address != "para://contacts/john.yaml" {
		t.Errorf("address = %q", got.Address)
	}
}

func TestGetEntity_NotFound(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.GetEntity(context.Background(), "para://notes/ghost")
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Errorf("code = %q, want NOT_FOUND", apperr.CodeOf(err))
	}
}

func TestPutEntity_Invalid(t *testing.T) {
	svc, fs := testService(t)
	ctx := context.Background()

	_, err := svc.PutEntity(ctx, "para://projects/p1/_meta", []byte(": {{ not yaml"))
	if apperr.CodeOf(err) != apperr.CodeParseError {
		t.Errorf("code = %q, want PARSE_ERROR", apperr.CodeOf(err))
	}

	_, err = svc.PutEntity(ctx, "para://projects/p1/_meta", []byte("id: p1\ntitle: X\nstatus: bogus\n"))
	if apperr.CodeOf(err) != apperr.CodeValidationError {
		t.Errorf("code = %q, want VALIDATION_ERROR", apperr.CodeOf(err))
	}
	if ok, _ := fs.Exists("Orion/Projects/p1/_meta.yaml"); ok {
		t.Error("nothing should be written for invalid content")
	}
}

func TestDeleteEntity(t *testing.T) {
	svc, fs := testService(t)
	ctx := context.Background()
	addr := "para://notes/scratch"

	if _, err := svc.PutEntity(ctx, addr, []byte("id: note_1\ntitle: Scratch\n")); err != nil {
		t.Fatalf("PutEntity: %v", err)
	}
	p, err := svc.DeleteEntity(ctx, addr)
	if err != nil {
		t.Fatalf("DeleteEntity: %v", err)
	}
	if ok, _ := fs.Exists(p); ok {
		t.Error("file should be gone")
	}
	rows, total, err := svc.ListEntities(ctx, "notes", 10, 0)
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if total != 0 || len(rows) != 0 {
		t.Errorf("search index should be empty, got %d rows", total)
	}
}

func TestArchiveProjectByAddress(t *testing.T) {
	svc, fs := testService(t)
	ctx := context.Background()

	content := "id: proj_1\ntitle: Launch\nstatus: completed\nupdated_at: 2025-06-15T12:00:00Z\n"
	if _, err := svc.PutEntity(ctx, "para://projects/p1/_meta", []byte(content)); err != nil {
		t.Fatalf("PutEntity: %v", err)
	}

	res, err := svc.ArchiveProject(ctx, "para://projects/p1")
	if err != nil {
		t.Fatalf("ArchiveProject: %v", err)
	}
	if res.ArchivedTo != "Orion/Archive/projects/2025-06/p1" {
		t.Errorf("archived_to = %q", res.ArchivedTo)
	}
	if ok, _ := fs.Exists("Orion/Projects/p1"); ok {
		t.Error("source should be gone")
	}
	if ok, _ := fs.Exists(res.ArchivedTo + "/_meta.yaml"); !ok {
		t.Error("entity missing at destination")
	}
}

func TestArchiveProject_NotCompleted(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	_, _ = svc.PutEntity(ctx, "para://projects/p1/_meta", []byte("id: proj_1\ntitle: X\nstatus: active\n"))

	_, err := svc.ArchiveProject(ctx, "para://projects/p1")
	if apperr.CodeOf(err) != apperr.CodeNotArchivable {
		t.Errorf("code = %q, want NOT_ARCHIVABLE", apperr.CodeOf(err))
	}
}

func TestArchiveArea_DormantOnly(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	_, _ = svc.PutEntity(ctx, "para://areas/health/_meta",
		[]byte("id: area_1\ntitle: Health\nstatus: dormant\nupdated_at: 2024-11-03T08:00:00Z\n"))

	res, err := svc.ArchiveArea(ctx, "para://areas/health")
	if err != nil {
		t.Fatalf("ArchiveArea: %v", err)
	}
	if res.ArchivedTo != "Orion/Archive/areas/2024-11/health" {
		t.Errorf("archived_to = %q", res.ArchivedTo)
	}
}

func TestCaptureInbox(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	item, err := svc.CaptureInbox(ctx, models.InboxItem{ID: "in_1", Title: "Call dentist"})
	if err != nil {
		t.Fatalf("CaptureInbox: %v", err)
	}
	if item.CapturedAt.IsZero() {
		t.Error("captured_at should default to now")
	}

	doc, err := svc.Inbox(ctx)
	if err != nil {
		t.Fatalf("Inbox: %v", err)
	}
	if doc.Find("in_1") == nil {
		t.Error("item missing from inbox queue")
	}
}

func TestCaptureInbox_Invalid(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.CaptureInbox(context.Background(), models.InboxItem{ID: "in_1"})
	if apperr.CodeOf(err) != apperr.CodeValidationError {
		t.Errorf("code = %q, want VALIDATION_ERROR", apperr.CodeOf(err))
	}
}

func TestListEntities(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	_, _ = svc.PutEntity(ctx, "para://projects/p1/_meta", []byte("id: p1\ntitle: A\nstatus: active\n"))
	_, _ = svc.PutEntity(ctx, "para://projects/p2/_meta", []byte("id: p2\ntitle: B\nstatus: active\n"))
	_, _ = svc.PutEntity(ctx, "para://notes/n1", []byte("id: n1\ntitle: Note\n"))

	rows, total, err := svc.ListEntities(ctx, "Projects", 10, 0)
	if err != nil {
		t.Fatalf("ListEntities: %v", err)
	}
	if total != 2 || len(rows) != 2 {
		t.Errorf("projects total = %d", total)
	}

	_, _, err = svc.ListEntities(ctx, "bogus", 10, 0)
	if apperr.CodeOf(err) != apperr.CodeInvalidCategory {
		t.Errorf("code = %q, want INVALID_CATEGORY", apperr.CodeOf(err))
	}
}

func TestSearch(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	_, _ = svc.PutEntity(ctx, "para://notes/n1", []byte("id: n1\ntitle: Note\nbody: zanzibar holiday plan\n"))

	results, err := svc.Search(ctx, "zanzibar", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
}
