package archive_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/averlund/orion/internal/apperr"
	"github.com/averlund/orion/internal/archive"
	"github.com/averlund/orion/internal/entity"
	"github.com/averlund/orion/internal/indexfile"
	"github.com/averlund/orion/internal/models"
	"github.com/averlund/orion/internal/para"
	"github.com/averlund/orion/internal/testutil"
	"github.com/averlund/orion/internal/vault"
)

func testEngine(t *testing.T) (*archive.Engine, *entity.Store, vault.Provider) {
	t.Helper()
	s, fs, _ := testutil.TestStore(t)
	return archive.NewEngine(fs, s, nil), s, fs
}

func seedProject(t *testing.T, s *entity.Store, id, status string, updated time.Time) (*models.Project, string) {
	t.Helper()
	p := &models.Project{ID: id, Title: "Project " + id, Status: status, UpdatedAt: updated}
	path := "Orion/Projects/" + id + "/_meta.yaml"
	if err := s.Write(path, p); err != nil {
		t.Fatalf("seed write: %v", err)
	}
	return p, "Orion/Projects/" + id
}

func readArchiveIndex(t *testing.T, fs vault.Provider) *indexfile.ArchiveIndex {
	t.Helper()
	data, err := fs.Read("Orion/Archive/_index.yaml")
	if err != nil {
		t.Fatalf("read archive index: %v", err)
	}
	idx, err := indexfile.DecodeArchive(data)
	if err != nil {
		t.Fatalf("decode archive index: %v", err)
	}
	return idx
}

func TestArchiveProject(t *testing.T) {
	eng, s, fs := testEngine(t)
	updated := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	p, dir := seedProject(t, s, "p1", models.ProjectCompleted, updated)

	res, err := eng.ArchiveProject(p, dir)
	if err != nil {
		t.Fatalf("ArchiveProject: %v", err)
	}
	if res.ArchivedTo != "Orion/Archive/projects/2025-06/p1" {
		t.Errorf("archived_to = %q", res.ArchivedTo)
	}
	if ok, _ := fs.Exists(dir); ok {
		t.Error("source directory should be gone")
	}
	if ok, _ := fs.Exists(res.ArchivedTo + "/_meta.yaml"); !ok {
		t.Error("entity file missing at destination")
	}

	idx := readArchiveIndex(t, fs)
	if !idx.Consistent() {
		t.Error("archive index stats inconsistent")
	}
	if idx.Stats.Total != 1 || idx.Stats.Projects != 1 || idx.Stats.Areas != 0 {
		t.Errorf("stats = %+v", idx.Stats)
	}
	item := idx.ArchivedItems[0]
	if item.ID != "p1" || item.Reason != indexfile.ReasonCompleted || item.OriginalPath != dir {
		t.Errorf("item = %+v", item)
	}

	// The source category index is cleaned up, mirroring delete.
	doc, err := s.ReadIndex(para.Projects)
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if doc.Find("p1") != nil {
		t.Error("project should be removed from Projects index")
	}
}

func TestArchiveArea(t *testing.T) {
	eng, s, fs := testEngine(t)
	a := &models.Area{ID: "a1", Title: "Health", Status: models.AreaDormant,
		UpdatedAt: time.Date(2024, 11, 3, 8, 0, 0, 0, time.UTC)}
	if err := s.Write("Orion/Areas/a1/_meta.yaml", a); err != nil {
		t.Fatalf("seed: %v", err)
	}

	res, err := eng.ArchiveArea(a, "Orion/Areas/a1")
	if err != nil {
		t.Fatalf("ArchiveArea: %v", err)
	}
	if res.ArchivedTo != "Orion/Archive/areas/2024-11/a1" {
		t.Errorf("archived_to = %q", res.ArchivedTo)
	}
	idx := readArchiveIndex(t, fs)
	if idx.Stats.Areas != 1 || idx.ArchivedItems[0].Reason != indexfile.ReasonInactive {
		t.Errorf("index = %+v", idx)
	}
}

func TestArchive_PreconditionEnforced(t *testing.T) {
	eng, s, fs := testEngine(t)
	p, dir := seedProject(t, s, "p1", models.ProjectActive, time.Now())

	_, err := eng.ArchiveProject(p, dir)
	if apperr.CodeOf(err) != apperr.CodeNotArchivable {
		t.Fatalf("code = %q, want NOT_ARCHIVABLE", apperr.CodeOf(err))
	}
	if !strings.Contains(err.Error(), "p1") || !strings.Contains(err.Error(), "active") {
		t.Errorf("error should name entity and status: %v", err)
	}
	// No filesystem mutation happened.
	if ok, _ := fs.Exists(dir); !ok {
		t.Error("source must remain in place")
	}
	if ok, _ := fs.Exists("Orion/Archive/_index.yaml"); ok {
		t.Error("no archive index write expected")
	}
	if ok, _ := fs.Exists("Orion/Archive/projects"); ok {
		t.Error("no destination directories expected")
	}
}

func TestArchive_AlreadyArchived(t *testing.T) {
	eng, _, fs := testEngine(t)
	_ = fs.Write("Orion/Archive/projects/2025-01/p1/_meta.yaml", []byte("id: p1"))
	p := &models.Project{ID: "p1", Title: "X", Status: models.ProjectCompleted}

	_, err := eng.ArchiveProject(p, "Orion/Archive/projects/2025-01/p1")
	if apperr.CodeOf(err) != apperr.CodeAlreadyArchived {
		t.Errorf("code = %q, want ALREADY_ARCHIVED", apperr.CodeOf(err))
	}
}

func TestArchive_SourceMissing(t *testing.T) {
	eng, _, _ := testEngine(t)
	p := &models.Project{ID: "p9", Title: "X", Status: models.ProjectCompleted, UpdatedAt: time.Now()}

	_, err := eng.ArchiveProject(p, "Orion/Projects/p9")
	if apperr.CodeOf(err) != apperr.CodeNotFound {
		t.Errorf("code = %q, want NOT_FOUND", apperr.CodeOf(err))
	}
}

func TestArchive_MonthBucketIsUTC(t *testing.T) {
	eng, s, _ := testEngine(t)
	// One second before the year rolls over: bucket must stay 2025-12.
	updated := time.Date(2025, 12, 31, 23, 59, 59, 0, time.UTC)
	p, dir := seedProject(t, s, "p1", models.ProjectCompleted, updated)

	res, err := eng.ArchiveProject(p, dir)
	if err != nil {
		t.Fatalf("ArchiveProject: %v", err)
	}
	if !strings.Contains(res.ArchivedTo, "/2025-12/") {
		t.Errorf("archived_to = %q, want 2025-12 bucket", res.ArchivedTo)
	}
}

func TestArchive_RollbackOnIndexFailure(t *testing.T) {
	_, raw := testutil.TestHome(t)
	resolver := para.NewResolver("")
	store := entity.NewStore(raw, resolver, nil)

	updated := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	p := &models.Project{ID: "p1", Title: "Alpha", Status: models.ProjectCompleted, UpdatedAt: updated}
	if err := store.Write("Orion/Projects/p1/_meta.yaml", p); err != nil {
		t.Fatalf("seed: %v", err)
	}

	fail := errors.New("injected archive index failure")
	fs := &testutil.FaultFS{Provider: raw, WriteErr: func(path string) error {
		if strings.Contains(path, "Archive/_index.yaml") {
			return fail
		}
		return nil
	}}
	eng := archive.NewEngine(fs, entity.NewStore(fs, resolver, nil), nil)

	_, err := eng.ArchiveProject(p, "Orion/Projects/p1")
	if apperr.CodeOf(err) != apperr.CodeFSError {
		t.Fatalf("code = %q, want FS_ERROR", apperr.CodeOf(err))
	}
	if !errors.Is(err, fail) {
		t.Error("cause should be the injected failure")
	}

	// The move was rolled back: source restored, destination gone.
	if ok, _ := raw.Exists("Orion/Projects/p1/_meta.yaml"); !ok {
		t.Error("source should be restored after rollback")
	}
	if ok, _ := raw.Exists("Orion/Archive/projects/2025-06/p1"); ok {
		t.Error("destination should not exist after rollback")
	}
}

func TestArchive_StatsStayConsistent(t *testing.T) {
	eng, s, fs := testEngine(t)
	when := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"p1", "p2", "p3"} {
		p, dir := seedProject(t, s, id, models.ProjectCompleted, when)
		if _, err := eng.ArchiveProject(p, dir); err != nil {
			t.Fatalf("archive %s: %v", id, err)
		}
	}
	a := &models.Area{ID: "a1", Title: "Area", Status: models.AreaDormant, UpdatedAt: when}
	_ = s.Write("Orion/Areas/a1/_meta.yaml", a)
	if _, err := eng.ArchiveArea(a, "Orion/Areas/a1"); err != nil {
		t.Fatalf("archive area: %v", err)
	}

	idx := readArchiveIndex(t, fs)
	if !idx.Consistent() {
		t.Fatalf("inconsistent archive index: %+v", idx.Stats)
	}
	if idx.Stats.Total != 4 || idx.Stats.Projects != 3 || idx.Stats.Areas != 1 {
		t.Errorf("stats = %+v", idx.Stats)
	}
	if idx.Stats.Projects+idx.Stats.Areas != idx.Stats.Total {
		t.Error("projects + areas != total")
	}
}

func TestArchive_ReasonOverride(t *testing.T) {
	eng, s, fs := testEngine(t)
	p, dir := seedProject(t, s, "p1", models.ProjectCompleted, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	if _, err := eng.ArchiveProject(p, dir, archive.WithReason(indexfile.ReasonManual)); err != nil {
		t.Fatalf("ArchiveProject: %v", err)
	}
	idx := readArchiveIndex(t, fs)
	if idx.ArchivedItems[0].Reason != indexfile.ReasonManual {
		t.Errorf("reason = %q, want manual", idx.ArchivedItems[0].Reason)
	}
}
