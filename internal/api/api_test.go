package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/averlund/orion/internal/archive"
	"github.com/averlund/orion/internal/entity"
	"github.com/averlund/orion/internal/para"
	"github.com/averlund/orion/internal/paraservice"
	"github.com/averlund/orion/internal/search"
	"github.com/averlund/orion/internal/vault"
)

// testEnv sets up a temp namespace, SQLite index, service, and router.
// An empty authToken selects disabled auth mode.
func testEnv(t *testing.T, authToken string) (*paraservice.Service, http.Handler) {
	t.Helper()

	home := t.TempDir()
	fs, err := vault.NewFS(home)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	dbFile, err := os.CreateTemp("", "orion-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := search.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := entity.NewStore(fs, para.NewResolver(""), nil)
	eng := archive.NewEngine(fs, store, nil)
	svc := paraservice.NewService(fs, store, eng, db)
	return svc, NewRouter(svc, authToken != "", authToken, nil)
}

func doJSON(t *testing.T, router http.Handler, method, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, _ := json.Marshal(payload)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, body)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestResolveEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/resolve?address=para://projects/p1/_meta", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var res ResolveResponse
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.Path != "Orion/Projects/p1/_meta.yaml" || res.Category != "projects" {
		t.Errorf("resolve = %+v", res)
	}

	w = doJSON(t, router, http.MethodGet, "/resolve?address=other://x", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("foreign scheme status = %d, want 400", w.Code)
	}
	var e errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	if e.Code != "NOT_PARA_PATH" {
		t.Errorf("error code = %q", e.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/resolve", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing address status = %d, want 400", w.Code)
	}
}

func TestPutAndGetEntity(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPut, "/entities/resources/contacts/john",
		PutEntityRequest{Content: "id: contact_1\nname: John Doe\n"})
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/entities/contacts/john", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var detail EntityDetail
	_ = json.Unmarshal(w.Body.Bytes(), &detail)
	if detail.Path != "Orion/Resources/contacts/john.yaml" {
		t.Errorf("path = %q", detail.Path)
	}
	if detail.Category != "contacts" || detail.Checksum == "" {
		t.Errorf("detail = %+v", detail)
	}
}

func TestGetEntity_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodGet, "/entities/notes/ghost", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	var e errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	if e.Code != "NOT_FOUND" {
		t.Errorf("error code = %q", e.Code)
	}
}

func TestPutEntity_ValidationError(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPut, "/entities/projects/p1/_meta",
		PutEntityRequest{Content: "id: p1\ntitle: X\nstatus: bogus\n"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var e errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	if e.Code != "VALIDATION_ERROR" {
		t.Errorf("error code = %q", e.Code)
	}
}

func TestDeleteEntity(t *testing.T) {
	_, router := testEnv(t, "")

	doJSON(t, router, http.MethodPut, "/entities/notes/scratch",
		PutEntityRequest{Content: "id: note_1\ntitle: Scratch\n"})

	w := doJSON(t, router, http.MethodDelete, "/entities/notes/scratch", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/entities/notes/scratch", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestArchiveProjectEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	doJSON(t, router, http.MethodPut, "/entities/projects/p1/_meta",
		PutEntityRequest{Content: "id: proj_1\ntitle: Launch\nstatus: completed\nupdated_at: 2025-06-15T12:00:00Z\n"})

	w := doJSON(t, router, http.MethodPost, "/archive/projects",
		ArchiveRequest{Address: "para://projects/p1"})
	if w.Code != http.StatusOK {
		t.Fatalf("archive status = %d, body = %s", w.Code, w.Body.String())
	}
	var res archive.Result
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	if res.ArchivedTo != "Orion/Archive/projects/2025-06/p1" {
		t.Errorf("archived_to = %q", res.ArchivedTo)
	}
}

func TestArchiveProject_PreconditionConflict(t *testing.T) {
	_, router := testEnv(t, "")

	doJSON(t, router, http.MethodPut, "/entities/projects/p1/_meta",
		PutEntityRequest{Content: "id: proj_1\ntitle: Launch\nstatus: active\n"})

	w := doJSON(t, router, http.MethodPost, "/archive/projects",
		ArchiveRequest{Address: "para://projects/p1"})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	var e errResponse
	_ = json.Unmarshal(w.Body.Bytes(), &e)
	if e.Code != "NOT_ARCHIVABLE" {
		t.Errorf("error code = %q", e.Code)
	}
}

func TestInboxEndpoints(t *testing.T) {
	_, router := testEnv(t, "")

	w := doJSON(t, router, http.MethodPost, "/inbox",
		InboxRequest{ID: "in_1", Title: "Call dentist"})
	if w.Code != http.StatusCreated {
		t.Fatalf("capture status = %d, body = %s", w.Code, w.Body.String())
	}

	w = doJSON(t, router, http.MethodGet, "/inbox", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get inbox status = %d", w.Code)
	}
	var resp InboxResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Items) != 1 || resp.Items[0]["id"] != "in_1" {
		t.Errorf("inbox = %+v", resp)
	}
	if resp.Version != 1 {
		t.Errorf("version = %d", resp.Version)
	}
}

func TestListEntitiesEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	doJSON(t, router, http.MethodPut, "/entities/projects/p1/_meta",
		PutEntityRequest{Content: "id: p1\ntitle: A\nstatus: active\n"})
	doJSON(t, router, http.MethodPut, "/entities/notes/n1",
		PutEntityRequest{Content: "id: n1\ntitle: Note\n"})

	w := doJSON(t, router, http.MethodGet, "/entities?category=projects", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp EntityListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Total != 1 || len(resp.Entities) != 1 || resp.Entities[0].ID != "p1" {
		t.Errorf("list = %+v", resp)
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	doJSON(t, router, http.MethodPut, "/entities/notes/n1",
		PutEntityRequest{Content: "id: n1\ntitle: Note\nbody: zanzibar holiday\n"})

	w := doJSON(t, router, http.MethodGet, "/search?q=zanzibar", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp SearchResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Results) != 1 {
		t.Errorf("results = %+v", resp.Results)
	}

	w = doJSON(t, router, http.MethodGet, "/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "secret-token")

	req := httptest.NewRequest(http.MethodGet, "/entities", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/entities", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/entities", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid token status = %d, want 200", w.Code)
	}
}
