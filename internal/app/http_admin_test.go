package app

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"checkmark/api/internal/search"
	"checkmark/api/internal/store"
)

func (e *testEnv) upload(cookie *http.Cookie, filename, slot string, data []byte) *httptest.ResponseRecorder {
	e.t.Helper()
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if slot != "" {
		if err := form.WriteField("slot", slot); err != nil {
			e.t.Fatalf("WriteField() error = %v", err)
		}
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		e.t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write(data); err != nil {
		e.t.Fatalf("write part: %v", err)
	}
	if err := form.Close(); err != nil {
		e.t.Fatalf("close form: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/app-icons", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.AddCookie(cookie)
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func TestSettingsArePublicButAdminWritable(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("root", "secret1", true)
	admin := env.login("root", "secret1")

	rr := env.do(http.MethodGet, "/api/settings", "")
	expectStatus(t, rr, http.StatusOK)
	var payload struct {
		Settings store.AppSettings `json:"settings"`
	}
	decodeResponse(t, rr, &payload)
	if payload.Settings.AppName != store.DefaultSettings().AppName {
		t.Fatalf("expected default app name, got %+v", payload.Settings)
	}

	rr = env.do(http.MethodPut, "/api/settings", `{"appName":"Team Lists","appDescription":"Ours"}`, withCookie(admin))
	expectStatus(t, rr, http.StatusOK)

	rr = env.do(http.MethodGet, "/api/settings", "")
	expectStatus(t, rr, http.StatusOK)
	decodeResponse(t, rr, &payload)
	if payload.Settings.AppName != "Team Lists" || payload.Settings.AppDescription != "Ours" {
		t.Fatalf("settings not updated: %+v", payload.Settings)
	}
}

func TestUploadAppIcon(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("root", "secret1", true)
	env.addUser("alice", "abc123", false)
	admin := env.login("root", "secret1")
	alice := env.login("alice", "abc123")
	png := []byte("\x89PNG\r\n\x1a\nfake")

	rr := env.upload(alice, "logo.png", "", png)
	expectErrorCode(t, rr, http.StatusForbidden, "FORBIDDEN")

	rr = env.upload(admin, "logo.exe", "", png)
	expectErrorCode(t, rr, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rr = env.upload(admin, "logo.png", "64x64Icon", png)
	expectErrorCode(t, rr, http.StatusUnprocessableEntity, "VALIDATION_ERROR")

	rr = env.upload(admin, "logo.png", "32x32Icon", png)
	expectStatus(t, rr, http.StatusCreated)
	var created map[string]string
	decodeResponse(t, rr, &created)
	if created["url"] != "/api/app-icons/logo.png" {
		t.Fatalf("unexpected url %q", created["url"])
	}

	onDisk, err := env.files.Exists("uploads/app-icons/logo.png")
	if err != nil || !onDisk {
		t.Fatalf("expected icon under uploads/app-icons, exists=%v err=%v", onDisk, err)
	}
	if misplaced, _ := env.files.Exists("uploads/logo.png"); misplaced {
		t.Fatal("icon written to the uploads root")
	}

	rr = env.do(http.MethodGet, "/api/app-icons/logo.png", "")
	expectStatus(t, rr, http.StatusOK)
	if rr.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("expected image/png, got %q", rr.Header().Get("Content-Type"))
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("expected nosniff, got %q", rr.Header().Get("X-Content-Type-Options"))
	}
	if rr.Header().Get("Content-Security-Policy") != "default-src 'none'; style-src 'unsafe-inline'" {
		t.Fatalf("unexpected CSP %q", rr.Header().Get("Content-Security-Policy"))
	}
	if !bytes.Equal(rr.Body.Bytes(), png) {
		t.Fatalf("served bytes differ: %q", rr.Body.Bytes())
	}

	settings, err := env.service.GetSettings(t.Context())
	if err != nil {
		t.Fatalf("GetSettings() error = %v", err)
	}
	if settings.Icon32 != "/api/app-icons/logo.png" {
		t.Fatalf("expected icon setting to point at upload, got %+v", settings)
	}

	rr = env.do(http.MethodGet, "/api/app-icons/missing.png", "")
	expectErrorCode(t, rr, http.StatusNotFound, "NOT_FOUND")
}

func TestUploadedSVGIsServedSandboxed(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("root", "secret1", true)
	admin := env.login("root", "secret1")
	svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)

	rr := env.upload(admin, "mark.svg", "", svg)
	expectStatus(t, rr, http.StatusCreated)

	rr = env.do(http.MethodGet, "/api/app-icons/mark.svg", "")
	expectStatus(t, rr, http.StatusOK)
	if rr.Header().Get("Content-Type") != "image/svg+xml" {
		t.Fatalf("expected image/svg+xml, got %q", rr.Header().Get("Content-Type"))
	}
	if rr.Header().Get("Content-Security-Policy") == "" || rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("svg served without sandbox headers: %v", rr.Header())
	}
}

// recordingIndex wraps the real search service and remembers indexed records.
type recordingIndex struct {
	searchIndex
	mu      sync.Mutex
	indexed []search.Record
}

func (r *recordingIndex) Index(record search.Record) {
	r.mu.Lock()
	r.indexed = append(r.indexed, record)
	r.mu.Unlock()
	r.searchIndex.Index(record)
}

func (r *recordingIndex) last(itemID string) (search.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.indexed) - 1; i >= 0; i-- {
		if r.indexed[i].ItemID == itemID {
			return r.indexed[i], true
		}
	}
	return search.Record{}, false
}

func TestDeleteUserReindexesItemsSharedWithThem(t *testing.T) {
	env := newTestEnv(t)
	env.addUser("root", "secret1", true)
	env.addUser("alice", "abc123", false)
	env.addUser("bob", "abc123", false)
	env.addUser("carol", "abc123", false)
	admin := env.login("root", "secret1")
	alice := env.login("alice", "abc123")

	onlyBob := createChecklist(t, env, alice, `{"title":"Garage"}`)
	bobAndCarol := createChecklist(t, env, alice, `{"title":"Garden"}`)
	unrelated := createChecklist(t, env, alice, `{"title":"Attic"}`)
	rr := env.do(http.MethodPost, "/api/sharing/checklist/"+onlyBob.ID+"/users", `{"username":"bob"}`, withCookie(alice))
	expectStatus(t, rr, http.StatusOK)
	rr = env.do(http.MethodPut, "/api/sharing/checklist/"+bobAndCarol.ID, `{"sharedWith":["bob","carol"]}`, withCookie(alice))
	expectStatus(t, rr, http.StatusOK)

	recorder := &recordingIndex{searchIndex: env.service.search}
	env.service.search = recorder

	rr = env.do(http.MethodDelete, "/api/users/bob", "", withCookie(admin))
	expectStatus(t, rr, http.StatusOK)

	tests := []struct {
		id   string
		want []string
	}{
		{id: onlyBob.ID, want: []string{"alice"}},
		{id: bobAndCarol.ID, want: []string{"alice", "carol"}},
	}
	for _, tc := range tests {
		record, ok := recorder.last(tc.id)
		if !ok {
			t.Fatalf("item %s was not reindexed", tc.id)
		}
		if !slices.Equal(record.Readers, tc.want) {
			t.Fatalf("item %s readers = %v, want %v", tc.id, record.Readers, tc.want)
		}
	}
	if _, ok := recorder.last(unrelated.ID); ok {
		t.Fatal("item never shared with bob should not be reindexed")
	}

	grants, err := env.files.GrantsSharedWith(context.Background(), "bob")
	if err != nil {
		t.Fatalf("GrantsSharedWith() error = %v", err)
	}
	if len(grants) != 0 {
		t.Fatalf("expected no grants naming bob, got %+v", grants)
	}
}
