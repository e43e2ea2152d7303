package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"checkmark/api/internal/auth"
	"checkmark/api/internal/config"
	"checkmark/api/internal/gitrepo"
	"checkmark/api/internal/store"
)

type testEnv struct {
	t       *testing.T
	files   *store.Store
	service *Service
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	files := store.New(t.TempDir())
	if err := files.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	cfg := config.Config{
		SessionCookie: "session",
		SessionTTL:    time.Hour,
		CORSOrigin:    "*",
	}
	history := gitrepo.New(filepath.Join(files.Root(), ".history"))
	svc := New(cfg, files, nil, history, nil, nil)
	t.Cleanup(svc.Close)
	return &testEnv{
		t:       t,
		files:   files,
		service: svc,
		handler: NewHTTPServer(svc, "*").Handler(),
	}
}

func (e *testEnv) addUser(username, password string, isAdmin bool) store.User {
	e.t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		e.t.Fatalf("HashPassword() error = %v", err)
	}
	user := store.User{
		Username:     username,
		PasswordHash: hash,
		IsAdmin:      isAdmin,
		CreatedAt:    time.Now().UTC(),
	}
	if err := e.files.CreateUser(context.Background(), user); err != nil {
		e.t.Fatalf("CreateUser(%s) error = %v", username, err)
	}
	return user
}

// login signs in through the HTTP API and returns the session cookie.
func (e *testEnv) login(username, password string) *http.Cookie {
	e.t.Helper()
	body := `{"username":"` + username + `","password":"` + password + `"}`
	rr := e.do(http.MethodPost, "/api/auth/login", body)
	if rr.Code != http.StatusOK {
		e.t.Fatalf("login %s: expected 200, got %d body=%s", username, rr.Code, rr.Body.String())
	}
	for _, cookie := range rr.Result().Cookies() {
		if cookie.Name == "session" {
			return cookie
		}
	}
	e.t.Fatalf("login %s: no session cookie", username)
	return nil
}

type requestOption func(*http.Request)

func withCookie(cookie *http.Cookie) requestOption {
	return func(r *http.Request) { r.AddCookie(cookie) }
}

func withAPIKey(key string) requestOption {
	return func(r *http.Request) { r.Header.Set("x-api-key", key) }
}

func (e *testEnv) do(method, path, body string, opts ...requestOption) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), target); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("expected status %d, got %d body=%s", want, rr.Code, rr.Body.String())
	}
}

func expectErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, rr, status)
	var payload map[string]any
	decodeResponse(t, rr, &payload)
	if payload["code"] != code {
		t.Fatalf("expected code %s, got %v", code, payload["code"])
	}
	if _, ok := payload["error"].(string); !ok {
		t.Fatalf("expected error message, got %v", payload)
	}
}
