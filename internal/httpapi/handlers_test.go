package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/linkmark/linkmark/internal/auth"
	"github.com/linkmark/linkmark/internal/domain"
	"github.com/linkmark/linkmark/internal/health"
	"github.com/linkmark/linkmark/internal/metadata"
	"github.com/linkmark/linkmark/internal/pool"
	"github.com/linkmark/linkmark/internal/probe"
	"github.com/linkmark/linkmark/internal/repo/memory"
)

// ---- test helpers ----

type fakeChecker struct {
	out probe.Outcome
}

func (f *fakeChecker) Check(_ context.Context, _ string) probe.Outcome {
	// always return the same result so tests are deterministic
	return f.out
}

type testAPI struct {
	ts    *httptest.Server
	store *memory.Store
	pool  *pool.Pool
}

func setupAPI(t *testing.T, chk probe.Checker) *testAPI {
	t.Helper()
	log := zap.NewNop()
	store := memory.New()

	p := pool.New(2, 4, 16, false)
	t.Cleanup(p.Close)
	healthSvc := health.NewService(log, store, store, chk, p)
	tokens := auth.NewTokenProvider("test-secret", time.Hour)
	meta := metadata.NewFetcher(time.Second, time.Minute)

	srv := NewServer(log, store, store, store, store, healthSvc, tokens, meta)
	// very high rate limits to avoid flakiness in tests
	ts := httptest.NewServer(srv.Router(100_000, 100_000))
	t.Cleanup(ts.Close)

	return &testAPI{ts: ts, store: store, pool: p}
}

func (a *testAPI) do(t *testing.T, method, path, token string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, a.ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return v
}

func signupAndLogin(t *testing.T, a *testAPI, email string) string {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": email, "password": "correct horse", "name": "Tester",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: want 201, got %d", resp.StatusCode)
	}

	resp = a.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": "correct horse",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: want 200, got %d", resp.StatusCode)
	}
	out := decode[struct {
		Token string `json:"token"`
	}](t, resp)
	if out.Token == "" {
		t.Fatal("login returned no token")
	}
	return out.Token
}

type bookmarkJSON struct {
	ID    int64    `json:"id"`
	Title string   `json:"title"`
	URL   string   `json:"url"`
	Tags  []string `json:"tags"`
}

func createBookmark(t *testing.T, a *testAPI, token, title, url string) bookmarkJSON {
	t.Helper()
	resp := a.do(t, http.MethodPost, "/api/bookmarks/", token, map[string]any{
		"title": title, "url": url,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create bookmark: want 201, got %d", resp.StatusCode)
	}
	return decode[bookmarkJSON](t, resp)
}

// ---- tests ----

func TestSignupLogin_BadCredentials(t *testing.T) {
	a := setupAPI(t, &fakeChecker{})

	_ = signupAndLogin(t, a, "a@example.com")

	resp := a.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@example.com", "password": "wrong",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password: want 401, got %d", resp.StatusCode)
	}

	// duplicate signup
	resp = a.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "a@example.com", "password": "correct horse", "name": "Dup",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate signup: want 409, got %d", resp.StatusCode)
	}
}

func TestBookmarks_RequireAuth(t *testing.T) {
	a := setupAPI(t, &fakeChecker{})
	resp := a.do(t, http.MethodGet, "/api/bookmarks/", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("want 401 without token, got %d", resp.StatusCode)
	}
}

func TestBookmarks_CreateDuplicateInvalid(t *testing.T) {
	a := setupAPI(t, &fakeChecker{})
	token := signupAndLogin(t, a, "a@example.com")

	created := createBookmark(t, a, token, "Example", "https://EXAMPLE.com/")
	if created.URL != "https://example.com" {
		t.Fatalf("expected normalized URL, got %q", created.URL)
	}

	// duplicate (after normalization) should be 409
	resp := a.do(t, http.MethodPost, "/api/bookmarks/", token, map[string]any{
		"title": "Again", "url": "https://example.com",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("want 409 on duplicate, got %d", resp.StatusCode)
	}

	// invalid scheme should be 400
	resp = a.do(t, http.MethodPost, "/api/bookmarks/", token, map[string]any{
		"title": "Bad", "url": "ftp://x",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("want 400 on invalid URL, got %d", resp.StatusCode)
	}
}

func TestBookmarks_TagsRoundTrip(t *testing.T) {
	a := setupAPI(t, &fakeChecker{})
	token := signupAndLogin(t, a, "a@example.com")

	resp := a.do(t, http.MethodPost, "/api/bookmarks/", token, map[string]any{
		"title": "Go blog", "url": "https://go.dev/blog", "tags": []string{"go", "reading"},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: want 201, got %d", resp.StatusCode)
	}
	created := decode[bookmarkJSON](t, resp)
	if len(created.Tags) != 2 {
		t.Fatalf("want 2 tags, got %v", created.Tags)
	}

	resp = a.do(t, http.MethodGet, "/api/tags", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tags: want 200, got %d", resp.StatusCode)
	}
	tags := decode[[]struct {
		Name string `json:"name"`
	}](t, resp)
	if len(tags) != 2 {
		t.Fatalf("want 2 user tags, got %+v", tags)
	}
}

func TestBookmarks_SoftDeleteHidesFromList(t *testing.T) {
	a := setupAPI(t, &fakeChecker{})
	token := signupAndLogin(t, a, "a@example.com")
	created := createBookmark(t, a, token, "Example", "https://example.com")

	resp := a.do(t, http.MethodDelete, fmt.Sprintf("/api/bookmarks/%d", created.ID), token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: want 204, got %d", resp.StatusCode)
	}

	resp = a.do(t, http.MethodGet, "/api/bookmarks/", token, nil)
	list := decode[[]bookmarkJSON](t, resp)
	if len(list) != 0 {
		t.Fatalf("deleted bookmark still listed: %+v", list)
	}

	resp = a.do(t, http.MethodGet, fmt.Sprintf("/api/bookmarks/%d", created.ID), token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("fetch deleted: want 404, got %d", resp.StatusCode)
	}
}

func TestBookmarks_UpdateToDuplicateURL(t *testing.T) {
	a := setupAPI(t, &fakeChecker{})
	token := signupAndLogin(t, a, "a@example.com")

	createBookmark(t, a, token, "First", "https://a.example.com")
	second := createBookmark(t, a, token, "Second", "https://b.example.com")

	resp := a.do(t, http.MethodPut, fmt.Sprintf("/api/bookmarks/%d", second.ID), token, map[string]any{
		"url": "https://a.example.com",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("update to taken URL: want 409, got %d", resp.StatusCode)
	}

	resp = a.do(t, http.MethodGet, fmt.Sprintf("/api/bookmarks/%d", second.ID), token, nil)
	got := decode[bookmarkJSON](t, resp)
	if got.URL != "https://b.example.com" {
		t.Fatalf("rejected update changed the URL: %q", got.URL)
	}
}

func TestCategories_Rename(t *testing.T) {
	a := setupAPI(t, &fakeChecker{})
	owner := signupAndLogin(t, a, "owner@example.com")
	intruder := signupAndLogin(t, a, "intruder@example.com")

	resp := a.do(t, http.MethodPost, "/api/categories", owner, map[string]string{"name": "work"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create category: want 201, got %d", resp.StatusCode)
	}
	cat := decode[struct {
		ID int64 `json:"id"`
	}](t, resp)

	resp = a.do(t, http.MethodPut, fmt.Sprintf("/api/categories/%d", cat.ID), owner, map[string]string{"name": "projects"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("rename: want 200, got %d", resp.StatusCode)
	}
	renamed := decode[struct {
		Name string `json:"name"`
	}](t, resp)
	if renamed.Name != "projects" {
		t.Fatalf("renamed category = %q", renamed.Name)
	}

	resp = a.do(t, http.MethodPut, fmt.Sprintf("/api/categories/%d", cat.ID), intruder, map[string]string{"name": "stolen"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign rename: want 403, got %d", resp.StatusCode)
	}
}

func TestUsers_ProfileUpdate(t *testing.T) {
	a := setupAPI(t, &fakeChecker{})
	token := signupAndLogin(t, a, "a@example.com")

	resp := a.do(t, http.MethodGet, "/api/users/me", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me: want 200, got %d", resp.StatusCode)
	}
	me := decode[struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}](t, resp)
	if me.Email != "a@example.com" || me.Name != "Tester" {
		t.Fatalf("profile = %+v", me)
	}

	resp = a.do(t, http.MethodPut, "/api/users/me", token, map[string]string{
		"name": "Renamed", "password": "brand new phrase",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update me: want 200, got %d", resp.StatusCode)
	}
	updated := decode[struct {
		Name string `json:"name"`
	}](t, resp)
	if updated.Name != "Renamed" {
		t.Fatalf("updated name = %q", updated.Name)
	}

	// short password rejected
	resp = a.do(t, http.MethodPut, "/api/users/me", token, map[string]string{"password": "short"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("short password: want 400, got %d", resp.StatusCode)
	}

	// the new password works, the old one does not
	resp = a.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@example.com", "password": "brand new phrase",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login with new password: want 200, got %d", resp.StatusCode)
	}
	resp = a.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "a@example.com", "password": "correct horse",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("login with old password: want 401, got %d", resp.StatusCode)
	}
}

func TestUsers_RoleUpdateIsAdminOnly(t *testing.T) {
	a := setupAPI(t, &fakeChecker{})
	_ = signupAndLogin(t, a, "admin@example.com")
	userToken := signupAndLogin(t, a, "user@example.com")

	ctx := context.Background()
	target, err := a.store.UserByEmail(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("load target: %v", err)
	}

	resp := a.do(t, http.MethodPut, fmt.Sprintf("/api/users/%d/role", target.ID), userToken, map[string]string{"role": "ADMIN"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("self-promotion: want 403, got %d", resp.StatusCode)
	}

	// promote the first account out of band, then log in again so the token
	// carries the admin role
	adm, err := a.store.UserByEmail(ctx, "admin@example.com")
	if err != nil {
		t.Fatalf("load admin: %v", err)
	}
	adm.Role = domain.RoleAdmin
	if err := a.store.UpdateUser(ctx, adm); err != nil {
		t.Fatalf("promote admin: %v", err)
	}
	resp = a.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "correct horse",
	})
	login := decode[struct {
		Token string `json:"token"`
	}](t, resp)

	resp = a.do(t, http.MethodPut, fmt.Sprintf("/api/users/%d/role", target.ID), login.Token, map[string]string{"role": "ADMIN"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin role update: want 200, got %d", resp.StatusCode)
	}
	changed := decode[struct {
		Role string `json:"role"`
	}](t, resp)
	if changed.Role != "ADMIN" {
		t.Fatalf("role after update = %q", changed.Role)
	}

	// bad role value
	resp = a.do(t, http.MethodPut, fmt.Sprintf("/api/users/%d/role", target.ID), login.Token, map[string]string{"role": "ROOT"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad role: want 400, got %d", resp.StatusCode)
	}
}

func TestLinkHealth_CheckNowAndResults(t *testing.T) {
	code := 200
	a := setupAPI(t, &fakeChecker{out: probe.Outcome{
		Status: domain.StatusHealthy, HTTPStatus: &code, ResponseTimeMS: 12,
	}})
	token := signupAndLogin(t, a, "a@example.com")
	created := createBookmark(t, a, token, "Example", "https://example.com")

	// nothing checked yet: empty result list, not an error
	resp := a.do(t, http.MethodGet, "/link-health", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("results: want 200, got %d", resp.StatusCode)
	}
	empty := decode[[]map[string]any](t, resp)
	if len(empty) != 0 {
		t.Fatalf("want no rows before any check, got %+v", empty)
	}

	resp = a.do(t, http.MethodPost, fmt.Sprintf("/link-health/%d/check", created.ID), token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("check now: want 200, got %d", resp.StatusCode)
	}
	checked := decode[struct {
		BookmarkID int64  `json:"bookmark_id"`
		Status     string `json:"status"`
		HTTPStatus *int   `json:"http_status"`
		Title      string `json:"bookmark_title"`
	}](t, resp)
	if checked.Status != "HEALTHY" || checked.HTTPStatus == nil || *checked.HTTPStatus != 200 {
		t.Fatalf("unexpected check response: %+v", checked)
	}
	if checked.BookmarkID != created.ID || checked.Title != "Example" {
		t.Fatalf("response not enriched: %+v", checked)
	}

	resp = a.do(t, http.MethodGet, "/link-health", token, nil)
	rows := decode[[]map[string]any](t, resp)
	if len(rows) != 1 {
		t.Fatalf("want one latest row, got %d", len(rows))
	}
	if rows[0]["status"] != "HEALTHY" {
		t.Fatalf("unexpected latest row: %+v", rows[0])
	}
}

func TestLinkHealth_OwnershipAndMissing(t *testing.T) {
	a := setupAPI(t, &fakeChecker{})
	owner := signupAndLogin(t, a, "owner@example.com")
	intruder := signupAndLogin(t, a, "intruder@example.com")
	created := createBookmark(t, a, owner, "Mine", "https://example.com")

	resp := a.do(t, http.MethodPost, fmt.Sprintf("/link-health/%d/check", created.ID), intruder, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign bookmark: want 403, got %d", resp.StatusCode)
	}

	resp = a.do(t, http.MethodPost, "/link-health/424242/check", owner, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing bookmark: want 404, got %d", resp.StatusCode)
	}
}

func TestCategories_OwnershipOnDelete(t *testing.T) {
	a := setupAPI(t, &fakeChecker{})
	owner := signupAndLogin(t, a, "owner@example.com")
	intruder := signupAndLogin(t, a, "intruder@example.com")

	resp := a.do(t, http.MethodPost, "/api/categories", owner, map[string]string{"name": "work"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create category: want 201, got %d", resp.StatusCode)
	}
	cat := decode[struct {
		ID int64 `json:"id"`
	}](t, resp)

	resp = a.do(t, http.MethodDelete, fmt.Sprintf("/api/categories/%d", cat.ID), intruder, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign category delete: want 403, got %d", resp.StatusCode)
	}
}

func TestMetadata_FetchesTitle(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Hello Page</title></head><body></body></html>`))
	}))
	defer page.Close()

	a := setupAPI(t, &fakeChecker{})
	token := signupAndLogin(t, a, "a@example.com")

	resp := a.do(t, http.MethodGet, "/api/metadata?url="+page.URL, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metadata: want 200, got %d", resp.StatusCode)
	}
	meta := decode[struct {
		Title string `json:"title"`
	}](t, resp)
	if meta.Title != "Hello Page" {
		t.Fatalf("want scraped title, got %q", meta.Title)
	}
}
