package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fablehouse/fable/internal/assets"
	"github.com/fablehouse/fable/internal/book"
	"github.com/fablehouse/fable/internal/config"
	"github.com/fablehouse/fable/internal/flow"
	"github.com/fablehouse/fable/internal/home"
	"github.com/fablehouse/fable/internal/providers"
	"github.com/fablehouse/fable/internal/server/endpoints"
	"github.com/fablehouse/fable/internal/testutil"
)

const testConfigYAML = `providers:
  mock:
    type: mock
    enabled: true
    rate_limit: 100
defaults:
  provider: mock
  max_workers: 2
  art_style: "test watercolor"
auth:
  secret: ""
server:
  addr: "127.0.0.1:0"
`

func newTestServer(t *testing.T) (*Server, *home.Dir) {
	t.Helper()

	dir := t.TempDir()
	h, err := home.New(dir)
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(testConfigYAML), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	cfgMgr, err := config.NewManager(cfgPath)
	if err != nil {
		t.Fatalf("config.NewManager() error = %v", err)
	}

	srv, err := New(Config{
		Home:          h,
		ConfigManager: cfgMgr,
		Logger:        testutil.Logger(t),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { srv.Store().Close() })
	return srv, h
}

func doJSON(t *testing.T, handler http.Handler, method, path, userID string, body any, out any) int {
	t.Helper()

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec.Code
}

func createTestBook(t *testing.T, srv *Server, h *home.Dir, userID string, pageCount int) endpoints.BookResponse {
	t.Helper()

	library := assets.NewLibrary(h)
	req := endpoints.CreateBookRequest{Title: "A Day at the Lake"}
	for i := 1; i <= pageCount; i++ {
		url, err := library.SavePhoto("upload", i, []byte("photo-bytes"), ".png")
		if err != nil {
			t.Fatalf("SavePhoto() error = %v", err)
		}
		req.Pages = append(req.Pages, endpoints.CreatePageRequest{
			Text:     fmt.Sprintf("Page %d text", i),
			ImageURL: url,
		})
	}

	var resp endpoints.BookResponse
	code := doJSON(t, srv.Handler(), "POST", "/api/v1/books", userID, req, &resp)
	if code != http.StatusCreated {
		t.Fatalf("create book status = %d, want %d", code, http.StatusCreated)
	}
	return resp
}

func TestHealthEndpointNeedsNoAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAPIRejectsAnonymousRequests(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/api/v1/books", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestCreateAndGetBook(t *testing.T) {
	srv, h := newTestServer(t)

	created := createTestBook(t, srv, h, "alice", 3)
	if created.Book.Status != book.StatusStoryReady {
		t.Errorf("status = %s, want %s", created.Book.Status, book.StatusStoryReady)
	}
	if len(created.Pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(created.Pages))
	}
	if created.Book.CoverAssetURL != created.Pages[0].OriginalImageURL {
		t.Errorf("cover should default to the first page's photo")
	}

	var fetched endpoints.BookResponse
	code := doJSON(t, srv.Handler(), "GET", "/api/v1/books/"+created.Book.ID, "alice", nil, &fetched)
	if code != http.StatusOK {
		t.Fatalf("get book status = %d", code)
	}
	if fetched.Book.Title != "A Day at the Lake" {
		t.Errorf("title = %q", fetched.Book.Title)
	}

	// Another user cannot see it.
	code = doJSON(t, srv.Handler(), "GET", "/api/v1/books/"+created.Book.ID, "bob", nil, nil)
	if code != http.StatusNotFound {
		t.Errorf("cross-user get status = %d, want %d", code, http.StatusNotFound)
	}
}

func TestIllustrateRunsToCompletion(t *testing.T) {
	srv, h := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Broker().Run(ctx)

	created := createTestBook(t, srv, h, "alice", 2)

	var started endpoints.IllustrateResponse
	code := doJSON(t, srv.Handler(), "POST", "/api/v1/books/"+created.Book.ID+"/illustrate", "alice", nil, &started)
	if code != http.StatusAccepted {
		t.Fatalf("illustrate status = %d, want %d", code, http.StatusAccepted)
	}
	if started.QueuedPages != 2 {
		t.Errorf("queued pages = %d, want 2", started.QueuedPages)
	}

	deadline := time.After(10 * time.Second)
	for {
		var status endpoints.BookStatusResponse
		code := doJSON(t, srv.Handler(), "GET", "/api/v1/books/"+created.Book.ID+"/status", "alice", nil, &status)
		if code != http.StatusOK {
			t.Fatalf("status endpoint = %d", code)
		}
		if status.Status == book.StatusCompleted {
			if status.Pages.OK != 2 {
				t.Errorf("ok pages = %d, want 2", status.Pages.OK)
			}
			if status.LatestFlow == nil {
				t.Error("expected a latest flow record")
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("book never completed, last status %s", status.Status)
		case <-time.After(50 * time.Millisecond):
		}
	}

	// A second illustrate call on the finished book conflicts.
	code = doJSON(t, srv.Handler(), "POST", "/api/v1/books/"+created.Book.ID+"/illustrate", "alice", nil, nil)
	if code != http.StatusConflict {
		t.Errorf("re-illustrate status = %d, want %d", code, http.StatusConflict)
	}
}

func TestIllustrateEmptyStatusConflicts(t *testing.T) {
	srv, h := newTestServer(t)

	created := createTestBook(t, srv, h, "alice", 1)

	// Force the book into DRAFT, which is not illustrable.
	if err := srv.Store().SetBookStatus(context.Background(), created.Book.ID, book.StatusDraft); err != nil {
		t.Fatalf("SetBookStatus() error = %v", err)
	}

	code := doJSON(t, srv.Handler(), "POST", "/api/v1/books/"+created.Book.ID+"/illustrate", "alice", nil, nil)
	if code != http.StatusConflict {
		t.Errorf("status = %d, want %d", code, http.StatusConflict)
	}
}

func TestListFlowsAfterIllustration(t *testing.T) {
	srv, h := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Broker().Run(ctx)

	created := createTestBook(t, srv, h, "alice", 1)

	var started endpoints.IllustrateResponse
	code := doJSON(t, srv.Handler(), "POST", "/api/v1/books/"+created.Book.ID+"/illustrate", "alice", nil, &started)
	if code != http.StatusAccepted {
		t.Fatalf("illustrate status = %d", code)
	}

	deadline := time.After(10 * time.Second)
	for {
		var resp endpoints.ListFlowsResponse
		if code := doJSON(t, srv.Handler(), "GET", "/api/v1/flows?book_id="+created.Book.ID, "alice", nil, &resp); code != http.StatusOK {
			t.Fatalf("list flows status = %d", code)
		}
		if resp.Count == 1 && resp.Flows[0].Status == "completed" {
			break
		}
		select {
		case <-deadline:
			t.Fatal("flow never reached completed")
		case <-time.After(50 * time.Millisecond):
		}
	}

	var single endpoints.FlowView
	if code := doJSON(t, srv.Handler(), "GET", "/api/v1/flows/"+started.FlowID, "alice", nil, &single); code != http.StatusOK {
		t.Fatalf("get flow status = %d", code)
	}
	if single.BookID != created.Book.ID {
		t.Errorf("flow book = %q, want %q", single.BookID, created.Book.ID)
	}
}

func TestAssetServingIsOwnerScoped(t *testing.T) {
	srv, h := newTestServer(t)

	created := createTestBook(t, srv, h, "alice", 1)

	library := assets.NewLibrary(h)
	url, err := library.SavePhoto(created.Book.ID, 1, []byte("photo-bytes"), ".png")
	if err != nil {
		t.Fatalf("SavePhoto() error = %v", err)
	}

	fetch := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", url, nil)
		req.Header.Set("X-User-ID", userID)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec
	}

	rec := fetch("alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("asset status = %d, want %d", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "photo-bytes" {
		t.Errorf("asset body = %q", rec.Body.String())
	}

	// Another authenticated user cannot fetch it, and cannot tell the
	// book exists.
	if rec := fetch("mallory"); rec.Code != http.StatusNotFound {
		t.Errorf("cross-user asset status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestFlowsAreOwnerScoped(t *testing.T) {
	srv, h := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Broker().Run(ctx)

	created := createTestBook(t, srv, h, "alice", 1)

	var started endpoints.IllustrateResponse
	if code := doJSON(t, srv.Handler(), "POST", "/api/v1/books/"+created.Book.ID+"/illustrate", "alice", nil, &started); code != http.StatusAccepted {
		t.Fatalf("illustrate status = %d", code)
	}

	// The owner sees the flow, in the filtered and unfiltered listings.
	var mine endpoints.ListFlowsResponse
	if code := doJSON(t, srv.Handler(), "GET", "/api/v1/flows", "alice", nil, &mine); code != http.StatusOK {
		t.Fatalf("list flows status = %d", code)
	}
	if mine.Count != 1 {
		t.Errorf("owner flow count = %d, want 1", mine.Count)
	}

	// Another user sees nothing, with or without the book filter.
	var others endpoints.ListFlowsResponse
	if code := doJSON(t, srv.Handler(), "GET", "/api/v1/flows", "mallory", nil, &others); code != http.StatusOK {
		t.Fatalf("list flows status = %d", code)
	}
	if others.Count != 0 {
		t.Errorf("cross-user flow count = %d, want 0", others.Count)
	}
	if code := doJSON(t, srv.Handler(), "GET", "/api/v1/flows?book_id="+created.Book.ID, "mallory", nil, &others); code != http.StatusOK {
		t.Fatalf("filtered list flows status = %d", code)
	}
	if others.Count != 0 {
		t.Errorf("filtered cross-user flow count = %d, want 0", others.Count)
	}

	// Fetching the flow by id cross-user reads as not found.
	if code := doJSON(t, srv.Handler(), "GET", "/api/v1/flows/"+started.FlowID, "mallory", nil, nil); code != http.StatusNotFound {
		t.Errorf("cross-user get flow status = %d, want %d", code, http.StatusNotFound)
	}
	var single endpoints.FlowView
	if code := doJSON(t, srv.Handler(), "GET", "/api/v1/flows/"+started.FlowID, "alice", nil, &single); code != http.StatusOK {
		t.Errorf("owner get flow status = %d, want 200", code)
	}
}

func TestRetryWithOnlyFlaggedPagesReturnsHint(t *testing.T) {
	srv, h := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.Broker().Run(ctx)

	// Make the mock provider flag one of the two pages.
	p, err := srv.Registry().Get("mock")
	if err != nil {
		t.Fatalf("Get(mock) error = %v", err)
	}
	mock, ok := p.(*providers.MockIllustrator)
	if !ok {
		t.Fatalf("mock provider has type %T", p)
	}
	mock.FlagMarker = "[flag]"

	library := assets.NewLibrary(h)
	req := endpoints.CreateBookRequest{Title: "Flagged"}
	for i, text := range []string{"A calm page", "A page with [flag] content"} {
		url, err := library.SavePhoto("upload", i+1, []byte("photo-bytes"), ".png")
		if err != nil {
			t.Fatalf("SavePhoto() error = %v", err)
		}
		req.Pages = append(req.Pages, endpoints.CreatePageRequest{Text: text, ImageURL: url})
	}
	var created endpoints.BookResponse
	if code := doJSON(t, srv.Handler(), "POST", "/api/v1/books", "alice", req, &created); code != http.StatusCreated {
		t.Fatalf("create book status = %d", code)
	}

	if code := doJSON(t, srv.Handler(), "POST", "/api/v1/books/"+created.Book.ID+"/illustrate", "alice", nil, nil); code != http.StatusAccepted {
		t.Fatalf("illustrate status = %d", code)
	}

	deadline := time.After(10 * time.Second)
	for {
		var status endpoints.BookStatusResponse
		if code := doJSON(t, srv.Handler(), "GET", "/api/v1/books/"+created.Book.ID+"/status", "alice", nil, &status); code != http.StatusOK {
			t.Fatalf("status endpoint = %d", code)
		}
		if status.Status == book.StatusPartial {
			if status.Pages.Flagged != 1 {
				t.Errorf("flagged pages = %d, want 1", status.Pages.Flagged)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("book never reached %s, last status %s", book.StatusPartial, status.Status)
		case <-time.After(50 * time.Millisecond):
		}
	}

	// Retrying now has no attemptable work: the only non-OK page is
	// flagged, so no flow is queued and the response tells the user
	// what to do about it.
	var retried endpoints.IllustrateResponse
	code := doJSON(t, srv.Handler(), "POST", "/api/v1/books/"+created.Book.ID+"/illustrate", "alice", nil, &retried)
	if code != http.StatusOK {
		t.Fatalf("retry status = %d, want %d", code, http.StatusOK)
	}
	if retried.Outcome != flow.OutcomeNothingToRetry {
		t.Errorf("outcome = %s, want %s", retried.Outcome, flow.OutcomeNothingToRetry)
	}
	if retried.Flagged != 1 {
		t.Errorf("flagged = %d, want 1", retried.Flagged)
	}
	if retried.Status != book.StatusPartial {
		t.Errorf("status = %s, want %s", retried.Status, book.StatusPartial)
	}
	if !strings.Contains(retried.Hint, "replace") {
		t.Errorf("hint = %q, want a photo replacement hint", retried.Hint)
	}
}
