package export

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/fablehouse/fable/internal/book"
	"github.com/fablehouse/fable/internal/flow"
	"github.com/fablehouse/fable/internal/home"
)

type fakeStore struct {
	book  *book.Book
	pages []book.Page
}

func (s *fakeStore) GetBookForOwner(ctx context.Context, bookID, ownerID string) (*book.Book, error) {
	if s.book == nil || s.book.ID != bookID || s.book.OwnerID != ownerID {
		return nil, flow.ErrNotFound
	}
	return s.book, nil
}

func (s *fakeStore) ListPages(ctx context.Context, bookID string) ([]book.Page, error) {
	return s.pages, nil
}

type fakeResolver struct {
	paths map[string]string
}

func (r *fakeResolver) Resolve(assetURL string) (string, error) {
	if path, ok := r.paths[assetURL]; ok {
		return path, nil
	}
	return "", os.ErrNotExist
}

func writeTestPNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("failed to write test image: %v", err)
	}
}

func TestExportBookOrdersAndSkipsPages(t *testing.T) {
	dir := t.TempDir()
	h, err := home.New(dir)
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}

	img1 := filepath.Join(dir, "page1.png")
	img2 := filepath.Join(dir, "page2.png")
	writeTestPNG(t, img1)
	writeTestPNG(t, img2)

	store := &fakeStore{
		book: &book.Book{ID: "book-1", OwnerID: "user-1", Status: book.StatusPartial},
		pages: []book.Page{
			// Out of order on purpose; export sorts by page number.
			{ID: "p2", BookID: "book-1", PageNumber: 2, GeneratedImageURL: "/assets/illustrations/book-1/page_0002.png", ModerationStatus: book.ModerationOK},
			{ID: "p1", BookID: "book-1", PageNumber: 1, GeneratedImageURL: "/assets/illustrations/book-1/page_0001.png", ModerationStatus: book.ModerationOK},
			{ID: "p3", BookID: "book-1", PageNumber: 3, ModerationStatus: book.ModerationFlagged},
		},
	}
	resolver := &fakeResolver{paths: map[string]string{
		"/assets/illustrations/book-1/page_0001.png": img1,
		"/assets/illustrations/book-1/page_0002.png": img2,
	}}

	exp := NewExporter(store, resolver, h, nil)
	result, err := exp.ExportBook(context.Background(), "book-1", "user-1")
	if err != nil {
		t.Fatalf("ExportBook() error = %v", err)
	}

	if result.PagesExported != 2 {
		t.Errorf("PagesExported = %d, want 2", result.PagesExported)
	}
	if result.PagesSkipped != 1 {
		t.Errorf("PagesSkipped = %d, want 1", result.PagesSkipped)
	}
	if result.Path != h.ExportPath("book-1") {
		t.Errorf("Path = %q, want %q", result.Path, h.ExportPath("book-1"))
	}
	if _, err := os.Stat(result.Path); err != nil {
		t.Errorf("exported PDF missing: %v", err)
	}
}

func TestExportBookNoFinishedPages(t *testing.T) {
	dir := t.TempDir()
	h, err := home.New(dir)
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}

	store := &fakeStore{
		book: &book.Book{ID: "book-1", OwnerID: "user-1", Status: book.StatusFailed},
		pages: []book.Page{
			{ID: "p1", BookID: "book-1", PageNumber: 1, ModerationStatus: book.ModerationFailed},
		},
	}

	exp := NewExporter(store, &fakeResolver{}, h, nil)
	if _, err := exp.ExportBook(context.Background(), "book-1", "user-1"); err == nil {
		t.Error("expected error exporting book with no finished illustrations")
	}
}

func TestExportBookNotOwned(t *testing.T) {
	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}
	store := &fakeStore{
		book: &book.Book{ID: "book-1", OwnerID: "user-1"},
	}

	exp := NewExporter(store, &fakeResolver{}, h, nil)
	if _, err := exp.ExportBook(context.Background(), "book-1", "user-2"); err != flow.ErrNotFound {
		t.Errorf("error = %v, want flow.ErrNotFound", err)
	}
}
