package assets

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/fablehouse/fable/internal/home"
)

func testLibrary(t *testing.T) *Library {
	t.Helper()
	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("home.New() error = %v", err)
	}
	if err := h.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists() error = %v", err)
	}
	return NewLibrary(h)
}

func TestSaveAndResolveIllustration(t *testing.T) {
	l := testLibrary(t)

	url, err := l.SaveIllustration("book-1", 3, []byte("png-bytes"), "png")
	if err != nil {
		t.Fatalf("SaveIllustration() error = %v", err)
	}
	if url != "/assets/illustrations/book-1/page_0003.png" {
		t.Errorf("url = %q", url)
	}

	p, err := l.Resolve(url)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read resolved path: %v", err)
	}
	if string(data) != "png-bytes" {
		t.Errorf("content = %q", string(data))
	}
}

func TestSavePhotoNormalizesExt(t *testing.T) {
	l := testLibrary(t)

	url, err := l.SavePhoto("book-1", 1, []byte("jpeg-bytes"), "JPG")
	if err != nil {
		t.Fatalf("SavePhoto() error = %v", err)
	}
	if !strings.HasSuffix(url, "page_0001.jpg") {
		t.Errorf("url = %q", url)
	}
}

func TestResolveRejectsTraversal(t *testing.T) {
	l := testLibrary(t)

	bad := []string{
		"/assets/photos/../../config.yaml",
		"/assets/secrets/key",
		"/etc/passwd",
		"/assets/photos/",
	}
	for _, url := range bad {
		if _, err := l.Resolve(url); err == nil {
			t.Errorf("Resolve(%q) should fail", url)
		}
	}
}

func TestReadSourceLocalAsset(t *testing.T) {
	l := testLibrary(t)

	url, err := l.SavePhoto("book-1", 2, []byte("jpeg-bytes"), ".jpg")
	if err != nil {
		t.Fatalf("SavePhoto() error = %v", err)
	}

	data, name, err := l.ReadSource(context.Background(), url)
	if err != nil {
		t.Fatalf("ReadSource() error = %v", err)
	}
	if string(data) != "jpeg-bytes" {
		t.Errorf("data = %q", string(data))
	}
	if name != "page_0002.jpg" {
		t.Errorf("name = %q", name)
	}
}

func TestReadSourceRejectsUnknownScheme(t *testing.T) {
	l := testLibrary(t)
	if _, _, err := l.ReadSource(context.Background(), "ftp://example.com/x.png"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
