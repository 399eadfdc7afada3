package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/fablehouse/fable/internal/home"
)

// URLPrefix is the public URL space all stored assets are served under.
const URLPrefix = "/assets/"

// Library stores uploaded photos and generated illustrations on disk and
// translates between their public /assets/ URLs and filesystem paths.
type Library struct {
	home   *home.Dir
	client *http.Client
}

// NewLibrary creates a library rooted at the fable home directory.
func NewLibrary(h *home.Dir) *Library {
	return &Library{
		home:   h,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

// SavePhoto stores an uploaded source photo and returns its public URL.
// Page numbers are 1-indexed.
func (l *Library) SavePhoto(bookID string, pageNum int, data []byte, ext string) (string, error) {
	ext = normalizeExt(ext)
	if err := l.home.EnsureBookPhotosDir(bookID); err != nil {
		return "", fmt.Errorf("create photos dir: %w", err)
	}
	p := l.home.PhotoPath(bookID, pageNum, ext)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write photo: %w", err)
	}
	return fmt.Sprintf("%sphotos/%s/%s", URLPrefix, bookID, filepath.Base(p)), nil
}

// SaveIllustration stores a generated illustration and returns its public URL.
func (l *Library) SaveIllustration(bookID string, pageNum int, data []byte, ext string) (string, error) {
	ext = normalizeExt(ext)
	if err := l.home.EnsureBookIllustrationsDir(bookID); err != nil {
		return "", fmt.Errorf("create illustrations dir: %w", err)
	}
	p := l.home.IllustrationPath(bookID, pageNum, ext)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write illustration: %w", err)
	}
	return fmt.Sprintf("%sillustrations/%s/%s", URLPrefix, bookID, filepath.Base(p)), nil
}

// Resolve maps a public /assets/ URL back to its filesystem path.
// Traversal outside the photos and illustrations trees is rejected.
func (l *Library) Resolve(assetURL string) (string, error) {
	rel, ok := strings.CutPrefix(assetURL, URLPrefix)
	if !ok {
		return "", fmt.Errorf("not an asset URL: %s", assetURL)
	}
	rel = path.Clean("/" + rel)[1:]

	var root string
	switch {
	case strings.HasPrefix(rel, "photos/"):
		root = l.home.PhotosDir()
		rel = strings.TrimPrefix(rel, "photos/")
	case strings.HasPrefix(rel, "illustrations/"):
		root = l.home.IllustrationsDir()
		rel = strings.TrimPrefix(rel, "illustrations/")
	default:
		return "", fmt.Errorf("unknown asset root in %s", assetURL)
	}
	if rel == "" || strings.Contains(rel, "..") {
		return "", fmt.Errorf("invalid asset path: %s", assetURL)
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}

// ReadSource loads the bytes behind a page's source image reference.
// Local /assets/ URLs read from disk; http(s) URLs are fetched.
func (l *Library) ReadSource(ctx context.Context, url string) ([]byte, string, error) {
	if strings.HasPrefix(url, URLPrefix) {
		p, err := l.Resolve(url)
		if err != nil {
			return nil, "", err
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, "", fmt.Errorf("read source image: %w", err)
		}
		return data, filepath.Base(p), nil
	}

	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, "", err
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("fetch source image: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, "", fmt.Errorf("fetch source image: status %d", resp.StatusCode)
		}
		data, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
		if err != nil {
			return nil, "", fmt.Errorf("read source image body: %w", err)
		}
		return data, path.Base(req.URL.Path), nil
	}

	return nil, "", fmt.Errorf("unsupported source image reference: %s", url)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ".png"
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
