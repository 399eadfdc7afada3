// Package export assembles a book's finished illustrations into a PDF.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/fablehouse/fable/internal/book"
	"github.com/fablehouse/fable/internal/home"
)

// AssetResolver maps an asset URL to a path on disk.
type AssetResolver interface {
	Resolve(assetURL string) (string, error)
}

// Store provides the book and page reads the exporter needs.
type Store interface {
	GetBookForOwner(ctx context.Context, bookID, ownerID string) (*book.Book, error)
	ListPages(ctx context.Context, bookID string) ([]book.Page, error)
}

// Exporter renders books to PDF files under the exports directory.
type Exporter struct {
	store  Store
	assets AssetResolver
	home   *home.Dir
	logger *slog.Logger
}

// NewExporter creates a PDF exporter.
func NewExporter(store Store, assets AssetResolver, homeDir *home.Dir, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		store:  store,
		assets: assets,
		home:   homeDir,
		logger: logger.With("component", "export"),
	}
}

// Result describes a finished export.
type Result struct {
	Path          string `json:"path"`
	PagesExported int    `json:"pages_exported"`
	PagesSkipped  int    `json:"pages_skipped"`
}

// ExportBook writes a PDF containing every finished illustration of the
// book, in page order. Pages without a finished illustration are
// skipped, so partially illustrated books still export what they have.
func (e *Exporter) ExportBook(ctx context.Context, bookID, ownerID string) (*Result, error) {
	b, err := e.store.GetBookForOwner(ctx, bookID, ownerID)
	if err != nil {
		return nil, err
	}

	pages, err := e.store.ListPages(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	sort.Slice(pages, func(i, j int) bool {
		return pages[i].PageNumber < pages[j].PageNumber
	})

	var imagePaths []string
	skipped := 0
	for i := range pages {
		p := &pages[i]
		if !p.Succeeded() {
			skipped++
			continue
		}
		path, err := e.assets.Resolve(p.GeneratedImageURL)
		if err != nil {
			e.logger.Warn("skipping page with unresolvable illustration",
				"book_id", b.ID, "page", p.PageNumber, "error", err)
			skipped++
			continue
		}
		if _, err := os.Stat(path); err != nil {
			e.logger.Warn("skipping page with missing illustration file",
				"book_id", b.ID, "page", p.PageNumber, "path", path)
			skipped++
			continue
		}
		imagePaths = append(imagePaths, path)
	}

	if len(imagePaths) == 0 {
		return nil, fmt.Errorf("book %s has no finished illustrations to export", b.ID)
	}

	if err := e.home.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to prepare exports directory: %w", err)
	}

	outPath := e.home.ExportPath(b.ID)
	if err := api.ImportImagesFile(imagePaths, outPath, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to assemble PDF: %w", err)
	}

	e.logger.Info("exported book",
		"book_id", b.ID, "pages", len(imagePaths), "skipped", skipped, "path", outPath)

	return &Result{
		Path:          outPath,
		PagesExported: len(imagePaths),
		PagesSkipped:  skipped,
	}, nil
}
