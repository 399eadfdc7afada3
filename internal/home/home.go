package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the fable home directory.
	DefaultDirName = ".fable"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// DBFileName is the sqlite database file name.
	DBFileName = "fable.db"
)

// Dir represents the fable home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.fable).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// DBPath returns the path to the sqlite database.
func (d *Dir) DBPath() string {
	return filepath.Join(d.path, DBFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.PhotosDir(), d.IllustrationsDir(), d.ExportsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// PhotosDir returns the directory holding uploaded source photos.
func (d *Dir) PhotosDir() string {
	return filepath.Join(d.path, "photos")
}

// BookPhotosDir returns the photos directory for a book.
func (d *Dir) BookPhotosDir(bookID string) string {
	return filepath.Join(d.PhotosDir(), bookID)
}

// PhotoPath returns the path for one uploaded page photo.
// Page numbers are 1-indexed.
func (d *Dir) PhotoPath(bookID string, pageNum int, ext string) string {
	return filepath.Join(d.BookPhotosDir(bookID), fmt.Sprintf("page_%04d%s", pageNum, ext))
}

// EnsureBookPhotosDir creates the photos directory for a book.
func (d *Dir) EnsureBookPhotosDir(bookID string) error {
	return os.MkdirAll(d.BookPhotosDir(bookID), 0o755)
}

// IllustrationsDir returns the directory holding generated illustrations.
func (d *Dir) IllustrationsDir() string {
	return filepath.Join(d.path, "illustrations")
}

// BookIllustrationsDir returns the illustrations directory for a book.
func (d *Dir) BookIllustrationsDir(bookID string) string {
	return filepath.Join(d.IllustrationsDir(), bookID)
}

// IllustrationPath returns the path for one generated page illustration.
// Page numbers are 1-indexed.
func (d *Dir) IllustrationPath(bookID string, pageNum int, ext string) string {
	return filepath.Join(d.BookIllustrationsDir(bookID), fmt.Sprintf("page_%04d%s", pageNum, ext))
}

// EnsureBookIllustrationsDir creates the illustrations directory for a book.
func (d *Dir) EnsureBookIllustrationsDir(bookID string) error {
	return os.MkdirAll(d.BookIllustrationsDir(bookID), 0o755)
}

// ExportsDir returns the directory for exported files (pdf, etc.).
func (d *Dir) ExportsDir() string {
	return filepath.Join(d.path, "exports")
}

// ExportPath returns the path for a book's exported PDF.
func (d *Dir) ExportPath(bookID string) string {
	return filepath.Join(d.ExportsDir(), fmt.Sprintf("%s.pdf", bookID))
}
