package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fablehouse/fable/internal/book"
	"github.com/fablehouse/fable/internal/flow"
)

// CreateBook inserts a book together with its pages in one transaction.
func (s *Store) CreateBook(ctx context.Context, b *book.Book, pages []book.Page) error {
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	if b.Status == "" {
		b.Status = book.StatusDraft
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO books (id, owner_id, title, art_style, cover_asset_url, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.OwnerID, b.Title, b.ArtStyle, b.CoverAssetURL, string(b.Status),
		formatTime(b.CreatedAt), formatTime(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}

	for i := range pages {
		p := &pages[i]
		if p.ModerationStatus == "" {
			p.ModerationStatus = book.ModerationPending
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO pages (id, book_id, page_number, page_index, text, original_image_url, generated_image_url, moderation_status, moderation_reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, b.ID, p.PageNumber, p.Index, p.Text, p.OriginalImageURL,
			nullable(p.GeneratedImageURL), string(p.ModerationStatus), nullable(p.ModerationReason))
		if err != nil {
			return fmt.Errorf("insert page %d: %w", p.PageNumber, err)
		}
	}

	return tx.Commit()
}

// GetBook loads a book by id without ownership scoping. Internal
// callers only (the broker and aggregator already hold a validated id).
func (s *Store) GetBook(ctx context.Context, bookID string) (*book.Book, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, art_style, cover_asset_url, status, created_at, updated_at
		FROM books WHERE id = ?`, bookID)
	return scanBook(row)
}

// GetBookForOwner loads a book scoped to its owner. A missing book and
// an ownership mismatch both return flow.ErrNotFound so the two cases
// cannot be told apart from outside.
func (s *Store) GetBookForOwner(ctx context.Context, bookID, ownerID string) (*book.Book, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, art_style, cover_asset_url, status, created_at, updated_at
		FROM books WHERE id = ? AND owner_id = ?`, bookID, ownerID)
	return scanBook(row)
}

// ListBooksForOwner returns all books belonging to a user, newest first.
func (s *Store) ListBooksForOwner(ctx context.Context, ownerID string) ([]book.Book, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, title, art_style, cover_asset_url, status, created_at, updated_at
		FROM books WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []book.Book
	for rows.Next() {
		b, err := scanBookRows(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}

// DeleteBook removes a book and (via cascade) its pages. Ownership is
// part of the predicate for the same existence-hiding reason as reads.
func (s *Store) DeleteBook(ctx context.Context, bookID, ownerID string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM books WHERE id = ? AND owner_id = ?`, bookID, ownerID)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return flow.ErrNotFound
	}
	return nil
}

// TransitionBookStatus performs the compare-and-swap status update: the
// book moves to `to` only if its current status is one of `from`. This
// single conditional UPDATE is what makes flow starts single-flight
// across any number of server processes.
func (s *Store) TransitionBookStatus(ctx context.Context, bookID string, from []book.Status, to book.Status) (bool, error) {
	if len(from) == 0 {
		return false, errors.New("transition requires at least one source status")
	}

	placeholders := strings.Repeat("?,", len(from))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(from)+3)
	args = append(args, string(to), formatTime(time.Now()), bookID)
	for _, f := range from {
		args = append(args, string(f))
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		`UPDATE books SET status = ?, updated_at = ? WHERE id = ? AND status IN (%s)`,
		placeholders), args...)
	if err != nil {
		return false, fmt.Errorf("transition status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SetBookStatus writes the book status unconditionally (single atomic
// update; used by the aggregator, whose result is derived from pages).
func (s *Store) SetBookStatus(ctx context.Context, bookID string, status book.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE books SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), bookID)
	if err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return flow.ErrNotFound
	}
	return nil
}

func scanBook(row *sql.Row) (*book.Book, error) {
	var b book.Book
	var status, createdAt, updatedAt string
	err := row.Scan(&b.ID, &b.OwnerID, &b.Title, &b.ArtStyle, &b.CoverAssetURL,
		&status, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, flow.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan book: %w", err)
	}
	b.Status = book.Status(status)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

func scanBookRows(rows *sql.Rows) (*book.Book, error) {
	var b book.Book
	var status, createdAt, updatedAt string
	err := rows.Scan(&b.ID, &b.OwnerID, &b.Title, &b.ArtStyle, &b.CoverAssetURL,
		&status, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan book: %w", err)
	}
	b.Status = book.Status(status)
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	return &b, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
