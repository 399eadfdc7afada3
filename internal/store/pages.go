package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fablehouse/fable/internal/book"
	"github.com/fablehouse/fable/internal/flow"
)

// ListPages returns all pages of a book ordered by page number.
func (s *Store) ListPages(ctx context.Context, bookID string) ([]book.Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, book_id, page_number, page_index, text, original_image_url,
		       generated_image_url, moderation_status, moderation_reason
		FROM pages WHERE book_id = ? ORDER BY page_number`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []book.Page
	for rows.Next() {
		var p book.Page
		var generated, reason sql.NullString
		var status string
		err := rows.Scan(&p.ID, &p.BookID, &p.PageNumber, &p.Index, &p.Text,
			&p.OriginalImageURL, &generated, &status, &reason)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		p.GeneratedImageURL = generated.String
		p.ModerationStatus = book.ModerationStatus(status)
		p.ModerationReason = reason.String
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// GetPage loads a single page by id.
func (s *Store) GetPage(ctx context.Context, pageID string) (*book.Page, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, book_id, page_number, page_index, text, original_image_url,
		       generated_image_url, moderation_status, moderation_reason
		FROM pages WHERE id = ?`, pageID)

	var p book.Page
	var generated, reason sql.NullString
	var status string
	err := row.Scan(&p.ID, &p.BookID, &p.PageNumber, &p.Index, &p.Text,
		&p.OriginalImageURL, &generated, &status, &reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, flow.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan page: %w", err)
	}
	p.GeneratedImageURL = generated.String
	p.ModerationStatus = book.ModerationStatus(status)
	p.ModerationReason = reason.String
	return &p, nil
}

// SetPageOutcome records the terminal result of one illustration
// attempt as a single atomic row update. The moderation invariants are
// enforced here: OK requires a generated image, FLAGGED and FAILED
// clear it.
func (s *Store) SetPageOutcome(ctx context.Context, pageID string, status book.ModerationStatus, generatedURL, reason string) error {
	switch status {
	case book.ModerationOK:
		if generatedURL == "" {
			return fmt.Errorf("page %s: OK outcome requires a generated image", pageID)
		}
	case book.ModerationFlagged, book.ModerationFailed:
		generatedURL = ""
	default:
		return fmt.Errorf("page %s: %q is not a terminal outcome", pageID, status)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE pages SET moderation_status = ?, generated_image_url = ?, moderation_reason = ?
		WHERE id = ?`,
		string(status), nullable(generatedURL), nullable(reason), pageID)
	if err != nil {
		return fmt.Errorf("set page outcome: %w", err)
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

// ReplacePagePhoto swaps a page's source photo. This is the only path
// that clears a FLAGGED verdict: the moderation status resets to
// PENDING and any generated image is discarded.
func (s *Store) ReplacePagePhoto(ctx context.Context, pageID, newImageURL string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pages
		SET original_image_url = ?, moderation_status = ?, generated_image_url = NULL, moderation_reason = NULL
		WHERE id = ?`,
		newImageURL, string(book.ModerationPending), pageID)
	if err != nil {
		return fmt.Errorf("replace page photo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return flow.ErrNotFound
	}

	// Touch the parent book so list views sort sensibly.
	_, err = s.db.ExecContext(ctx,
		`UPDATE books SET updated_at = ? WHERE id = (SELECT book_id FROM pages WHERE id = ?)`,
		formatTime(time.Now()), pageID)
	return err
}
