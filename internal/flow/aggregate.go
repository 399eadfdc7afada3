package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fablehouse/fable/internal/book"
)

// AggregatorStore is the persistence surface the aggregator needs.
type AggregatorStore interface {
	ListPages(ctx context.Context, bookID string) ([]book.Page, error)

	// SetBookStatus writes the book status as a single atomic update.
	SetBookStatus(ctx context.Context, bookID string, status book.Status) error
}

// Aggregator computes a book's terminal status from its page outcomes.
// The broker invokes it once every child job of a flow has settled; it
// is idempotent, so duplicate invocations for the same flow are safe.
type Aggregator struct {
	store  AggregatorStore
	logger *slog.Logger
}

// NewAggregator creates a finalize aggregator.
func NewAggregator(store AggregatorStore, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{store: store, logger: logger}
}

// Finalize reloads the book's pages (never a stale scheduling-time
// snapshot) and writes the aggregate status. The status write is the
// only side effect.
func (a *Aggregator) Finalize(ctx context.Context, bookID string) (book.Status, error) {
	pages, err := a.store.ListPages(ctx, bookID)
	if err != nil {
		return "", fmt.Errorf("load pages: %w", err)
	}

	status := AggregateStatus(pages)
	if err := a.store.SetBookStatus(ctx, bookID, status); err != nil {
		return "", fmt.Errorf("set book status: %w", err)
	}

	counts := book.CountByModeration(pages)
	a.logger.Info("flow finalized",
		"book_id", bookID, "status", status,
		"ok", counts[book.ModerationOK],
		"flagged", counts[book.ModerationFlagged],
		"failed", counts[book.ModerationFailed])

	return status, nil
}

// AggregateStatus derives the book status purely from page outcomes:
// all OK is COMPLETED, zero OK is FAILED, anything in between is
// PARTIAL. Keeping this a pure function of the pages prevents the book
// status from drifting away from what the pages actually say.
func AggregateStatus(pages []book.Page) book.Status {
	ok := 0
	for i := range pages {
		if pages[i].Succeeded() {
			ok++
		}
	}
	switch {
	case ok == len(pages):
		return book.StatusCompleted
	case ok == 0:
		return book.StatusFailed
	default:
		return book.StatusPartial
	}
}
