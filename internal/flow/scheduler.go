package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fablehouse/fable/internal/book"
)

// Store is the persistence surface the scheduler needs.
type Store interface {
	// GetBookForOwner loads a book scoped to its owner. Absence and
	// ownership mismatch must both surface as ErrNotFound.
	GetBookForOwner(ctx context.Context, bookID, ownerID string) (*book.Book, error)

	// ListPages returns all pages of a book ordered by page number.
	ListPages(ctx context.Context, bookID string) ([]book.Page, error)

	// TransitionBookStatus atomically sets the book's status to `to`
	// only if the current status is one of `from` (compare-and-swap).
	// Returns false when no row matched.
	TransitionBookStatus(ctx context.Context, bookID string, from []book.Status, to book.Status) (bool, error)
}

// Broker accepts one flow (all child jobs plus the finalize trigger) as
// a single all-or-nothing submission.
type Broker interface {
	SubmitFlow(ctx context.Context, flowID, bookID string, jobs []PageJob) error
}

// Outcome classifies what StartIllustration did.
type Outcome string

const (
	// OutcomeQueued: a flow was submitted and the book is ILLUSTRATING.
	OutcomeQueued Outcome = "queued"

	// OutcomeNothingToRetry: every remaining non-OK page is flagged, so
	// there is no attemptable work. No flow was submitted; the user has
	// to replace the flagged photos.
	OutcomeNothingToRetry Outcome = "nothing_to_retry"

	// OutcomeAlreadyComplete: every page is already OK; the stale book
	// status was corrected to COMPLETED without submitting a flow.
	OutcomeAlreadyComplete Outcome = "already_complete"
)

// StartResult reports a successful StartIllustration call.
type StartResult struct {
	BookID          string
	FlowID          string
	Outcome         Outcome
	QueuedPageCount int
	FlaggedCount    int
	Status          book.Status
}

// Scheduler validates illustration requests and submits flows.
// It holds no per-book state: the single-flight guarantee lives in the
// conditional status transition, so any number of scheduler instances
// behind stateless request handlers stay correct.
type Scheduler struct {
	store  Store
	broker Broker
	logger *slog.Logger
}

// NewScheduler creates a flow scheduler.
func NewScheduler(store Store, broker Broker, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{store: store, broker: broker, logger: logger}
}

// StartIllustration starts (or retries) the illustration flow for a book.
//
// Validation failures return ErrNotFound, ErrConflict/ErrAlreadyCompleted
// or ErrNoPages with no side effects. On success the book is either
// ILLUSTRATING with a submitted flow, corrected to COMPLETED, or left
// untouched when only flagged pages remain.
func (s *Scheduler) StartIllustration(ctx context.Context, bookID, ownerID string) (*StartResult, error) {
	b, err := s.store.GetBookForOwner(ctx, bookID, ownerID)
	if err != nil {
		return nil, err
	}

	if b.Status == book.StatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyCompleted, b.ID)
	}
	if !b.Status.Illustrable() {
		return nil, fmt.Errorf("%w: current status %s", ErrConflict, b.Status)
	}

	pages, err := s.store.ListPages(ctx, b.ID)
	if err != nil {
		return nil, fmt.Errorf("load pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPages, b.ID)
	}

	isRetry := b.Status == book.StatusPartial || b.Status == book.StatusFailed
	selected := SelectPagesToProcess(pages, isRetry)

	if len(selected) == 0 {
		return s.handleEmptySelection(ctx, b, pages)
	}

	flowID := uuid.New().String()
	jobs := BuildPageJobs(b, selected)

	// Claim the book first: the CAS is the single-flight gate, so a
	// racing start resolves here instead of double-submitting.
	claimed, err := s.store.TransitionBookStatus(ctx, b.ID, book.IllustrableStatuses, book.StatusIllustrating)
	if err != nil {
		return nil, fmt.Errorf("transition book status: %w", err)
	}
	if !claimed {
		return nil, fmt.Errorf("%w: lost race to a concurrent start", ErrConflict)
	}

	if err := s.broker.SubmitFlow(ctx, flowID, b.ID, jobs); err != nil {
		// Roll the claim back so the book never reads ILLUSTRATING
		// while no flow exists.
		if reverted, revErr := s.store.TransitionBookStatus(ctx, b.ID,
			[]book.Status{book.StatusIllustrating}, b.Status); revErr != nil || !reverted {
			s.logger.Error("failed to revert book status after submit failure",
				"book_id", b.ID, "error", revErr)
		}
		return nil, fmt.Errorf("submit flow: %w", err)
	}

	s.logger.Info("illustration flow submitted",
		"book_id", b.ID, "flow_id", flowID,
		"queued_pages", len(jobs), "retry", isRetry)

	return &StartResult{
		BookID:          b.ID,
		FlowID:          flowID,
		Outcome:         OutcomeQueued,
		QueuedPageCount: len(jobs),
		Status:          book.StatusIllustrating,
	}, nil
}

// handleEmptySelection resolves the two retry edge cases where the
// selector returns no pages: everything is either OK or FLAGGED.
func (s *Scheduler) handleEmptySelection(ctx context.Context, b *book.Book, pages []book.Page) (*StartResult, error) {
	counts := book.CountByModeration(pages)
	flagged := counts[book.ModerationFlagged]

	if flagged > 0 {
		// Nothing attemptable: only photo replacement can move a
		// flagged page, so submitting a flow would be pure waste.
		s.logger.Info("nothing to retry, flagged pages need a photo change",
			"book_id", b.ID, "flagged", flagged)
		return &StartResult{
			BookID:       b.ID,
			Outcome:      OutcomeNothingToRetry,
			FlaggedCount: flagged,
			Status:       b.Status,
		}, nil
	}

	// All pages OK: an earlier aggregation mis-set the book status.
	// Correct it instead of re-running finished work.
	if _, err := s.store.TransitionBookStatus(ctx, b.ID,
		[]book.Status{book.StatusPartial, book.StatusFailed}, book.StatusCompleted); err != nil {
		return nil, fmt.Errorf("self-heal book status: %w", err)
	}
	s.logger.Info("book self-healed to completed", "book_id", b.ID)
	return &StartResult{
		BookID:  b.ID,
		Outcome: OutcomeAlreadyComplete,
		Status:  book.StatusCompleted,
	}, nil
}
