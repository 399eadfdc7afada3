package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/fablehouse/fable/internal/book"
	"github.com/fablehouse/fable/internal/flow"
	"github.com/fablehouse/fable/internal/providers"
	"github.com/fablehouse/fable/internal/store"
)

// Store is the persistence surface the broker needs.
type Store interface {
	SetPageOutcome(ctx context.Context, pageID string, status book.ModerationStatus, generatedURL, reason string) error
	CreateFlow(ctx context.Context, flowID, bookID string, queuedPages int) error
	UpdateFlowStatus(ctx context.Context, flowID string, status store.FlowStatus, errMsg string) error
	ListFlows(ctx context.Context, filter store.FlowFilter) ([]store.FlowRecord, error)
}

// Finalizer settles a book's status once all of a flow's units are done.
type Finalizer interface {
	Finalize(ctx context.Context, bookID string) (book.Status, error)
}

// Broker runs illustration flows in-process: it fans page jobs out to
// rate-limited workers and fans results back in, writing each page's
// outcome as it settles and finalizing the book when the last unit of a
// flow lands. It implements flow.Broker.
type Broker struct {
	store     Store
	finalizer Finalizer
	logger    *slog.Logger

	workers         map[string]*Worker
	defaultProvider string
	queue           *PriorityQueue
	runners         int

	mu    sync.Mutex
	flows map[string]*flowState // flowID -> in-flight state
}

// flowState tracks one in-flight flow's fan-in.
type flowState struct {
	bookID    string
	remaining int
	failures  int
}

// BrokerConfig configures a new broker.
type BrokerConfig struct {
	Store     Store
	Finalizer Finalizer
	Images    ImageStore
	Registry  *providers.Registry
	Logger    *slog.Logger

	// DefaultProvider names the illustrator flows are routed to.
	DefaultProvider string

	// Runners is the number of concurrent worker goroutines (default 4).
	Runners int
}

// NewBroker creates a broker with one worker per registered illustrator.
func NewBroker(cfg BrokerConfig) (*Broker, error) {
	if cfg.Store == nil || cfg.Finalizer == nil {
		return nil, fmt.Errorf("must provide Store and Finalizer")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("must provide a provider registry")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	runners := cfg.Runners
	if runners <= 0 {
		runners = 4
	}

	workers := make(map[string]*Worker)
	for name, ill := range cfg.Registry.Illustrators() {
		w, err := NewWorker(WorkerConfig{
			Name:        name,
			Illustrator: ill,
			Images:      cfg.Images,
			Logger:      logger,
		})
		if err != nil {
			return nil, fmt.Errorf("worker %s: %w", name, err)
		}
		workers[name] = w
	}

	defaultProvider := cfg.DefaultProvider
	if defaultProvider == "" && len(workers) == 1 {
		for name := range workers {
			defaultProvider = name
		}
	}
	if _, ok := workers[defaultProvider]; !ok {
		return nil, fmt.Errorf("default provider %q is not registered", defaultProvider)
	}

	return &Broker{
		store:           cfg.Store,
		finalizer:       cfg.Finalizer,
		logger:          logger.With("component", "broker"),
		workers:         workers,
		defaultProvider: defaultProvider,
		queue:           NewPriorityQueue(),
		runners:         runners,
		flows:           make(map[string]*flowState),
	}, nil
}

// SubmitFlow accepts one flow as a single all-or-nothing submission: the
// flow record is created and every unit enqueued, or an error is
// returned with nothing queued.
func (b *Broker) SubmitFlow(ctx context.Context, flowID, bookID string, jobs []flow.PageJob) error {
	if len(jobs) == 0 {
		return fmt.Errorf("flow %s has no jobs", flowID)
	}

	priority := b.priorityForBook(ctx, bookID)

	if err := b.store.CreateFlow(ctx, flowID, bookID, len(jobs)); err != nil {
		return fmt.Errorf("create flow record: %w", err)
	}
	if err := b.store.UpdateFlowStatus(ctx, flowID, store.FlowRunning, ""); err != nil {
		b.logger.Warn("failed to mark flow running", "flow_id", flowID, "error", err)
	}

	b.mu.Lock()
	b.flows[flowID] = &flowState{bookID: bookID, remaining: len(jobs)}
	b.mu.Unlock()

	for i := range jobs {
		unit := &WorkUnit{
			ID:       uuid.New().String(),
			FlowID:   flowID,
			Provider: b.defaultProvider,
			Priority: priority,
			Job:      jobs[i],
		}
		if err := b.queue.Push(unit); err != nil {
			// Only possible with a nil unit; guards against future edits.
			return err
		}
	}

	b.logger.Info("flow submitted",
		"flow_id", flowID, "book_id", bookID,
		"units", len(jobs), "priority", priority)
	return nil
}

// priorityForBook bumps flows for books that have run before: retries
// are small and a user is usually waiting on them.
func (b *Broker) priorityForBook(ctx context.Context, bookID string) int {
	recs, err := b.store.ListFlows(ctx, store.FlowFilter{BookID: bookID, Limit: 1})
	if err != nil {
		b.logger.Warn("failed to inspect flow history", "book_id", bookID, "error", err)
		return PriorityNormal
	}
	if len(recs) > 0 {
		return PriorityRetry
	}
	return PriorityNormal
}

// Run processes queued units until ctx is cancelled. Call in a goroutine.
func (b *Broker) Run(ctx context.Context) {
	b.logger.Info("broker started", "runners", b.runners, "workers", len(b.workers))

	var wg sync.WaitGroup
	for i := 0; i < b.runners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.runnerLoop(ctx)
		}()
	}
	wg.Wait()
	b.logger.Info("broker stopped")
}

func (b *Broker) runnerLoop(ctx context.Context) {
	for {
		unit := b.queue.Pop(ctx.Done())
		if unit == nil {
			return
		}

		worker, ok := b.workers[unit.Provider]
		if !ok {
			b.handleResult(ctx, unit, WorkResult{
				UnitID: unit.ID,
				PageID: unit.Job.PageID,
				Error:  fmt.Errorf("no worker for provider %s", unit.Provider),
			})
			continue
		}

		b.handleResult(ctx, unit, worker.Process(ctx, unit))
	}
}

// handleResult writes the page outcome, then finalizes the flow when its
// last unit has settled.
func (b *Broker) handleResult(ctx context.Context, unit *WorkUnit, result WorkResult) {
	var writeErr error
	switch {
	case result.Success:
		writeErr = b.store.SetPageOutcome(ctx, result.PageID, book.ModerationOK, result.ImageURL, "")
	case result.Flagged:
		writeErr = b.store.SetPageOutcome(ctx, result.PageID, book.ModerationFlagged, "", result.Reason)
	default:
		reason := "illustration failed"
		if result.Error != nil {
			reason = result.Error.Error()
		}
		writeErr = b.store.SetPageOutcome(ctx, result.PageID, book.ModerationFailed, "", reason)
	}
	if writeErr != nil {
		b.logger.Error("failed to record page outcome",
			"flow_id", unit.FlowID, "page_id", result.PageID, "error", writeErr)
	}

	failed := !result.Success || writeErr != nil

	b.mu.Lock()
	state, ok := b.flows[unit.FlowID]
	if !ok {
		b.mu.Unlock()
		b.logger.Warn("result for unknown flow", "flow_id", unit.FlowID)
		return
	}
	state.remaining--
	if failed {
		state.failures++
	}
	done := state.remaining == 0
	if done {
		delete(b.flows, unit.FlowID)
	}
	failures := state.failures
	bookID := state.bookID
	b.mu.Unlock()

	if !done {
		return
	}

	status, err := b.finalizer.Finalize(ctx, bookID)
	if err != nil {
		b.logger.Error("flow finalize failed", "flow_id", unit.FlowID, "book_id", bookID, "error", err)
		if uerr := b.store.UpdateFlowStatus(ctx, unit.FlowID, store.FlowFailed, err.Error()); uerr != nil {
			b.logger.Error("failed to mark flow failed", "flow_id", unit.FlowID, "error", uerr)
		}
		return
	}

	if err := b.store.UpdateFlowStatus(ctx, unit.FlowID, store.FlowCompleted, ""); err != nil {
		b.logger.Error("failed to mark flow completed", "flow_id", unit.FlowID, "error", err)
	}
	b.logger.Info("flow completed",
		"flow_id", unit.FlowID, "book_id", bookID,
		"status", status, "unit_failures", failures)
}

// Resume settles flows that were queued or running when the process last
// stopped: their records are marked interrupted and each affected book is
// re-finalized from the page outcomes already on disk. Safe to call on
// every startup.
func (b *Broker) Resume(ctx context.Context) error {
	books := make(map[string]struct{})

	for _, st := range []store.FlowStatus{store.FlowQueued, store.FlowRunning} {
		recs, err := b.store.ListFlows(ctx, store.FlowFilter{Status: st})
		if err != nil {
			return fmt.Errorf("list %s flows: %w", st, err)
		}
		for _, rec := range recs {
			if err := b.store.UpdateFlowStatus(ctx, rec.ID, store.FlowInterrupted, "process restarted"); err != nil {
				b.logger.Error("failed to mark flow interrupted", "flow_id", rec.ID, "error", err)
				continue
			}
			books[rec.BookID] = struct{}{}
			b.logger.Warn("flow interrupted by restart", "flow_id", rec.ID, "book_id", rec.BookID)
		}
	}

	for bookID := range books {
		status, err := b.finalizer.Finalize(ctx, bookID)
		if err != nil {
			b.logger.Error("failed to settle interrupted book", "book_id", bookID, "error", err)
			continue
		}
		b.logger.Info("interrupted book settled", "book_id", bookID, "status", status)
	}
	return nil
}

// QueueStats returns current queue depth by priority.
func (b *Broker) QueueStats() PriorityQueueStats {
	return b.queue.Stats()
}

// ActiveFlows returns the number of in-flight flows.
func (b *Broker) ActiveFlows() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.flows)
}

// Workers returns the names of the configured workers.
func (b *Broker) Workers() []string {
	names := make([]string, 0, len(b.workers))
	for name := range b.workers {
		names = append(names, name)
	}
	return names
}

var _ flow.Broker = (*Broker)(nil)
