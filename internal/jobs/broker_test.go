package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fablehouse/fable/internal/book"
	"github.com/fablehouse/fable/internal/flow"
	"github.com/fablehouse/fable/internal/providers"
	"github.com/fablehouse/fable/internal/store"
)

// fakeBrokerStore records page outcomes and flow transitions in memory.
type fakeBrokerStore struct {
	mu       sync.Mutex
	outcomes map[string]book.ModerationStatus
	reasons  map[string]string
	urls     map[string]string
	flows    map[string]*store.FlowRecord
}

func newFakeBrokerStore() *fakeBrokerStore {
	return &fakeBrokerStore{
		outcomes: make(map[string]book.ModerationStatus),
		reasons:  make(map[string]string),
		urls:     make(map[string]string),
		flows:    make(map[string]*store.FlowRecord),
	}
}

func (f *fakeBrokerStore) SetPageOutcome(_ context.Context, pageID string, status book.ModerationStatus, url, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[pageID] = status
	f.urls[pageID] = url
	f.reasons[pageID] = reason
	return nil
}

func (f *fakeBrokerStore) CreateFlow(_ context.Context, flowID, bookID string, queued int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flows[flowID] = &store.FlowRecord{ID: flowID, BookID: bookID, Status: store.FlowQueued, QueuedPages: queued}
	return nil
}

func (f *fakeBrokerStore) UpdateFlowStatus(_ context.Context, flowID string, status store.FlowStatus, errMsg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.flows[flowID]; ok {
		rec.Status = status
		rec.Error = errMsg
	}
	return nil
}

func (f *fakeBrokerStore) ListFlows(_ context.Context, filter store.FlowFilter) ([]store.FlowRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.FlowRecord
	for _, rec := range f.flows {
		if filter.BookID != "" && rec.BookID != filter.BookID {
			continue
		}
		if filter.Status != "" && rec.Status != filter.Status {
			continue
		}
		out = append(out, *rec)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeBrokerStore) flowStatus(flowID string) store.FlowStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.flows[flowID]; ok {
		return rec.Status
	}
	return ""
}

func (f *fakeBrokerStore) outcome(pageID string) book.ModerationStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.outcomes[pageID]
}

// fakeFinalizer signals on a channel when a book settles.
type fakeFinalizer struct {
	mu     sync.Mutex
	calls  []string
	status book.Status
	done   chan string
}

func newFakeFinalizer() *fakeFinalizer {
	return &fakeFinalizer{status: book.StatusCompleted, done: make(chan string, 8)}
}

func (f *fakeFinalizer) Finalize(_ context.Context, bookID string) (book.Status, error) {
	f.mu.Lock()
	f.calls = append(f.calls, bookID)
	f.mu.Unlock()
	f.done <- bookID
	return f.status, nil
}

func (f *fakeFinalizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestBroker(t *testing.T, st Store, fin Finalizer, mock *providers.MockIllustrator) *Broker {
	t.Helper()
	registry := providers.NewRegistry()
	registry.Register("mock", mock)

	b, err := NewBroker(BrokerConfig{
		Store:           st,
		Finalizer:       fin,
		Images:          newFakeImages(),
		Registry:        registry,
		DefaultProvider: "mock",
		Runners:         2,
	})
	if err != nil {
		t.Fatalf("NewBroker() error = %v", err)
	}
	return b
}

func pageJobs(n int) []flow.PageJob {
	jobs := make([]flow.PageJob, n)
	for i := range jobs {
		jobs[i] = flow.PageJob{
			BookID:         "book-1",
			PageID:         "page-" + string(rune('1'+i)),
			PageNumber:     i + 1,
			Text:           "caption",
			SourceImageURL: "/assets/photos/book-1/page_0001.jpg",
		}
	}
	return jobs
}

func waitForFinalize(t *testing.T, fin *fakeFinalizer) string {
	t.Helper()
	select {
	case bookID := <-fin.done:
		return bookID
	case <-time.After(5 * time.Second):
		t.Fatal("flow never finalized")
		return ""
	}
}

func TestBrokerRunsFlowToCompletion(t *testing.T) {
	st := newFakeBrokerStore()
	fin := newFakeFinalizer()
	mock := providers.NewMockIllustrator()
	mock.Latency = 0

	b := newTestBroker(t, st, fin, mock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	if err := b.SubmitFlow(ctx, "flow-1", "book-1", pageJobs(3)); err != nil {
		t.Fatalf("SubmitFlow() error = %v", err)
	}

	if got := waitForFinalize(t, fin); got != "book-1" {
		t.Errorf("finalized book = %s", got)
	}
	if fin.callCount() != 1 {
		t.Errorf("finalize called %d times, want once per flow", fin.callCount())
	}

	for _, pageID := range []string{"page-1", "page-2", "page-3"} {
		if st.outcome(pageID) != book.ModerationOK {
			t.Errorf("page %s outcome = %s, want OK", pageID, st.outcome(pageID))
		}
	}
	if st.flowStatus("flow-1") != store.FlowCompleted {
		t.Errorf("flow status = %s, want completed", st.flowStatus("flow-1"))
	}
}

func TestBrokerRecordsFlaggedAndFailedPages(t *testing.T) {
	st := newFakeBrokerStore()
	fin := newFakeFinalizer()
	mock := providers.NewMockIllustrator()
	mock.Latency = 0
	mock.RetryDelay = time.Millisecond
	mock.FlagMarker = "[flag]"

	b := newTestBroker(t, st, fin, mock)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	jobs := pageJobs(2)
	jobs[1].Text = "something [flag] here"
	if err := b.SubmitFlow(ctx, "flow-1", "book-1", jobs); err != nil {
		t.Fatalf("SubmitFlow() error = %v", err)
	}

	waitForFinalize(t, fin)

	if st.outcome("page-1") != book.ModerationOK {
		t.Errorf("page-1 outcome = %s, want OK", st.outcome("page-1"))
	}
	if st.outcome("page-2") != book.ModerationFlagged {
		t.Errorf("page-2 outcome = %s, want FLAGGED", st.outcome("page-2"))
	}
	st.mu.Lock()
	reason := st.reasons["page-2"]
	st.mu.Unlock()
	if reason == "" {
		t.Error("flagged page missing reason")
	}
}

func TestBrokerRejectsEmptyFlow(t *testing.T) {
	st := newFakeBrokerStore()
	mock := providers.NewMockIllustrator()
	b := newTestBroker(t, st, newFakeFinalizer(), mock)

	if err := b.SubmitFlow(context.Background(), "flow-1", "book-1", nil); err == nil {
		t.Fatal("expected error for empty flow")
	}
	if len(st.flows) != 0 {
		t.Error("no flow record should exist after rejected submission")
	}
}

func TestBrokerRetryFlowGetsPriority(t *testing.T) {
	st := newFakeBrokerStore()
	fin := newFakeFinalizer()
	mock := providers.NewMockIllustrator()
	mock.Latency = 0

	b := newTestBroker(t, st, fin, mock)
	ctx := context.Background()

	// First flow for the book: normal priority. Not running the broker,
	// so units stay queued for inspection.
	if err := b.SubmitFlow(ctx, "flow-1", "book-1", pageJobs(1)); err != nil {
		t.Fatalf("SubmitFlow() error = %v", err)
	}
	// Second flow sees prior history: retry priority.
	if err := b.SubmitFlow(ctx, "flow-2", "book-1", pageJobs(1)); err != nil {
		t.Fatalf("SubmitFlow() error = %v", err)
	}

	stats := b.QueueStats()
	if stats.Normal != 1 || stats.Retry != 1 {
		t.Errorf("queue stats = %+v, want one normal and one retry unit", stats)
	}
}

func TestBrokerResumeSettlesInterruptedFlows(t *testing.T) {
	st := newFakeBrokerStore()
	fin := newFakeFinalizer()
	mock := providers.NewMockIllustrator()

	// Simulate records left behind by a crashed process.
	_ = st.CreateFlow(context.Background(), "flow-1", "book-1", 3)
	_ = st.UpdateFlowStatus(context.Background(), "flow-1", store.FlowRunning, "")
	_ = st.CreateFlow(context.Background(), "flow-2", "book-2", 2)

	b := newTestBroker(t, st, fin, mock)
	if err := b.Resume(context.Background()); err != nil {
		t.Fatalf("Resume() error = %v", err)
	}

	if st.flowStatus("flow-1") != store.FlowInterrupted {
		t.Errorf("flow-1 status = %s, want interrupted", st.flowStatus("flow-1"))
	}
	if st.flowStatus("flow-2") != store.FlowInterrupted {
		t.Errorf("flow-2 status = %s, want interrupted", st.flowStatus("flow-2"))
	}
	if fin.callCount() != 2 {
		t.Errorf("finalize called %d times, want once per interrupted book", fin.callCount())
	}
}
