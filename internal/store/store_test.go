package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/fablehouse/fable/internal/book"
	"github.com/fablehouse/fable/internal/flow"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory(nil)
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTestBook(t *testing.T, s *Store, status book.Status, pageCount int) *book.Book {
	t.Helper()
	b := &book.Book{
		ID:       "book-1",
		OwnerID:  "user-1",
		Title:    "The Brave Little Fox",
		ArtStyle: "storybook",
		Status:   status,
	}
	pages := make([]book.Page, pageCount)
	for i := range pages {
		pages[i] = book.Page{
			ID:               fmt.Sprintf("page-%d", i+1),
			PageNumber:       i + 1,
			Index:            i,
			Text:             fmt.Sprintf("Caption %d", i+1),
			OriginalImageURL: fmt.Sprintf("https://photos.example/%d.jpg", i+1),
		}
	}
	if err := s.CreateBook(context.Background(), b, pages); err != nil {
		t.Fatalf("CreateBook() error = %v", err)
	}
	return b
}

func TestCreateAndGetBook(t *testing.T) {
	s := openTestStore(t)
	seedTestBook(t, s, book.StatusStoryReady, 3)

	got, err := s.GetBookForOwner(context.Background(), "book-1", "user-1")
	if err != nil {
		t.Fatalf("GetBookForOwner() error = %v", err)
	}
	if got.Title != "The Brave Little Fox" {
		t.Errorf("title = %q", got.Title)
	}
	if got.Status != book.StatusStoryReady {
		t.Errorf("status = %s, want %s", got.Status, book.StatusStoryReady)
	}

	pages, err := s.ListPages(context.Background(), "book-1")
	if err != nil {
		t.Fatalf("ListPages() error = %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("pages = %d, want 3", len(pages))
	}
	for i, p := range pages {
		if p.PageNumber != i+1 {
			t.Errorf("pages out of order: pages[%d].PageNumber = %d", i, p.PageNumber)
		}
		if p.ModerationStatus != book.ModerationPending {
			t.Errorf("page %s moderation = %s, want PENDING", p.ID, p.ModerationStatus)
		}
	}
}

func TestGetBookForOwner_HidesOtherUsersBooks(t *testing.T) {
	s := openTestStore(t)
	seedTestBook(t, s, book.StatusStoryReady, 1)

	_, errOther := s.GetBookForOwner(context.Background(), "book-1", "intruder")
	_, errMissing := s.GetBookForOwner(context.Background(), "ghost", "user-1")

	if !errors.Is(errOther, flow.ErrNotFound) {
		t.Errorf("foreign book error = %v, want ErrNotFound", errOther)
	}
	if !errors.Is(errMissing, flow.ErrNotFound) {
		t.Errorf("missing book error = %v, want ErrNotFound", errMissing)
	}
}

func TestTransitionBookStatus_CAS(t *testing.T) {
	s := openTestStore(t)
	seedTestBook(t, s, book.StatusStoryReady, 1)
	ctx := context.Background()

	ok, err := s.TransitionBookStatus(ctx, "book-1", book.IllustrableStatuses, book.StatusIllustrating)
	if err != nil {
		t.Fatalf("TransitionBookStatus() error = %v", err)
	}
	if !ok {
		t.Fatal("first transition should succeed")
	}

	// Second attempt observes ILLUSTRATING, which is not a source state.
	ok, err = s.TransitionBookStatus(ctx, "book-1", book.IllustrableStatuses, book.StatusIllustrating)
	if err != nil {
		t.Fatalf("TransitionBookStatus() error = %v", err)
	}
	if ok {
		t.Error("second transition should fail the CAS")
	}

	got, _ := s.GetBook(ctx, "book-1")
	if got.Status != book.StatusIllustrating {
		t.Errorf("status = %s, want ILLUSTRATING", got.Status)
	}
}

func TestSetPageOutcome_EnforcesInvariants(t *testing.T) {
	s := openTestStore(t)
	seedTestBook(t, s, book.StatusIllustrating, 2)
	ctx := context.Background()

	if err := s.SetPageOutcome(ctx, "page-1", book.ModerationOK, "https://assets.example/p1.png", ""); err != nil {
		t.Fatalf("OK outcome error = %v", err)
	}
	if err := s.SetPageOutcome(ctx, "page-2", book.ModerationFlagged, "", "content policy"); err != nil {
		t.Fatalf("FLAGGED outcome error = %v", err)
	}

	// OK without an image violates the invariant.
	if err := s.SetPageOutcome(ctx, "page-1", book.ModerationOK, "", ""); err == nil {
		t.Error("OK outcome without image should be rejected")
	}
	// PENDING is not a terminal outcome.
	if err := s.SetPageOutcome(ctx, "page-1", book.ModerationPending, "", ""); err == nil {
		t.Error("PENDING should be rejected as an outcome")
	}

	pages, _ := s.ListPages(ctx, "book-1")
	if !pages[0].Succeeded() {
		t.Errorf("page-1 should have succeeded: %+v", pages[0])
	}
	if pages[1].GeneratedImageURL != "" {
		t.Error("flagged page must not keep a generated image")
	}
	if pages[1].ModerationReason != "content policy" {
		t.Errorf("flagged reason = %q", pages[1].ModerationReason)
	}
}

func TestReplacePagePhoto_ResetsModeration(t *testing.T) {
	s := openTestStore(t)
	seedTestBook(t, s, book.StatusPartial, 1)
	ctx := context.Background()

	if err := s.SetPageOutcome(ctx, "page-1", book.ModerationFlagged, "", "content policy"); err != nil {
		t.Fatalf("SetPageOutcome() error = %v", err)
	}
	if err := s.ReplacePagePhoto(ctx, "page-1", "https://photos.example/new.jpg"); err != nil {
		t.Fatalf("ReplacePagePhoto() error = %v", err)
	}

	p, err := s.GetPage(ctx, "page-1")
	if err != nil {
		t.Fatalf("GetPage() error = %v", err)
	}
	if p.ModerationStatus != book.ModerationPending {
		t.Errorf("moderation = %s, want PENDING", p.ModerationStatus)
	}
	if p.GeneratedImageURL != "" || p.ModerationReason != "" {
		t.Errorf("stale outcome not cleared: %+v", p)
	}
	if p.OriginalImageURL != "https://photos.example/new.jpg" {
		t.Errorf("photo url = %q", p.OriginalImageURL)
	}
}

func TestDeleteBook_CascadesToPages(t *testing.T) {
	s := openTestStore(t)
	seedTestBook(t, s, book.StatusDraft, 2)
	ctx := context.Background()

	if err := s.DeleteBook(ctx, "book-1", "intruder"); !errors.Is(err, flow.ErrNotFound) {
		t.Errorf("foreign delete error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteBook(ctx, "book-1", "user-1"); err != nil {
		t.Fatalf("DeleteBook() error = %v", err)
	}

	pages, err := s.ListPages(ctx, "book-1")
	if err != nil {
		t.Fatalf("ListPages() error = %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("pages = %d after delete, want 0", len(pages))
	}
}

func TestFlowRecords(t *testing.T) {
	s := openTestStore(t)
	seedTestBook(t, s, book.StatusIllustrating, 2)
	ctx := context.Background()

	if err := s.CreateFlow(ctx, "flow-1", "book-1", 2); err != nil {
		t.Fatalf("CreateFlow() error = %v", err)
	}
	if err := s.UpdateFlowStatus(ctx, "flow-1", FlowRunning, ""); err != nil {
		t.Fatalf("mark running error = %v", err)
	}
	if err := s.UpdateFlowStatus(ctx, "flow-1", FlowCompleted, ""); err != nil {
		t.Fatalf("mark completed error = %v", err)
	}

	rec, err := s.GetFlow(ctx, "flow-1")
	if err != nil {
		t.Fatalf("GetFlow() error = %v", err)
	}
	if rec.Status != FlowCompleted {
		t.Errorf("status = %s, want completed", rec.Status)
	}
	if rec.StartedAt == nil || rec.CompletedAt == nil {
		t.Error("timestamps not stamped")
	}
	if rec.QueuedPages != 2 {
		t.Errorf("queued pages = %d, want 2", rec.QueuedPages)
	}

	latest, err := s.LatestFlowForBook(ctx, "book-1")
	if err != nil {
		t.Fatalf("LatestFlowForBook() error = %v", err)
	}
	if latest == nil || latest.ID != "flow-1" {
		t.Errorf("latest = %+v, want flow-1", latest)
	}

	if _, err := s.GetFlow(ctx, "ghost"); !errors.Is(err, flow.ErrNotFound) {
		t.Errorf("missing flow error = %v, want ErrNotFound", err)
	}
}

func TestFlowReads_ScopedToBookOwner(t *testing.T) {
	s := openTestStore(t)
	seedTestBook(t, s, book.StatusIllustrating, 1)
	ctx := context.Background()

	if err := s.CreateFlow(ctx, "flow-1", "book-1", 1); err != nil {
		t.Fatalf("CreateFlow() error = %v", err)
	}

	rec, err := s.GetFlowForOwner(ctx, "flow-1", "user-1")
	if err != nil {
		t.Fatalf("GetFlowForOwner() error = %v", err)
	}
	if rec.BookID != "book-1" {
		t.Errorf("book id = %q", rec.BookID)
	}

	// A flow on someone else's book reads as missing.
	if _, err := s.GetFlowForOwner(ctx, "flow-1", "intruder"); !errors.Is(err, flow.ErrNotFound) {
		t.Errorf("foreign flow error = %v, want ErrNotFound", err)
	}

	mine, err := s.ListFlows(ctx, FlowFilter{OwnerID: "user-1"})
	if err != nil {
		t.Fatalf("ListFlows() error = %v", err)
	}
	if len(mine) != 1 {
		t.Errorf("owner flows = %d, want 1", len(mine))
	}

	theirs, err := s.ListFlows(ctx, FlowFilter{OwnerID: "intruder"})
	if err != nil {
		t.Fatalf("ListFlows() error = %v", err)
	}
	if len(theirs) != 0 {
		t.Errorf("foreign flows = %d, want 0", len(theirs))
	}

	// Naming the book does not widen the scope.
	theirs, err = s.ListFlows(ctx, FlowFilter{OwnerID: "intruder", BookID: "book-1"})
	if err != nil {
		t.Fatalf("ListFlows() error = %v", err)
	}
	if len(theirs) != 0 {
		t.Errorf("filtered foreign flows = %d, want 0", len(theirs))
	}
}
