package flow

import "github.com/fablehouse/fable/internal/book"

// SelectPagesToProcess computes which pages need an illustration job.
//
// On a first-ever flow (isRetry false) every page is processed. On a
// retry, pages that already succeeded are never redone, and flagged
// pages are never auto-retried: re-submitting identical content against
// a content filter wastes spend and will not change the verdict. Only
// FAILED pages and PENDING pages without a generated image remain.
//
// The function is pure: it never mutates its input and preserves input
// order, so it can be unit-tested without a queue or workers.
func SelectPagesToProcess(pages []book.Page, isRetry bool) []book.Page {
	if !isRetry {
		out := make([]book.Page, len(pages))
		copy(out, pages)
		return out
	}

	out := make([]book.Page, 0, len(pages))
	for _, p := range pages {
		if p.Succeeded() {
			continue
		}
		if p.ModerationStatus == book.ModerationFlagged {
			continue
		}
		out = append(out, p)
	}
	return out
}
