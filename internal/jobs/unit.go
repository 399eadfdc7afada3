package jobs

import (
	"time"

	"github.com/fablehouse/fable/internal/flow"
)

// WorkUnit is one page illustration queued for a worker.
type WorkUnit struct {
	ID       string
	FlowID   string
	Provider string
	Priority int
	Job      flow.PageJob
}

// WorkResult is the settled outcome of one work unit. Exactly one of
// ImageURL, Flagged, or Error describes what happened.
type WorkResult struct {
	UnitID string
	PageID string

	// Success: the illustration was rendered and stored at ImageURL.
	Success  bool
	ImageURL string

	// Flagged: upstream moderation refused the page permanently.
	Flagged bool
	Reason  string

	// Error covers transient exhaustion and infrastructure failures.
	Error error

	Attempts      int
	CostUSD       float64
	ExecutionTime time.Duration
}
