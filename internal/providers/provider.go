package providers

import (
	"context"
	"time"
)

// Illustrator turns a page's source photo and caption into a finished
// illustration. Implementations wrap one upstream image model.
type Illustrator interface {
	// Name returns the provider identifier (e.g., "openai").
	Name() string

	// Illustrate renders one page. A nil error with Success=false never
	// happens; callers can rely on err alone for control flow.
	Illustrate(ctx context.Context, req *IllustrationRequest) (*IllustrationResult, error)

	// Rate limiting and retry properties consumed by the worker pool.
	RequestsPerSecond() float64
	MaxRetries() int
	RetryDelayBase() time.Duration
}

// HealthChecker is implemented by providers that can verify upstream
// reachability and credentials.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// IllustrationRequest carries everything a provider needs to render one page.
type IllustrationRequest struct {
	BookID     string
	PageID     string
	PageNumber int

	// Text is the page caption woven into the prompt.
	Text string

	// ArtStyle is the book-level style (e.g., "watercolor storybook").
	ArtStyle string

	// BookTitle is rendered onto the image for title pages.
	BookTitle   string
	IsTitlePage bool

	// SourceImage is the uploaded photo the illustration is based on.
	SourceImage []byte

	// SourceImageName hints the filename/MIME for multipart uploads.
	SourceImageName string

	Timeout time.Duration
}

// IllustrationResult is the outcome of one render attempt.
type IllustrationResult struct {
	Success bool   `json:"success"`
	Image   []byte `json:"-"`
	Format  string `json:"format,omitempty"` // "png", "jpeg", "webp"

	CostUSD       float64       `json:"cost_usd"`
	ExecutionTime time.Duration `json:"execution_time"`

	Provider  string `json:"provider"`
	ModelUsed string `json:"model_used"`

	ErrorMessage string `json:"error_message,omitempty"`
	Attempts     int    `json:"attempts"`
}
