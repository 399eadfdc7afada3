package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/fablehouse/fable/internal/providers"
)

// ImageStore abstracts reading source photos and persisting finished
// illustrations. Satisfied by assets.Library.
type ImageStore interface {
	ReadSource(ctx context.Context, url string) (data []byte, name string, err error)
	SaveIllustration(bookID string, pageNum int, data []byte, ext string) (url string, err error)
}

// Worker wraps a single illustrator with rate limiting and bounded
// retries. One Worker instance is shared by every runner goroutine
// processing units for its provider, so the rate limit holds globally.
type Worker struct {
	name        string
	illustrator providers.Illustrator
	rateLimiter *providers.RateLimiter
	images      ImageStore
	logger      *slog.Logger
}

// WorkerConfig configures a new worker.
type WorkerConfig struct {
	Name        string
	Illustrator providers.Illustrator
	Images      ImageStore
	Logger      *slog.Logger

	// RPS overrides the provider's requests-per-second budget when > 0.
	RPS float64
}

// NewWorker creates a worker wrapping an illustrator.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	if cfg.Illustrator == nil {
		return nil, fmt.Errorf("must provide an Illustrator")
	}
	if cfg.Images == nil {
		return nil, fmt.Errorf("must provide an ImageStore")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	name := cfg.Name
	if name == "" {
		name = cfg.Illustrator.Name()
	}

	rps := cfg.RPS
	if rps <= 0 {
		rps = cfg.Illustrator.RequestsPerSecond()
	}

	return &Worker{
		name:        name,
		illustrator: cfg.Illustrator,
		rateLimiter: providers.NewRateLimiter(rps),
		images:      cfg.Images,
		logger:      logger.With("worker", name),
	}, nil
}

// Name returns the worker name.
func (w *Worker) Name() string {
	return w.name
}

// RateLimiterStatus returns the current rate limiter status.
func (w *Worker) RateLimiterStatus() providers.RateLimiterStatus {
	return w.rateLimiter.Status()
}

// Process executes one work unit to a settled outcome. Transient
// failures are retried with exponential backoff up to the provider's
// attempt budget; moderation rejections stop immediately.
func (w *Worker) Process(ctx context.Context, unit *WorkUnit) WorkResult {
	start := time.Now()
	result := WorkResult{
		UnitID: unit.ID,
		PageID: unit.Job.PageID,
	}

	source, sourceName, err := w.images.ReadSource(ctx, unit.Job.SourceImageURL)
	if err != nil {
		result.Error = fmt.Errorf("load source photo: %w", err)
		result.ExecutionTime = time.Since(start)
		return result
	}

	req := &providers.IllustrationRequest{
		BookID:          unit.Job.BookID,
		PageID:          unit.Job.PageID,
		PageNumber:      unit.Job.PageNumber,
		Text:            unit.Job.Text,
		ArtStyle:        unit.Job.ArtStyle,
		BookTitle:       unit.Job.BookTitle,
		IsTitlePage:     unit.Job.IsTitlePage,
		SourceImage:     source,
		SourceImageName: sourceName,
	}

	attempts := uint(w.illustrator.MaxRetries())
	if attempts == 0 {
		attempts = 1
	}

	var illRes *providers.IllustrationResult
	err = retry.Do(
		func() error {
			if err := w.rateLimiter.Wait(ctx); err != nil {
				return retry.Unrecoverable(err)
			}
			res, callErr := w.illustrator.Illustrate(ctx, req)
			if callErr != nil {
				if rle, ok := providers.IsRateLimitError(callErr); ok {
					w.rateLimiter.Record429(rle.RetryAfter)
				}
				result.Attempts++
				return callErr
			}
			result.Attempts++
			illRes = res
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(w.illustrator.RetryDelayBase()),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			_, rejected := providers.IsPolicyRejection(err)
			return !rejected
		}),
		retry.OnRetry(func(n uint, err error) {
			w.logger.Warn("illustration attempt failed",
				"page_id", unit.Job.PageID, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		result.ExecutionTime = time.Since(start)
		if pre, ok := providers.IsPolicyRejection(err); ok {
			result.Flagged = true
			result.Reason = pre.Message
			return result
		}
		result.Error = err
		return result
	}

	result.CostUSD = illRes.CostUSD

	url, err := w.images.SaveIllustration(unit.Job.BookID, unit.Job.PageNumber, illRes.Image, illRes.Format)
	if err != nil {
		result.Error = fmt.Errorf("store illustration: %w", err)
		result.ExecutionTime = time.Since(start)
		return result
	}

	result.Success = true
	result.ImageURL = url
	result.ExecutionTime = time.Since(start)

	w.logger.Debug("work unit completed",
		"unit_id", unit.ID, "page_id", unit.Job.PageID, "attempts", result.Attempts)
	return result
}
