package providers

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

const MockIllustratorName = "mock"

// MockIllustrator is an Illustrator for testing. Behavior is scripted
// through public fields before use.
type MockIllustrator struct {
	// Configurable behavior
	Latency    time.Duration
	ShouldFail bool
	FailAfter  int // Fail after N requests (0 = never)

	// FlagMarker makes any request whose Text contains the marker fail
	// with a PolicyRejectionError, simulating upstream moderation.
	FlagMarker string

	// Image returned on success. Defaults to a tiny placeholder payload.
	Image []byte

	// Rate limiting
	RPS        float64
	Retries    int
	RetryDelay time.Duration

	// State
	requestCount atomic.Int64
}

// NewMockIllustrator creates a mock illustrator with sensible defaults.
func NewMockIllustrator() *MockIllustrator {
	return &MockIllustrator{
		Latency:    10 * time.Millisecond,
		Image:      []byte("png-bytes"),
		RPS:        50.0,
		Retries:    3,
		RetryDelay: time.Second,
	}
}

// Name returns the provider identifier.
func (m *MockIllustrator) Name() string {
	return MockIllustratorName
}

// RequestsPerSecond returns the rate limit.
func (m *MockIllustrator) RequestsPerSecond() float64 {
	return m.RPS
}

// MaxRetries returns the maximum retry attempts.
func (m *MockIllustrator) MaxRetries() int {
	return m.Retries
}

// RetryDelayBase returns the base delay between retries.
func (m *MockIllustrator) RetryDelayBase() time.Duration {
	return m.RetryDelay
}

// Illustrate renders a scripted response.
func (m *MockIllustrator) Illustrate(ctx context.Context, req *IllustrationRequest) (*IllustrationResult, error) {
	start := time.Now()
	count := m.requestCount.Add(1)

	result := &IllustrationResult{
		Provider: MockIllustratorName,
		Attempts: 1,
	}

	if m.ShouldFail {
		result.ErrorMessage = "mock illustrator configured to fail"
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock illustrator configured to fail")
	}
	if m.FailAfter > 0 && int(count) > m.FailAfter {
		result.ErrorMessage = fmt.Sprintf("mock illustrator failed after %d requests", m.FailAfter)
		result.ExecutionTime = time.Since(start)
		return result, fmt.Errorf("mock illustrator failed after %d requests", m.FailAfter)
	}
	if m.FlagMarker != "" && req != nil && strings.Contains(req.Text, m.FlagMarker) {
		err := &PolicyRejectionError{
			Message: fmt.Sprintf("mock moderation flagged page %d", req.PageNumber),
			Code:    "moderation_blocked",
		}
		result.ErrorMessage = err.Error()
		result.ExecutionTime = time.Since(start)
		return result, err
	}

	// Simulate latency
	select {
	case <-time.After(m.Latency):
	case <-ctx.Done():
		result.ErrorMessage = ctx.Err().Error()
		result.ExecutionTime = time.Since(start)
		return result, ctx.Err()
	}

	result.Success = true
	result.Image = m.Image
	result.Format = "png"
	result.CostUSD = 0.001
	result.ExecutionTime = time.Since(start)
	return result, nil
}

// RequestCount returns the number of requests made.
func (m *MockIllustrator) RequestCount() int64 {
	return m.requestCount.Load()
}

// Reset resets the request counter.
func (m *MockIllustrator) Reset() {
	m.requestCount.Store(0)
}

var _ Illustrator = (*MockIllustrator)(nil)
