package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIIllustratorName     = "openai"
	openAIDefaultImageModel   = openai.ImageModelGPTImage1
	openAIDefaultImageSize    = "1024x1024"
	openAIDefaultImageQuality = "medium"

	// Approximate per-image pricing for gpt-image-1 at 1024x1024.
	openAIImageCostLowUSD    = 0.011
	openAIImageCostMediumUSD = 0.042
	openAIImageCostHighUSD   = 0.167
)

// OpenAIIllustratorConfig holds configuration for the OpenAI image client.
type OpenAIIllustratorConfig struct {
	APIKey     string
	Model      string        // "gpt-image-1" (default)
	Size       string        // "1024x1024" (default), "1024x1536", "1536x1024"
	Quality    string        // "low", "medium" (default), "high"
	RateLimit  float64       // Requests per second
	MaxRetries int           // Retry attempts handled by the worker, not the SDK
	RetryDelay time.Duration // Base retry delay for worker backoff
	Timeout    time.Duration // HTTP timeout
	BaseURL    string        // Optional (tests)
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAIIllustrator implements Illustrator using the official OpenAI SDK's
// image edit endpoint: the uploaded photo goes in as the base image and the
// style prompt reshapes it.
type OpenAIIllustrator struct {
	model      string
	size       string
	quality    string
	rateLimit  float64
	maxRetries int
	retryDelay time.Duration
	client     openai.Client
}

// NewOpenAIIllustrator creates a new OpenAI illustration client.
func NewOpenAIIllustrator(cfg OpenAIIllustratorConfig) *OpenAIIllustrator {
	if cfg.Model == "" {
		cfg.Model = openAIDefaultImageModel
	}
	if cfg.Size == "" {
		cfg.Size = openAIDefaultImageSize
	}
	if cfg.Quality == "" {
		cfg.Quality = openAIDefaultImageQuality
	}
	if cfg.RateLimit <= 0 {
		// Image endpoints are slow; ~60 RPM is a safe tier-1 default.
		cfg.RateLimit = 1.0
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		// Attempt-level backoff is owned by the worker pool.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIIllustrator{
		model:      cfg.Model,
		size:       cfg.Size,
		quality:    cfg.Quality,
		rateLimit:  cfg.RateLimit,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		client:     openai.NewClient(opts...),
	}
}

// Name returns the provider identifier.
func (c *OpenAIIllustrator) Name() string {
	return OpenAIIllustratorName
}

// RequestsPerSecond returns the configured rate limit.
func (c *OpenAIIllustrator) RequestsPerSecond() float64 {
	return c.rateLimit
}

// MaxRetries returns the maximum retry attempts.
func (c *OpenAIIllustrator) MaxRetries() int {
	return c.maxRetries
}

// RetryDelayBase returns the base delay for exponential backoff.
func (c *OpenAIIllustrator) RetryDelayBase() time.Duration {
	return c.retryDelay
}

// HealthCheck verifies the OpenAI API is reachable and the API key is valid.
func (c *OpenAIIllustrator) HealthCheck(ctx context.Context) error {
	page, err := c.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("openai models list failed: %w", mapOpenAIError(err))
	}
	if page == nil {
		return fmt.Errorf("openai models list returned nil response")
	}
	return nil
}

// Illustrate renders one page by editing the source photo with a style prompt.
func (c *OpenAIIllustrator) Illustrate(ctx context.Context, req *IllustrationRequest) (*IllustrationResult, error) {
	start := time.Now()

	if req == nil {
		err := fmt.Errorf("request is required")
		return &IllustrationResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
		}, err
	}
	if len(req.SourceImage) == 0 {
		err := fmt.Errorf("source image is required")
		return &IllustrationResult{
			Success:       false,
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
		}, err
	}

	name := req.SourceImageName
	if name == "" {
		name = "page.png"
	}

	params := openai.ImageEditParams{
		Image: openai.ImageEditParamsImageUnion{
			OfFile: openai.File(bytes.NewReader(req.SourceImage), name, mimeForImageName(name)),
		},
		Prompt: BuildIllustrationPrompt(req),
		Model:  openai.ImageModel(c.model),
		N:      openai.Int(1),
		Size:   openai.ImageEditParamsSize(c.size),
	}

	resp, err := c.client.Images.Edit(ctx, params)
	if err != nil {
		err = mapOpenAIError(err)
		return &IllustrationResult{
			Success:       false,
			Provider:      OpenAIIllustratorName,
			ModelUsed:     c.model,
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
		}, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		err = fmt.Errorf("openai returned no image data")
		return &IllustrationResult{
			Success:       false,
			Provider:      OpenAIIllustratorName,
			ModelUsed:     c.model,
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
		}, err
	}

	imageBytes, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		err = fmt.Errorf("failed decoding openai image payload: %w", err)
		return &IllustrationResult{
			Success:       false,
			Provider:      OpenAIIllustratorName,
			ModelUsed:     c.model,
			ErrorMessage:  err.Error(),
			ExecutionTime: time.Since(start),
		}, err
	}

	return &IllustrationResult{
		Success:       true,
		Image:         imageBytes,
		Format:        "png",
		CostUSD:       estimateOpenAIImageCostUSD(c.quality),
		Provider:      OpenAIIllustratorName,
		ModelUsed:     c.model,
		ExecutionTime: time.Since(start),
	}, nil
}

// BuildIllustrationPrompt composes the edit prompt from book style, page
// caption, and title page handling. Exported so workers can log it and tests
// can pin the wording.
func BuildIllustrationPrompt(req *IllustrationRequest) string {
	var b strings.Builder

	style := strings.TrimSpace(req.ArtStyle)
	if style == "" {
		style = "warm children's storybook watercolor"
	}
	fmt.Fprintf(&b, "Redraw this photo as a children's book illustration in a %s style. ", style)
	b.WriteString("Keep the same people, poses, and setting recognizably intact. ")

	if req.IsTitlePage && strings.TrimSpace(req.BookTitle) != "" {
		fmt.Fprintf(&b, "This is the cover: render the title %q in playful hand-lettered type near the top. ", strings.TrimSpace(req.BookTitle))
	}
	if text := strings.TrimSpace(req.Text); text != "" {
		fmt.Fprintf(&b, "The page text reads: %q. Let the scene's mood match it. ", text)
	}
	b.WriteString("No watermarks, no photographic artifacts.")

	return b.String()
}

func estimateOpenAIImageCostUSD(quality string) float64 {
	switch strings.ToLower(strings.TrimSpace(quality)) {
	case "low":
		return openAIImageCostLowUSD
	case "high":
		return openAIImageCostHighUSD
	default:
		return openAIImageCostMediumUSD
	}
}

func mimeForImageName(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".jpg"), strings.HasSuffix(lower, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(lower, ".webp"):
		return "image/webp"
	default:
		return "image/png"
	}
}

func mapOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			retryAfter := time.Duration(0)
			if apiErr.Response != nil {
				retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
			}
			return &RateLimitError{
				Message:    fmt.Sprintf("OpenAI rate limited: %s", apiErr.Message),
				RetryAfter: retryAfter,
				StatusCode: apiErr.StatusCode,
			}
		}
		if isPolicyRejectionCode(apiErr.Code) || isPolicyRejectionMessage(apiErr.Message) {
			return &PolicyRejectionError{
				Message: apiErr.Message,
				Code:    apiErr.Code,
			}
		}
		if apiErr.Message != "" {
			return fmt.Errorf("OpenAI image error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("OpenAI image error (status %d)", apiErr.StatusCode)
	}
	return err
}

func isPolicyRejectionCode(code string) bool {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "moderation_blocked", "content_policy_violation", "safety_system_rejection":
		return true
	}
	return false
}

func isPolicyRejectionMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "content policy") ||
		strings.Contains(lower, "safety system")
}

var _ Illustrator = (*OpenAIIllustrator)(nil)
var _ HealthChecker = (*OpenAIIllustrator)(nil)
