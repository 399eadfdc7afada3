package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOpenAIIllustrateSuccess(t *testing.T) {
	var gotPath, gotPrompt string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if err := r.ParseMultipartForm(16 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotPrompt = r.FormValue("prompt")

		file, _, err := r.FormFile("image")
		if err != nil {
			t.Fatalf("missing image part: %v", err)
		}
		file.Close()

		b64 := base64.StdEncoding.EncodeToString([]byte("illustrated-bytes"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"created":1,"data":[{"b64_json":%q}]}`, b64)
	}))
	defer server.Close()

	client := NewOpenAIIllustrator(OpenAIIllustratorConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})

	result, err := client.Illustrate(context.Background(), &IllustrationRequest{
		BookID:          "book-1",
		PageID:          "page-1",
		PageNumber:      2,
		Text:            "Maya builds a sandcastle.",
		ArtStyle:        "watercolor storybook",
		SourceImage:     []byte("jpeg-bytes"),
		SourceImageName: "beach.jpg",
	})
	if err != nil {
		t.Fatalf("Illustrate() error = %v", err)
	}
	if !result.Success {
		t.Fatal("expected success result")
	}
	if string(result.Image) != "illustrated-bytes" {
		t.Fatalf("unexpected image bytes: %q", string(result.Image))
	}
	if result.CostUSD <= 0 {
		t.Fatalf("expected non-zero cost estimate, got %f", result.CostUSD)
	}
	if gotPath != "/images/edits" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if !strings.Contains(gotPrompt, "watercolor storybook") {
		t.Fatalf("prompt missing art style: %q", gotPrompt)
	}
	if !strings.Contains(gotPrompt, "Maya builds a sandcastle.") {
		t.Fatalf("prompt missing page text: %q", gotPrompt)
	}
}

func TestOpenAIIllustrateRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit","type":"rate_limit_error","param":null,"code":"rate_limit"}}`))
	}))
	defer server.Close()

	client := NewOpenAIIllustrator(OpenAIIllustratorConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})

	_, err := client.Illustrate(context.Background(), &IllustrationRequest{
		SourceImage: []byte("jpeg-bytes"),
	})
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	rle, ok := IsRateLimitError(err)
	if !ok {
		t.Fatalf("expected RateLimitError, got %T: %v", err, err)
	}
	if rle.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rle.StatusCode)
	}
	if rle.RetryAfter != 5*time.Second {
		t.Fatalf("expected RetryAfter=5s, got %v", rle.RetryAfter)
	}
}

func TestOpenAIIllustratePolicyRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Your request was rejected by our safety system.","type":"invalid_request_error","param":null,"code":"moderation_blocked"}}`))
	}))
	defer server.Close()

	client := NewOpenAIIllustrator(OpenAIIllustratorConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})

	_, err := client.Illustrate(context.Background(), &IllustrationRequest{
		SourceImage: []byte("jpeg-bytes"),
	})
	if err == nil {
		t.Fatal("expected error for moderation rejection")
	}
	pre, ok := IsPolicyRejection(err)
	if !ok {
		t.Fatalf("expected PolicyRejectionError, got %T: %v", err, err)
	}
	if pre.Code != "moderation_blocked" {
		t.Fatalf("unexpected code: %q", pre.Code)
	}
}

func TestOpenAIIllustrateValidation(t *testing.T) {
	client := NewOpenAIIllustrator(OpenAIIllustratorConfig{APIKey: "test-key"})

	_, err := client.Illustrate(context.Background(), &IllustrationRequest{})
	if err == nil {
		t.Fatal("expected validation error for missing source image")
	}
	if !strings.Contains(err.Error(), "source image is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOpenAIHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gpt-image-1","object":"model","created":1,"owned_by":"openai"}]}`))
	}))
	defer server.Close()

	client := NewOpenAIIllustrator(OpenAIIllustratorConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
	})

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
}

func TestBuildIllustrationPromptTitlePage(t *testing.T) {
	prompt := BuildIllustrationPrompt(&IllustrationRequest{
		BookTitle:   "The Brave Little Fox",
		IsTitlePage: true,
		ArtStyle:    "crayon",
	})
	if !strings.Contains(prompt, `"The Brave Little Fox"`) {
		t.Fatalf("title missing from cover prompt: %q", prompt)
	}

	prompt = BuildIllustrationPrompt(&IllustrationRequest{
		BookTitle: "The Brave Little Fox",
		Text:      "Once upon a time.",
	})
	if strings.Contains(prompt, "The Brave Little Fox") {
		t.Fatalf("title leaked into interior page prompt: %q", prompt)
	}
}
