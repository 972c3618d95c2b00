// Package ollama provides embedding and chat completion adapters for a
// local Ollama server. Ollama has no official Go SDK, so the adapters
// speak its JSON API directly over net/http.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dochelper/ragcore/internal/domain"
	"github.com/dochelper/ragcore/internal/metrics"
)

const (
	DefaultBaseURL = "http://localhost:11434"

	defaultEmbedTimeout = 60 * time.Second
	defaultChatTimeout  = 300 * time.Second
)

// Embedder implements domain.Embedder against the Ollama embeddings API.
type Embedder struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// EmbedderConfig holds the Ollama embedding settings.
type EmbedderConfig struct {
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewEmbedder creates an Ollama embedding provider.
func NewEmbedder(cfg *EmbedderConfig) (*Embedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama embedding model is required: %w", domain.ErrInvalidConfig)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Embedder{
		baseURL: baseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: defaultEmbedTimeout},
		logger:  cfg.Logger,
	}, nil
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	start := time.Now()

	var resp embedResponse
	err := postJSON(ctx, e.client, e.baseURL+"/api/embeddings",
		embedRequest{Model: e.model, Prompt: text}, &resp)

	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues("ollama", e.model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues("ollama", e.model, "api_error").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingProvider, err)
	}
	if len(resp.Embedding) == 0 {
		metrics.EmbeddingRequestsTotal.WithLabelValues("ollama", e.model, "error").Inc()
		return domain.EmbeddingResult{}, fmt.Errorf("%w: empty embedding response", domain.ErrEmbeddingProvider)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("ollama", e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues("ollama", e.model).Observe(duration.Seconds())

	// Ollama reports no token usage for embeddings.
	return domain.EmbeddingResult{Embedding: resp.Embedding}, nil
}

// HealthCheck verifies the Ollama server is reachable.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}

// postJSON sends a JSON POST and decodes the JSON response into out.
func postJSON(ctx context.Context, client *http.Client, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
