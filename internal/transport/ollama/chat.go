package ollama

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dochelper/ragcore/internal/domain"
	"github.com/dochelper/ragcore/internal/metrics"
)

// ChatModel implements domain.ChatModel against the Ollama chat API.
type ChatModel struct {
	baseURL string
	model   string
	client  *http.Client
	logger  *zap.Logger
}

// ChatConfig holds the Ollama chat settings.
type ChatConfig struct {
	BaseURL string
	Model   string
	Logger  *zap.Logger
}

// NewChatModel creates an Ollama chat completion provider.
func NewChatModel(cfg *ChatConfig) (*ChatModel, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("ollama chat model is required: %w", domain.ErrInvalidConfig)
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &ChatModel{
		baseURL: baseURL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: defaultChatTimeout},
		logger:  cfg.Logger,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatOptions struct {
	Temperature float32 `json:"temperature"`
}

type chatResponse struct {
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// Complete implements domain.ChatModel.
func (m *ChatModel) Complete(
	ctx context.Context, req domain.CompletionRequest,
) (domain.CompletionResult, error) {
	messages := make([]chatMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	for _, msg := range req.History {
		messages = append(messages, chatMessage{Role: string(msg.Role), Content: msg.Text})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	start := time.Now()

	var resp chatResponse
	err := postJSON(ctx, m.client, m.baseURL+"/api/chat", chatRequest{
		Model:    m.model,
		Messages: messages,
		Stream:   false,
		Options:  chatOptions{Temperature: req.Temperature},
	}, &resp)

	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues("ollama", m.model, "error").Inc()
		return domain.CompletionResult{}, fmt.Errorf("%w: %w", domain.ErrCompletionProvider, err)
	}

	metrics.CompletionRequestsTotal.WithLabelValues("ollama", m.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues("ollama", m.model).Observe(duration.Seconds())
	if resp.PromptEvalCount > 0 {
		metrics.CompletionTokensTotal.WithLabelValues("ollama", m.model, "prompt").
			Add(float64(resp.PromptEvalCount))
	}
	if resp.EvalCount > 0 {
		metrics.CompletionTokensTotal.WithLabelValues("ollama", m.model, "completion").
			Add(float64(resp.EvalCount))
	}

	return domain.CompletionResult{
		Text:             resp.Message.Content,
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
		TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
	}, nil
}

// HealthCheck verifies the Ollama server is reachable.
func (m *ChatModel) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}
	return nil
}
