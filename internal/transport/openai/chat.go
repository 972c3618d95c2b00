package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/dochelper/ragcore/internal/domain"
	"github.com/dochelper/ragcore/internal/metrics"
)

// ChatModel is a chat completion provider using the OpenAI-compatible API.
type ChatModel struct {
	client   *openai.Client
	model    string
	provider string
	logger   *zap.Logger
}

// ChatConfig holds the chat provider settings.
type ChatConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Provider string
	Logger   *zap.Logger
}

// NewChatModel creates an OpenAI-compatible chat completion provider.
// A missing API key fails here, not on first use.
func NewChatModel(cfg *ChatConfig) (*ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("chat api key is required: %w", domain.ErrInvalidConfig)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &ChatModel{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.Model,
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}, nil
}

// Complete implements domain.ChatModel. The conversation window is replayed
// as alternating user/assistant messages between the system instruction and
// the augmented prompt.
func (m *ChatModel) Complete(
	ctx context.Context, req domain.CompletionRequest,
) (domain.CompletionResult, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, msg := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    roleToOpenAI(msg.Role),
			Content: msg.Text,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	start := time.Now()

	resp, err := m.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       m.model,
		Messages:    messages,
		Temperature: req.Temperature,
	})

	duration := time.Since(start)

	if err != nil {
		metrics.CompletionRequestsTotal.WithLabelValues(m.provider, m.model, "error").Inc()
		return domain.CompletionResult{}, parseAPIError(err, domain.ErrCompletionProvider)
	}

	if len(resp.Choices) == 0 {
		metrics.CompletionRequestsTotal.WithLabelValues(m.provider, m.model, "error").Inc()
		return domain.CompletionResult{}, fmt.Errorf(
			"empty completion response: %w", domain.ErrCompletionProvider)
	}

	metrics.CompletionRequestsTotal.WithLabelValues(m.provider, m.model, "success").Inc()
	metrics.CompletionRequestDuration.WithLabelValues(m.provider, m.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.CompletionTokensTotal.WithLabelValues(m.provider, m.model, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.CompletionTokensTotal.WithLabelValues(m.provider, m.model, "completion").
			Add(float64(resp.Usage.CompletionTokens))
	}

	return domain.CompletionResult{
		Text:             resp.Choices[0].Message.Content,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (m *ChatModel) HealthCheck(ctx context.Context) error {
	if _, err := m.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func roleToOpenAI(r domain.Role) string {
	switch r {
	case domain.RoleAssistant:
		return openai.ChatMessageRoleAssistant
	case domain.RoleSystem:
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}
