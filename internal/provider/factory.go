// Package provider builds embedding and chat model clients from
// configuration, including per-request chat models keyed by caller
// credentials.
package provider

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/dochelper/ragcore/internal/config"
	"github.com/dochelper/ragcore/internal/domain"
	"github.com/dochelper/ragcore/internal/transport/ollama"
	"github.com/dochelper/ragcore/internal/transport/openai"
)

// NewEmbedder builds the base embedding provider for the configured backend.
func NewEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) (domain.Embedder, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewEmbedder(&ollama.EmbedderConfig{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Logger:  logger,
		})
	default:
		return openai.NewEmbedder(&openai.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Logger:     logger,
		})
	}
}

// ChatFactory hands out chat models. The default model uses the configured
// API key; ChatModelFor memoizes per-key models so a caller presenting its
// own credentials gets a dedicated client without rebuilding it per request.
type ChatFactory struct {
	cfg    config.ChatConfig
	logger *zap.Logger

	mu     sync.Mutex
	models map[string]domain.ChatModel

	def domain.ChatModel
}

// NewChatFactory creates the factory and validates the default model
// eagerly so a missing key fails at startup.
func NewChatFactory(cfg config.ChatConfig, logger *zap.Logger) (*ChatFactory, error) {
	f := &ChatFactory{
		cfg:    cfg,
		logger: logger,
		models: make(map[string]domain.ChatModel),
	}

	def, err := f.build(cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("default chat model: %w", err)
	}
	f.def = def

	return f, nil
}

// Default returns the chat model built from the configured credentials.
func (f *ChatFactory) Default() domain.ChatModel {
	return f.def
}

// ChatModelFor returns a chat model bound to the given API key. An empty
// key returns the default model.
func (f *ChatFactory) ChatModelFor(apiKey string) (domain.ChatModel, error) {
	if apiKey == "" || apiKey == f.cfg.APIKey {
		return f.def, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if m, ok := f.models[apiKey]; ok {
		return m, nil
	}

	m, err := f.build(apiKey)
	if err != nil {
		return nil, err
	}
	f.models[apiKey] = m
	return m, nil
}

func (f *ChatFactory) build(apiKey string) (domain.ChatModel, error) {
	switch f.cfg.Provider {
	case "ollama":
		// Ollama is keyless; the same local model serves every caller.
		return ollama.NewChatModel(&ollama.ChatConfig{
			BaseURL: f.cfg.BaseURL,
			Model:   f.cfg.Model,
			Logger:  f.logger,
		})
	default:
		return openai.NewChatModel(&openai.ChatConfig{
			APIKey:   apiKey,
			BaseURL:  f.cfg.BaseURL,
			Model:    f.cfg.Model,
			Provider: f.cfg.Provider,
			Logger:   f.logger,
		})
	}
}
