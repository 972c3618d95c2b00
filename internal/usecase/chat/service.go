// Package chat composes retrieval, context injection, conversation memory,
// and a chat completion call into one answer operation.
package chat

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dochelper/ragcore/internal/domain"
)

// Config holds orchestrator parameters.
type Config struct {
	SystemInstruction string
	Temperature       float32
	MetadataKeys      []string
}

// Service is the RAG orchestrator. It is stateless across calls: all state
// lives in the index (via the retriever) and the conversation memory. The
// default chat model is set at construction; AnswerWith accepts a per-call
// model for request-scoped credentials.
type Service struct {
	retriever Retriever
	memory    Memory
	model     domain.ChatModel
	cfg       Config
	logger    *zap.Logger
}

// New creates the orchestrator.
func New(retriever Retriever, memory Memory, model domain.ChatModel, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		memory:    memory,
		model:     model,
		cfg:       cfg,
		logger:    logger,
	}
}

// Answer runs the full pipeline with the default chat model.
func (s *Service) Answer(ctx context.Context, conversationID int64, question string) (string, error) {
	return s.AnswerWith(ctx, s.model, conversationID, question)
}

// AnswerWith runs the pipeline with a caller-supplied chat model.
// The step order is fixed: retrieve, inject (with the conversation window),
// complete, then append question and answer to memory. Memory and index are
// only touched for their own in-memory operations — no lock is held across
// the embedder or completion calls.
func (s *Service) AnswerWith(
	ctx context.Context, model domain.ChatModel, conversationID int64, question string,
) (string, error) {
	matches, err := s.retriever.Retrieve(ctx, question)
	if err != nil {
		return "", fmt.Errorf("%w: retrieve context: %w", domain.ErrOrchestration, err)
	}

	window, err := s.memory.Window(ctx, conversationID)
	if err != nil {
		return "", fmt.Errorf("%w: read conversation %d: %w",
			domain.ErrOrchestration, conversationID, err)
	}

	prompt := Inject(question, matches, s.cfg.MetadataKeys)

	result, err := model.Complete(ctx, domain.CompletionRequest{
		System:      s.cfg.SystemInstruction,
		History:     window,
		Prompt:      prompt,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: complete: %w", domain.ErrOrchestration, err)
	}

	// The raw question goes into memory, not the augmented prompt — the
	// next turn gets its own fresh retrieval.
	if err := s.remember(ctx, conversationID, question, result.Text); err != nil {
		return "", err
	}

	s.logger.Info("Question answered",
		zap.Int64("conversation_id", conversationID),
		zap.Int("retrieved_segments", len(matches)),
		zap.Int("history_messages", len(window)),
		zap.Int("total_tokens", result.TotalTokens),
	)
	return result.Text, nil
}

func (s *Service) remember(ctx context.Context, id int64, question, answer string) error {
	if err := s.memory.Append(ctx, id, domain.Message{Role: domain.RoleUser, Text: question}); err != nil {
		return fmt.Errorf("%w: append question to conversation %d: %w",
			domain.ErrOrchestration, id, err)
	}
	if err := s.memory.Append(ctx, id, domain.Message{Role: domain.RoleAssistant, Text: answer}); err != nil {
		return fmt.Errorf("%w: append answer to conversation %d: %w",
			domain.ErrOrchestration, id, err)
	}
	return nil
}
