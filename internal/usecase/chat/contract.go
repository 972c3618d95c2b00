package chat

import (
	"context"

	"github.com/dochelper/ragcore/internal/domain"
	"github.com/dochelper/ragcore/internal/domain/retrieval"
)

// Retriever finds index segments relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]retrieval.Match, error)
}

// Memory is the per-conversation sliding-window history.
type Memory interface {
	Append(ctx context.Context, id int64, msg domain.Message) error
	Window(ctx context.Context, id int64) ([]domain.Message, error)
}
