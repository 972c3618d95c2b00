package domain

import "errors"

var (
	// ErrInvalidConfig signals bad chunking, retrieval, or provider parameters.
	// Caller error, not retryable.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = errors.New("embedding provider error")
	// ErrCompletionProvider signals a chat completion provider failure.
	ErrCompletionProvider = errors.New("completion provider error")
	// ErrIngestion signals a failed document ingest. Wraps the first failing
	// stage with document/segment context.
	ErrIngestion = errors.New("ingestion failed")
	// ErrOrchestration signals a failed answer call. Wraps the underlying
	// retrieval or completion failure.
	ErrOrchestration = errors.New("orchestration failed")
	// ErrVectorDimMismatch signals a vector dimension mismatch in the index.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
