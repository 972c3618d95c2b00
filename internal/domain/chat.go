package domain

import "context"

// Role identifies the author of a conversation message.
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role Role
	Text string
}

// CompletionRequest is a single chat completion call.
// System and Temperature are provider configuration passed per call so that
// one ChatModel instance can serve different orchestrator configs.
type CompletionRequest struct {
	System      string
	History     []Message
	Prompt      string
	Temperature float32
}

// CompletionResult carries the answer text and token usage.
type CompletionResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatModel is the shared chat completion contract between layers.
type ChatModel interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}
