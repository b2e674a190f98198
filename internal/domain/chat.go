package domain

import "context"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single prompt message.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatResult is the first completion choice with its token usage.
type ChatResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
}

// ChatCompleter is the shared single-turn chat contract between layers.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []ChatMessage) (ChatResult, error)
}
