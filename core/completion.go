package core

import "context"

// Message is one role/content pair in a completion request.
type Message struct {
	Role    string // "system", "user" or "assistant"
	Content string
}

// CompletionRequest describes one call to the completion capability.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int64
}

// Completer is the opaque completion capability the planner depends
// on. Any conforming provider is substitutable; the SDK ships an
// Anthropic-backed implementation under completion/anthropic.
type Completer interface {
	// Complete sends the request and returns the completion text.
	Complete(ctx context.Context, req *CompletionRequest) (string, error)
}
