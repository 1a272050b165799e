package providers

import (
	"context"
	"errors"
)

// ErrChatUnauthorized is returned when the chat gateway rejects our credentials.
var ErrChatUnauthorized = errors.New("chat provider unauthorized")

// ChatProvider answers a single user message under a fixed system prompt.
type ChatProvider interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}
