package services

import (
	"context"
	"errors"
	"strings"

	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
	"github.com/bondusy/spa-booking/backend/pkg/security"
)

const maxChatMessageLength = 2000

// ChatService answers visitor questions through the spa assistant
type ChatService struct {
	provider     providers.ChatProvider
	systemPrompt string
}

// NewChatService creates a chat service bound to a system prompt
func NewChatService(provider providers.ChatProvider, systemPrompt string) *ChatService {
	return &ChatService{provider: provider, systemPrompt: systemPrompt}
}

// Reply sanitizes message and returns the assistant's answer
func (s *ChatService) Reply(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", apperrors.NewValidationError("Message is required")
	}
	if len([]rune(message)) > maxChatMessageLength {
		return "", apperrors.NewValidationError("Message is too long")
	}
	if s.provider == nil {
		return "", apperrors.NewExternalError("chat assistant is not configured", nil)
	}

	answer, err := s.provider.Complete(ctx, s.systemPrompt, security.SanitizeInput(message))
	if err != nil {
		event := observability.LoggerFromContext(ctx).Error().Err(err)
		if errors.Is(err, providers.ErrChatUnauthorized) {
			event = event.Bool("unauthorized", true)
		}
		event.Msg("chat completion failed")
		return "", apperrors.NewExternalError("Error al comunicarse con el asistente", err)
	}
	return answer, nil
}
