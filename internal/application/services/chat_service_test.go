package services_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bondusy/spa-booking/backend/internal/application/services"
	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

const spaPrompt = "Eres la asistente virtual de Bondushy Spa."

func TestChatService_Reply(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards the message under the system prompt", func(t *testing.T) {
		provider := new(MockChatProvider)
		provider.On("Complete", mock.Anything, spaPrompt, "¿Qué incluye el facial?").Return("Incluye limpieza e hidratación.", nil)

		answer, err := services.NewChatService(provider, spaPrompt).Reply(ctx, "  ¿Qué incluye el facial?  ")
		require.NoError(t, err)
		assert.Equal(t, "Incluye limpieza e hidratación.", answer)
	})

	t.Run("sanitizes markup before sending", func(t *testing.T) {
		provider := new(MockChatProvider)
		provider.On("Complete", mock.Anything, spaPrompt, mock.MatchedBy(func(msg string) bool {
			return !strings.Contains(msg, "<script>")
		})).Return("ok", nil)

		_, err := services.NewChatService(provider, spaPrompt).Reply(ctx, "hola <script>alert(1)</script>")
		require.NoError(t, err)
		provider.AssertExpectations(t)
	})

	t.Run("validates the message", func(t *testing.T) {
		provider := new(MockChatProvider)
		svc := services.NewChatService(provider, spaPrompt)

		for _, msg := range []string{"", "   ", strings.Repeat("a", 2001)} {
			_, err := svc.Reply(ctx, msg)
			assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		}
		provider.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("accepts exactly the maximum length in runes", func(t *testing.T) {
		provider := new(MockChatProvider)
		provider.On("Complete", mock.Anything, spaPrompt, mock.Anything).Return("ok", nil)

		_, err := services.NewChatService(provider, spaPrompt).Reply(ctx, strings.Repeat("ñ", 2000))
		assert.NoError(t, err)
	})

	t.Run("provider failures surface as external errors", func(t *testing.T) {
		provider := new(MockChatProvider)
		provider.On("Complete", mock.Anything, spaPrompt, mock.Anything).
			Return("", fmt.Errorf("gateway: %w", providers.ErrChatUnauthorized))

		_, err := services.NewChatService(provider, spaPrompt).Reply(ctx, "hola")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
		assert.Contains(t, err.Error(), "Error al comunicarse con el asistente")
	})

	t.Run("missing provider", func(t *testing.T) {
		_, err := services.NewChatService(nil, spaPrompt).Reply(ctx, "hola")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	})
}
