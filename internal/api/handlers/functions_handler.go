package handlers

import (
	"context"
	"net/http"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	"github.com/bondusy/spa-booking/backend/internal/infrastructure/observability"
	apperrors "github.com/bondusy/spa-booking/backend/pkg/errors"
)

// DirectEmailSender sends caller-composed email
type DirectEmailSender interface {
	SendDirect(ctx context.Context, msg *entities.EmailMessage) (string, error)
}

// ChatResponder answers chat messages
type ChatResponder interface {
	Reply(ctx context.Context, message string) (string, error)
}

// FunctionsHandler serves the /functions endpoints used by the web client
type FunctionsHandler struct {
	email DirectEmailSender
	chat  ChatResponder
}

// NewFunctionsHandler creates a new functions handler
func NewFunctionsHandler(email DirectEmailSender, chat ChatResponder) *FunctionsHandler {
	return &FunctionsHandler{email: email, chat: chat}
}

// SendEmail handles POST /functions/resend
func (h *FunctionsHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var msg entities.EmailMessage
	if !decodeJSON(w, r, &msg) {
		return
	}

	id, err := h.email.SendDirect(r.Context(), &msg)
	if err != nil {
		if providerErr, ok := providers.AsEmailProviderError(err); ok {
			observability.LoggerFromContext(r.Context()).Warn().Err(err).Int("provider_status", providerErr.StatusCode).Msg("email provider rejected message")
			respondWithError(w, providerErr.StatusCode, providerErr.Message)
			return
		}
		if apperrors.IsType(err, apperrors.ErrorTypeValidation) {
			respondWithAppError(w, r, err)
			return
		}
		observability.LoggerFromContext(r.Context()).Error().Err(err).Msg("email delivery failed")
		respondWithError(w, http.StatusInternalServerError, "No se pudo enviar el correo")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"id": id})
}

// Chat handles POST /functions/spa-chat
func (h *FunctionsHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	answer, err := h.chat.Reply(r.Context(), req.Message)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"response": answer})
}
