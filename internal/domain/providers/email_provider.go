package providers

import (
	"context"
	"errors"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
)

// EmailProviderError carries the HTTP status and message returned by the email provider.
type EmailProviderError struct {
	StatusCode int
	Message    string
}

func (e *EmailProviderError) Error() string {
	return e.Message
}

// AsEmailProviderError extracts an EmailProviderError from err's chain.
func AsEmailProviderError(err error) (*EmailProviderError, bool) {
	var providerErr *EmailProviderError
	if errors.As(err, &providerErr) {
		return providerErr, true
	}
	return nil, false
}

// EmailSender delivers transactional email.
type EmailSender interface {
	// Send delivers msg and returns the provider's message id
	Send(ctx context.Context, msg *entities.EmailMessage) (string, error)
}
