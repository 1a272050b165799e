package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bondusy/spa-booking/backend/internal/domain/entities"
	"github.com/bondusy/spa-booking/backend/internal/domain/providers"
	"github.com/bondusy/spa-booking/backend/pkg/config"
)

// ResendSender sends transactional email through the Resend HTTP API
type ResendSender struct {
	apiKey          string
	baseURL         string
	fromAddress     string
	defaultFromName string
	httpClient      *http.Client
	breaker         *gobreaker.CircuitBreaker
}

var _ providers.EmailSender = (*ResendSender)(nil)

// NewResendSender creates a new Resend sender
func NewResendSender(cfg *config.EmailConfig) (*ResendSender, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY must be set")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "resend",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// rejected requests are the caller's fault, not a provider outage
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			providerErr, ok := providers.AsEmailProviderError(err)
			return ok && providerErr.StatusCode < http.StatusInternalServerError
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})

	return &ResendSender{
		apiKey:          cfg.APIKey,
		baseURL:         strings.TrimSuffix(cfg.BaseURL, "/"),
		fromAddress:     cfg.FromAddress,
		defaultFromName: cfg.DefaultFromName,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		breaker: breaker,
	}, nil
}

type resendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Send delivers msg and returns the provider message id
func (s *ResendSender) Send(ctx context.Context, msg *entities.EmailMessage) (string, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		return s.send(ctx, msg)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("email provider unavailable: %w", err)
	}
	if err != nil {
		return "", err
	}
	return result.(string), nil
}

func (s *ResendSender) send(ctx context.Context, msg *entities.EmailMessage) (string, error) {
	fromName := msg.FromName
	if fromName == "" {
		fromName = s.defaultFromName
	}

	payload, err := json.Marshal(resendRequest{
		From:    fmt.Sprintf(`"%s" <%s>`, fromName, s.fromAddress),
		To:      msg.To,
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed resendResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := parsed.Error
		if message == "" {
			message = parsed.Message
		}
		if message == "" {
			message = "Resend API error"
		}
		return "", &providers.EmailProviderError{StatusCode: resp.StatusCode, Message: message}
	}

	return parsed.ID, nil
}
