package report

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/harun/rageshake/internal/tracing"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single delivery attempt.
const DefaultTimeout = 60 * time.Second

// Sender delivers a payload to a collector endpoint.
type Sender interface {
	Send(ctx context.Context, endpoint string, payload Payload) error
}

// HTTPSender posts payloads as JSON.
type HTTPSender struct {
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewHTTPSender creates a sender. A nil client gets DefaultTimeout.
func NewHTTPSender(client *http.Client, logger zerolog.Logger) *HTTPSender {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &HTTPSender{httpClient: client, logger: logger}
}

// Send performs exactly one POST. Any status outside [200, 400) and any
// transport error is returned as a *DeliveryError.
func (s *HTTPSender) Send(ctx context.Context, endpoint string, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal bug report: %w", err)
	}
	if err := ValidatePayload(body); err != nil {
		return err
	}

	requestID := tracing.GetRequestID(ctx)
	if requestID == "" {
		requestID = tracing.NewRequestID()
		ctx = tracing.WithRequestID(ctx, requestID)
	}
	logger := tracing.LoggerFromContext(ctx, s.logger)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("endpoint", endpoint).Msg("Bug report delivery failed")
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		logger.Error().
			Int("status", resp.StatusCode).
			Str("endpoint", endpoint).
			Msg("Bug report rejected by collector")
		return &DeliveryError{Status: resp.StatusCode, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	logger.Info().
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Dur("duration", time.Since(start)).
		Msg("Bug report sent")
	return nil
}
