package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

const maxLoggedBody = 2048

// HTTPSink posts the payload as JSON. The response status is not
// interpreted; the body is logged for diagnostics.
type HTTPSink struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewHTTPSink(url string, client *http.Client, logger *slog.Logger) *HTTPSink {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPSink{url: url, client: client, logger: logger}
}

func (s *HTTPSink) Name() string { return "http" }

func (s *HTTPSink) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post result: %w", err)
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	s.logger.Debug("Result endpoint responded",
		"status", resp.StatusCode,
		"body", string(text))
	return nil
}
