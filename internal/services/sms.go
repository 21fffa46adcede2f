package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/healthe/healthe-api/pkg/logging"
)

const textbeltEndpoint = "https://textbelt.com/text"

// SMSSender delivers a text message to a phone number.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// TextbeltSender sends SMS through the Textbelt HTTP API.
type TextbeltSender struct {
	apiKey   string
	endpoint string
	client   *http.Client
	logger   *logging.Logger
}

func NewTextbeltSender(apiKey string, logger *logging.Logger) *TextbeltSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &TextbeltSender{
		apiKey:   apiKey,
		endpoint: textbeltEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   logger,
	}
}

// WithEndpoint points the sender at another URL, used by tests.
func (s *TextbeltSender) WithEndpoint(endpoint string) *TextbeltSender {
	s.endpoint = endpoint
	return s
}

func (s *TextbeltSender) Send(ctx context.Context, phone, message string) error {
	if phone == "" {
		return fmt.Errorf("textbelt: empty phone number")
	}
	body, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": message,
		"key":     s.apiKey,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("textbelt request: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("textbelt response: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("textbelt rejected sms: %s", result.Error)
	}
	s.logger.Info("sms sent", "provider", "textbelt")
	return nil
}
