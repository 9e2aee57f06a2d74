// Package delivery sends outbound WhatsApp replies through the Twilio
// Messages API.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrSend wraps any failure to hand a message to Twilio.
var ErrSend = errors.New("message delivery failed")

// Config holds the Twilio account credentials and sender number.
type Config struct {
	AccountSID string
	AuthToken  string
	From       string
	BaseURL    string
}

// Sender posts outbound messages to the Twilio REST API.
type Sender struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
}

// NewSender validates credentials and returns a ready Sender.
func NewSender(cfg Config, logger *slog.Logger) (*Sender, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("twilio credentials required")
	}
	if cfg.From == "" {
		return nil, errors.New("twilio sender number required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.twilio.com/2010-04-01"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		logger: logger.With("component", "delivery"),
	}, nil
}

type apiMessage struct {
	SID          string  `json:"sid"`
	Status       string  `json:"status"`
	ErrorCode    *int    `json:"error_code"`
	ErrorMessage *string `json:"error_message"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send delivers body to the given WhatsApp recipient. Recipient and sender
// numbers are normalized to carry the whatsapp: channel prefix exactly once.
func (s *Sender) Send(ctx context.Context, to, body string) error {
	to = strings.TrimSpace(to)
	body = strings.TrimSpace(body)
	if to == "" {
		return fmt.Errorf("%w: recipient required", ErrSend)
	}
	if body == "" {
		return fmt.Errorf("%w: empty body", ErrSend)
	}

	form := url.Values{}
	form.Set("To", whatsappAddr(to))
	form.Set("From", whatsappAddr(s.cfg.From))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.cfg.BaseURL, s.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSend, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", ErrSend, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("%w: http %d: %s (code=%d)", ErrSend, resp.StatusCode, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("%w: http %d", ErrSend, resp.StatusCode)
	}

	var msg apiMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrSend, err)
	}
	if msg.ErrorCode != nil {
		detail := ""
		if msg.ErrorMessage != nil {
			detail = *msg.ErrorMessage
		}
		return fmt.Errorf("%w: code=%d %s", ErrSend, *msg.ErrorCode, detail)
	}

	s.logger.Info("message delivered", "to", to, "sid", msg.SID, "status", msg.Status)
	return nil
}

// whatsappAddr ensures the Twilio WhatsApp channel prefix is present.
func whatsappAddr(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
