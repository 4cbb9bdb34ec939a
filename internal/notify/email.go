package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/bus-seat-reservation/internal/model"
)

type resendEmail struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// EmailSink sends notifications through a Resend-compatible HTTP API.
// Without an API key it logs a mock email and reports success.
type EmailSink struct {
	apiURL string
	apiKey string
	from   string
	client *http.Client
	log    *zap.Logger
}

func NewEmailSink(apiURL, apiKey, from string, timeout time.Duration, logger *zap.Logger) *EmailSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailSink{
		apiURL: apiURL,
		apiKey: apiKey,
		from:   from,
		client: &http.Client{Timeout: timeout},
		log:    logger,
	}
}

func (s *EmailSink) NotifyConfirmed(ctx context.Context, res *model.Reservation) model.NotifyResult {
	return result(s.Send(ctx, res.HolderEmail, Confirmation(res)))
}

func (s *EmailSink) NotifyFailed(ctx context.Context, n model.FailureNotice) model.NotifyResult {
	return result(s.Send(ctx, n.HolderEmail, Failure(n)))
}

// Send delivers one message.
func (s *EmailSink) Send(ctx context.Context, to string, m Message) error {
	if to == "" {
		return fmt.Errorf("email: no recipient")
	}
	if s.apiKey == "" {
		s.log.Warn("missing email API key, mock email triggered",
			zap.String("to", to), zap.String("subject", m.Subject), zap.String("body", m.Text))
		return nil
	}

	body, err := json.Marshal(resendEmail{From: s.from, To: to, Subject: m.Subject, Text: m.Text})
	if err != nil {
		return fmt.Errorf("email: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("email API error: %s", resp.Status)
	}
	s.log.Info("email sent", zap.String("to", to), zap.String("subject", m.Subject))
	return nil
}

func result(err error) model.NotifyResult {
	if err != nil {
		return model.NotifyResult{Success: false, Error: err.Error()}
	}
	return model.NotifyResult{Success: true}
}
