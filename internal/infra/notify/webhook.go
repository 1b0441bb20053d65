package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"expense_reminder/internal/domain/notifier"
)

const defaultWebhookTimeout = 10 * time.Second

type webhookPayload struct {
	Recipient struct {
		Name           string `json:"name"`
		Email          string `json:"email,omitempty"`
		TelegramChatID int64  `json:"telegram_chat_id,omitempty"`
	} `json:"recipient"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
	SentAt  string `json:"sent_at"`
}

// WebhookNotifier POSTs each reminder as JSON to a fixed URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: defaultWebhookTimeout}
	}
	return &WebhookNotifier{url: url, client: client}
}

func (n *WebhookNotifier) Send(ctx context.Context, msg notifier.Message) error {
	var p webhookPayload
	p.Recipient.Name = msg.To.Name
	p.Recipient.Email = msg.To.Email
	p.Recipient.TelegramChatID = msg.To.TelegramChatID
	p.Subject = msg.Subject
	p.Text = msg.TextBody
	p.HTML = msg.HTMLBody
	p.SentAt = time.Now().UTC().Format(time.RFC3339)

	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
