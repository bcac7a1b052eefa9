package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/fyrsmithlabs/triaged/internal/config"
)

// Webhook implements Sender against an incoming-webhook endpoint (Slack and
// compatible chat services).
type Webhook struct {
	url        config.Secret
	httpClient *http.Client
}

// webhookPayload is the chat message body. The structured fields ride along
// for receivers that can use them.
type webhookPayload struct {
	Text    string  `json:"text"`
	Message Message `json:"message"`
}

// NewWebhook creates a webhook sender.
func NewWebhook(url config.Secret) (*Webhook, error) {
	if !url.IsSet() {
		return nil, fmt.Errorf("webhook URL is required")
	}
	return &Webhook{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

// Post delivers one message. No retries.
func (w *Webhook) Post(ctx context.Context, msg Message) error {
	disposition := "needs human review"
	if msg.AnsweredDirectly {
		disposition = "answered directly"
	}
	payload := webhookPayload{
		Text: fmt.Sprintf("Issue escalated: <%s|%s> [%s, %s]\n%s",
			msg.IssueURL, msg.IssueTitle, msg.Category, disposition, msg.Excerpt),
		Message: msg,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url.Value(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delivering notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification rejected with status %d", resp.StatusCode)
	}
	return nil
}
