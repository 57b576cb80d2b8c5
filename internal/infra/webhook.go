package infra

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookClient posts JSON payloads to a single configured URL.
type WebhookClient struct {
	httpClient *resty.Client
	url        string
}

// NewWebhookClient returns nil when url is empty; callers treat a nil client
// as "delivery disabled".
func NewWebhookClient(url string, timeout time.Duration) *WebhookClient {
	if url == "" {
		return nil
	}
	c := resty.New()
	c.
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "stockledger-alerts/1").
		SetTimeout(timeout)
	return &WebhookClient{httpClient: c, url: url}
}

// Post sends body and fails on transport errors and non-2xx responses.
func (c *WebhookClient) Post(ctx context.Context, body interface{}) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook responded %d", resp.StatusCode())
	}
	return nil
}
