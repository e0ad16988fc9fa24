// Package forwarder relays provider notifications to a downstream backend.
package forwarder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/khipudemo/khipu-payments/internal/domain"
)

// ErrForwardFailed is returned when the backend cannot be reached or rejects the notification.
var ErrForwardFailed = errors.New("notification forward failed")

// DefaultTimeout bounds a single forward.
const DefaultTimeout = 15 * time.Second

// Client implements domain.NotificationForwarder.
type Client struct {
	url    string
	secret string
	http   *resty.Client
}

// NewClient creates a forwarder posting to url. The secret travels in the
// X-Webhook-Secret header so the backend can authenticate the relay.
func NewClient(url, secret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		url:    url,
		secret: secret,
		http:   resty.New().SetTimeout(timeout).SetRetryCount(0),
	}
}

// Forward sends POST <url> with the notification as JSON.
func (c *Client) Forward(ctx context.Context, n domain.Notification) error {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(n)
	if c.secret != "" {
		req.SetHeader("X-Webhook-Secret", c.secret)
	}

	resp, err := req.Post(c.url)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrForwardFailed, err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("%w: backend returned status %d: %s",
			ErrForwardFailed, resp.StatusCode(), resp.String())
	}
	return nil
}
