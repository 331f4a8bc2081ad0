// Package http wraps the standard client with a hard per-request timeout.
// Webhook notification deliveries go through it so a slow supplier endpoint
// cannot hold an attempt open indefinitely.
package http

import (
	"context"
	"net/http"
	"time"
)

// Client issues outbound requests with a fixed timeout.
type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req)
}

// DoWithContext binds the request to ctx, so callers can bound a single
// call tighter than the client timeout.
func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.httpClient.Do(req.WithContext(ctx))
}
