package hcloud

import (
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
)

// Client talks to the Hetzner Cloud API.
type Client struct {
	client  *hcloud.Client
	timeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout bounds every operation.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) ClientOption {
	return func(c *Client) {
		c.client = hc
	}
}

// NewClient creates a Client authenticated with token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		client:  hcloud.NewClient(hcloud.WithToken(token), hcloud.WithApplication("vpsgate", "")),
		timeout: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
