// Package whois adapts github.com/likexian/whois to ports.WhoisClient.
package whois

import (
	"context"
	"fmt"
	"time"

	"github.com/likexian/whois"
)

// DefaultTimeout bounds a single WHOIS exchange, referrals included.
const DefaultTimeout = 15 * time.Second

type querier interface {
	Whois(domain string, servers ...string) (string, error)
}

// Client performs WHOIS queries over TCP port 43.
type Client struct {
	q      querier
	server string
}

// Option configures the Client.
type Option func(*Client)

// WithServer pins queries to a WHOIS server instead of following IANA referrals.
func WithServer(server string) Option {
	return func(c *Client) {
		c.server = server
	}
}

// NewClient creates a Client with the given timeout (DefaultTimeout when zero).
func NewClient(timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{q: whois.NewClient().SetTimeout(timeout)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query returns the raw WHOIS response for name.
// The underlying library is not context-aware; cancellation abandons the
// in-flight exchange, which still ends at its own timeout.
func (c *Client) Query(ctx context.Context, name string) (string, error) {
	type result struct {
		raw string
		err error
	}
	done := make(chan result, 1)

	go func() {
		var servers []string
		if c.server != "" {
			servers = append(servers, c.server)
		}
		raw, err := c.q.Whois(name, servers...)
		done <- result{raw, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("whois %s: %w", name, r.err)
		}
		return r.raw, nil
	}
}
