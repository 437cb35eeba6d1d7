// Package rdap is a minimal RDAP client that implements ports.RDAPClient.
package rdap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/domainwatch/pkg/domain"
)

// DefaultBaseURL is a public bootstrap redirector that forwards to the
// authoritative registry server.
const DefaultBaseURL = "https://rdap.org"

// DefaultTimeout bounds a single RDAP request.
const DefaultTimeout = 10 * time.Second

// Client fetches domain objects over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a Client. Empty baseURL and zero timeout use defaults.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type domainResponse struct {
	LDHName string             `json:"ldhName"`
	Events  []domain.RDAPEvent `json:"events"`
}

// DomainEvents returns the events array of the RDAP domain object.
func (c *Client) DomainEvents(ctx context.Context, name string) ([]domain.RDAPEvent, error) {
	endpoint := c.baseURL + "/domain/" + url.PathEscape(name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/rdap+json, application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rdap request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.ErrNoExpiration
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("rdap returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result domainResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Events, nil
}
