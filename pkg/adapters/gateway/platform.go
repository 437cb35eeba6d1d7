// Package gateway connects to a messaging-platform bridge over WebSocket
// and exposes it as a ports.Platform.
//
// The bridge owns the platform protocol. This package only speaks a small
// JSON framing: the client sends hello, challenge.request and send frames;
// the bridge answers with challenge, connection, credentials, message and
// send.ack frames.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/domainwatch/internal/logging"
	"github.com/aretw0/domainwatch/pkg/ports"
	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned by calls on a closed connection.
var ErrConnectionClosed = errors.New("gateway connection closed")

const (
	defaultHandshakeTimeout = 15 * time.Second
	defaultWriteTimeout     = 10 * time.Second
)

// Platform dials the bridge.
type Platform struct {
	url    string
	token  string
	dialer *websocket.Dialer
	logger *slog.Logger
}

// Option configures the Platform.
type Option func(*Platform)

// WithToken sends a bearer token during the handshake.
func WithToken(token string) Option {
	return func(p *Platform) {
		p.token = token
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Platform) {
		p.logger = logger
	}
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(p *Platform) {
		p.dialer = d
	}
}

// New creates a Platform for the bridge at url (ws:// or wss://).
func New(url string, opts ...Option) *Platform {
	p := &Platform{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Open dials the bridge and presents the stored credentials.
func (p *Platform) Open(ctx context.Context, credentials []byte) (ports.Connection, error) {
	header := http.Header{}
	if p.token != "" {
		header.Set("Authorization", "Bearer "+p.token)
	}

	ws, resp, err := p.dialer.DialContext(ctx, p.url, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", p.url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", p.url, err)
	}

	c := newConn(ws, p.logger)
	if err := c.write(ctx, frame{Type: frameHello, Credentials: credentials}); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("hello: %w", err)
	}
	go c.readLoop()

	p.logger.Debug("Gateway connected", "url", p.url, "has_credentials", len(credentials) > 0)
	return c, nil
}
