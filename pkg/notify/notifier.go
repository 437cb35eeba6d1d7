// Package notify delivers alert text through the session, bringing it up first.
// Delivery failures are logged and reported as a nil receipt, never as an error.
package notify

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/domainwatch/internal/logging"
	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/aretw0/domainwatch/pkg/observability"
)

// DefaultSuffix is appended to bare phone numbers.
const DefaultSuffix = "@s.whatsapp.net"

const (
	DefaultRetries     = 3
	DefaultSettleDelay = 10 * time.Second
	DefaultSendTimeout = 30 * time.Second
)

// Session is the part of session.Manager the Notifier depends on.
type Session interface {
	IsLive() bool
	Connect(ctx context.Context) (*domain.Session, error)
	Send(ctx context.Context, req domain.NotificationRequest) (*domain.Receipt, error)
}

// Notifier sends one message at a time to a single recipient.
type Notifier struct {
	session     Session
	retries     int
	settleDelay time.Duration
	sendTimeout time.Duration
	suffix      string
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// Option configures the Notifier.
type Option func(*Notifier)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// WithMetrics records delivery outcomes.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(n *Notifier) {
		n.metrics = metrics
	}
}

// WithRetries sets how many bring-up attempts Send makes before giving up.
func WithRetries(n int) Option {
	return func(nt *Notifier) {
		if n > 0 {
			nt.retries = n
		}
	}
}

// WithSettleDelay sets the wait after each Connect before re-checking liveness.
func WithSettleDelay(d time.Duration) Option {
	return func(n *Notifier) {
		n.settleDelay = d
	}
}

// WithSendTimeout bounds the wait for the platform to acknowledge a message.
func WithSendTimeout(d time.Duration) Option {
	return func(n *Notifier) {
		if d > 0 {
			n.sendTimeout = d
		}
	}
}

// WithSuffix overrides the platform address suffix.
func WithSuffix(suffix string) Option {
	return func(n *Notifier) {
		if suffix != "" {
			n.suffix = suffix
		}
	}
}

// New creates a Notifier over session.
func New(session Session, opts ...Option) *Notifier {
	n := &Notifier{
		session:     session,
		retries:     DefaultRetries,
		settleDelay: DefaultSettleDelay,
		sendTimeout: DefaultSendTimeout,
		suffix:      DefaultSuffix,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Send delivers text to recipientID. It returns nil when the session could
// not be brought live or the platform rejected the message.
func (n *Notifier) Send(ctx context.Context, text, recipientID string) *domain.Receipt {
	req := domain.NotificationRequest{
		Text:        text,
		RecipientID: NormalizeRecipient(recipientID, n.suffix),
	}

	if !n.EnsureConnection(ctx, n.retries) {
		n.metrics.Delivery("not_live")
		n.logger.Error("Session not live, message dropped", "recipient", req.RecipientID, "retries", n.retries)
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, n.sendTimeout)
	defer cancel()

	receipt, err := n.session.Send(sendCtx, req)
	if err != nil {
		derr := &domain.DeliveryError{Recipient: req.RecipientID, Err: err}
		n.metrics.Delivery("failed")
		n.logger.Error("Delivery failed", "err", derr)
		return nil
	}

	n.metrics.Delivery("sent")
	n.logger.Info("Message delivered", "recipient", req.RecipientID, "message_id", receipt.MessageID)
	return receipt
}

// EnsureConnection makes up to maxRetries attempts to bring the session live,
// waiting the settle delay after each Connect.
func (n *Notifier) EnsureConnection(ctx context.Context, maxRetries int) bool {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if n.session.IsLive() {
			return true
		}
		n.logger.Info("Session not live, connecting", "attempt", attempt, "max", maxRetries)
		if _, err := n.session.Connect(ctx); err != nil {
			n.logger.Warn("Connect failed", "attempt", attempt, "err", err)
		}
		if !n.wait(ctx) {
			return false
		}
	}
	return n.session.IsLive()
}

func (n *Notifier) wait(ctx context.Context) bool {
	if n.settleDelay <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(n.settleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// NormalizeRecipient turns a phone number into a platform address.
// Identifiers that already carry a domain part are returned unchanged.
func NormalizeRecipient(id, suffix string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.Contains(id, "@") {
		return id
	}
	if suffix == "" {
		suffix = DefaultSuffix
	}
	var digits strings.Builder
	for _, r := range id {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String() + suffix
}
