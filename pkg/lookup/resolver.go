package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/domainwatch/internal/logging"
	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/aretw0/domainwatch/pkg/observability"
	"github.com/aretw0/domainwatch/pkg/ports"
)

// DefaultFallbackTimeout bounds the RDAP request.
const DefaultFallbackTimeout = 10 * time.Second

// expirationActions are the RDAP event actions that carry the expiry date.
var expirationActions = []string{"expiration", "registrationExpiration"}

// Resolver implements the WHOIS-then-RDAP expiration lookup.
type Resolver struct {
	primary         ports.WhoisClient
	fallback        ports.RDAPClient
	fallbackTimeout time.Duration
	logger          *slog.Logger
	metrics         *observability.Metrics
}

// Option configures the Resolver.
type Option func(*Resolver)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// WithMetrics records lookup metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = metrics
	}
}

// WithFallbackTimeout overrides the RDAP timeout.
func WithFallbackTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		r.fallbackTimeout = d
	}
}

// NewResolver creates a Resolver. Either client may be nil to disable that protocol.
func NewResolver(primary ports.WhoisClient, fallback ports.RDAPClient, opts ...Option) *Resolver {
	r := &Resolver{
		primary:         primary,
		fallback:        fallback,
		fallbackTimeout: DefaultFallbackTimeout,
		logger:          logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NormalizeDomain lower-cases and trims a domain name.
func NormalizeDomain(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
}

// Resolve returns the expiration of name. The primary protocol always takes
// precedence; the fallback is only queried when the primary yields no date.
func (r *Resolver) Resolve(ctx context.Context, name string) (*domain.ExpirationResult, error) {
	name = NormalizeDomain(name)
	if name == "" {
		return nil, fmt.Errorf("domain name cannot be empty")
	}

	expiry, primaryErr := r.queryPrimary(ctx, name)
	if primaryErr == nil {
		r.metrics.Lookup(domain.SourcePrimary)
		return &domain.ExpirationResult{Domain: name, ExpiresAt: expiry, Source: domain.SourcePrimary}, nil
	}
	r.logger.Info("WHOIS lookup yielded no date, trying RDAP", "domain", name, "err", primaryErr)

	expiry, fallbackErr := r.queryFallback(ctx, name)
	if fallbackErr == nil {
		r.metrics.Lookup(domain.SourceFallback)
		return &domain.ExpirationResult{Domain: name, ExpiresAt: expiry, Source: domain.SourceFallback}, nil
	}

	r.metrics.LookupFailed()
	r.logger.Warn("Expiration lookup failed", "domain", name, "whois_err", primaryErr, "rdap_err", fallbackErr)
	return nil, &domain.LookupError{Domain: name, Primary: primaryErr, Fallback: fallbackErr}
}

func (r *Resolver) queryPrimary(ctx context.Context, name string) (time.Time, error) {
	if r.primary == nil {
		return time.Time{}, errors.New("whois disabled")
	}

	raw, err := r.primary.Query(ctx, name)
	if err != nil {
		return time.Time{}, fmt.Errorf("whois query: %w", err)
	}

	expiry, ok := ExtractExpiry(raw)
	switch {
	case ok:
		return expiry, nil
	case IsRateLimited(raw):
		return time.Time{}, domain.ErrRateLimited
	default:
		return time.Time{}, domain.ErrNoExpiration
	}
}

func (r *Resolver) queryFallback(ctx context.Context, name string) (time.Time, error) {
	if r.fallback == nil {
		return time.Time{}, errors.New("rdap disabled")
	}

	ctx, cancel := context.WithTimeout(ctx, r.fallbackTimeout)
	defer cancel()

	events, err := r.fallback.DomainEvents(ctx, name)
	if err != nil {
		return time.Time{}, fmt.Errorf("rdap query: %w", err)
	}
	return ExpiryFromEvents(events)
}

// ExpiryFromEvents returns the date of the first expiration event with a parseable date.
func ExpiryFromEvents(events []domain.RDAPEvent) (time.Time, error) {
	var parseErr error
	for _, ev := range events {
		if !isExpirationAction(ev.Action) {
			continue
		}
		t, err := ParseDate(ev.Date)
		if err != nil {
			if parseErr == nil {
				parseErr = fmt.Errorf("invalid %s date %q: %w", ev.Action, ev.Date, err)
			}
			continue
		}
		return t, nil
	}
	if parseErr != nil {
		return time.Time{}, parseErr
	}
	return time.Time{}, domain.ErrNoExpiration
}

func isExpirationAction(action string) bool {
	for _, a := range expirationActions {
		if strings.EqualFold(action, a) {
			return true
		}
	}
	return false
}
