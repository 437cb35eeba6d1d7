package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/domainwatch/internal/logging"
	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/aretw0/domainwatch/pkg/observability"
	"github.com/aretw0/domainwatch/pkg/ports"
	"github.com/robfig/cron/v3"
)

const (
	DefaultHour         = 9
	DefaultStartupDelay = 5 * time.Second

	// claimTTL outlives the minute a daily firing belongs to.
	claimTTL = 2 * time.Minute
)

// Resolver is the lookup dependency.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*domain.ExpirationResult, error)
}

// Notifier is the delivery dependency.
type Notifier interface {
	Send(ctx context.Context, text, recipientID string) *domain.Receipt
}

// Config holds the checked domain and the trigger settings.
type Config struct {
	Domain       string
	Recipient    string
	Hour         int
	Location     *time.Location
	WarnDays     int
	StartupDelay time.Duration
}

// Scheduler runs the startup and daily checks.
type Scheduler struct {
	resolver Resolver
	notifier Notifier
	cfg      Config
	guard    ports.FireGuard
	logger   *slog.Logger
	metrics  *observability.Metrics
	now      func() time.Time

	mu   sync.RWMutex
	last *domain.CheckReport
}

// Option configures the Scheduler.
type Option func(*Scheduler)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// WithMetrics records check outcomes.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = metrics
	}
}

// WithGuard deduplicates daily firings through guard. Without one every
// trigger runs a check.
func WithGuard(guard ports.FireGuard) Option {
	return func(s *Scheduler) {
		s.guard = guard
	}
}

// New creates a Scheduler. Out-of-range config values take their defaults.
func New(resolver Resolver, notifier Notifier, cfg Config, opts ...Option) *Scheduler {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.WarnDays < 0 {
		cfg.WarnDays = DefaultWarnDays
	}
	if cfg.Hour < 0 || cfg.Hour > 23 {
		cfg.Hour = DefaultHour
	}
	if cfg.StartupDelay < 0 {
		cfg.StartupDelay = DefaultStartupDelay
	}

	s := &Scheduler{
		resolver: resolver,
		notifier: notifier,
		cfg:      cfg,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Spec returns the cron expression of the daily trigger.
func (s *Scheduler) Spec() string {
	return fmt.Sprintf("0 %d * * *", s.cfg.Hour)
}

// Run performs the startup check and then serves daily triggers until ctx
// is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	triggers := make(chan time.Time, 1)

	c := cron.New(cron.WithLocation(s.cfg.Location), cron.WithLogger(cronLogger{s.logger}))
	if _, err := c.AddFunc(s.Spec(), func() {
		select {
		case triggers <- s.now():
		default:
			s.logger.Warn("Daily trigger dropped, previous check still running")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule daily check: %w", err)
	}
	c.Start()
	defer func() {
		<-c.Stop().Done()
	}()

	s.logger.Info("Scheduler started", "domain", s.cfg.Domain, "spec", s.Spec(), "location", s.cfg.Location.String())

	if !sleep(ctx, s.cfg.StartupDelay) {
		return nil
	}
	s.Check(ctx, domain.RunStartup, s.now())

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler stopped")
			return nil
		case at := <-triggers:
			s.fire(ctx, at)
		}
	}
}

// fire runs the daily check unless the minute was already claimed.
func (s *Scheduler) fire(ctx context.Context, at time.Time) bool {
	if s.guard == nil {
		s.Check(ctx, domain.RunDaily, at)
		return true
	}

	key := fmt.Sprintf("%s:%s", s.cfg.Domain, at.In(s.cfg.Location).Format("2006-01-02T15:04"))
	ok, err := s.guard.Claim(ctx, key, claimTTL)
	if err != nil {
		s.logger.Warn("Fire guard unavailable, running check anyway", "key", key, "err", err)
	} else if !ok {
		s.logger.Info("Daily check already claimed", "key", key)
		return false
	}

	s.Check(ctx, domain.RunDaily, at)
	return true
}

// Check resolves the domain, classifies the result and dispatches the alert.
func (s *Scheduler) Check(ctx context.Context, run domain.RunKind, now time.Time) domain.CheckReport {
	report := domain.CheckReport{Domain: s.cfg.Domain, Run: run, At: now}
	defer func() {
		s.mu.Lock()
		s.last = &report
		s.mu.Unlock()
	}()

	res, err := s.resolver.Resolve(ctx, s.cfg.Domain)
	if err != nil {
		report.Err = err.Error()
		s.metrics.Check(run, "error")
		if run != domain.RunStartup {
			s.logger.Error("Expiration lookup failed", "domain", s.cfg.Domain, "run", run, "err", err)
			return report
		}
		s.logger.Error("Expiration lookup failed, sending report", "domain", s.cfg.Domain, "err", err)
		report.Delivered = s.notifier.Send(ctx, ComposeError(s.cfg.Domain, err), s.cfg.Recipient) != nil
		return report
	}
	report.Result = res

	alert, send := Classify(res.ExpiresAt, now, run, s.cfg.WarnDays)
	if !send {
		s.metrics.Check(run, "none")
		s.logger.Info("Domain not close to expiration", "domain", s.cfg.Domain, "days", alert.Days, "run", run)
		return report
	}
	alert.Text = Compose(s.cfg.Domain, alert, res.ExpiresAt)
	report.Alert = &alert
	s.metrics.Check(run, string(alert.Tier))

	s.logger.Info("Sending alert", "domain", s.cfg.Domain, "tier", alert.Tier, "days", alert.Days, "source", res.Source)
	report.Delivered = s.notifier.Send(ctx, alert.Text, s.cfg.Recipient) != nil
	return report
}

// LastReport returns the outcome of the most recent check, nil before the first one.
func (s *Scheduler) LastReport() *domain.CheckReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
