package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/domainwatch/internal/config"
	"github.com/aretw0/domainwatch/internal/logging"
	"github.com/aretw0/domainwatch/pkg/adapters/file"
	"github.com/aretw0/domainwatch/pkg/adapters/gateway"
	"github.com/aretw0/domainwatch/pkg/adapters/memory"
	"github.com/aretw0/domainwatch/pkg/adapters/rdap"
	"github.com/aretw0/domainwatch/pkg/adapters/redis"
	"github.com/aretw0/domainwatch/pkg/adapters/whois"
	"github.com/aretw0/domainwatch/pkg/lookup"
	"github.com/aretw0/domainwatch/pkg/notify"
	"github.com/aretw0/domainwatch/pkg/observability"
	"github.com/aretw0/domainwatch/pkg/persistence/middleware"
	"github.com/aretw0/domainwatch/pkg/ports"
	"github.com/aretw0/domainwatch/pkg/schedule"
	"github.com/aretw0/domainwatch/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Stack holds the adapters built from one Config.
type Stack struct {
	Config   *config.Config
	Logger   *slog.Logger
	Registry *prometheus.Registry
	Metrics  *observability.Metrics
	Store    ports.CredentialStore
	Guard    ports.FireGuard
	Resolver *lookup.Resolver

	closers []io.Closer
}

// NewLogger builds the process logger from the log section.
func NewLogger(w io.Writer, cfg config.Log) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(w, level, logging.Format(cfg.Format)), nil
}

// NewStack wires storage, metrics and lookup for cfg.
func NewStack(cfg *config.Config, logger *slog.Logger) (*Stack, error) {
	s := &Stack{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	s.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s.Metrics = observability.NewMetrics(s.Registry)

	active, fallback, err := cfg.Credentials.Keys()
	if err != nil {
		return nil, err
	}

	switch cfg.Credentials.Backend {
	case config.BackendRedis:
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, redis.WithPrefix(cfg.Redis.Prefix))
		s.Store = store
		s.Guard = redis.NewGuard(store.Client(), cfg.Redis.Prefix)
		s.closers = append(s.closers, store)
	case config.BackendMemory:
		s.Store = memory.NewStore()
		s.Guard = memory.NewGuard()
	case config.BackendFile, "":
		s.Store = file.New(cfg.Credentials.Dir)
		s.Guard = memory.NewGuard()
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", cfg.Credentials.Backend)
	}

	if active != nil {
		encrypt, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			return nil, err
		}
		s.Store = encrypt(s.Store)
	}

	var whoisOpts []whois.Option
	if cfg.Whois.Server != "" {
		whoisOpts = append(whoisOpts, whois.WithServer(cfg.Whois.Server))
	}
	s.Resolver = lookup.NewResolver(
		whois.NewClient(cfg.Whois.Timeout, whoisOpts...),
		rdap.NewClient(cfg.RDAP.BaseURL, cfg.RDAP.Timeout),
		lookup.WithLogger(logger.With("component", "lookup")),
		lookup.WithMetrics(s.Metrics),
		lookup.WithFallbackTimeout(cfg.RDAP.Timeout),
	)

	return s, nil
}

// NewSession builds the session manager over the gateway platform.
func (s *Stack) NewSession(renderer ports.ChallengeRenderer) *session.Manager {
	cfg := s.Config
	platform := gateway.New(cfg.Gateway.URL,
		gateway.WithToken(cfg.Gateway.Token),
		gateway.WithLogger(s.Logger.With("component", "gateway")),
	)
	return session.NewManager(platform, s.Store,
		session.WithLogger(s.Logger.With("component", "session")),
		session.WithMetrics(s.Metrics),
		session.WithRenderer(renderer),
		session.WithAccount(cfg.Account),
		session.WithMaxChallengeAttempts(cfg.Session.MaxChallengeAttempts),
		session.WithChallengeTimeout(cfg.Session.ChallengeTimeout),
		session.WithReconnectDelay(cfg.Session.ReconnectDelay),
	)
}

// NewNotifier builds the notifier over sess.
func (s *Stack) NewNotifier(sess notify.Session) *notify.Notifier {
	cfg := s.Config
	return notify.New(sess,
		notify.WithLogger(s.Logger.With("component", "notify")),
		notify.WithMetrics(s.Metrics),
		notify.WithRetries(cfg.Session.SendRetries),
		notify.WithSettleDelay(cfg.Session.SettleDelay),
		notify.WithSendTimeout(cfg.Session.SendTimeout),
		notify.WithSuffix(cfg.RecipientSuffix),
	)
}

// NewScheduler builds the scheduler sending through notifier.
func (s *Stack) NewScheduler(notifier schedule.Notifier) (*schedule.Scheduler, error) {
	cfg := s.Config
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return schedule.New(s.Resolver, notifier, schedule.Config{
		Domain:       lookup.NormalizeDomain(cfg.Domain),
		Recipient:    cfg.Recipient,
		Hour:         cfg.Schedule.Hour,
		Location:     loc,
		WarnDays:     cfg.Schedule.WarnDays,
		StartupDelay: cfg.Schedule.StartupDelay,
	},
		schedule.WithLogger(s.Logger.With("component", "schedule")),
		schedule.WithMetrics(s.Metrics),
		schedule.WithGuard(s.Guard),
	), nil
}

// Close releases backend connections.
func (s *Stack) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
