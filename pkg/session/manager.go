package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/domainwatch/internal/logging"
	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/aretw0/domainwatch/pkg/observability"
	"github.com/aretw0/domainwatch/pkg/ports"
)

const (
	DefaultMaxChallengeAttempts = 3
	DefaultChallengeTimeout     = 60 * time.Second
	DefaultReconnectDelay       = 5 * time.Second
	DefaultConnectBuffer        = 10 * time.Second
	DefaultAccount              = "default"
)

// ErrManagerClosed is returned by Connect after Close.
var ErrManagerClosed = errors.New("session manager closed")

// Manager owns the single platform session of the process.
type Manager struct {
	platform ports.Platform
	store    ports.CredentialStore
	account  string

	renderer ports.ChallengeRenderer
	logger   *slog.Logger
	metrics  *observability.Metrics

	maxChallenges    int
	challengeTimeout time.Duration
	reconnectDelay   time.Duration
	connectBuffer    time.Duration

	live atomic.Bool

	mu      sync.Mutex // Guards the fields below
	session *domain.Session
	conn    ports.Connection
	running bool
	waiters []chan error

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics records session metrics.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithRenderer shows challenges to the operator.
func WithRenderer(r ports.ChallengeRenderer) Option {
	return func(m *Manager) {
		m.renderer = r
	}
}

// WithAccount sets the credential store key (default "default").
func WithAccount(account string) Option {
	return func(m *Manager) {
		m.account = account
	}
}

// WithMaxChallengeAttempts bounds challenges per connection cycle.
func WithMaxChallengeAttempts(n int) Option {
	return func(m *Manager) {
		m.maxChallenges = n
	}
}

// WithChallengeTimeout sets how long a challenge stays valid before a new one is requested.
func WithChallengeTimeout(d time.Duration) Option {
	return func(m *Manager) {
		m.challengeTimeout = d
	}
}

// WithReconnectDelay sets the fixed backoff after a transient close.
func WithReconnectDelay(d time.Duration) Option {
	return func(m *Manager) {
		m.reconnectDelay = d
	}
}

// WithConnectBuffer adds slack to the global connect timeout.
func WithConnectBuffer(d time.Duration) Option {
	return func(m *Manager) {
		m.connectBuffer = d
	}
}

// NewManager creates a Manager for the given platform and credential store.
func NewManager(platform ports.Platform, store ports.CredentialStore, opts ...Option) *Manager {
	m := &Manager{
		platform:         platform,
		store:            store,
		account:          DefaultAccount,
		logger:           logging.NewNop(), // Default to no-op
		maxChallenges:    DefaultMaxChallengeAttempts,
		challengeTimeout: DefaultChallengeTimeout,
		reconnectDelay:   DefaultReconnectDelay,
		connectBuffer:    DefaultConnectBuffer,
		session:          domain.NewSession(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.metrics.SessionState(domain.StateDisconnected)
	return m
}

// ConnectTimeout is the global bound on a single Connect call.
func (m *Manager) ConnectTimeout() time.Duration {
	return time.Duration(m.maxChallenges)*m.challengeTimeout + m.connectBuffer
}

// IsLive reports whether the session is currently connected.
func (m *Manager) IsLive() bool {
	return m.live.Load()
}

// Status returns a snapshot of the session.
func (m *Manager) Status() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session.Snapshot()
	s.Connected = m.live.Load()
	return s
}

// Connect returns the live session, starting a connection cycle if none is
// running and waiting for its outcome. It is idempotent: an already
// connected session is returned immediately.
func (m *Manager) Connect(ctx context.Context) (*domain.Session, error) {
	m.mu.Lock()
	if m.ctx.Err() != nil {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if m.session.State == domain.StateConnected && m.live.Load() {
		s := m.session.Snapshot()
		m.mu.Unlock()
		return s, nil
	}

	wait := make(chan error, 1)
	m.waiters = append(m.waiters, wait)
	if !m.running {
		m.running = true
		m.session.ChallengeAttempt = 0
		m.setStateLocked(domain.StateDisconnected)
		m.wg.Add(1)
		go m.run()
	}
	m.mu.Unlock()

	timeout := m.ConnectTimeout()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-wait:
		if err != nil {
			return nil, err
		}
		return m.Status(), nil
	case <-timer.C:
		m.dropWaiter(wait)
		return nil, &domain.ConnectionError{
			Reason: fmt.Sprintf("not connected after %s", timeout),
			Err:    domain.ErrConnectTimeout,
		}
	case <-ctx.Done():
		m.dropWaiter(wait)
		return nil, ctx.Err()
	}
}

// Send dispatches through the current connection.
func (m *Manager) Send(ctx context.Context, req domain.NotificationRequest) (*domain.Receipt, error) {
	m.mu.Lock()
	conn := m.conn
	m.mu.Unlock()

	if conn == nil || !m.live.Load() {
		return nil, domain.ErrNotLive
	}
	return conn.Send(ctx, req.RecipientID, req.Text)
}

// Close stops the event loop and waits for it to exit or for ctx to end.
func (m *Manager) Close(ctx context.Context) error {
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run drives one connection cycle until it fails for good.
func (m *Manager) run() {
	defer m.wg.Done()

	err := m.loop()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.conn = nil
	m.live.Store(false)
	m.session.Connected = false
	if m.session.State != domain.StateClosing {
		m.setStateLocked(domain.StateDisconnected)
	}
	m.releaseLocked(err)
}

func (m *Manager) loop() error {
	for {
		conn, err := m.open()
		if err != nil {
			if m.ctx.Err() != nil {
				return ErrManagerClosed
			}
			m.logger.Warn("Platform dial failed, retrying", "err", err, "delay", m.reconnectDelay)
			if !m.sleep(m.reconnectDelay) {
				return ErrManagerClosed
			}
			continue
		}

		code, err := m.consume(conn)
		if cerr := conn.Close(); cerr != nil {
			m.logger.Debug("Connection close returned error", "err", cerr)
		}
		m.mu.Lock()
		m.conn = nil
		m.mu.Unlock()
		if err != nil {
			return err
		}

		m.logger.Warn("Connection closed, reconnecting", "code", code, "delay", m.reconnectDelay)
		m.metrics.Reconnect()
		if !m.sleep(m.reconnectDelay) {
			return ErrManagerClosed
		}

		m.mu.Lock()
		if m.session.ChallengeAttempt >= m.maxChallenges {
			m.session.ChallengeAttempt = 0
		}
		m.mu.Unlock()
	}
}

func (m *Manager) open() (ports.Connection, error) {
	creds, err := m.store.Load(m.ctx, m.account)
	if err != nil {
		if !errors.Is(err, domain.ErrCredentialsNotFound) {
			m.logger.Warn("Failed to load credentials, starting without them", "err", err)
		}
		creds = nil
	}

	conn, err := m.platform.Open(m.ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to open platform connection: %w", err)
	}

	m.mu.Lock()
	m.conn = conn
	m.session.Credentials = creds
	m.mu.Unlock()
	return conn, nil
}

// consume processes the connection's events one at a time. A nil error
// means the connection closed transiently and the caller should reconnect.
func (m *Manager) consume(conn ports.Connection) (int, error) {
	var timer *time.Timer
	var expired <-chan time.Time
	stopTimer := func() {
		if timer != nil {
			timer.Stop()
			timer, expired = nil, nil
		}
	}
	defer stopTimer()

	events := conn.Events()
	for {
		select {
		case <-m.ctx.Done():
			return 0, ErrManagerClosed

		case <-expired:
			timer, expired = nil, nil
			m.logger.Info("Challenge expired, requesting a new one")
			if err := conn.RequestChallenge(m.ctx); err != nil {
				m.logger.Warn("Failed to request a new challenge", "err", err)
			}

		case ev, ok := <-events:
			if !ok {
				m.markClosed(0)
				return 0, nil
			}

			switch ev.Kind {
			case domain.EventCredentialsUpdate:
				m.persist(ev.Credentials)

			case domain.EventMessageObserved:
				if !m.live.Load() {
					stopTimer()
					m.markConnected()
				}

			case domain.EventConnectionUpdate:
				if ev.Challenge != "" {
					if err := m.onChallenge(ev.Challenge); err != nil {
						return 0, err
					}
					stopTimer()
					timer = time.NewTimer(m.challengeTimeout)
					expired = timer.C
				}

				switch ev.Connection {
				case domain.ConnectionOpen:
					stopTimer()
					m.markConnected()
				case domain.ConnectionClose:
					stopTimer()
					m.markClosed(ev.CloseCode)
					if domain.IsTerminalCloseCode(ev.CloseCode) {
						m.logger.Error("Session closed by platform, not reconnecting", "code", ev.CloseCode)
						return ev.CloseCode, &domain.ConnectionError{
							Code:     ev.CloseCode,
							Terminal: true,
							Reason:   closeReason(ev.CloseCode),
							Err:      domain.ErrSessionClosed,
						}
					}
					return ev.CloseCode, nil
				}
			}
		}
	}
}

func (m *Manager) onChallenge(challenge string) error {
	m.mu.Lock()
	if m.session.ChallengeAttempt >= m.maxChallenges {
		m.mu.Unlock()
		m.logger.Error("Maximum challenge attempts reached", "max", m.maxChallenges)
		return &domain.ConnectionError{
			Reason: fmt.Sprintf("%d challenges expired without login", m.maxChallenges),
			Err:    domain.ErrMaxChallengeAttempts,
		}
	}
	m.session.ChallengeAttempt++
	attempt := m.session.ChallengeAttempt
	m.setStateLocked(domain.StateAwaitingChallenge)
	m.mu.Unlock()

	m.metrics.ChallengeIssued()
	m.logger.Info("Authentication challenge issued", "attempt", attempt, "max", m.maxChallenges)
	if m.renderer != nil {
		if err := m.renderer.RenderChallenge(challenge, attempt, m.maxChallenges); err != nil {
			m.logger.Warn("Failed to render challenge", "err", err)
		}
	}
	return nil
}

func (m *Manager) markConnected() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.session.ChallengeAttempt = 0
	m.session.Connected = true
	m.session.ConnectedAt = time.Now()
	m.live.Store(true)
	m.setStateLocked(domain.StateConnected)
	m.releaseLocked(nil)
	m.logger.Info("Session connected")
}

func (m *Manager) markClosed(code int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.live.Store(false)
	m.session.Connected = false
	m.session.LastCloseCode = code
	if domain.IsTerminalCloseCode(code) {
		m.setStateLocked(domain.StateClosing)
		return
	}
	m.setStateLocked(domain.StateDisconnected)
}

// persist is fire-and-forget: a failed save never changes the session state.
func (m *Manager) persist(blob []byte) {
	if err := m.store.Save(m.ctx, m.account, blob); err != nil {
		m.logger.Error("Failed to persist credentials", "err", err)
		return
	}
	m.mu.Lock()
	m.session.Credentials = append([]byte(nil), blob...)
	m.mu.Unlock()
	m.logger.Debug("Credentials persisted", "bytes", len(blob))
}

func (m *Manager) setStateLocked(state domain.SessionState) {
	if m.session.State != state {
		m.logger.Debug("Session state changed", "from", m.session.State, "to", state)
	}
	m.session.State = state
	m.metrics.SessionState(state)
}

func (m *Manager) releaseLocked(err error) {
	for _, w := range m.waiters {
		select {
		case w <- err:
		default:
		}
	}
	m.waiters = nil
}

func (m *Manager) dropWaiter(wait chan error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, w := range m.waiters {
		if w == wait {
			m.waiters = append(m.waiters[:i], m.waiters[i+1:]...)
			return
		}
	}
}

func (m *Manager) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-m.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func closeReason(code int) string {
	switch code {
	case domain.CloseLoggedOut:
		return "logged out"
	case domain.CloseSessionExpired:
		return "session expired"
	}
	return "connection closed"
}
