package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/domainwatch/pkg/adapters/memory"
	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/aretw0/domainwatch/pkg/ports"
	"github.com/aretw0/domainwatch/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeConn is a scripted platform connection. Tests push events with emit.
type fakeConn struct {
	events    chan domain.Event
	requested atomic.Int32
	closed    atomic.Bool
	creds     []byte
	openedAt  time.Time

	mu   sync.Mutex
	sent []string
}

func (c *fakeConn) Events() <-chan domain.Event { return c.events }

func (c *fakeConn) RequestChallenge(ctx context.Context) error {
	c.requested.Add(1)
	return nil
}

func (c *fakeConn) Send(ctx context.Context, recipient, text string) (*domain.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, recipient+":"+text)
	return &domain.Receipt{MessageID: "m1", Recipient: recipient, SentAt: time.Now()}, nil
}

func (c *fakeConn) Close() error {
	c.closed.Store(true)
	return nil
}

func (c *fakeConn) emit(ev domain.Event) {
	c.events <- ev
}

func (c *fakeConn) challenge(code string) {
	c.emit(domain.Event{Kind: domain.EventConnectionUpdate, Challenge: code})
}

func (c *fakeConn) open() {
	c.emit(domain.Event{Kind: domain.EventConnectionUpdate, Connection: domain.ConnectionOpen})
}

func (c *fakeConn) close(code int) {
	c.emit(domain.Event{Kind: domain.EventConnectionUpdate, Connection: domain.ConnectionClose, CloseCode: code})
}

type fakePlatform struct {
	opened chan *fakeConn
	count  atomic.Int32
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{opened: make(chan *fakeConn, 16)}
}

func (p *fakePlatform) Open(ctx context.Context, creds []byte) (ports.Connection, error) {
	c := &fakeConn{
		events:   make(chan domain.Event, 16),
		creds:    creds,
		openedAt: time.Now(),
	}
	p.count.Add(1)
	p.opened <- c
	return c, nil
}

func (p *fakePlatform) next(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case c := <-p.opened:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("platform was not opened")
		return nil
	}
}

type recordingRenderer struct {
	mu       sync.Mutex
	attempts []int
}

func (r *recordingRenderer) RenderChallenge(challenge string, attempt, max int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, attempt)
	return nil
}

func (r *recordingRenderer) calls() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int(nil), r.attempts...)
}

type connectResult struct {
	session *domain.Session
	err     error
}

func connectAsync(m *session.Manager) <-chan connectResult {
	res := make(chan connectResult, 1)
	go func() {
		s, err := m.Connect(context.Background())
		res <- connectResult{s, err}
	}()
	return res
}

func await(t *testing.T, res <-chan connectResult) connectResult {
	t.Helper()
	select {
	case r := <-res:
		return r
	case <-time.After(3 * time.Second):
		t.Fatal("Connect did not return")
		return connectResult{}
	}
}

func newManager(t *testing.T, p ports.Platform, store ports.CredentialStore, opts ...session.Option) *session.Manager {
	t.Helper()
	base := []session.Option{
		session.WithChallengeTimeout(time.Hour),
		session.WithReconnectDelay(30 * time.Millisecond),
		session.WithConnectBuffer(time.Second),
	}
	m := session.NewManager(p, store, append(base, opts...)...)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		require.NoError(t, m.Close(ctx))
	})
	return m
}

func TestManager_ConnectOpen(t *testing.T) {
	p := newFakePlatform()
	m := newManager(t, p, memory.NewStore())

	res := connectAsync(m)
	c := p.next(t)
	c.open()

	r := await(t, res)
	require.NoError(t, r.err)
	assert.Equal(t, domain.StateConnected, r.session.State)
	assert.True(t, r.session.Connected)
	assert.True(t, m.IsLive())
}

func TestManager_ConnectIsIdempotent(t *testing.T) {
	p := newFakePlatform()
	m := newManager(t, p, memory.NewStore())

	res := connectAsync(m)
	p.next(t).open()
	require.NoError(t, await(t, res).err)

	s, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StateConnected, s.State)
	assert.Equal(t, int32(1), p.count.Load(), "no second platform connection")
}

func TestManager_ChallengeThenOpenResetsCounter(t *testing.T) {
	p := newFakePlatform()
	r := &recordingRenderer{}
	m := newManager(t, p, memory.NewStore(), session.WithRenderer(r))

	res := connectAsync(m)
	c := p.next(t)
	c.challenge("qr-1")
	c.challenge("qr-2")

	assert.Eventually(t, func() bool {
		return m.Status().ChallengeAttempt == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.StateAwaitingChallenge, m.Status().State)

	c.open()
	require.NoError(t, await(t, res).err)
	assert.Equal(t, 0, m.Status().ChallengeAttempt)
	assert.Equal(t, []int{1, 2}, r.calls())
}

func TestManager_MaxChallengeAttempts(t *testing.T) {
	p := newFakePlatform()
	r := &recordingRenderer{}
	m := newManager(t, p, memory.NewStore(), session.WithRenderer(r))

	res := connectAsync(m)
	c := p.next(t)
	for i := 0; i < 4; i++ {
		c.challenge("qr")
	}

	got := await(t, res)
	require.Error(t, got.err)
	assert.ErrorIs(t, got.err, domain.ErrMaxChallengeAttempts)
	assert.Equal(t, []int{1, 2, 3}, r.calls(), "the fourth challenge is never rendered")

	assert.Eventually(t, func() bool {
		return m.Status().State == domain.StateDisconnected
	}, time.Second, 5*time.Millisecond)
	assert.True(t, c.closed.Load())
	assert.False(t, m.IsLive())
}

func TestManager_ChallengeTimeoutRequestsNewChallenge(t *testing.T) {
	p := newFakePlatform()
	m := newManager(t, p, memory.NewStore(), session.WithChallengeTimeout(20*time.Millisecond))

	res := connectAsync(m)
	c := p.next(t)
	c.challenge("qr-1")

	assert.Eventually(t, func() bool {
		return c.requested.Load() >= 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(1), p.count.Load(), "challenge expiry does not reconnect")
	assert.Equal(t, domain.StateAwaitingChallenge, m.Status().State)

	c.open()
	require.NoError(t, await(t, res).err)
}

func TestManager_MessageObservedMarksLive(t *testing.T) {
	p := newFakePlatform()
	m := newManager(t, p, memory.NewStore())

	res := connectAsync(m)
	c := p.next(t)
	c.emit(domain.Event{Kind: domain.EventMessageObserved})

	require.NoError(t, await(t, res).err)
	assert.True(t, m.IsLive())
}

func TestManager_TerminalCloseDoesNotReconnect(t *testing.T) {
	for _, code := range []int{domain.CloseLoggedOut, domain.CloseSessionExpired} {
		t.Run(closeName(code), func(t *testing.T) {
			p := newFakePlatform()
			m := newManager(t, p, memory.NewStore())

			res := connectAsync(m)
			c := p.next(t)
			c.open()
			require.NoError(t, await(t, res).err)

			c.close(code)

			assert.Eventually(t, func() bool {
				return m.Status().State == domain.StateClosing
			}, time.Second, 5*time.Millisecond)
			assert.False(t, m.IsLive())

			// Several reconnect delays pass without a new connection.
			time.Sleep(150 * time.Millisecond)
			assert.Equal(t, int32(1), p.count.Load())
			assert.Equal(t, code, m.Status().LastCloseCode)
		})
	}
}

func TestManager_TerminalCloseFailsPendingConnect(t *testing.T) {
	p := newFakePlatform()
	m := newManager(t, p, memory.NewStore())

	res := connectAsync(m)
	c := p.next(t)
	c.challenge("qr")
	c.close(domain.CloseLoggedOut)

	got := await(t, res)
	require.Error(t, got.err)
	assert.True(t, domain.IsTerminal(got.err))
	assert.ErrorIs(t, got.err, domain.ErrSessionClosed)
}

func TestManager_TransientCloseReconnectsAfterDelay(t *testing.T) {
	p := newFakePlatform()
	m := newManager(t, p, memory.NewStore(), session.WithReconnectDelay(50*time.Millisecond))

	res := connectAsync(m)
	first := p.next(t)
	first.open()
	require.NoError(t, await(t, res).err)

	closedAt := time.Now()
	first.close(500)

	second := p.next(t)
	assert.GreaterOrEqual(t, second.openedAt.Sub(closedAt), 50*time.Millisecond)
	assert.True(t, first.closed.Load())
	assert.False(t, m.IsLive())

	second.open()
	assert.Eventually(t, m.IsLive, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), p.count.Load())
}

func TestManager_StreamEndReconnects(t *testing.T) {
	p := newFakePlatform()
	m := newManager(t, p, memory.NewStore())

	res := connectAsync(m)
	first := p.next(t)
	first.open()
	require.NoError(t, await(t, res).err)

	close(first.events)

	second := p.next(t)
	second.open()
	assert.Eventually(t, m.IsLive, time.Second, 5*time.Millisecond)
}

func TestManager_PersistsCredentials(t *testing.T) {
	p := newFakePlatform()
	store := memory.NewStore()
	m := newManager(t, p, store, session.WithAccount("bot"))

	res := connectAsync(m)
	first := p.next(t)
	assert.Nil(t, first.creds, "no stored credentials on first login")

	first.emit(domain.Event{Kind: domain.EventCredentialsUpdate, Credentials: []byte("creds-v1")})
	first.open()
	require.NoError(t, await(t, res).err)

	assert.Eventually(t, func() bool {
		blob, err := store.Load(context.Background(), "bot")
		return err == nil && string(blob) == "creds-v1"
	}, time.Second, 5*time.Millisecond)

	first.close(428)
	second := p.next(t)
	assert.Equal(t, "creds-v1", string(second.creds), "reconnect reuses persisted credentials")
}

type failingStore struct {
	ports.CredentialStore
}

func (failingStore) Save(ctx context.Context, account string, blob []byte) error {
	return errors.New("disk full")
}

func TestManager_CredentialSaveFailureIsNotFatal(t *testing.T) {
	p := newFakePlatform()
	m := newManager(t, p, failingStore{memory.NewStore()})

	res := connectAsync(m)
	c := p.next(t)
	c.emit(domain.Event{Kind: domain.EventCredentialsUpdate, Credentials: []byte("x")})
	c.open()

	require.NoError(t, await(t, res).err)
	assert.True(t, m.IsLive())
}

func TestManager_ConnectTimeout(t *testing.T) {
	p := newFakePlatform()
	m := session.NewManager(p, memory.NewStore(),
		session.WithChallengeTimeout(10*time.Millisecond),
		session.WithConnectBuffer(20*time.Millisecond),
	)
	defer func() { _ = m.Close(context.Background()) }()

	assert.Equal(t, 50*time.Millisecond, m.ConnectTimeout())

	res := connectAsync(m)
	p.next(t) // opened, but the platform stays silent

	got := await(t, res)
	require.Error(t, got.err)
	assert.ErrorIs(t, got.err, domain.ErrConnectTimeout)
	assert.False(t, domain.IsTerminal(got.err))
}

func TestManager_ConnectAfterTerminalStartsFreshCycle(t *testing.T) {
	p := newFakePlatform()
	m := newManager(t, p, memory.NewStore())

	res := connectAsync(m)
	first := p.next(t)
	first.open()
	require.NoError(t, await(t, res).err)
	first.close(domain.CloseLoggedOut)
	assert.Eventually(t, func() bool {
		return m.Status().State == domain.StateClosing
	}, time.Second, 5*time.Millisecond)

	res = connectAsync(m)
	second := p.next(t)
	second.open()
	require.NoError(t, await(t, res).err)
	assert.Equal(t, domain.StateConnected, m.Status().State)
}

func TestManager_Send(t *testing.T) {
	p := newFakePlatform()
	m := newManager(t, p, memory.NewStore())

	_, err := m.Send(context.Background(), domain.NotificationRequest{Text: "hi", RecipientID: "1@s.whatsapp.net"})
	assert.ErrorIs(t, err, domain.ErrNotLive)

	res := connectAsync(m)
	c := p.next(t)
	c.open()
	require.NoError(t, await(t, res).err)

	receipt, err := m.Send(context.Background(), domain.NotificationRequest{Text: "hi", RecipientID: "1@s.whatsapp.net"})
	require.NoError(t, err)
	assert.Equal(t, "1@s.whatsapp.net", receipt.Recipient)
	assert.Equal(t, []string{"1@s.whatsapp.net:hi"}, c.sent)
}

func TestManager_ConnectAfterClose(t *testing.T) {
	m := session.NewManager(newFakePlatform(), memory.NewStore())
	require.NoError(t, m.Close(context.Background()))

	_, err := m.Connect(context.Background())
	assert.ErrorIs(t, err, session.ErrManagerClosed)
}

func closeName(code int) string {
	if code == domain.CloseLoggedOut {
		return "logged_out"
	}
	return "session_expired"
}
