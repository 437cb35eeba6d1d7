package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type conn struct {
	ws     *websocket.Conn
	events chan domain.Event
	logger *slog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan frame

	done      chan struct{}
	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, logger *slog.Logger) *conn {
	return &conn{
		ws:      ws,
		events:  make(chan domain.Event, 16),
		logger:  logger,
		pending: make(map[string]chan frame),
		done:    make(chan struct{}),
	}
}

func (c *conn) Events() <-chan domain.Event {
	return c.events
}

func (c *conn) RequestChallenge(ctx context.Context) error {
	return c.write(ctx, frame{Type: frameChallengeRequest})
}

// Send writes a send frame and waits for the matching acknowledgement.
func (c *conn) Send(ctx context.Context, recipient, text string) (*domain.Receipt, error) {
	id := uuid.NewString()
	ack := make(chan frame, 1)

	c.mu.Lock()
	c.pending[id] = ack
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.write(ctx, frame{Type: frameSend, ID: id, To: recipient, Text: text}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		return nil, ErrConnectionClosed
	case f := <-ack:
		if f.Error != "" {
			return nil, fmt.Errorf("gateway rejected message: %s", f.Error)
		}
		return &domain.Receipt{MessageID: f.MessageID, Recipient: recipient, SentAt: time.Now()}, nil
	}
}

// Close stops the read loop and closes the socket.
func (c *conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)

		c.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		c.writeMu.Unlock()

		err = c.ws.Close()
	})
	return err
}

func (c *conn) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *conn) write(ctx context.Context, f frame) error {
	if c.closed() {
		return ErrConnectionClosed
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := c.ws.WriteJSON(f); err != nil {
		return fmt.Errorf("write %s frame: %w", f.Type, err)
	}
	return nil
}

// readLoop translates bridge frames into domain events. A socket that ends
// without a connection/close frame is reported as a close with the
// WebSocket close code.
func (c *conn) readLoop() {
	defer close(c.events)

	sawClose := false
	for {
		var f frame
		if err := c.ws.ReadJSON(&f); err != nil {
			if c.closed() || sawClose {
				return
			}
			code := closeCode(err)
			c.logger.Debug("Gateway socket ended", "code", code, "err", err)
			c.emit(domain.Event{Kind: domain.EventConnectionUpdate, Connection: domain.ConnectionClose, CloseCode: code})
			return
		}

		switch f.Type {
		case frameChallenge:
			c.emit(domain.Event{Kind: domain.EventConnectionUpdate, Challenge: f.Challenge})
		case frameConnection:
			status := domain.ConnectionStatus(f.Status)
			if status == domain.ConnectionClose {
				sawClose = true
			}
			c.emit(domain.Event{Kind: domain.EventConnectionUpdate, Connection: status, CloseCode: f.Code})
		case frameCredentials:
			c.emit(domain.Event{Kind: domain.EventCredentialsUpdate, Credentials: f.Credentials})
		case frameMessage:
			c.emit(domain.Event{Kind: domain.EventMessageObserved})
		case frameSendAck:
			c.mu.Lock()
			ack, ok := c.pending[f.ID]
			c.mu.Unlock()
			if ok {
				select {
				case ack <- f:
				default:
				}
			}
		default:
			c.logger.Debug("Ignoring unknown gateway frame", "type", f.Type)
		}
	}
}

func (c *conn) emit(ev domain.Event) {
	ev.At = time.Now()
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func closeCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return websocket.CloseAbnormalClosure
}
