package domain

import "time"

// SessionState is the lifecycle position of the messaging session.
type SessionState string

const (
	StateDisconnected      SessionState = "disconnected"
	StateAwaitingChallenge SessionState = "awaiting_challenge"
	StateConnected         SessionState = "connected"
	StateClosing           SessionState = "closing" // Absorbing: no automatic reconnect
)

// Session represents the authenticated connection to the messaging platform.
// Only the session manager mutates it; everyone else works on snapshots.
type Session struct {
	// State is the current lifecycle position.
	State SessionState `json:"state"`

	// ChallengeAttempt counts challenges issued in the current connection cycle.
	ChallengeAttempt int `json:"challenge_attempt"`

	// Connected mirrors the liveness flag at snapshot time.
	Connected bool `json:"connected"`

	// Credentials is the opaque blob last persisted for this account.
	// The session never interprets it.
	Credentials []byte `json:"-"`

	// LastCloseCode is the code carried by the most recent close event (0 if none).
	LastCloseCode int `json:"last_close_code,omitempty"`

	// ConnectedAt is set when the session last reached StateConnected.
	ConnectedAt time.Time `json:"connected_at,omitempty"`
}

// NewSession creates a disconnected session with no stored credentials.
func NewSession() *Session {
	return &Session{State: StateDisconnected}
}

// Snapshot returns a deep copy of the session.
func (s *Session) Snapshot() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.Credentials != nil {
		cp.Credentials = append([]byte(nil), s.Credentials...)
	}
	return &cp
}
