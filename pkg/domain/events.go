package domain

import "time"

// EventKind defines the category of a platform event.
type EventKind string

const (
	EventConnectionUpdate  EventKind = "connection.update"
	EventCredentialsUpdate EventKind = "credentials.update"
	EventMessageObserved   EventKind = "message.observed"
)

// ConnectionStatus is carried by connection updates.
type ConnectionStatus string

const (
	ConnectionConnecting ConnectionStatus = "connecting"
	ConnectionOpen       ConnectionStatus = "open"
	ConnectionClose      ConnectionStatus = "close"
)

// Event is one item of the serialized event stream emitted by a platform connection.
type Event struct {
	Kind EventKind `json:"kind"`

	// Connection is set on connection updates that change connectivity.
	Connection ConnectionStatus `json:"connection,omitempty"`

	// Challenge carries an authentication challenge (e.g. QR payload).
	// A connection update may carry a challenge and no status.
	Challenge string `json:"challenge,omitempty"`

	// CloseCode accompanies ConnectionClose.
	CloseCode int `json:"close_code,omitempty"`

	// Credentials is the updated credential blob on credential updates.
	Credentials []byte `json:"credentials,omitempty"`

	At time.Time `json:"at"`
}

// Close codes the platform uses for unrecoverable session termination.
const (
	CloseLoggedOut      = 401
	CloseSessionExpired = 408
)

// IsTerminalCloseCode reports whether a close code ends the session for good.
func IsTerminalCloseCode(code int) bool {
	return code == CloseLoggedOut || code == CloseSessionExpired
}
