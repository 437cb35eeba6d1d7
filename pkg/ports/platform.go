package ports

import (
	"context"

	"github.com/aretw0/domainwatch/pkg/domain"
)

// Platform dials the messaging platform.
type Platform interface {
	// Open starts a new connection using the stored credential blob
	// (nil when none exists, which makes the platform issue a challenge).
	Open(ctx context.Context, credentials []byte) (Connection, error)
}

// Connection is one live link to the platform.
type Connection interface {
	// Events returns the serialized event stream. The channel is closed
	// when the connection ends.
	Events() <-chan domain.Event

	// RequestChallenge asks the platform for a fresh authentication challenge.
	RequestChallenge(ctx context.Context) error

	// Send dispatches a text message to a canonical recipient address.
	Send(ctx context.Context, recipient, text string) (*domain.Receipt, error)

	// Close terminates the connection.
	Close() error
}

// ChallengeRenderer presents an authentication challenge to the operator.
type ChallengeRenderer interface {
	RenderChallenge(challenge string, attempt, max int) error
}
