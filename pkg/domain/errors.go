package domain

import (
	"errors"
	"fmt"
)

// ErrCredentialsNotFound is returned when no credential blob is stored for an account.
var ErrCredentialsNotFound = errors.New("credentials not found")

// Session errors.
var (
	ErrMaxChallengeAttempts = errors.New("maximum challenge attempts reached")
	ErrConnectTimeout       = errors.New("connection timeout")
	ErrSessionClosed        = errors.New("session closed by platform")
	ErrNotLive              = errors.New("session is not live")
)

// Lookup errors.
var (
	ErrExpirationUnavailable = errors.New("expiration date unavailable")
	ErrRateLimited           = errors.New("lookup rate limited")
	ErrNoExpiration          = errors.New("no expiration field in response")
)

// ConnectionError describes why a session could not be established or was lost.
type ConnectionError struct {
	Code     int  // Close code, 0 when not caused by a close event
	Terminal bool // Terminal errors are never retried automatically
	Reason   string
	Err      error
}

func (e *ConnectionError) Error() string {
	kind := "transient"
	if e.Terminal {
		kind = "terminal"
	}
	msg := fmt.Sprintf("connection error (%s", kind)
	if e.Code != 0 {
		msg += fmt.Sprintf(", code %d", e.Code)
	}
	msg += ")"
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsTerminal reports whether err is a terminal ConnectionError.
func IsTerminal(err error) bool {
	var ce *ConnectionError
	if errors.As(err, &ce) {
		return ce.Terminal
	}
	return false
}

// LookupError is returned when neither lookup protocol yields a date.
type LookupError struct {
	Domain   string
	Primary  error
	Fallback error
}

func (e *LookupError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Domain, ErrExpirationUnavailable.Error())
	if e.Primary != nil {
		msg += fmt.Sprintf(" (whois: %v", e.Primary)
		if e.Fallback != nil {
			msg += fmt.Sprintf("; rdap: %v", e.Fallback)
		}
		return msg + ")"
	}
	if e.Fallback != nil {
		msg += fmt.Sprintf(" (rdap: %v)", e.Fallback)
	}
	return msg
}

// Unwrap exposes the sentinel and both underlying causes to errors.Is/As.
func (e *LookupError) Unwrap() []error {
	errs := []error{ErrExpirationUnavailable}
	if e.Primary != nil {
		errs = append(errs, e.Primary)
	}
	if e.Fallback != nil {
		errs = append(errs, e.Fallback)
	}
	return errs
}

// DeliveryError wraps a failed send. It never leaves the notify package.
type DeliveryError struct {
	Recipient string
	Err       error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery to %s failed: %v", e.Recipient, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
