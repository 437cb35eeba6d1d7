package domain

import "time"

// LookupSource identifies the protocol that produced an expiration date.
type LookupSource string

const (
	SourcePrimary  LookupSource = "primary"  // WHOIS
	SourceFallback LookupSource = "fallback" // RDAP
)

// ExpirationResult is the outcome of one successful lookup.
type ExpirationResult struct {
	Domain    string       `json:"domain"`
	ExpiresAt time.Time    `json:"expires_at"`
	Source    LookupSource `json:"source"`
}

// RDAPEvent is one entry of the RDAP "events" array.
type RDAPEvent struct {
	Action string `json:"eventAction"`
	Date   string `json:"eventDate"`
}
