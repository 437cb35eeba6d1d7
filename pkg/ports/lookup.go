package ports

import (
	"context"

	"github.com/aretw0/domainwatch/pkg/domain"
)

// WhoisClient queries the primary (WHOIS) protocol and returns the raw text response.
type WhoisClient interface {
	Query(ctx context.Context, name string) (string, error)
}

// RDAPClient queries the fallback (RDAP) protocol and returns the domain's event list.
type RDAPClient interface {
	DomainEvents(ctx context.Context, name string) ([]domain.RDAPEvent, error)
}
