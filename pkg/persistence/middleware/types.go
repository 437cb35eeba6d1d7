// Package middleware wraps a CredentialStore to add behavior such as
// encryption at rest.
package middleware

import "github.com/aretw0/domainwatch/pkg/ports"

// Middleware allows wrapping a CredentialStore to add behavior.
type Middleware func(ports.CredentialStore) ports.CredentialStore
