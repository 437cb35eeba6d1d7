/*
Package domain contains the core models of domainwatch.

It defines the messaging session and its lifecycle states, the events a
platform connection emits, expiration lookup results, alert tiers and the
typed errors shared by every component. The package is kept free of I/O so
adapters and services can depend on it without cycles.

# Key Entities

  - Session: the single authenticated connection owned by the session manager.
  - Event: one item of the serialized platform event stream.
  - ExpirationResult: the resolved expiration instant and the protocol that produced it.
  - Alert: a classified notification (expired, warning or info).
*/
package domain
