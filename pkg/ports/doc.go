/*
Package ports defines the driven ports (interfaces) of domainwatch.

These interfaces decouple the session, lookup and scheduling logic from the
concrete platform gateway, lookup protocols and storage backends.

# Key Interfaces

  - Platform / Connection: the messaging platform and its serialized event stream.
  - CredentialStore: persists the opaque session credential blob.
  - WhoisClient / RDAPClient: the primary and fallback lookup protocols.
  - FireGuard: claims a trigger key once, across restarts and replicas.
  - ChallengeRenderer: shows an authentication challenge to the operator.
*/
package ports
