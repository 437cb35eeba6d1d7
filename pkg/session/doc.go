/*
Package session owns the authenticated connection to the messaging platform.

A Manager runs one event loop per connection cycle. The loop is the only
writer of the session state: it consumes the platform's serialized event
stream (challenges, connection updates, credential updates, observed
messages) together with the challenge timer, and applies the lifecycle
rules:

  - each challenge increments a bounded attempt counter and arms a timer;
    an expired challenge is re-requested on the same connection;
  - the challenge after the last allowed attempt ends the cycle with
    domain.ErrMaxChallengeAttempts;
  - a connection open (or any observed message) marks the session live;
  - close codes 401 and 408 are terminal; any other code reconnects after
    a fixed delay.

Credential updates are persisted through a ports.CredentialStore as they
arrive. Callers read liveness through IsLive and snapshots through Status.
*/
package session
