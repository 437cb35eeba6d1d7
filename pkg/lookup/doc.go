/*
Package lookup resolves a domain name to its registration expiration date.

The primary protocol is WHOIS: its free-text response is scanned with an
ordered list of field labels, and the first label whose value parses as a
date wins. A rate-limited response, a protocol error, or a response with no
usable label falls through to RDAP, where the first "expiration" or
"registrationExpiration" event is used. Only when both protocols come up
empty does Resolve fail, with a *domain.LookupError.
*/
package lookup
