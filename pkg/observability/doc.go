/*
Package observability provides the Prometheus metrics shared by the session,
lookup, notify and schedule packages.

Every recording method is nil-safe, so components accept an optional
*Metrics without guarding each call site.
*/
package observability
