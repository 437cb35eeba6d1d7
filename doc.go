/*
Package domainwatch keeps an authenticated messaging session open and uses it
to warn one recipient before a domain registration expires.

It is built from four components:

  - lookup.Resolver finds the expiration date, WHOIS first and RDAP as fallback.
  - session.Manager owns the platform connection: challenges, close-code
    classification and bounded reconnects.
  - notify.Notifier brings the session up before each send and never fails its caller.
  - schedule.Scheduler runs one check at startup and one every day at 09:00.

# Alert tiers

	expired    the expiration date is in the past
	warning    0 to 30 days left (the message states the day count)
	info       anything later; sent by the startup check only

# Usage

The daemon is driven by the domainwatch command:

	domainwatch run --config domainwatch.yaml

A dry run that looks up and classifies a domain without a session:

	domainwatch check example.com

Configuration is read from defaults, an optional YAML file and DOMAINWATCH_*
environment variables, in that order (see internal/config).
*/
package domainwatch
