/*
Package schedule drives the expiration checks.

One check runs shortly after startup, then one every day at a fixed hour
(09:00 by default) through a cron entry. Both triggers are consumed by the
same loop, so checks never overlap. Each daily firing is claimed through a
ports.FireGuard keyed by domain and wall-clock minute, which keeps restarts
and replicas from sending the same alert twice.

Classification:

	expiry before now          expired
	0 <= days <= WarnDays      warning
	otherwise                  info (startup run only)
*/
package schedule
