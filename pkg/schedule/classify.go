package schedule

import (
	"fmt"
	"math"
	"time"

	"github.com/aretw0/domainwatch/pkg/domain"
)

// DefaultWarnDays is the warning window.
const DefaultWarnDays = 30

const day = 24 * time.Hour

// DaysUntil returns floor((expiry-now)/24h).
func DaysUntil(expiry, now time.Time) int {
	return int(math.Floor(float64(expiry.Sub(now)) / float64(day)))
}

// Classify selects the alert tier for expiry. The boolean is false when
// nothing should be sent, which only happens for the info tier on a daily run.
func Classify(expiry, now time.Time, run domain.RunKind, warnDays int) (domain.Alert, bool) {
	days := DaysUntil(expiry, now)
	switch {
	case expiry.Before(now):
		return domain.Alert{Tier: domain.TierExpired, Days: days}, true
	case days <= warnDays:
		return domain.Alert{Tier: domain.TierWarning, Days: days}, true
	case run == domain.RunStartup:
		return domain.Alert{Tier: domain.TierInfo, Days: days}, true
	default:
		return domain.Alert{Tier: domain.TierInfo, Days: days}, false
	}
}

// Compose renders the message text for an alert.
func Compose(name string, alert domain.Alert, expiry time.Time) string {
	date := expiry.UTC().Format("2006-01-02")
	switch alert.Tier {
	case domain.TierExpired:
		ago := -alert.Days
		if ago < 1 {
			ago = 1
		}
		return fmt.Sprintf("ALERT: the domain %s expired on %s (%s ago). Renew it as soon as possible.", name, date, plural(ago))
	case domain.TierWarning:
		if alert.Days == 0 {
			return fmt.Sprintf("WARNING: the domain %s expires today (%s).", name, date)
		}
		return fmt.Sprintf("WARNING: the domain %s expires in %s, on %s.", name, plural(alert.Days), date)
	default:
		return fmt.Sprintf("The domain %s is registered until %s (%s left).", name, date, plural(alert.Days))
	}
}

// ComposeError renders the report sent when the lookup failed.
func ComposeError(name string, err error) string {
	return fmt.Sprintf("ERROR: could not determine the expiration date of %s: %v", name, err)
}

func plural(days int) string {
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
