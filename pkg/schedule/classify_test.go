package schedule

import (
	"testing"
	"time"

	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestClassify_Expired(t *testing.T) {
	alert, send := Classify(date(2024, 1, 1), date(2024, 2, 1), domain.RunDaily, DefaultWarnDays)
	assert.True(t, send)
	assert.Equal(t, domain.TierExpired, alert.Tier)
	assert.Equal(t, -31, alert.Days)
}

func TestClassify_Warning(t *testing.T) {
	now := date(2024, 3, 1)
	for _, run := range []domain.RunKind{domain.RunStartup, domain.RunDaily} {
		alert, send := Classify(now.AddDate(0, 0, 10), now, run, DefaultWarnDays)
		assert.True(t, send, run)
		assert.Equal(t, domain.TierWarning, alert.Tier)
		assert.Equal(t, 10, alert.Days)
	}
}

func TestClassify_Boundaries(t *testing.T) {
	now := date(2024, 3, 1)

	alert, _ := Classify(now.AddDate(0, 0, 30), now, domain.RunDaily, 30)
	assert.Equal(t, domain.TierWarning, alert.Tier, "30 days is still inside the window")

	_, send := Classify(now.AddDate(0, 0, 31), now, domain.RunDaily, 30)
	assert.False(t, send)

	alert, _ = Classify(now.Add(5*time.Hour), now, domain.RunDaily, 30)
	assert.Equal(t, domain.TierWarning, alert.Tier)
	assert.Zero(t, alert.Days)

	alert, _ = Classify(now.Add(-time.Minute), now, domain.RunDaily, 30)
	assert.Equal(t, domain.TierExpired, alert.Tier)
}

func TestClassify_InfoOnlyOnStartup(t *testing.T) {
	now := date(2024, 3, 1)
	expiry := now.AddDate(0, 0, 90)

	alert, send := Classify(expiry, now, domain.RunStartup, DefaultWarnDays)
	assert.True(t, send)
	assert.Equal(t, domain.TierInfo, alert.Tier)

	_, send = Classify(expiry, now, domain.RunDaily, DefaultWarnDays)
	assert.False(t, send)
}

func TestDaysUntil_Floors(t *testing.T) {
	now := date(2024, 3, 1)
	assert.Equal(t, 9, DaysUntil(now.Add(10*day-time.Second), now))
	assert.Equal(t, -1, DaysUntil(now.Add(-time.Hour), now))
}

func TestCompose(t *testing.T) {
	expiry := date(2024, 3, 11)

	msg := Compose("example.com", domain.Alert{Tier: domain.TierWarning, Days: 10}, expiry)
	assert.Contains(t, msg, "10 days")
	assert.Contains(t, msg, "example.com")
	assert.Contains(t, msg, "2024-03-11")

	msg = Compose("example.com", domain.Alert{Tier: domain.TierExpired, Days: -1}, expiry)
	assert.Contains(t, msg, "expired")
	assert.Contains(t, msg, "1 day ago")

	msg = Compose("example.com", domain.Alert{Tier: domain.TierWarning, Days: 0}, expiry)
	assert.Contains(t, msg, "today")
}
