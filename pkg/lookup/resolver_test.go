package lookup

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/aretw0/domainwatch/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWhois struct {
	raw   string
	err   error
	calls int
	name  string
}

func (f *fakeWhois) Query(_ context.Context, name string) (string, error) {
	f.calls++
	f.name = name
	return f.raw, f.err
}

type fakeRDAP struct {
	events []domain.RDAPEvent
	err    error
	calls  int
}

func (f *fakeRDAP) DomainEvents(_ context.Context, _ string) ([]domain.RDAPEvent, error) {
	f.calls++
	return f.events, f.err
}

func TestResolve_PrimaryWins(t *testing.T) {
	whois := &fakeWhois{raw: "Registry Expiry Date: 2026-03-01T00:00:00Z\n"}
	rdap := &fakeRDAP{events: []domain.RDAPEvent{{Action: "expiration", Date: "2030-01-01T00:00:00Z"}}}

	res, err := NewResolver(whois, rdap).Resolve(context.Background(), "Example.COM.")
	require.NoError(t, err)

	assert.Equal(t, "example.com", res.Domain)
	assert.Equal(t, "example.com", whois.name)
	assert.Equal(t, domain.SourcePrimary, res.Source)
	assert.Equal(t, 2026, res.ExpiresAt.Year())
	assert.Zero(t, rdap.calls, "fallback must not be consulted when the primary has a date")
}

func TestResolve_FallbackWhenNoLabel(t *testing.T) {
	whois := &fakeWhois{raw: "Domain Name: EXAMPLE.COM\n"}
	rdap := &fakeRDAP{events: []domain.RDAPEvent{
		{Action: "registration", Date: "1995-08-14T04:00:00Z"},
		{Action: "expiration", Date: "2026-08-13T04:00:00Z"},
	}}

	res, err := NewResolver(whois, rdap).Resolve(context.Background(), "example.com")
	require.NoError(t, err)

	assert.Equal(t, domain.SourceFallback, res.Source)
	assert.True(t, time.Date(2026, 8, 13, 4, 0, 0, 0, time.UTC).Equal(res.ExpiresAt))
}

func TestResolve_RateLimitedFallsBack(t *testing.T) {
	whois := &fakeWhois{raw: "WHOIS LIMIT EXCEEDED - SEE WWW.PIR.ORG/WHOIS FOR DETAILS"}
	rdap := &fakeRDAP{events: []domain.RDAPEvent{{Action: "registrationExpiration", Date: "2027-01-01"}}}

	res, err := NewResolver(whois, rdap).Resolve(context.Background(), "example.org")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFallback, res.Source)
	assert.Equal(t, 1, rdap.calls)
}

func TestResolve_PrimaryErrorFallsBack(t *testing.T) {
	whois := &fakeWhois{err: errors.New("dial tcp: i/o timeout")}
	rdap := &fakeRDAP{events: []domain.RDAPEvent{{Action: "expiration", Date: "2027-01-01T00:00:00Z"}}}

	res, err := NewResolver(whois, rdap).Resolve(context.Background(), "example.net")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceFallback, res.Source)
}

func TestResolve_BothFail(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	whois := &fakeWhois{raw: "WHOIS LIMIT EXCEEDED"}
	rdap := &fakeRDAP{err: errors.New("status 503")}

	_, err := NewResolver(whois, rdap, WithMetrics(metrics)).Resolve(context.Background(), "example.org")
	require.Error(t, err)

	assert.ErrorIs(t, err, domain.ErrExpirationUnavailable)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	var lerr *domain.LookupError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "example.org", lerr.Domain)
	assert.Contains(t, lerr.Fallback.Error(), "status 503")

	expected := `
# HELP domainwatch_lookup_failures_total Lookups where both protocols failed
# TYPE domainwatch_lookup_failures_total counter
domainwatch_lookup_failures_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "domainwatch_lookup_failures_total"))
}

func TestResolve_FallbackWithoutExpirationEvent(t *testing.T) {
	whois := &fakeWhois{raw: ""}
	rdap := &fakeRDAP{events: []domain.RDAPEvent{{Action: "last changed", Date: "2024-01-01T00:00:00Z"}}}

	_, err := NewResolver(whois, rdap).Resolve(context.Background(), "example.com")
	assert.ErrorIs(t, err, domain.ErrNoExpiration)
	assert.ErrorIs(t, err, domain.ErrExpirationUnavailable)
}

func TestResolve_FallbackBadDate(t *testing.T) {
	rdap := &fakeRDAP{events: []domain.RDAPEvent{{Action: "expiration", Date: "soon"}}}

	_, err := NewResolver(nil, rdap).Resolve(context.Background(), "example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "soon")
}

func TestResolve_RecordsSource(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	whois := &fakeWhois{raw: "Expiration Date: 2026-01-01\n"}

	_, err := NewResolver(whois, nil, WithMetrics(metrics)).Resolve(context.Background(), "example.com")
	require.NoError(t, err)

	expected := `
# HELP domainwatch_lookups_total Successful expiration lookups by protocol
# TYPE domainwatch_lookups_total counter
domainwatch_lookups_total{source="primary"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "domainwatch_lookups_total"))
}

func TestResolve_EmptyName(t *testing.T) {
	whois := &fakeWhois{}
	_, err := NewResolver(whois, nil).Resolve(context.Background(), "  ")
	assert.Error(t, err)
	assert.Zero(t, whois.calls)
}

func TestExpiryFromEvents_CaseInsensitiveAction(t *testing.T) {
	got, err := ExpiryFromEvents([]domain.RDAPEvent{{Action: "Expiration", Date: "2026-02-03"}})
	require.NoError(t, err)
	assert.Equal(t, time.February, got.Month())
}

func TestExpiryFromEvents_SkipsUnparseableDate(t *testing.T) {
	got, err := ExpiryFromEvents([]domain.RDAPEvent{
		{Action: "expiration", Date: "unknown"},
		{Action: "registrationExpiration", Date: "2026-05-01T00:00:00Z"},
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), got.UTC())

	_, err = ExpiryFromEvents([]domain.RDAPEvent{{Action: "expiration", Date: "unknown"}})
	assert.ErrorContains(t, err, `"unknown"`)
}
