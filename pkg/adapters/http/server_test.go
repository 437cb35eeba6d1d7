package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/aretw0/domainwatch/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	live  bool
	state domain.SessionState
}

func (s *stubSession) IsLive() bool { return s.live }

func (s *stubSession) Status() *domain.Session {
	return &domain.Session{State: s.state, Connected: s.live, Credentials: []byte("secret")}
}

type stubReports struct {
	report *domain.CheckReport
}

func (s *stubReports) LastReport() *domain.CheckReport { return s.report }

func serve(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGetHealth(t *testing.T) {
	sess := &stubSession{live: true, state: domain.StateConnected}
	h := NewHandler(sess, nil)

	w := serve(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)

	sess.live = false
	w = serve(t, h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "session not live")
}

func TestGetStatus(t *testing.T) {
	sess := &stubSession{live: true, state: domain.StateConnected}
	reports := &stubReports{report: &domain.CheckReport{
		Domain: "example.com",
		Run:    domain.RunStartup,
		At:     time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
		Alert:  &domain.Alert{Tier: domain.TierWarning, Days: 10, Text: "expires in 10 days"},
	}}
	h := NewHandler(sess, reports, WithDomain("example.com"))

	w := serve(t, h, "/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotContains(t, w.Body.String(), "secret", "credentials never leave the process")

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "example.com", resp.Domain)
	assert.Equal(t, domain.StateConnected, resp.Session.State)
	require.NotNil(t, resp.LastReport)
	assert.Equal(t, domain.TierWarning, resp.LastReport.Alert.Tier)
}

func TestGetStatus_NoReportYet(t *testing.T) {
	h := NewHandler(&stubSession{state: domain.StateAwaitingChallenge}, &stubReports{})

	w := serve(t, h, "/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "last_report")
}

func TestGetInfo(t *testing.T) {
	h := NewHandler(&stubSession{}, nil, WithVersion("1.2.3"))

	w := serve(t, h, "/info")
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "domainwatch", resp["app"])
	assert.Equal(t, "1.2.3", resp["version"])
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	metrics.ChallengeIssued()

	h := NewHandler(&stubSession{}, nil, WithGatherer(reg))

	w := serve(t, h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "domainwatch_session_challenges_total 1")
}

func TestMetrics_DisabledWithoutGatherer(t *testing.T) {
	h := NewHandler(&stubSession{}, nil)
	assert.Equal(t, http.StatusNotFound, serve(t, h, "/metrics").Code)
}
