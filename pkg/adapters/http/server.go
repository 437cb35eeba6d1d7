// Package http serves the operational endpoints: health, status and metrics.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/domainwatch/internal/logging"
	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session exposes the session state to the handlers.
type Session interface {
	IsLive() bool
	Status() *domain.Session
}

// Reports exposes the last check outcome.
type Reports interface {
	LastReport() *domain.CheckReport
}

// Server holds the handler dependencies.
type Server struct {
	Session  Session
	Reports  Reports
	Gatherer prometheus.Gatherer
	Version  string
	Domain   string
	logger   *slog.Logger
	started  time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithGatherer exposes a registry on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.Gatherer = g
	}
}

// WithVersion sets the version reported by /info.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.Version = v
	}
}

// WithDomain sets the monitored domain reported by /status.
func WithDomain(name string) Option {
	return func(s *Server) {
		s.Domain = name
	}
}

// NewHandler creates the HTTP handler.
func NewHandler(session Session, reports Reports, opts ...Option) http.Handler {
	s := &Server{
		Session: session,
		Reports: reports,
		Version: "dev",
		logger:  logging.NewNop(),
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/status", s.GetStatus)
	if s.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// GetHealth reports 200 while the session is live and 503 otherwise.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	resp := map[string]string{"status": "ok"}
	if !s.Session.IsLive() {
		status = http.StatusServiceUnavailable
		resp["status"] = "session not live"
	}
	s.writeJSON(w, status, resp)
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "domainwatch",
		"version": s.Version,
		"uptime":  time.Since(s.started).Truncate(time.Second).String(),
	})
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Domain     string              `json:"domain,omitempty"`
	Session    *domain.Session     `json:"session"`
	LastReport *domain.CheckReport `json:"last_report,omitempty"`
}

// GetStatus handles the GET /status request.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Domain:  s.Domain,
		Session: s.Session.Status(),
	}
	if s.Reports != nil {
		resp.LastReport = s.Reports.LastReport()
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
