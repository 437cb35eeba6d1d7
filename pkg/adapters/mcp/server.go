// Package mcp exposes domain checks to MCP clients over stdio.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/domainwatch/internal/logging"
	"github.com/aretw0/domainwatch/pkg/domain"
	"github.com/aretw0/domainwatch/pkg/ports"
	"github.com/aretw0/domainwatch/pkg/schedule"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Resolver is the lookup dependency.
type Resolver interface {
	Resolve(ctx context.Context, name string) (*domain.ExpirationResult, error)
}

// CheckArgs are the arguments of check_domain.
type CheckArgs struct {
	Domain string `json:"domain"`
}

// CheckResponse is the structured result of check_domain.
type CheckResponse struct {
	Domain     string              `json:"domain" jsonschema_description:"Normalized domain name"`
	ExpiresAt  time.Time           `json:"expires_at" jsonschema_description:"Registration expiration instant"`
	Source     domain.LookupSource `json:"source" jsonschema_description:"primary (WHOIS) or fallback (RDAP)"`
	Days       int                 `json:"days" jsonschema_description:"Whole days until expiration, negative when expired"`
	Tier       domain.Tier         `json:"tier" jsonschema_description:"expired, warning or info"`
	Message    string              `json:"message" jsonschema_description:"Alert text that would be sent"`
	DailyAlert bool                `json:"daily_alert" jsonschema_description:"Whether the daily run would send this alert"`
}

// StatusResponse is the structured result of session_status.
type StatusResponse struct {
	Account        string `json:"account"`
	HasCredentials bool   `json:"has_credentials"`
}

// Server wraps the resolver and exposes it as an MCP server.
type Server struct {
	resolver  Resolver
	store     ports.CredentialStore
	account   string
	warnDays  int
	now       func() time.Time
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithWarnDays overrides the warning window used for classification.
func WithWarnDays(days int) Option {
	return func(s *Server) {
		if days > 0 {
			s.warnDays = days
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(resolver Resolver, store ports.CredentialStore, account, version string, opts ...Option) *Server {
	s := &Server{
		resolver: resolver,
		store:    store,
		account:  account,
		warnDays: schedule.DefaultWarnDays,
		now:      time.Now,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("domainwatch-mcp", version, server.WithToolCapabilities(false))
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	checkTool := mcp.NewTool("check_domain",
		mcp.WithDescription("Look up a domain's registration expiration (WHOIS, then RDAP) and classify it. Sends nothing."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Domain name, e.g. example.com")),
		mcp.WithOutputSchema[CheckResponse](),
	)
	s.mcpServer.AddTool(checkTool, mcp.NewStructuredToolHandler(s.handleCheck))

	statusTool := mcp.NewTool("session_status",
		mcp.WithDescription("Report whether messaging credentials are stored for the configured account."),
		mcp.WithOutputSchema[StatusResponse](),
	)
	s.mcpServer.AddTool(statusTool, mcp.NewStructuredToolHandler(s.handleStatus))
}

func (s *Server) handleCheck(ctx context.Context, _ mcp.CallToolRequest, args CheckArgs) (CheckResponse, error) {
	if args.Domain == "" {
		return CheckResponse{}, errors.New("domain is required")
	}

	res, err := s.resolver.Resolve(ctx, args.Domain)
	if err != nil {
		s.logger.Warn("MCP check failed", "domain", args.Domain, "err", err)
		return CheckResponse{}, err
	}

	now := s.now()
	alert, _ := schedule.Classify(res.ExpiresAt, now, domain.RunStartup, s.warnDays)
	_, daily := schedule.Classify(res.ExpiresAt, now, domain.RunDaily, s.warnDays)

	return CheckResponse{
		Domain:     res.Domain,
		ExpiresAt:  res.ExpiresAt,
		Source:     res.Source,
		Days:       alert.Days,
		Tier:       alert.Tier,
		Message:    schedule.Compose(res.Domain, alert, res.ExpiresAt),
		DailyAlert: daily,
	}, nil
}

func (s *Server) handleStatus(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (StatusResponse, error) {
	resp := StatusResponse{Account: s.account}

	_, err := s.store.Load(ctx, s.account)
	switch {
	case err == nil:
		resp.HasCredentials = true
	case !errors.Is(err, domain.ErrCredentialsNotFound):
		return StatusResponse{}, fmt.Errorf("load credentials: %w", err)
	}
	return resp, nil
}
