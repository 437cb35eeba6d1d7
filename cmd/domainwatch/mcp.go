package main

import (
	"log"
	"os"
	"strings"

	"github.com/aretw0/domainwatch"
	"github.com/aretw0/domainwatch/internal/cli"
	"github.com/aretw0/domainwatch/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server on stdio",
	Long: `Exposes check_domain and session_status as MCP tools so agents can look up
expiration dates. The server never sends messages.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err := cli.NewLogger(os.Stderr, cfg.Log)
		if err != nil {
			return err
		}
		stack, err := cli.NewStack(cfg, logger)
		if err != nil {
			return err
		}
		defer stack.Close()

		// Stdout carries JSON-RPC.
		log.SetOutput(os.Stderr)

		srv := mcp.NewServer(stack.Resolver, stack.Store, cfg.Account, strings.TrimSpace(domainwatch.Version),
			mcp.WithLogger(logger.With("component", "mcp")),
			mcp.WithWarnDays(cfg.Schedule.WarnDays),
		)
		logger.Info("Starting domainwatch MCP server (stdio)")
		return srv.ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
