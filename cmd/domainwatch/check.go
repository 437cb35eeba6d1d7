package main

import (
	"context"
	"os"
	"time"

	"github.com/aretw0/domainwatch/internal/cli"
	"github.com/aretw0/domainwatch/internal/config"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [domain]",
	Short: "Look up and classify a domain without sending anything",
	Long: `Resolves the expiration date (WHOIS, then RDAP) of the given domain, or of
the configured one, and prints the alert the startup check would send.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		name := cfg.Domain
		if len(args) > 0 {
			name = args[0]
		}

		logger, err := cli.NewLogger(os.Stderr, cfg.Log)
		if err != nil {
			return err
		}
		cfg.Credentials.Backend = config.BackendMemory
		stack, err := cli.NewStack(cfg, logger)
		if err != nil {
			return err
		}
		defer stack.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		_, err = cli.RunCheck(ctx, stack.Resolver, name, cfg.Schedule.WarnDays, os.Stdout)
		return err
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().Duration("timeout", 30*time.Second, "Overall lookup timeout")
}
