package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/domainwatch"
	"github.com/aretw0/domainwatch/internal/cli"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the alert daemon",
	Long: `Starts the messaging session and the scheduler. The first check runs a few
seconds after startup, then every day at schedule.hour. When no credentials
are stored, a link-device challenge is printed to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
			cfg.Listen = listen
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration:\n%w", err)
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

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		noBanner, _ := cmd.Flags().GetBool("no-banner")
		err = cli.RunDaemon(sigCtx, stack, cli.RunOptions{
			Version: strings.TrimSpace(domainwatch.Version),
			Out:     os.Stderr,
			Banner:  !noBanner,
		})
		if sig := sigCtx.Signal(); sig != nil {
			logger.Info("Stopped", "signal", sig.String())
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("listen", "", "Serve /healthz, /status and /metrics on this address (overrides listen)")
	runCmd.Flags().Bool("no-banner", false, "Do not print the startup banner")
}
