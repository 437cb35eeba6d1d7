package main

import (
	"os"

	"github.com/aretw0/domainwatch/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored messaging credentials",
	Long: `Inspect or remove the credentials stored for the configured account.
After the platform logs the device out, reset and run again to link anew.`,
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show whether credentials are stored",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := storeStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()
		return cli.InspectCredentials(cmd.Context(), stack.Store, stack.Config.Account, os.Stdout)
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove stored credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stack, err := storeStack(cmd)
		if err != nil {
			return err
		}
		defer stack.Close()
		return cli.ResetCredentials(cmd.Context(), stack.Store, stack.Config.Account, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionResetCmd)
}

func storeStack(cmd *cobra.Command) (*cli.Stack, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := cli.NewLogger(os.Stderr, cfg.Log)
	if err != nil {
		return nil, err
	}
	return cli.NewStack(cfg, logger)
}
