package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/domainwatch"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of domainwatch",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("domainwatch version %s\n", strings.TrimSpace(domainwatch.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
