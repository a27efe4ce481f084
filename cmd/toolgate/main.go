package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/petal-labs/toolgate/cli"
)

// Set via ldflags at build time.
var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "toolgate",
	Short: "ToolGate stdio tool gateways",
	Long:  "ToolGate — thin stdio gateways that expose backend systems as typed, read-oriented tools.",
	// SilenceUsage prevents printing usage on every error
	SilenceUsage: true,
}

func init() {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(fmt.Sprintf("toolgate version %s\n", version))

	rootCmd.AddCommand(cli.NewSQLiteCmd(version))
	rootCmd.AddCommand(cli.NewMonitorCmd(version))
	rootCmd.AddCommand(cli.NewVaultCmd(version))
	rootCmd.AddCommand(cli.NewPkgIndexCmd(version))
	rootCmd.AddCommand(cli.NewMailboxCmd(version))
}
