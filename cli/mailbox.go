package cli

import (
	"github.com/spf13/cobra"

	"github.com/petal-labs/toolgate/gateway"
	"github.com/petal-labs/toolgate/mailbox"
)

// NewMailboxCmd creates the "mailbox" gateway subcommand.
func NewMailboxCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mailbox",
		Short: "Serve email store tools over stdio",
		Long: "Serve folder, message listing, search, and retrieval tools against an " +
			"email store API. The base URL and token come from flags, " +
			"TOOLGATE_MAILBOX_BASE_URL/TOOLGATE_MAILBOX_TOKEN, or the mailbox config section.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := LoadConfigFile(cfgPath)
			if err != nil {
				return exitError(exitConfig, "%v", err)
			}

			baseURL, _ := cmd.Flags().GetString("base-url")
			token, _ := cmd.Flags().GetString("token")
			adapter, err := mailbox.New(mailbox.Config{
				BaseURL: firstOf(baseURL, envOr("TOOLGATE_MAILBOX_BASE_URL", cfg.Mailbox.BaseURL)),
				Token:   firstOf(token, envOr("TOOLGATE_MAILBOX_TOKEN", cfg.Mailbox.Token)),
			})
			if err != nil {
				return exitError(exitConfig, "%v", err)
			}

			return runGateway(cmd, gatewaySetup{
				name:    "toolgate-mailbox",
				version: version,
				adapter: adapter,
				register: func(reg *gateway.Registry) error {
					return mailbox.Register(reg, adapter)
				},
				otlp: cfg.OTLP,
			})
		},
	}

	cmd.Flags().String("base-url", "", "Email store API root")
	cmd.Flags().String("token", "", "Email store access token")
	cmd.Flags().String("config", "", "Path to toolgate.yaml")
	return cmd
}
