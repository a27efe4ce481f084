package cli

import (
	"github.com/spf13/cobra"

	"github.com/petal-labs/toolgate/gateway"
	"github.com/petal-labs/toolgate/vault"
)

// NewVaultCmd creates the "vault" gateway subcommand.
func NewVaultCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Serve secrets vault tools over stdio",
		Long: "Serve secret listing, metadata, and retrieval tools against a KV vault. " +
			"Secret values stay masked unless a call opts in explicitly. The address and " +
			"token come from flags, TOOLGATE_VAULT_ADDRESS/TOOLGATE_VAULT_TOKEN, or the " +
			"vault config section.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := LoadConfigFile(cfgPath)
			if err != nil {
				return exitError(exitConfig, "%v", err)
			}

			address, _ := cmd.Flags().GetString("address")
			token, _ := cmd.Flags().GetString("token")
			mount, _ := cmd.Flags().GetString("mount")
			adapter, err := vault.New(vault.Config{
				Address: firstOf(address, envOr("TOOLGATE_VAULT_ADDRESS", cfg.Vault.Address)),
				Token:   firstOf(token, envOr("TOOLGATE_VAULT_TOKEN", cfg.Vault.Token)),
				Mount:   firstOf(mount, envOr("TOOLGATE_VAULT_MOUNT", cfg.Vault.Mount)),
			})
			if err != nil {
				return exitError(exitConfig, "%v", err)
			}

			return runGateway(cmd, gatewaySetup{
				name:    "toolgate-vault",
				version: version,
				adapter: adapter,
				register: func(reg *gateway.Registry) error {
					return vault.Register(reg, adapter)
				},
				otlp: cfg.OTLP,
			})
		},
	}

	cmd.Flags().String("address", "", "Vault API root, e.g. https://vault.internal:8200")
	cmd.Flags().String("token", "", "Vault access token")
	cmd.Flags().String("mount", "", "KV mount point (default secret)")
	cmd.Flags().String("config", "", "Path to toolgate.yaml")
	return cmd
}
