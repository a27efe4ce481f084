package cli

import (
	"github.com/spf13/cobra"

	"github.com/petal-labs/toolgate/gateway"
	"github.com/petal-labs/toolgate/pkgindex"
)

// NewPkgIndexCmd creates the "pkgindex" gateway subcommand.
func NewPkgIndexCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pkgindex",
		Short: "Serve package registry tools over stdio",
		Long: "Serve package search, metadata, and version listing tools against a " +
			"package registry. The registry root defaults to the public index and can " +
			"be overridden with --base-url, TOOLGATE_PKGINDEX_BASE_URL, or the pkgindex " +
			"config section.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := LoadConfigFile(cfgPath)
			if err != nil {
				return exitError(exitConfig, "%v", err)
			}

			baseURL, _ := cmd.Flags().GetString("base-url")
			adapter, err := pkgindex.New(pkgindex.Config{
				BaseURL: firstOf(baseURL, envOr("TOOLGATE_PKGINDEX_BASE_URL", cfg.PkgIndex.BaseURL)),
			})
			if err != nil {
				return exitError(exitConfig, "%v", err)
			}

			return runGateway(cmd, gatewaySetup{
				name:    "toolgate-pkgindex",
				version: version,
				adapter: adapter,
				register: func(reg *gateway.Registry) error {
					return pkgindex.Register(reg, adapter)
				},
				otlp: cfg.OTLP,
			})
		},
	}

	cmd.Flags().String("base-url", "", "Package registry API root")
	cmd.Flags().String("config", "", "Path to toolgate.yaml")
	return cmd
}
