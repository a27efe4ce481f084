package cli

import (
	"github.com/spf13/cobra"

	"github.com/petal-labs/toolgate/gateway"
	"github.com/petal-labs/toolgate/monitor"
)

// NewMonitorCmd creates the "monitor" gateway subcommand.
func NewMonitorCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Serve monitoring platform tools over stdio",
		Long: "Serve monitor, metric search, timeseries, and span metric tools against " +
			"a monitoring platform API. Credentials come from --api-key/--app-key, " +
			"TOOLGATE_MONITOR_API_KEY/TOOLGATE_MONITOR_APP_KEY, or the monitor config section.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := LoadConfigFile(cfgPath)
			if err != nil {
				return exitError(exitConfig, "%v", err)
			}

			baseURL, _ := cmd.Flags().GetString("base-url")
			apiKey, _ := cmd.Flags().GetString("api-key")
			appKey, _ := cmd.Flags().GetString("app-key")
			adapter, err := monitor.New(monitor.Config{
				BaseURL: firstOf(baseURL, envOr("TOOLGATE_MONITOR_BASE_URL", cfg.Monitor.BaseURL)),
				APIKey:  firstOf(apiKey, envOr("TOOLGATE_MONITOR_API_KEY", cfg.Monitor.APIKey)),
				AppKey:  firstOf(appKey, envOr("TOOLGATE_MONITOR_APP_KEY", cfg.Monitor.AppKey)),
			})
			if err != nil {
				return exitError(exitConfig, "%v", err)
			}

			return runGateway(cmd, gatewaySetup{
				name:    "toolgate-monitor",
				version: version,
				adapter: adapter,
				register: func(reg *gateway.Registry) error {
					return monitor.Register(reg, adapter)
				},
				otlp: cfg.OTLP,
			})
		},
	}

	cmd.Flags().String("base-url", "", "Monitoring platform API root")
	cmd.Flags().String("api-key", "", "Monitoring platform API key")
	cmd.Flags().String("app-key", "", "Monitoring platform application key")
	cmd.Flags().String("config", "", "Path to toolgate.yaml")
	return cmd
}
