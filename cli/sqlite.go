package cli

import (
	"github.com/spf13/cobra"

	"github.com/petal-labs/toolgate/gateway"
	"github.com/petal-labs/toolgate/sqldb"
)

// NewSQLiteCmd creates the "sqlite" gateway subcommand.
func NewSQLiteCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sqlite",
		Short: "Serve read-only SQLite tools over stdio",
		Long: "Serve the query, list_tables, and describe_table tools against a SQLite " +
			"database. Only read-only statements are accepted. The database path comes " +
			"from --db, TOOLGATE_SQLITE_PATH, or the sqlite.path config entry.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")
			cfg, err := LoadConfigFile(cfgPath)
			if err != nil {
				return exitError(exitConfig, "%v", err)
			}

			path, _ := cmd.Flags().GetString("db")
			adapter, err := sqldb.New(sqldb.Config{
				Path: firstOf(path, envOr("TOOLGATE_SQLITE_PATH", cfg.SQLite.Path)),
			})
			if err != nil {
				return exitError(exitConfig, "%v", err)
			}

			return runGateway(cmd, gatewaySetup{
				name:    "toolgate-sqlite",
				version: version,
				adapter: adapter,
				register: func(reg *gateway.Registry) error {
					return sqldb.Register(reg, adapter)
				},
				otlp: cfg.OTLP,
			})
		},
	}

	cmd.Flags().String("db", "", "SQLite database path")
	cmd.Flags().String("config", "", "Path to toolgate.yaml")
	return cmd
}
