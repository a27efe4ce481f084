package sqldb

import (
	"context"

	"github.com/petal-labs/toolgate/gateway"
	"github.com/petal-labs/toolgate/schema"
)

// Register adds the database tools to a registry.
func Register(reg *gateway.Registry, adapter *Adapter) error {
	if err := reg.Register(gateway.ToolDescriptor{
		Name:        "query",
		Title:       "Run read-only SQL query",
		Description: "Execute a read-only SQL statement (select, show, explain, describe) and return the matching rows.",
		Input: schema.New(map[string]schema.FieldSpec{
			"query": {
				Type:        schema.TypeString,
				Required:    true,
				MinLen:      1,
				Description: "SQL statement to execute; write statements are rejected",
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.Query(ctx, params.String("query"))
	}); err != nil {
		return err
	}

	if err := reg.Register(gateway.ToolDescriptor{
		Name:        "list_tables",
		Title:       "List tables",
		Description: "List user tables in the connected database.",
		Input:       schema.New(nil),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.ListTables(ctx)
	}); err != nil {
		return err
	}

	return reg.Register(gateway.ToolDescriptor{
		Name:        "describe_table",
		Title:       "Describe table",
		Description: "Report a table's columns and indexes.",
		Input: schema.New(map[string]schema.FieldSpec{
			"table": {
				Type:        schema.TypeString,
				Required:    true,
				MinLen:      1,
				Description: "Table name",
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.DescribeTable(ctx, params.String("table"))
	})
}
