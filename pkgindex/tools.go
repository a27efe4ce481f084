package pkgindex

import (
	"context"

	"github.com/petal-labs/toolgate/gateway"
	"github.com/petal-labs/toolgate/schema"
)

// Register adds the package registry tools to a registry.
func Register(reg *gateway.Registry, adapter *Adapter) error {
	limitMin := 1.0
	limitMax := 100.0

	if err := reg.Register(gateway.ToolDescriptor{
		Name:        "search_packages",
		Title:       "Search packages",
		Description: "Full-text search over the package registry.",
		Input: schema.New(map[string]schema.FieldSpec{
			"query": {
				Type:        schema.TypeString,
				Required:    true,
				MinLen:      1,
				Description: "Search text",
			},
			"limit": {
				Type:        schema.TypeInteger,
				Default:     20,
				Min:         &limitMin,
				Max:         &limitMax,
				Description: "Maximum number of results",
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.SearchPackages(ctx, params.String("query"), params.IntOr("limit", 20))
	}); err != nil {
		return err
	}

	if err := reg.Register(gateway.ToolDescriptor{
		Name:        "get_package",
		Title:       "Get package",
		Description: "Fetch one package's metadata, dist-tags, and latest version.",
		Input: schema.New(map[string]schema.FieldSpec{
			"name": {
				Type:        schema.TypeString,
				Required:    true,
				MinLen:      1,
				Description: "Package name",
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.GetPackage(ctx, params.String("name"))
	}); err != nil {
		return err
	}

	return reg.Register(gateway.ToolDescriptor{
		Name:        "list_versions",
		Title:       "List versions",
		Description: "List every published version of a package with publish times.",
		Input: schema.New(map[string]schema.FieldSpec{
			"name": {
				Type:        schema.TypeString,
				Required:    true,
				MinLen:      1,
				Description: "Package name",
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.ListVersions(ctx, params.String("name"))
	})
}
