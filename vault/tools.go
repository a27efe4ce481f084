package vault

import (
	"context"

	"github.com/petal-labs/toolgate/gateway"
	"github.com/petal-labs/toolgate/schema"
)

// Register adds the vault tools to a registry.
func Register(reg *gateway.Registry, adapter *Adapter) error {
	if err := reg.Register(gateway.ToolDescriptor{
		Name:        "list_secrets",
		Title:       "List secrets",
		Description: "List secret names under a path prefix. Values are never returned.",
		Input: schema.New(map[string]schema.FieldSpec{
			"prefix": {
				Type:        schema.TypeString,
				Default:     "",
				Description: "Path prefix to list under",
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.ListSecrets(ctx, params.String("prefix"))
	}); err != nil {
		return err
	}

	if err := reg.Register(gateway.ToolDescriptor{
		Name:        "get_secret",
		Title:       "Get secret",
		Description: "Fetch one secret. Returns key names only unless include_values is set.",
		Input: schema.New(map[string]schema.FieldSpec{
			"secret_id": {
				Type:        schema.TypeString,
				Required:    true,
				MinLen:      1,
				Description: "Secret path",
			},
			"include_values": {
				Type:        schema.TypeBoolean,
				Default:     false,
				Description: "Include the secret's values in the response",
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.GetSecret(ctx, params.String("secret_id"), params.Bool("include_values"))
	}); err != nil {
		return err
	}

	return reg.Register(gateway.ToolDescriptor{
		Name:        "get_secret_metadata",
		Title:       "Get secret metadata",
		Description: "Fetch version metadata for one secret without reading its value.",
		Input: schema.New(map[string]schema.FieldSpec{
			"secret_id": {
				Type:        schema.TypeString,
				Required:    true,
				MinLen:      1,
				Description: "Secret path",
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.GetSecretMetadata(ctx, params.String("secret_id"))
	})
}
