package mailbox

import (
	"context"

	"github.com/petal-labs/toolgate/gateway"
	"github.com/petal-labs/toolgate/schema"
)

// Register adds the mailbox tools to a registry.
func Register(reg *gateway.Registry, adapter *Adapter) error {
	if err := reg.Register(gateway.ToolDescriptor{
		Name:        "list_folders",
		Title:       "List folders",
		Description: "List mailbox folders with message counts.",
		Input:       schema.New(nil),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.ListFolders(ctx)
	}); err != nil {
		return err
	}

	if err := reg.Register(gateway.ToolDescriptor{
		Name:        "list_messages",
		Title:       "List messages",
		Description: "Page through one folder's messages, newest first.",
		Input: schema.Paginated(map[string]schema.FieldSpec{
			"folder": {
				Type:        schema.TypeString,
				Default:     "INBOX",
				Description: "Folder name",
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.ListMessages(ctx, params.StringOr("folder", "INBOX"),
			params.IntOr("page", 1), params.IntOr("limit", 25))
	}); err != nil {
		return err
	}

	if err := reg.Register(gateway.ToolDescriptor{
		Name:        "search_messages",
		Title:       "Search messages",
		Description: "Free-text search across the mail store.",
		Input: schema.Paginated(map[string]schema.FieldSpec{
			"query": {
				Type:        schema.TypeString,
				Required:    true,
				MinLen:      1,
				Description: "Search text",
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.SearchMessages(ctx, params.String("query"), params.IntOr("limit", 25))
	}); err != nil {
		return err
	}

	return reg.Register(gateway.ToolDescriptor{
		Name:        "get_message",
		Title:       "Get message",
		Description: "Fetch one message including its text body.",
		Input: schema.New(map[string]schema.FieldSpec{
			"id": {
				Type:        schema.TypeString,
				Required:    true,
				MinLen:      1,
				Description: "Message id",
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.GetMessage(ctx, params.String("id"))
	})
}
