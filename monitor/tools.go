package monitor

import (
	"context"
	"time"

	"github.com/petal-labs/toolgate/gateway"
	"github.com/petal-labs/toolgate/schema"
)

// Register adds the monitoring tools to a registry.
func Register(reg *gateway.Registry, adapter *Adapter) error {
	if err := reg.Register(gateway.ToolDescriptor{
		Name:        "get_monitors",
		Title:       "List monitors",
		Description: "List monitors, optionally filtered by state.",
		Input: schema.Paginated(map[string]schema.FieldSpec{
			"state": {
				Type:        schema.TypeString,
				Description: "Filter by monitor state",
				Enum:        []string{"alert", "warn", "no data", "ok"},
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.GetMonitors(ctx, params.String("state"), params.IntOr("page", 1), params.IntOr("limit", 25))
	}); err != nil {
		return err
	}

	if err := reg.Register(gateway.ToolDescriptor{
		Name:        "search_metrics",
		Title:       "Search metrics",
		Description: "Search metric names by substring.",
		Input: schema.New(map[string]schema.FieldSpec{
			"query": {
				Type:        schema.TypeString,
				Required:    true,
				MinLen:      1,
				Description: "Metric name fragment to search for",
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		return adapter.SearchMetrics(ctx, params.String("query"))
	}); err != nil {
		return err
	}

	if err := reg.Register(gateway.ToolDescriptor{
		Name:        "query_timeseries",
		Title:       "Query timeseries",
		Description: "Evaluate a metric query over a time window.",
		Input: schema.New(map[string]schema.FieldSpec{
			"query": {
				Type:        schema.TypeString,
				Required:    true,
				MinLen:      1,
				Description: "Metric query expression",
			},
			"from": {
				Type:        schema.TypeInteger,
				Description: "Window start as unix seconds; defaults to one hour ago",
			},
			"to": {
				Type:        schema.TypeInteger,
				Description: "Window end as unix seconds; defaults to now",
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		from, to := timeWindow(params)
		return adapter.QueryTimeseries(ctx, params.String("query"), from, to)
	}); err != nil {
		return err
	}

	return reg.Register(gateway.ToolDescriptor{
		Name:        "get_span_metrics",
		Title:       "Get span metrics",
		Description: "Fetch request rate, error rate, and latency for one service over a time window.",
		Input: schema.New(map[string]schema.FieldSpec{
			"service": {
				Type:        schema.TypeString,
				Required:    true,
				MinLen:      1,
				Description: "Service name",
			},
			"from": {
				Type:        schema.TypeInteger,
				Description: "Window start as unix seconds; defaults to one hour ago",
			},
			"to": {
				Type:        schema.TypeInteger,
				Description: "Window end as unix seconds; defaults to now",
			},
		}),
	}, func(ctx context.Context, params schema.Params) (any, error) {
		from, to := timeWindow(params)
		return adapter.GetSpanMetrics(ctx, params.String("service"), from, to)
	})
}

func timeWindow(params schema.Params) (int64, int64) {
	now := time.Now().Unix()
	from := int64(params.IntOr("from", 0))
	to := int64(params.IntOr("to", 0))
	if to == 0 {
		to = now
	}
	if from == 0 {
		from = to - 3600
	}
	return from, to
}
