// Package monitor exposes read-only monitoring-platform tools over the
// gateway: monitor listings, metric search, timeseries queries, and derived
// span metrics.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/petal-labs/toolgate/backend"
)

// BackendName tags classified errors raised by this adapter.
const BackendName = "Monitoring"

// Config holds validated API access parameters.
type Config struct {
	// BaseURL is the platform's API root, e.g. https://api.example.com.
	BaseURL string
	APIKey  string
	AppKey  string
}

// Adapter wraps the platform's HTTP API behind one long-lived client; the
// underlying http.Client is safe for concurrent outstanding requests.
type Adapter struct {
	client *backend.HTTPClient
}

// New builds a monitoring adapter.
func New(cfg Config) (*Adapter, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, errors.New("monitor: base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("monitor: API key is required")
	}
	return &Adapter{
		client: &backend.HTTPClient{
			Backend: BackendName,
			BaseURL: baseURL,
			Headers: map[string]string{
				"DD-API-KEY":         cfg.APIKey,
				"DD-APPLICATION-KEY": cfg.AppKey,
			},
		},
	}, nil
}

// Probe validates API credentials once at startup.
func (a *Adapter) Probe(ctx context.Context) error {
	var out struct {
		Valid bool `json:"valid"`
	}
	if err := a.client.GetJSON(ctx, "/api/v1/validate", nil, &out); err != nil {
		return err
	}
	if !out.Valid {
		return backend.New(BackendName, backend.CodeAccessDenied, "API key rejected by validation endpoint")
	}
	return nil
}

// Close satisfies backend.Prober; the shared http.Client needs no teardown.
func (a *Adapter) Close(ctx context.Context) error {
	return nil
}

// Monitor is the backend-neutral monitor record. Raw API shapes never cross
// the envelope boundary un-mapped.
type Monitor struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Query   string `json:"query"`
	Message string `json:"message,omitempty"`
}

// MonitorsOutput is the get_monitors tool's result shape.
type MonitorsOutput struct {
	MonitorCount  int       `json:"monitorCount"`
	Monitors      []Monitor `json:"monitors"`
	ExecutionTime string    `json:"executionTime"`
}

type rawMonitor struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	OverallState string `json:"overall_state"`
	Query        string `json:"query"`
	Message      string `json:"message"`
}

// GetMonitors lists monitors, optionally filtered by state.
func (a *Adapter) GetMonitors(ctx context.Context, state string, page, limit int) (*MonitorsOutput, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page-1))
	query.Set("page_size", strconv.Itoa(limit))
	if state != "" {
		query.Set("monitor_tags", "")
		query.Set("group_states", strings.ToLower(state))
	}

	start := time.Now()
	var raw []rawMonitor
	if err := a.client.GetJSON(ctx, "/api/v1/monitor", query, &raw); err != nil {
		return nil, withState(err, state)
	}

	monitors := make([]Monitor, 0, len(raw))
	for _, m := range raw {
		monitors = append(monitors, Monitor{
			ID:      m.ID,
			Name:    m.Name,
			Status:  m.OverallState,
			Query:   m.Query,
			Message: m.Message,
		})
	}
	return &MonitorsOutput{
		MonitorCount:  len(monitors),
		Monitors:      monitors,
		ExecutionTime: backend.Elapsed(start),
	}, nil
}

// MetricsOutput is the search_metrics tool's result shape.
type MetricsOutput struct {
	MetricCount   int      `json:"metricCount"`
	Metrics       []string `json:"metrics"`
	ExecutionTime string   `json:"executionTime"`
}

// SearchMetrics finds metric names matching a query fragment.
func (a *Adapter) SearchMetrics(ctx context.Context, query string) (*MetricsOutput, error) {
	values := url.Values{}
	values.Set("q", query)

	start := time.Now()
	var raw struct {
		Results struct {
			Metrics []string `json:"metrics"`
		} `json:"results"`
	}
	if err := a.client.GetJSON(ctx, "/api/v1/search", values, &raw); err != nil {
		return nil, withQuery(err, query)
	}
	return &MetricsOutput{
		MetricCount:   len(raw.Results.Metrics),
		Metrics:       raw.Results.Metrics,
		ExecutionTime: backend.Elapsed(start),
	}, nil
}

// Series is one backend-neutral timeseries.
type Series struct {
	Metric string       `json:"metric"`
	Scope  string       `json:"scope,omitempty"`
	Points [][2]float64 `json:"points"`
}

// TimeseriesOutput is the query_timeseries tool's result shape.
type TimeseriesOutput struct {
	SeriesCount   int      `json:"seriesCount"`
	Series        []Series `json:"series"`
	ExecutionTime string   `json:"executionTime"`
}

type rawSeriesResponse struct {
	Series []struct {
		Metric    string       `json:"metric"`
		Scope     string       `json:"scope"`
		Pointlist [][2]float64 `json:"pointlist"`
	} `json:"series"`
	Error string `json:"error"`
}

// QueryTimeseries evaluates one metric query over [from, to] (unix seconds).
func (a *Adapter) QueryTimeseries(ctx context.Context, metricQuery string, from, to int64) (*TimeseriesOutput, error) {
	start := time.Now()
	series, err := a.querySeries(ctx, metricQuery, from, to)
	if err != nil {
		return nil, withQuery(err, metricQuery)
	}
	return &TimeseriesOutput{
		SeriesCount:   len(series),
		Series:        series,
		ExecutionTime: backend.Elapsed(start),
	}, nil
}

func (a *Adapter) querySeries(ctx context.Context, metricQuery string, from, to int64) ([]Series, error) {
	values := url.Values{}
	values.Set("query", metricQuery)
	values.Set("from", strconv.FormatInt(from, 10))
	values.Set("to", strconv.FormatInt(to, 10))

	var raw rawSeriesResponse
	if err := a.client.GetJSON(ctx, "/api/v1/query", values, &raw); err != nil {
		return nil, err
	}
	if raw.Error != "" {
		return nil, backend.New(BackendName, backend.CodeUpstreamFailure, raw.Error)
	}

	series := make([]Series, 0, len(raw.Series))
	for _, s := range raw.Series {
		series = append(series, Series{Metric: s.Metric, Scope: s.Scope, Points: s.Pointlist})
	}
	return series, nil
}

// SpanMetrics is the get_span_metrics tool's result shape: request rate,
// error rate, and latency for one service, fetched concurrently and merged.
type SpanMetrics struct {
	Service       string   `json:"service"`
	Hits          []Series `json:"hits"`
	Errors        []Series `json:"errors"`
	Latency       []Series `json:"latency"`
	ExecutionTime string   `json:"executionTime"`
}

// GetSpanMetrics issues three timeseries queries in parallel and merges the
// results. The fan-out is an implementation detail: callers see one atomic
// call, and if any sub-query fails the whole call fails.
func (a *Adapter) GetSpanMetrics(ctx context.Context, service string, from, to int64) (*SpanMetrics, error) {
	queries := []string{
		fmt.Sprintf("sum:trace.http.request.hits{service:%s}.as_rate()", service),
		fmt.Sprintf("sum:trace.http.request.errors{service:%s}.as_rate()", service),
		fmt.Sprintf("avg:trace.http.request.duration{service:%s}", service),
	}

	start := time.Now()
	results := make([][]Series, len(queries))
	errs := make([]error, len(queries))

	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(slot int, metricQuery string) {
			defer wg.Done()
			results[slot], errs[slot] = a.querySeries(ctx, metricQuery, from, to)
		}(i, q)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			if backendErr, ok := backend.From(err); ok {
				return nil, backendErr.WithDetail("service", service)
			}
			return nil, err
		}
	}

	return &SpanMetrics{
		Service:       service,
		Hits:          results[0],
		Errors:        results[1],
		Latency:       results[2],
		ExecutionTime: backend.Elapsed(start),
	}, nil
}

func withQuery(err error, query string) error {
	if backendErr, ok := backend.From(err); ok {
		return backendErr.WithDetail("query", query)
	}
	return err
}

func withState(err error, state string) error {
	if state == "" {
		return err
	}
	if backendErr, ok := backend.From(err); ok {
		return backendErr.WithDetail("state", state)
	}
	return err
}
