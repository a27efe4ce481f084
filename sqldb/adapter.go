// Package sqldb exposes read-only relational database tools over the
// gateway. Every call opens a fresh connection and releases it on every exit
// path; nothing is pooled across calls, so long-lived server processes never
// hit stale-connection failures.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/petal-labs/toolgate/backend"
)

// BackendName tags classified errors raised by this adapter.
const BackendName = "SQLite"

// Config holds validated connection parameters.
type Config struct {
	// Path is the database file path or a file: DSN.
	Path string
}

// QueryResult is the backend-neutral shape of one statement's rows.
type QueryResult struct {
	Columns []string
	Rows    []map[string]any
}

// Conn is one live database session. Per-call policy: the adapter owns it
// for exactly one unit of work and closes it unconditionally afterwards.
type Conn interface {
	Query(ctx context.Context, stmt string, args ...any) (*QueryResult, error)
	Close() error
}

// Connector opens database sessions. Tests substitute a spy implementation
// to verify the no-connect-on-policy-fault and close-exactly-once
// invariants.
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// Adapter issues read-only statements against the database.
type Adapter struct {
	connector Connector
}

// New builds an adapter over a SQLite file.
func New(cfg Config) (*Adapter, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("sqldb: database path is required")
	}
	return &Adapter{connector: &sqliteConnector{dsn: path}}, nil
}

// NewWithConnector builds an adapter over a custom connector.
func NewWithConnector(connector Connector) (*Adapter, error) {
	if connector == nil {
		return nil, errors.New("sqldb: connector is required")
	}
	return &Adapter{connector: connector}, nil
}

// Probe opens and closes one connection to verify reachability.
func (a *Adapter) Probe(ctx context.Context) error {
	conn, err := a.connector.Connect(ctx)
	if err != nil {
		return backend.Connection(BackendName, err)
	}
	return conn.Close()
}

// Close satisfies backend.Prober. The per-call policy holds no persistent
// resources.
func (a *Adapter) Close(ctx context.Context) error {
	return nil
}

// QueryOutput is the query tool's result shape.
type QueryOutput struct {
	RowCount      int              `json:"rowCount"`
	ExecutionTime string           `json:"executionTime"`
	Data          []map[string]any `json:"data"`
}

// Query runs one read-only statement. The allow-list check happens before
// any connection is opened.
func (a *Adapter) Query(ctx context.Context, stmt string) (*QueryOutput, error) {
	if err := backend.EnsureReadOnly(BackendName, stmt); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := a.withConn(ctx, func(conn Conn) (*QueryResult, error) {
		return conn.Query(ctx, stmt)
	})
	if err != nil {
		return nil, classify(err).WithDetail("query", stmt)
	}

	return &QueryOutput{
		RowCount:      len(result.Rows),
		ExecutionTime: backend.Elapsed(start),
		Data:          result.Rows,
	}, nil
}

// TablesOutput is the list_tables tool's result shape.
type TablesOutput struct {
	Tables        []string `json:"tables"`
	ExecutionTime string   `json:"executionTime"`
}

// ListTables enumerates user tables from the catalog.
func (a *Adapter) ListTables(ctx context.Context) (*TablesOutput, error) {
	start := time.Now()
	result, err := a.withConn(ctx, func(conn Conn) (*QueryResult, error) {
		return conn.Query(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	})
	if err != nil {
		return nil, classify(err)
	}

	tables := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		if name, ok := row["name"].(string); ok {
			tables = append(tables, name)
		}
	}
	return &TablesOutput{
		Tables:        tables,
		ExecutionTime: backend.Elapsed(start),
	}, nil
}

// TableInfo is the describe_table tool's result shape: a composite of the
// column catalog and the index catalog issued as one logical unit of work.
type TableInfo struct {
	TableName     string           `json:"tableName"`
	Columns       []map[string]any `json:"columns"`
	Indexes       []map[string]any `json:"indexes"`
	ExecutionTime string           `json:"executionTime"`
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DescribeTable reports a table's columns and indexes. Both catalog lookups
// share one connection; if either fails the whole call fails.
func (a *Adapter) DescribeTable(ctx context.Context, table string) (*TableInfo, error) {
	name := strings.TrimSpace(table)
	if !identifierPattern.MatchString(name) {
		return nil, backend.New(BackendName, backend.CodeInvalidIdentifier,
			fmt.Sprintf("invalid table name %q", name)).WithDetail("tableName", table)
	}

	start := time.Now()
	info := &TableInfo{TableName: name}
	_, err := a.withConn(ctx, func(conn Conn) (*QueryResult, error) {
		columns, err := conn.Query(ctx, fmt.Sprintf("PRAGMA table_info(%q)", name))
		if err != nil {
			return nil, err
		}
		if len(columns.Rows) == 0 {
			return nil, backend.New(BackendName, backend.CodeNotFound,
				fmt.Sprintf("table %q does not exist", name))
		}
		indexes, err := conn.Query(ctx, fmt.Sprintf("PRAGMA index_list(%q)", name))
		if err != nil {
			return nil, err
		}
		info.Columns = columns.Rows
		info.Indexes = indexes.Rows
		return nil, nil
	})
	if err != nil {
		return nil, classify(err).WithDetail("tableName", table)
	}

	info.ExecutionTime = backend.Elapsed(start)
	return info, nil
}

// withConn runs one unit of work on a fresh connection and guarantees the
// connection is released on success, handled failure, and panic alike.
func (a *Adapter) withConn(ctx context.Context, work func(Conn) (*QueryResult, error)) (*QueryResult, error) {
	conn, err := a.connector.Connect(ctx)
	if err != nil {
		return nil, backend.Connection(BackendName, err)
	}
	defer func() {
		_ = conn.Close()
	}()
	return work(conn)
}

func classify(err error) *backend.Error {
	if backendErr, ok := backend.From(err); ok {
		return backendErr
	}
	msg := err.Error()
	code := backend.CodeUpstreamFailure
	switch {
	case strings.Contains(msg, "no such table"):
		code = backend.CodeNotFound
	case strings.Contains(msg, "syntax error"):
		code = backend.CodeUpstreamFailure
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		code = backend.CodeConnectionFailed
	}
	return backend.Wrap(BackendName, code, err)
}

// sqliteConnector opens one fresh database handle per call.
type sqliteConnector struct {
	dsn string
}

func (c *sqliteConnector) Connect(ctx context.Context) (Conn, error) {
	db, err := sql.Open("sqlite", c.dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return &sqliteConn{db: db}, nil
}

type sqliteConn struct {
	db *sql.DB
}

func (c *sqliteConn) Query(ctx context.Context, stmt string, args ...any) (*QueryResult, error) {
	rows, err := c.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := &QueryResult{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		out.Rows = append(out.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *sqliteConn) Close() error {
	return c.db.Close()
}

// normalizeValue maps driver values onto JSON-friendly kinds before they
// cross the envelope boundary.
func normalizeValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return value
	}
}
