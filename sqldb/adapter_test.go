package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/petal-labs/toolgate/backend"
)

type spyConn struct {
	queries    []string
	closeCount int
	queryErr   error
	result     *QueryResult
	panicOn    string
}

func (c *spyConn) Query(_ context.Context, stmt string, _ ...any) (*QueryResult, error) {
	c.queries = append(c.queries, stmt)
	if c.panicOn != "" && stmt == c.panicOn {
		panic("driver bug")
	}
	if c.queryErr != nil {
		return nil, c.queryErr
	}
	if c.result != nil {
		return c.result, nil
	}
	return &QueryResult{}, nil
}

func (c *spyConn) Close() error {
	c.closeCount++
	return nil
}

type spyConnector struct {
	conn       *spyConn
	connectErr error
	connects   int
}

func (c *spyConnector) Connect(context.Context) (Conn, error) {
	c.connects++
	if c.connectErr != nil {
		return nil, c.connectErr
	}
	return c.conn, nil
}

func TestQueryRejectsWritesBeforeConnecting(t *testing.T) {
	connector := &spyConnector{conn: &spyConn{}}
	adapter, err := NewWithConnector(connector)
	if err != nil {
		t.Fatalf("NewWithConnector = %v", err)
	}

	_, err = adapter.Query(context.Background(), "DROP TABLE users")
	var classified *backend.Error
	if !errors.As(err, &classified) {
		t.Fatalf("error type = %T, want *backend.Error", err)
	}
	if classified.Code != backend.CodeWriteNotAllowed {
		t.Errorf("code = %s, want %s", classified.Code, backend.CodeWriteNotAllowed)
	}
	if connector.connects != 0 {
		t.Errorf("connects = %d, want 0: policy check must precede connection", connector.connects)
	}
}

func TestQueryClosesConnectionOnSuccess(t *testing.T) {
	conn := &spyConn{result: &QueryResult{
		Columns: []string{"id"},
		Rows:    []map[string]any{{"id": int64(1)}, {"id": int64(2)}},
	}}
	connector := &spyConnector{conn: conn}
	adapter, _ := NewWithConnector(connector)

	out, err := adapter.Query(context.Background(), "select id from users")
	if err != nil {
		t.Fatalf("Query = %v, want nil", err)
	}
	if out.RowCount != 2 {
		t.Errorf("rowCount = %d, want 2", out.RowCount)
	}
	if out.ExecutionTime == "" {
		t.Error("executionTime is empty")
	}
	if conn.closeCount != 1 {
		t.Errorf("closeCount = %d, want 1", conn.closeCount)
	}
}

func TestQueryClosesConnectionOnFailure(t *testing.T) {
	conn := &spyConn{queryErr: errors.New("no such table: users")}
	connector := &spyConnector{conn: conn}
	adapter, _ := NewWithConnector(connector)

	_, err := adapter.Query(context.Background(), "select * from users")
	var classified *backend.Error
	if !errors.As(err, &classified) {
		t.Fatalf("error type = %T", err)
	}
	if classified.Code != backend.CodeNotFound {
		t.Errorf("code = %s, want %s", classified.Code, backend.CodeNotFound)
	}
	if classified.Details["query"] != "select * from users" {
		t.Errorf("query detail = %v", classified.Details["query"])
	}
	if conn.closeCount != 1 {
		t.Errorf("closeCount = %d, want 1", conn.closeCount)
	}
}

func TestQueryClosesConnectionOnPanic(t *testing.T) {
	conn := &spyConn{panicOn: "select 1"}
	connector := &spyConnector{conn: conn}
	adapter, _ := NewWithConnector(connector)

	func() {
		defer func() { _ = recover() }()
		_, _ = adapter.Query(context.Background(), "select 1")
	}()

	if conn.closeCount != 1 {
		t.Errorf("closeCount = %d, want 1", conn.closeCount)
	}
}

func TestQueryConnectFailure(t *testing.T) {
	connector := &spyConnector{connectErr: errors.New("unable to open database file")}
	adapter, _ := NewWithConnector(connector)

	_, err := adapter.Query(context.Background(), "select 1")
	var classified *backend.Error
	if !errors.As(err, &classified) {
		t.Fatalf("error type = %T", err)
	}
	if classified.Code != backend.CodeConnectionFailed {
		t.Errorf("code = %s, want %s", classified.Code, backend.CodeConnectionFailed)
	}
}

func TestDescribeTableRejectsBadIdentifier(t *testing.T) {
	connector := &spyConnector{conn: &spyConn{}}
	adapter, _ := NewWithConnector(connector)

	_, err := adapter.DescribeTable(context.Background(), "users; drop table users")
	var classified *backend.Error
	if !errors.As(err, &classified) {
		t.Fatalf("error type = %T", err)
	}
	if classified.Code != backend.CodeInvalidIdentifier {
		t.Errorf("code = %s, want %s", classified.Code, backend.CodeInvalidIdentifier)
	}
	if classified.Details["tableName"] != "users; drop table users" {
		t.Errorf("tableName detail = %v", classified.Details["tableName"])
	}
	if connector.connects != 0 {
		t.Errorf("connects = %d, want 0", connector.connects)
	}
}

func TestProbeUsesOneConnection(t *testing.T) {
	conn := &spyConn{}
	connector := &spyConnector{conn: conn}
	adapter, _ := NewWithConnector(connector)

	if err := adapter.Probe(context.Background()); err != nil {
		t.Fatalf("Probe = %v, want nil", err)
	}
	if connector.connects != 1 || conn.closeCount != 1 {
		t.Errorf("connects = %d closes = %d, want 1 and 1", connector.connects, conn.closeCount)
	}
}

func newFixtureAdapter(t *testing.T) *Adapter {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.db")
	adapter, err := New(Config{Path: path})
	if err != nil {
		t.Fatalf("New = %v", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open fixture database: %v", err)
	}
	defer func() { _ = db.Close() }()
	setup := []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT NOT NULL)",
		"CREATE INDEX idx_users_name ON users(name)",
		"INSERT INTO users (id, name) VALUES (1, 'ada'), (2, 'grace')",
	}
	for _, stmt := range setup {
		if _, err := db.ExecContext(context.Background(), stmt); err != nil {
			t.Fatalf("setup %q: %v", stmt, err)
		}
	}
	return adapter
}

func TestQueryAgainstRealDatabase(t *testing.T) {
	adapter := newFixtureAdapter(t)

	out, err := adapter.Query(context.Background(), "SELECT id, name FROM users ORDER BY id")
	if err != nil {
		t.Fatalf("Query = %v, want nil", err)
	}
	if out.RowCount != 2 {
		t.Fatalf("rowCount = %d, want 2", out.RowCount)
	}
	if got := out.Data[0]["name"]; got != "ada" {
		t.Errorf("first name = %v, want ada", got)
	}
}

func TestListTablesAgainstRealDatabase(t *testing.T) {
	adapter := newFixtureAdapter(t)

	out, err := adapter.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables = %v, want nil", err)
	}
	if len(out.Tables) != 1 || out.Tables[0] != "users" {
		t.Errorf("tables = %v, want [users]", out.Tables)
	}
}

func TestDescribeTableAgainstRealDatabase(t *testing.T) {
	adapter := newFixtureAdapter(t)

	info, err := adapter.DescribeTable(context.Background(), "users")
	if err != nil {
		t.Fatalf("DescribeTable = %v, want nil", err)
	}
	if info.TableName != "users" {
		t.Errorf("tableName = %s", info.TableName)
	}
	if len(info.Columns) != 2 {
		t.Errorf("column count = %d, want 2", len(info.Columns))
	}
	if len(info.Indexes) == 0 {
		t.Error("indexes is empty, want idx_users_name")
	}
}

func TestDescribeMissingTableIsNotFound(t *testing.T) {
	adapter := newFixtureAdapter(t)

	_, err := adapter.DescribeTable(context.Background(), "ghosts")
	var classified *backend.Error
	if !errors.As(err, &classified) {
		t.Fatalf("error type = %T", err)
	}
	if classified.Code != backend.CodeNotFound {
		t.Errorf("code = %s, want %s", classified.Code, backend.CodeNotFound)
	}
	if classified.Details["tableName"] != "ghosts" {
		t.Errorf("tableName detail = %v", classified.Details["tableName"])
	}
}
