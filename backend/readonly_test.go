package backend

import (
	"errors"
	"testing"
)

func TestEnsureReadOnlyAllowsReadStatements(t *testing.T) {
	allowed := []string{
		"SELECT * FROM users",
		"select 1",
		"  select id from t  ",
		"SHOW TABLES",
		"EXPLAIN SELECT 1",
		"explain\nselect 1",
		"DESCRIBE users",
		"desc users",
		"WITH recent AS (SELECT * FROM orders) SELECT * FROM recent",
		`with "recent" as (select 1) select * from recent`,
		"select*from t",
		"select-- comment\n1",
	}
	for _, stmt := range allowed {
		if err := EnsureReadOnly("SQLite", stmt); err != nil {
			t.Errorf("EnsureReadOnly(%q) = %v, want nil", stmt, err)
		}
	}
}

func TestEnsureReadOnlyRejectsWrites(t *testing.T) {
	rejected := []string{
		"DROP TABLE users",
		"DELETE FROM users",
		"INSERT INTO users VALUES (1)",
		"UPDATE users SET name = 'x'",
		"TRUNCATE users",
		"selection FROM users",
		"described1",
		"WITH RECURSIVE", // no "as (" clause
		"with cte as delete",
		"",
		"   ",
		"PRAGMA writable_schema = 1",
	}
	for _, stmt := range rejected {
		err := EnsureReadOnly("SQLite", stmt)
		if err == nil {
			t.Errorf("EnsureReadOnly(%q) = nil, want rejection", stmt)
			continue
		}
		var classified *Error
		if !errors.As(err, &classified) {
			t.Errorf("EnsureReadOnly(%q) error type = %T, want *Error", stmt, err)
			continue
		}
		if classified.Code != CodeWriteNotAllowed {
			t.Errorf("EnsureReadOnly(%q) code = %s, want %s", stmt, classified.Code, CodeWriteNotAllowed)
		}
	}
}

func TestEnsureReadOnlyDefaultDeny(t *testing.T) {
	// An unknown but harmless-looking opener is still rejected.
	err := EnsureReadOnly("SQLite", "ANALYZE users")
	if err == nil {
		t.Fatal("EnsureReadOnly(ANALYZE) = nil, want rejection")
	}
}
