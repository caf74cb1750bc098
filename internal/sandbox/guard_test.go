package sandbox

import (
	"strings"
	"testing"
)

func TestGuard_AllowsReadOnlyStatements(t *testing.T) {
	allowed := []string{
		"SELECT * FROM users",
		"  select 1",
		"\nSHOW TABLES",
		"explain SELECT id FROM t",
		"EXPLAIN FORMAT=JSON SELECT 1",
	}
	for _, sql := range allowed {
		if err := Guard(sql); err != nil {
			t.Errorf("Guard(%q) = %v, want nil", sql, err)
		}
	}
}

func TestGuard_RejectsWrites(t *testing.T) {
	rejected := []string{
		"DELETE FROM users",
		"UPDATE t SET a = 1",
		"INSERT INTO t VALUES (1)",
		"DROP TABLE users",
		"TRUNCATE t",
		"GRANT ALL ON *.* TO 'x'",
		"CREATE TABLE t (id int)",
		"; DELETE FROM users",
		"",
	}
	for _, sql := range rejected {
		err := Guard(sql)
		if err == nil {
			t.Errorf("Guard(%q) = nil, want rejection", sql)
			continue
		}
		if _, ok := err.(*ErrUnsafeStatement); !ok {
			t.Errorf("Guard(%q) error type = %T, want *ErrUnsafeStatement", sql, err)
		}
	}
}

func TestGuard_RejectionNamesTheVerb(t *testing.T) {
	err := Guard("DELETE FROM users")
	if err == nil {
		t.Fatal("expected rejection")
	}
	if !strings.Contains(err.Error(), "DELETE") {
		t.Errorf("error should name the rejected verb: %v", err)
	}
}

func TestEnsureLimit_AppendsToSelect(t *testing.T) {
	got := EnsureLimit("SELECT * FROM accounts", DefaultRowLimit)
	want := "SELECT * FROM accounts LIMIT 1000"
	if got != want {
		t.Errorf("EnsureLimit = %q, want %q", got, want)
	}
}

func TestEnsureLimit_KeepsExistingLimit(t *testing.T) {
	sql := "SELECT * FROM accounts LIMIT 5"
	if got := EnsureLimit(sql, DefaultRowLimit); got != sql {
		t.Errorf("EnsureLimit = %q, want unchanged", got)
	}
}

func TestEnsureLimit_StripsTrailingSemicolon(t *testing.T) {
	got := EnsureLimit("SELECT id FROM t;", DefaultRowLimit)
	want := "SELECT id FROM t LIMIT 1000"
	if got != want {
		t.Errorf("EnsureLimit = %q, want %q", got, want)
	}
}

func TestEnsureLimit_LeavesShowAlone(t *testing.T) {
	sql := "SHOW INDEX FROM users"
	if got := EnsureLimit(sql, DefaultRowLimit); got != sql {
		t.Errorf("EnsureLimit = %q, want unchanged", got)
	}
}

func TestNew_UnsupportedKind(t *testing.T) {
	if _, err := New("oracle", "dsn"); err == nil {
		t.Fatal("expected error for unsupported kind")
	}
}
