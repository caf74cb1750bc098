package plan

import (
	"testing"

	"github.com/sqltriage/sqltriage/internal/record"
)

func TestInterpretMySQL_FullScan(t *testing.T) {
	input := `{
		"query_block": {
			"select_id": 1,
			"cost_info": {"query_cost": "105.25"},
			"table": {
				"table_name": "orders",
				"access_type": "ALL",
				"rows_examined_per_scan": 50000,
				"filtered": "10.00"
			}
		}
	}`

	f, err := Interpret([]byte(input), record.MySQL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.FullScan {
		t.Error("FullScan = false, want true for access_type ALL")
	}
	if f.EstimatedRows != 50000 {
		t.Errorf("EstimatedRows = %d, want 50000", f.EstimatedRows)
	}
	if len(f.Tables) != 1 || f.Tables[0].Name != "orders" {
		t.Errorf("Tables = %v, want one entry for orders", f.Tables)
	}
	if f.Tables[0].Key != "" {
		t.Errorf("Key = %q, want empty", f.Tables[0].Key)
	}
}

func TestInterpretMySQL_NestedLoopWithFilesort(t *testing.T) {
	input := `{
		"query_block": {
			"select_id": 1,
			"ordering_operation": {
				"using_filesort": true,
				"using_temporary_table": true,
				"nested_loop": [
					{"table": {"table_name": "users", "access_type": "index", "key": "idx_users_created", "rows_examined_per_scan": 1200}},
					{"table": {"table_name": "orders", "access_type": "ref", "key": "idx_orders_user", "rows_examined_per_scan": 4}}
				]
			}
		}
	}`

	f, err := Interpret([]byte(input), record.MySQL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Filesort {
		t.Error("Filesort = false, want true")
	}
	if !f.TempTable {
		t.Error("TempTable = false, want true")
	}
	if !f.FullScan {
		t.Error("FullScan = false, want true for access_type index")
	}
	if len(f.Tables) != 2 {
		t.Fatalf("len(Tables) = %d, want 2", len(f.Tables))
	}
	if f.EstimatedRows != 1204 {
		t.Errorf("EstimatedRows = %d, want 1204", f.EstimatedRows)
	}
}

func TestInterpretPostgres_SeqScan(t *testing.T) {
	input := `[{
		"Plan": {
			"Node Type": "Seq Scan",
			"Relation Name": "accounts",
			"Startup Cost": 0.00,
			"Total Cost": 2041.00,
			"Plan Rows": 120000,
			"Plan Width": 8
		},
		"Planning Time": 0.085
	}]`

	f, err := Interpret([]byte(input), record.Postgres)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.FullScan {
		t.Error("FullScan = false, want true for Seq Scan")
	}
	if f.TotalCost != 2041.00 {
		t.Errorf("TotalCost = %f, want 2041.00", f.TotalCost)
	}
	if f.EstimatedRows != 120000 {
		t.Errorf("EstimatedRows = %d, want 120000", f.EstimatedRows)
	}
}

func TestInterpretPostgres_IndexScanWithSort(t *testing.T) {
	input := `[{
		"Plan": {
			"Node Type": "Sort",
			"Startup Cost": 80.00,
			"Total Cost": 90.00,
			"Plan Rows": 500,
			"Sort Key": ["created_at"],
			"Plans": [{
				"Node Type": "Index Scan",
				"Relation Name": "events",
				"Index Name": "idx_events_type",
				"Startup Cost": 0.42,
				"Total Cost": 60.00,
				"Plan Rows": 500
			}]
		}
	}]`

	f, err := Interpret([]byte(input), record.Postgres)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.FullScan {
		t.Error("FullScan = true, want false for Index Scan")
	}
	if !f.Filesort {
		t.Error("Filesort = false, want true for Sort node")
	}
	if len(f.Tables) != 1 || f.Tables[0].Key != "idx_events_type" {
		t.Errorf("Tables = %v, want events via idx_events_type", f.Tables)
	}
}

func TestInterpret_MalformedDegradesToEmpty(t *testing.T) {
	for _, kind := range []record.DatabaseKind{record.MySQL, record.Postgres} {
		f, err := Interpret([]byte("{not json"), kind)
		if err == nil {
			t.Errorf("%s: expected parse error", kind)
		}
		if !f.Empty() {
			t.Errorf("%s: finding not empty on malformed input: %+v", kind, f)
		}
	}
}

func TestInterpret_MissingPlan(t *testing.T) {
	f, err := Interpret(nil, record.MySQL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !f.Empty() {
		t.Errorf("finding not empty for missing plan: %+v", f)
	}
}

func TestInterpret_UnsupportedKind(t *testing.T) {
	_, err := Interpret([]byte("{}"), record.DatabaseKind("oracle"))
	if err == nil {
		t.Fatal("expected error for unsupported kind")
	}
}

func TestFinding_RowProduct(t *testing.T) {
	f := Finding{Tables: []TableAccess{
		{Name: "a", Rows: 2000},
		{Name: "b", Rows: 900},
	}}
	if got := f.RowProduct(); got != 1800000 {
		t.Errorf("RowProduct = %d, want 1800000", got)
	}

	single := Finding{Tables: []TableAccess{{Name: "a", Rows: 10}}}
	if got := single.RowProduct(); got != 0 {
		t.Errorf("RowProduct for single table = %d, want 0", got)
	}
}
