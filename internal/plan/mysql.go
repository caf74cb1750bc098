package plan

import (
	"encoding/json"
	"fmt"
)

// fullScanAccessTypes are the MySQL access types that read an entire table or
// index instead of a selective lookup.
var fullScanAccessTypes = map[string]bool{
	"ALL":   true,
	"index": true,
}

// interpretMySQL walks an EXPLAIN FORMAT=JSON payload. The query_block shape
// varies wildly (single table, nested_loop arrays, ordering/grouping wrappers,
// subquery blocks), so the walk is generic over the decoded JSON rather than a
// rigid struct mapping.
func interpretMySQL(raw []byte) (Finding, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Finding{}, fmt.Errorf("parsing MySQL plan: %w", err)
	}

	block, ok := doc["query_block"].(map[string]any)
	if !ok {
		return Finding{}, fmt.Errorf("parsing MySQL plan: missing query_block")
	}

	var f Finding
	walkMySQLNode(block, &f)

	for _, t := range f.Tables {
		f.EstimatedRows += t.Rows
		if fullScanAccessTypes[t.AccessType] {
			f.FullScan = true
			if f.AccessType == "" {
				f.AccessType = t.AccessType
			}
		}
	}
	if f.AccessType == "" && len(f.Tables) > 0 {
		f.AccessType = f.Tables[0].AccessType
	}
	return f, nil
}

func walkMySQLNode(node map[string]any, f *Finding) {
	if v, ok := node["using_filesort"].(bool); ok && v {
		f.Filesort = true
	}
	if v, ok := node["using_temporary_table"].(bool); ok && v {
		f.TempTable = true
	}

	if tbl, ok := node["table"].(map[string]any); ok {
		collectMySQLTable(tbl, f)
	}

	for _, key := range []string{"query_block", "ordering_operation", "grouping_operation", "duplicates_removal", "materialized_from_subquery"} {
		if child, ok := node[key].(map[string]any); ok {
			walkMySQLNode(child, f)
		}
	}
	if loop, ok := node["nested_loop"].([]any); ok {
		for _, item := range loop {
			if child, ok := item.(map[string]any); ok {
				walkMySQLNode(child, f)
			}
		}
	}
	for _, key := range []string{"attached_subqueries", "optimized_away_subqueries", "union_result"} {
		switch child := node[key].(type) {
		case []any:
			for _, item := range child {
				if m, ok := item.(map[string]any); ok {
					walkMySQLNode(m, f)
				}
			}
		case map[string]any:
			walkMySQLNode(child, f)
		}
	}
	if specs, ok := node["query_specifications"].([]any); ok {
		for _, item := range specs {
			if m, ok := item.(map[string]any); ok {
				walkMySQLNode(m, f)
			}
		}
	}
}

func collectMySQLTable(tbl map[string]any, f *Finding) {
	access := TableAccess{}
	if v, ok := tbl["table_name"].(string); ok {
		access.Name = v
	}
	if v, ok := tbl["access_type"].(string); ok {
		access.AccessType = v
	}
	if v, ok := tbl["key"].(string); ok {
		access.Key = v
	}
	if v, ok := tbl["rows_examined_per_scan"].(float64); ok {
		access.Rows = int64(v)
	}
	if access.Name == "" && access.AccessType == "" {
		return
	}
	f.Tables = append(f.Tables, access)

	// A table entry can itself wrap a materialized subquery.
	walkMySQLNode(tbl, f)
}
