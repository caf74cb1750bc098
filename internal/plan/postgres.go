package plan

import (
	"encoding/json"
	"fmt"
)

// pgNode is the subset of PostgreSQL EXPLAIN (FORMAT JSON) node fields this
// interpreter reads.
type pgNode struct {
	NodeType     string   `json:"Node Type"`
	RelationName string   `json:"Relation Name,omitempty"`
	IndexName    string   `json:"Index Name,omitempty"`
	StartupCost  float64  `json:"Startup Cost"`
	TotalCost    float64  `json:"Total Cost"`
	PlanRows     int64    `json:"Plan Rows"`
	ActualRows   int64    `json:"Actual Rows,omitempty"`
	SortKey      []string `json:"Sort Key,omitempty"`
	Plans        []pgNode `json:"Plans,omitempty"`
}

// pgExplain is the top-level EXPLAIN JSON output from PostgreSQL.
type pgExplain struct {
	Plan          pgNode  `json:"Plan"`
	PlanningTime  float64 `json:"Planning Time,omitempty"`
	ExecutionTime float64 `json:"Execution Time,omitempty"`
}

// interpretPostgres reads EXPLAIN (FORMAT JSON) output. PostgreSQL wraps the
// plan in a one-element array; a bare object is accepted too.
func interpretPostgres(raw []byte) (Finding, error) {
	var outputs []pgExplain
	if err := json.Unmarshal(raw, &outputs); err != nil {
		var single pgExplain
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return Finding{}, fmt.Errorf("parsing PostgreSQL plan: %w", err)
		}
		outputs = []pgExplain{single}
	}
	if len(outputs) == 0 {
		return Finding{}, fmt.Errorf("empty PostgreSQL EXPLAIN output")
	}

	root := outputs[0].Plan
	f := Finding{
		AccessType: root.NodeType,
		TotalCost:  root.TotalCost,
	}
	walkPGNode(&root, &f)

	for _, t := range f.Tables {
		f.EstimatedRows += t.Rows
	}
	return f, nil
}

func walkPGNode(node *pgNode, f *Finding) {
	switch node.NodeType {
	case "Seq Scan":
		f.FullScan = true
	case "Sort":
		f.Filesort = true
	case "Materialize", "HashAggregate":
		f.TempTable = true
	}

	if node.RelationName != "" {
		rows := node.ActualRows
		if rows == 0 {
			rows = node.PlanRows
		}
		f.Tables = append(f.Tables, TableAccess{
			Name:       node.RelationName,
			AccessType: node.NodeType,
			Key:        node.IndexName,
			Rows:       rows,
		})
	}

	for i := range node.Plans {
		walkPGNode(&node.Plans[i], f)
	}
}
