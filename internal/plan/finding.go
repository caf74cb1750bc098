package plan

// TableAccess describes how the engine touches one table in a plan.
type TableAccess struct {
	Name       string `json:"name"`
	AccessType string `json:"access_type"`
	Key        string `json:"key,omitempty"`
	Rows       int64  `json:"rows"`
}

// Finding is the vendor-neutral summary of an execution plan. A zero Finding
// means "no plan information": all flags false, rows unknown.
type Finding struct {
	FullScan      bool          `json:"full_scan"`
	Filesort      bool          `json:"filesort"`
	TempTable     bool          `json:"temp_table"`
	EstimatedRows int64         `json:"estimated_rows"`
	AccessType    string        `json:"access_type,omitempty"`
	TotalCost     float64       `json:"total_cost,omitempty"`
	Tables        []TableAccess `json:"tables,omitempty"`
}

// Empty reports whether the finding carries no plan information.
func (f Finding) Empty() bool {
	return !f.FullScan && !f.Filesort && !f.TempTable &&
		f.EstimatedRows == 0 && len(f.Tables) == 0
}

// RowProduct returns the product of per-table row estimates, used to spot
// nested-loop blowups. Returns 0 when fewer than two tables are known.
func (f Finding) RowProduct() int64 {
	if len(f.Tables) < 2 {
		return 0
	}
	product := int64(1)
	for _, t := range f.Tables {
		if t.Rows <= 0 {
			continue
		}
		product *= t.Rows
	}
	return product
}
