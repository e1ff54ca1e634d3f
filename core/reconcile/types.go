package reconcile

// ActionType is the decision taken for one source row.
type ActionType string

const (
	// ActionInsert inserts the row as a new destination row.
	ActionInsert ActionType = "insert"
	// ActionUpdate overwrites the single destination row matching the key.
	ActionUpdate ActionType = "update"
	// ActionReplace deletes every destination row matching the key, then inserts the row.
	ActionReplace ActionType = "replace"
)

// RowSource yields source rows aligned to Columns.
// Next returns io.EOF after the last row.
type RowSource interface {
	// Columns returns the source column names in row order.
	Columns() []string
	// Next returns the next row of raw values.
	Next() ([]any, error)
}

// Options controls reconcile behavior.
type Options struct {
	// DryRun decides every row without writing to the destination.
	DryRun bool
}

// TableResult summarizes the reconciliation of one table.
type TableResult struct {
	// Table is the destination table name.
	Table string `json:"table"`

	// KeyColumn is the column rows were matched on.
	KeyColumn string `json:"key_column"`

	// Rows counts the source rows processed.
	Rows int `json:"rows"`

	// Inserted counts plain inserts.
	Inserted int `json:"inserted"`

	// Updated counts in-place updates.
	Updated int `json:"updated"`

	// Replaced counts delete-then-insert decisions.
	Replaced int `json:"replaced"`

	// Deleted counts destination rows removed by replacements.
	Deleted int64 `json:"deleted"`

	// DryRun is true when nothing was written.
	DryRun bool `json:"dry_run"`
}

func (r *TableResult) record(action ActionType, deleted int64) {
	r.Rows++
	switch action {
	case ActionInsert:
		r.Inserted++
	case ActionUpdate:
		r.Updated++
	case ActionReplace:
		r.Replaced++
		r.Deleted += deleted
	}
}

// Net returns the change in destination row count caused by the table's rows.
func (r *TableResult) Net() int64 {
	return int64(r.Inserted+r.Replaced) - r.Deleted
}
