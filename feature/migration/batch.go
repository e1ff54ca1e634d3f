package migration

import (
	"errors"
	"fmt"
)

// Batch is a group of tables reconciled on one key column under one
// constraint suspension.
type Batch struct {
	// Name identifies the batch in logs and on the command line.
	Name string `json:"name"`
	// Key is the column rows are matched on for every table of the batch.
	Key string `json:"key"`
	// Tables are reconciled in order.
	Tables []string `json:"tables"`
}

// Validate checks the batch is usable.
func (b Batch) Validate() error {
	if b.Key == "" {
		return fmt.Errorf("batch %s: key column is empty", b.Name)
	}
	if len(b.Tables) == 0 {
		return fmt.Errorf("batch %s: no tables", b.Name)
	}
	seen := make(map[string]struct{}, len(b.Tables))
	for _, t := range b.Tables {
		if t == "" {
			return fmt.Errorf("batch %s: empty table name", b.Name)
		}
		if _, ok := seen[t]; ok {
			return fmt.Errorf("batch %s: table %s listed twice", b.Name, t)
		}
		seen[t] = struct{}{}
	}
	return nil
}

// ValidateBatches validates every batch and returns all problems at once.
func ValidateBatches(batches []Batch) error {
	if len(batches) == 0 {
		return errors.New("no batches configured")
	}
	var errs []error
	for _, b := range batches {
		if err := b.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SelectBatches keeps the batches whose name is in names, in configured
// order. An empty names selects everything.
func SelectBatches(batches []Batch, names []string) ([]Batch, error) {
	if len(names) == 0 {
		return batches, nil
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = false
	}

	var out []Batch
	for _, b := range batches {
		if _, ok := want[b.Name]; ok {
			want[b.Name] = true
			out = append(out, b)
		}
	}
	for n, found := range want {
		if !found {
			return nil, fmt.Errorf("unknown batch %q", n)
		}
	}
	return out, nil
}

// Distinct returns tables without repeats, keeping first occurrences.
func Distinct(tables []string) []string {
	seen := make(map[string]struct{}, len(tables))
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
