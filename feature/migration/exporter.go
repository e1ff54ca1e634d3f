package migration

import (
	"context"
	"errors"
	"fmt"

	"envsync/core/database"
	"envsync/core/interchange"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ExportResult describes one exported table.
type ExportResult struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
	File  string `json:"file"`
}

// Exporter snapshots source tables into interchange files.
type Exporter struct {
	db     *gorm.DB
	store  *interchange.Store
	logger *zap.Logger
}

// NewExporter creates an exporter reading from db.
func NewExporter(db *gorm.DB, store *interchange.Store, logger *zap.Logger) *Exporter {
	return &Exporter{db: db, store: store, logger: logger}
}

// Export writes one file per distinct table. A failing table does not stop
// the others; all failures are returned joined.
func (e *Exporter) Export(ctx context.Context, tables []string) ([]ExportResult, error) {
	var (
		results []ExportResult
		errs    []error
	)
	for _, table := range Distinct(tables) {
		res, err := e.ExportTable(ctx, table)
		if err != nil {
			e.logger.Error("Export failed", zap.String("table", table), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		results = append(results, *res)
	}
	return results, errors.Join(errs...)
}

// ExportTable writes every row of table to its interchange file and
// publishes it when a remote is configured.
func (e *Exporter) ExportTable(ctx context.Context, table string) (*ExportResult, error) {
	rows, err := e.db.WithContext(ctx).Table(table).Rows()
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, database.Classify(err))
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", table, database.Classify(err))
	}

	w, err := e.store.Create(table)
	if err != nil {
		return nil, err
	}
	if err := w.WriteHeader(columns); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write header of %s: %w", table, err)
	}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("scan %s: %w", table, database.Classify(err))
		}
		if err := w.Write(values); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("write %s: %w", table, err)
		}
	}
	if err := rows.Err(); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("read %s: %w", table, database.Classify(err))
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close file of %s: %w", table, err)
	}

	if err := e.store.Publish(ctx, table); err != nil {
		return nil, err
	}

	res := &ExportResult{Table: table, Rows: w.Rows(), File: e.store.Path(table)}
	e.logger.Info("Table exported", zap.String("table", table), zap.Int("rows", res.Rows), zap.String("file", res.File))
	return res, nil
}
