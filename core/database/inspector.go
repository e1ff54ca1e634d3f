package database

import (
	"context"
	"fmt"
	"strings"

	"envsync/core/coerce"

	"gorm.io/gorm"
)

// Column is one column of a table as reported by the catalog.
type Column struct {
	// Name is the column name as stored in the catalog.
	Name string
	// DataType is the declared type, lowercased.
	DataType string
	// Kind is the coercion class derived from DataType.
	Kind coerce.Kind
}

type catalogColumn struct {
	ColumnName string `gorm:"column:column_name"`
	DataType   string `gorm:"column:data_type"`
}

// GetTableColumns retrieves the column definitions for a table, ordered by
// physical position. The catalog is queried on every call.
func GetTableColumns(ctx context.Context, db *gorm.DB, tableName string) ([]Column, error) {
	var rows []catalogColumn
	tx := db.WithContext(ctx)

	switch db.Dialector.Name() {
	case "sqlite":
		tx = tx.Raw("SELECT name AS column_name, type AS data_type FROM pragma_table_info(?) ORDER BY cid", tableName)
	case "mysql":
		tx = tx.Raw(`SELECT COLUMN_NAME AS column_name, DATA_TYPE AS data_type
			FROM information_schema.COLUMNS
			WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
			ORDER BY ORDINAL_POSITION`, tableName)
	default:
		tx = tx.Raw(`SELECT column_name, data_type
			FROM information_schema.columns
			WHERE table_schema = current_schema() AND table_name = ?
			ORDER BY ordinal_position`, tableName)
	}

	if err := tx.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, Classify(err))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: table %s not found", ErrSchemaLookup, tableName)
	}

	columns := make([]Column, 0, len(rows))
	for _, r := range rows {
		dataType := strings.ToLower(r.DataType)
		columns = append(columns, Column{
			Name:     r.ColumnName,
			DataType: dataType,
			Kind:     coerce.KindOf(dataType),
		})
	}
	return columns, nil
}

// ColumnNames returns the names of columns in order.
func ColumnNames(columns []Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}
