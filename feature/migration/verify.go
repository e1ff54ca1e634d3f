package migration

import (
	"context"
	"errors"
	"io"
	"io/fs"

	"envsync/core/database"
	"envsync/core/interchange"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Check statuses.
const (
	StatusOK          = "ok"
	StatusShort       = "short"
	StatusMissingFile = "missing_file"
	StatusError       = "error"
)

// TableCheck compares one interchange file with its destination table.
type TableCheck struct {
	Table          string   `json:"table"`
	FileRows       int      `json:"file_rows"`
	DestRows       int64    `json:"dest_rows"`
	MissingColumns []string `json:"missing_columns"`
	Status         string   `json:"status"`
	Error          string   `json:"error,omitempty"`
}

// VerifyReport is the outcome of a verification pass.
type VerifyReport struct {
	Matched bool         `json:"matched"`
	Tables  []TableCheck `json:"tables"`
}

// Verifier checks destination tables against their interchange files.
type Verifier struct {
	db     *gorm.DB
	store  *interchange.Store
	logger *zap.Logger
}

// NewVerifier creates a verifier over the destination db.
func NewVerifier(db *gorm.DB, store *interchange.Store, logger *zap.Logger) *Verifier {
	return &Verifier{db: db, store: store, logger: logger}
}

// Verify checks every distinct table. A table is ok when all file columns
// exist in the destination and the destination holds at least as many rows
// as the file.
func (v *Verifier) Verify(ctx context.Context, tables []string) *VerifyReport {
	report := &VerifyReport{Matched: true}
	for _, table := range Distinct(tables) {
		check := v.verifyTable(ctx, table)
		if check.Status != StatusOK {
			report.Matched = false
		}
		report.Tables = append(report.Tables, check)
	}
	return report
}

func (v *Verifier) verifyTable(ctx context.Context, table string) TableCheck {
	check := TableCheck{Table: table, MissingColumns: []string{}, Status: StatusOK}
	fail := func(err error) TableCheck {
		check.Status = StatusError
		check.Error = err.Error()
		v.logger.Error("Verification failed", zap.String("table", table), zap.Error(err))
		return check
	}

	reader, err := v.store.Open(ctx, table)
	if errors.Is(err, fs.ErrNotExist) {
		check.Status = StatusMissingFile
		return check
	}
	if err != nil {
		return fail(err)
	}
	defer reader.Close()

	columns, err := database.GetTableColumns(ctx, v.db, table)
	if err != nil {
		return fail(err)
	}
	present := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		present[c.Name] = struct{}{}
	}
	for _, name := range reader.Columns() {
		if _, ok := present[name]; !ok {
			check.MissingColumns = append(check.MissingColumns, name)
		}
	}

	for {
		_, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(err)
		}
		check.FileRows++
	}

	if err := v.db.WithContext(ctx).Table(table).Count(&check.DestRows).Error; err != nil {
		return fail(database.Classify(err))
	}

	switch {
	case len(check.MissingColumns) > 0:
		check.Status = StatusError
	case check.DestRows < int64(check.FileRows):
		check.Status = StatusShort
	}

	v.logger.Info("Table verified",
		zap.String("table", table),
		zap.Int("file_rows", check.FileRows),
		zap.Int64("dest_rows", check.DestRows),
		zap.String("status", check.Status),
	)
	return check
}
