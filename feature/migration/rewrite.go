package migration

import (
	"context"
	"fmt"
	"strings"

	"envsync/core/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Target is a column whose values carry the URL prefix.
type Target struct {
	Table  string `json:"table"`
	Column string `json:"column"`
}

// RewriteResult reports the rows touched per target and the targets that failed.
type RewriteResult struct {
	Updated map[string]int64 `json:"updated"`
	Failed  map[string]string `json:"failed"`
}

// Rewriter replaces a URL prefix stored in destination columns.
type Rewriter struct {
	db        *gorm.DB
	oldPrefix string
	newPrefix string
	targets   []Target
	logger    *zap.Logger
}

// NewRewriter creates a rewriter replacing oldPrefix with newPrefix in targets.
func NewRewriter(db *gorm.DB, oldPrefix, newPrefix string, targets []Target, logger *zap.Logger) *Rewriter {
	return &Rewriter{db: db, oldPrefix: oldPrefix, newPrefix: newPrefix, targets: targets, logger: logger}
}

// Enabled reports whether there is anything to rewrite.
func (w *Rewriter) Enabled() bool {
	return w != nil && w.oldPrefix != "" && len(w.targets) > 0
}

// Rewrite updates every target in one transaction. A failing target is
// rolled back to its savepoint, logged and skipped; the rest commit.
func (w *Rewriter) Rewrite(ctx context.Context) (*RewriteResult, error) {
	result := &RewriteResult{Updated: map[string]int64{}, Failed: map[string]string{}}
	if !w.Enabled() {
		return result, nil
	}

	pattern := escapeLike(w.oldPrefix) + "%"
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, t := range w.targets {
			name := t.Table + "." + t.Column
			savepoint := fmt.Sprintf("rewrite_%d", i)
			if err := tx.SavePoint(savepoint).Error; err != nil {
				return database.Classify(err)
			}

			col := clause.Column{Name: t.Column}
			res := tx.Exec("UPDATE ? SET ? = REPLACE(?, ?, ?) WHERE ? LIKE ? ESCAPE '!'",
				clause.Table{Name: t.Table}, col, col, w.oldPrefix, w.newPrefix, col, pattern)
			if res.Error != nil {
				if err := tx.RollbackTo(savepoint).Error; err != nil {
					return database.Classify(err)
				}
				result.Failed[name] = database.Classify(res.Error).Error()
				w.logger.Error("URL rewrite failed", zap.String("table", t.Table), zap.String("column", t.Column), zap.Error(res.Error))
				continue
			}

			result.Updated[name] = res.RowsAffected
			w.logger.Info("URLs rewritten", zap.String("table", t.Table), zap.String("column", t.Column), zap.Int64("rows", res.RowsAffected))
		}
		return nil
	})
	if err != nil {
		return result, fmt.Errorf("url rewrite: %w", err)
	}
	return result, nil
}

// escapeLike escapes LIKE wildcards with '!'.
func escapeLike(s string) string {
	return strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(s)
}
