package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"envsync/core/coerce"
	"envsync/core/database"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Reconciler applies source rows to destination tables.
type Reconciler struct {
	db   *gorm.DB
	log  *zap.Logger
	opts Options
}

// New creates a Reconciler writing to db.
func New(db *gorm.DB, log *zap.Logger, opts Options) *Reconciler {
	return &Reconciler{db: db, log: log, opts: opts}
}

// Decide returns the action for a row whose key matches count destination
// rows, given whether the key was already seen during this pass.
func Decide(count int64, seen bool) ActionType {
	switch {
	case count > 1 && !seen:
		return ActionReplace
	case count == 1 && !seen:
		return ActionUpdate
	default:
		return ActionInsert
	}
}

// Reconcile processes rows in order against table, matching on keyColumn.
//
// Every row is decided and written in its own transaction, which commits
// before the next row is read. The first failure stops the table; rows
// committed before it stay applied and are counted in the returned result.
func (r *Reconciler) Reconcile(ctx context.Context, table, keyColumn string, rows RowSource) (*TableResult, error) {
	result := &TableResult{Table: table, KeyColumn: keyColumn, DryRun: r.opts.DryRun}
	log := r.log.With(zap.String("table", table), zap.String("key_column", keyColumn))

	columns, err := database.GetTableColumns(ctx, r.db, table)
	if err != nil {
		return result, err
	}

	layout, err := bind(table, keyColumn, rows.Columns(), columns)
	if err != nil {
		return result, err
	}

	seen := NewSeenKeySet()
	for line := 1; ; line++ {
		raw, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("read row %d of %s: %w", line, table, err)
		}

		values := layout.coerce(raw)
		key := values[layout.key]

		action, deleted, err := r.apply(ctx, table, layout.key, key, values, seen)
		if err != nil {
			return result, fmt.Errorf("%s row %d (%s=%v): %w", table, line, keyColumn, key, err)
		}
		result.record(action, deleted)

		log.Debug("Row reconciled",
			zap.Int("row", line),
			zap.Any("key", key),
			zap.String("action", string(action)),
		)
	}

	log.Info("Table reconciled",
		zap.Int("rows", result.Rows),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("replaced", result.Replaced),
		zap.Int64("deleted", result.Deleted),
		zap.Bool("dry_run", result.DryRun),
	)
	return result, nil
}

func (r *Reconciler) apply(ctx context.Context, table, keyColumn string, key any, values map[string]any, seen *SeenKeySet) (ActionType, int64, error) {
	var (
		action  ActionType
		deleted int64
	)

	step := func(tx *gorm.DB) error {
		count, err := countMatches(tx, table, keyColumn, key)
		if err != nil {
			return err
		}
		action = Decide(count, seen.Has(key))
		if r.opts.DryRun {
			return nil
		}

		switch action {
		case ActionReplace:
			res := tx.Exec("DELETE FROM ? WHERE ? = ?", clause.Table{Name: table}, clause.Column{Name: keyColumn}, key)
			if res.Error != nil {
				return fmt.Errorf("delete: %w", database.Classify(res.Error))
			}
			deleted = res.RowsAffected
			if err := insertRow(tx, table, values); err != nil {
				return err
			}
		case ActionUpdate:
			err := tx.Table(table).
				Where(clause.Eq{Column: clause.Column{Name: keyColumn}, Value: key}).
				Updates(values).Error
			if err != nil {
				return fmt.Errorf("update: %w", database.Classify(err))
			}
		case ActionInsert:
			if err := insertRow(tx, table, values); err != nil {
				return err
			}
		}
		return nil
	}

	var err error
	if r.opts.DryRun {
		err = step(r.db.WithContext(ctx))
	} else {
		err = r.db.WithContext(ctx).Transaction(step)
	}
	if err != nil {
		return "", 0, err
	}

	if action == ActionReplace || action == ActionUpdate {
		seen.Mark(key)
	}
	return action, deleted, nil
}

// A NULL key never equals anything, so it matches no rows.
func countMatches(tx *gorm.DB, table, keyColumn string, key any) (int64, error) {
	if key == nil {
		return 0, nil
	}
	var count int64
	err := tx.Table(table).
		Where(clause.Eq{Column: clause.Column{Name: keyColumn}, Value: key}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count: %w", database.Classify(err))
	}
	return count, nil
}

func insertRow(tx *gorm.DB, table string, values map[string]any) error {
	if err := tx.Table(table).Create(values).Error; err != nil {
		return fmt.Errorf("insert: %w", database.Classify(err))
	}
	return nil
}

// layout maps source positions onto destination columns.
type layout struct {
	names  []string
	source []int
	kinds  []coerce.Kind
	key    string
}

func bind(table, keyColumn string, header []string, columns []database.Column) (*layout, error) {
	byName := make(map[string]database.Column, len(columns))
	for _, c := range columns {
		byName[c.Name] = c
	}
	lookup := func(name string) (database.Column, bool) {
		if c, ok := byName[name]; ok {
			return c, true
		}
		for _, c := range columns {
			if strings.EqualFold(c.Name, name) {
				return c, true
			}
		}
		return database.Column{}, false
	}

	keyCol, ok := lookup(keyColumn)
	if !ok {
		return nil, fmt.Errorf("%w: key column %s not in table %s", database.ErrSchemaLookup, keyColumn, table)
	}

	l := &layout{key: keyCol.Name}
	var missing []string
	keyInSource := false
	for i, name := range header {
		col, ok := lookup(name)
		if !ok {
			missing = append(missing, name)
			continue
		}
		if col.Name == keyCol.Name {
			keyInSource = true
		}
		l.names = append(l.names, col.Name)
		l.source = append(l.source, i)
		l.kinds = append(l.kinds, col.Kind)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: table %s has no column %s", database.ErrSchemaLookup, table, strings.Join(missing, ", "))
	}
	if !keyInSource {
		return nil, fmt.Errorf("%w: key column %s missing from source of %s", database.ErrSchemaLookup, keyColumn, table)
	}
	return l, nil
}

func (l *layout) coerce(raw []any) map[string]any {
	values := make(map[string]any, len(l.names))
	for i, name := range l.names {
		var v any = coerce.Missing
		if pos := l.source[i]; pos < len(raw) {
			v = raw[pos]
		}
		values[name] = coerce.Value(v, l.kinds[i])
	}
	return values
}
