package reconcile

import (
	"context"
	"fmt"
	"io"
	"math"
	"testing"

	"envsync/core/coerce"
	"envsync/core/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// sliceSource is an in-memory RowSource.
type sliceSource struct {
	columns []string
	rows    [][]any
	pos     int
}

func rowsOf(columns []string, rows ...[]any) *sliceSource {
	return &sliceSource{columns: columns, rows: rows}
}

func (s *sliceSource) Columns() []string { return s.columns }

func (s *sliceSource) Next() ([]any, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// setupTestDB creates an in-memory SQLite DB with a non-unique key column.
func setupTestDB(t *testing.T, dbName string) *gorm.DB {
	db, err := database.Connect(database.Config{
		Driver: "sqlite",
		Name:   fmt.Sprintf("file:%s?mode=memory&cache=shared", dbName),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	err = db.Exec(`CREATE TABLE quiz_question (
		id INTEGER,
		name VARCHAR(60) NOT NULL,
		score REAL,
		created_on DATE
	)`).Error
	require.NoError(t, err)
	return db
}

func seed(t *testing.T, db *gorm.DB, rows ...string) {
	for _, r := range rows {
		require.NoError(t, db.Exec("INSERT INTO quiz_question (id, name) VALUES "+r).Error)
	}
}

func namesFor(t *testing.T, db *gorm.DB, id int) []string {
	var names []string
	require.NoError(t, db.Table("quiz_question").Where("id = ?", id).Order("rowid").Pluck("name", &names).Error)
	return names
}

func countAll(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Table("quiz_question").Count(&n).Error)
	return n
}

var header = []string{"id", "name", "score", "created_on"}

func TestDecide(t *testing.T) {
	tests := []struct {
		count int64
		seen  bool
		want  ActionType
	}{
		{0, false, ActionInsert},
		{0, true, ActionInsert},
		{1, false, ActionUpdate},
		{1, true, ActionInsert},
		{2, false, ActionReplace},
		{5, true, ActionInsert},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Decide(tt.count, tt.seen), "count=%d seen=%v", tt.count, tt.seen)
	}
}

func TestReconcile_DuplicatesAreReplaced(t *testing.T) {
	db := setupTestDB(t, "dup_replace")
	seed(t, db, "(7, 'stale a')", "(7, 'stale b')", "(8, 'other')")

	r := New(db, zap.NewNop(), Options{})
	res, err := r.Reconcile(context.Background(), "quiz_question", "id",
		rowsOf(header, []any{"7", "fresh", "2.5", coerce.Missing}))
	require.NoError(t, err)

	assert.Equal(t, []string{"fresh"}, namesFor(t, db, 7))
	assert.Equal(t, []string{"other"}, namesFor(t, db, 8))
	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, int64(2), res.Deleted)
	assert.Equal(t, int64(-1), res.Net())
}

func TestReconcile_SeenDuplicateKeyAppends(t *testing.T) {
	db := setupTestDB(t, "dup_append")
	seed(t, db, "(9, 'stale a')", "(9, 'stale b')")

	r := New(db, zap.NewNop(), Options{})
	res, err := r.Reconcile(context.Background(), "quiz_question", "id", rowsOf(header,
		[]any{"9", "first", coerce.Missing, coerce.Missing},
		[]any{"9", "second", coerce.Missing, coerce.Missing},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, namesFor(t, db, 9))
	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, 1, res.Inserted)
}

func TestReconcile_UnmatchedKeyIsInserted(t *testing.T) {
	db := setupTestDB(t, "insert_new")
	seed(t, db, "(1, 'one')")

	r := New(db, zap.NewNop(), Options{})
	res, err := r.Reconcile(context.Background(), "quiz_question", "id",
		rowsOf(header, []any{"42", "answer", coerce.Missing, coerce.Missing}))
	require.NoError(t, err)

	assert.Equal(t, []string{"answer"}, namesFor(t, db, 42))
	assert.Equal(t, int64(2), countAll(t, db))
	assert.Equal(t, 1, res.Inserted)
}

func TestReconcile_SingleMatchIsUpdatedInPlace(t *testing.T) {
	db := setupTestDB(t, "update_single")
	seed(t, db, "(3, 'old')", "(4, 'untouched')")

	r := New(db, zap.NewNop(), Options{})
	res, err := r.Reconcile(context.Background(), "quiz_question", "id",
		rowsOf(header, []any{"3", "new", "1.25", "2024-10-04"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"new"}, namesFor(t, db, 3))
	assert.Equal(t, int64(2), countAll(t, db))
	assert.Equal(t, 1, res.Updated)

	var scores []float64
	require.NoError(t, db.Table("quiz_question").Where("id = ?", 3).Pluck("score", &scores).Error)
	assert.Equal(t, []float64{1.25}, scores)
}

func TestReconcile_MissingDateBecomesNull(t *testing.T) {
	db := setupTestDB(t, "nan_date")

	r := New(db, zap.NewNop(), Options{})
	_, err := r.Reconcile(context.Background(), "quiz_question", "id", rowsOf(header,
		[]any{"10", "sentinel", coerce.Missing, coerce.Missing},
		[]any{"11", "float nan", math.NaN(), math.NaN()},
	))
	require.NoError(t, err)

	var nulls int64
	require.NoError(t, db.Table("quiz_question").
		Where("created_on IS NULL AND score IS NULL AND id IN ?", []int{10, 11}).
		Count(&nulls).Error)
	assert.Equal(t, int64(2), nulls)
}

func TestReconcile_SameKeyTwiceUpdatesThenInserts(t *testing.T) {
	db := setupTestDB(t, "same_key_twice")
	seed(t, db, "(5, 'original')")

	r := New(db, zap.NewNop(), Options{})
	res, err := r.Reconcile(context.Background(), "quiz_question", "id", rowsOf(header,
		[]any{"5", "first", coerce.Missing, coerce.Missing},
		[]any{"5", "second", coerce.Missing, coerce.Missing},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, namesFor(t, db, 5))
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Inserted)
}

func TestReconcile_NewKeyTwiceInsertsThenUpdates(t *testing.T) {
	db := setupTestDB(t, "new_key_twice")

	r := New(db, zap.NewNop(), Options{})
	res, err := r.Reconcile(context.Background(), "quiz_question", "id", rowsOf(header,
		[]any{"6", "first", coerce.Missing, coerce.Missing},
		[]any{"6", "second", coerce.Missing, coerce.Missing},
	))
	require.NoError(t, err)

	// Plain inserts do not mark the key, so the second row finds one match.
	assert.Equal(t, []string{"second"}, namesFor(t, db, 6))
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Updated)
}

func TestReconcile_NullKeyIsAlwaysInserted(t *testing.T) {
	db := setupTestDB(t, "null_key")
	require.NoError(t, db.Exec("INSERT INTO quiz_question (id, name) VALUES (NULL, 'orphan')").Error)

	r := New(db, zap.NewNop(), Options{})
	res, err := r.Reconcile(context.Background(), "quiz_question", "id",
		rowsOf(header, []any{coerce.Missing, "another orphan", coerce.Missing, coerce.Missing}))
	require.NoError(t, err)

	assert.Equal(t, int64(2), countAll(t, db))
	assert.Equal(t, 1, res.Inserted)
}

func TestReconcile_HeaderOrderAndCaseFollowDestination(t *testing.T) {
	db := setupTestDB(t, "header_order")

	r := New(db, zap.NewNop(), Options{})
	_, err := r.Reconcile(context.Background(), "quiz_question", "id",
		rowsOf([]string{"NAME", "id"}, []any{"reordered", "12"}))
	require.NoError(t, err)

	assert.Equal(t, []string{"reordered"}, namesFor(t, db, 12))
}

func TestReconcile_SchemaErrors(t *testing.T) {
	db := setupTestDB(t, "schema_errors")
	r := New(db, zap.NewNop(), Options{})
	ctx := context.Background()

	_, err := r.Reconcile(ctx, "quiz_missing", "id", rowsOf(header))
	assert.ErrorIs(t, err, database.ErrSchemaLookup)

	_, err = r.Reconcile(ctx, "quiz_question", "quiz_id", rowsOf(header))
	assert.ErrorIs(t, err, database.ErrSchemaLookup)

	_, err = r.Reconcile(ctx, "quiz_question", "id", rowsOf([]string{"id", "name", "legacy"}))
	assert.ErrorIs(t, err, database.ErrSchemaLookup)
	assert.ErrorContains(t, err, "legacy")

	_, err = r.Reconcile(ctx, "quiz_question", "id", rowsOf([]string{"name"}))
	assert.ErrorIs(t, err, database.ErrSchemaLookup)
}

func TestReconcile_StatementFailureKeepsCommittedRows(t *testing.T) {
	db := setupTestDB(t, "partial_failure")

	r := New(db, zap.NewNop(), Options{})
	res, err := r.Reconcile(context.Background(), "quiz_question", "id", rowsOf(header,
		[]any{"1", "kept", coerce.Missing, coerce.Missing},
		[]any{"2", coerce.Missing, coerce.Missing, coerce.Missing}, // violates NOT NULL
		[]any{"3", "never reached", coerce.Missing, coerce.Missing},
	))
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrStatement)
	assert.ErrorContains(t, err, "row 2")

	assert.Equal(t, 1, res.Rows)
	assert.Equal(t, []string{"kept"}, namesFor(t, db, 1))
	assert.Empty(t, namesFor(t, db, 3))
}

func TestReconcile_DryRunWritesNothing(t *testing.T) {
	db := setupTestDB(t, "dry_run")
	seed(t, db, "(1, 'one')", "(2, 'two a')", "(2, 'two b')")

	r := New(db, zap.NewNop(), Options{DryRun: true})
	res, err := r.Reconcile(context.Background(), "quiz_question", "id", rowsOf(header,
		[]any{"1", "changed", coerce.Missing, coerce.Missing},
		[]any{"2", "changed", coerce.Missing, coerce.Missing},
		[]any{"3", "new", coerce.Missing, coerce.Missing},
	))
	require.NoError(t, err)

	assert.True(t, res.DryRun)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Replaced)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, int64(3), countAll(t, db))
	assert.Equal(t, []string{"one"}, namesFor(t, db, 1))
}

func TestSeenKeySet(t *testing.T) {
	s := NewSeenKeySet()
	s.Mark(int64(5))
	s.Mark(nil)
	s.Mark([]byte("abc"))

	assert.True(t, s.Has(int64(5)))
	assert.False(t, s.Has("5"), "different types are different keys")
	assert.True(t, s.Has("abc"))
	assert.False(t, s.Has(nil))
	assert.Equal(t, 2, s.Len())
}
