// Package reconcile applies exported rows to a destination table.
//
// For one table and one key column the Reconciler walks the source rows in
// order and decides per row, against the current destination state:
//
//   - more than one destination row shares the key: on the first encounter of
//     the key all of them are deleted and the row is inserted; later rows with
//     the same key are inserted without deleting again.
//   - exactly one destination row shares the key and the key has not been
//     seen yet: that row is updated in place.
//   - otherwise the row is inserted.
//
// The key column is not assumed to be unique. Keys that triggered a delete or
// an update are remembered in a SeenKeySet that lives for one table's pass.
//
// # Transactions
//
// Each row is counted, decided and written in its own transaction that
// commits before the next row is read. A failing statement stops the table;
// rows committed before it remain.
//
// # Usage
//
//	r := reconcile.New(db, log, reconcile.Options{})
//	res, err := r.Reconcile(ctx, "quiz_question", "id", reader)
package reconcile
