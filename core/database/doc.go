// Package database handles database connections and schema introspection.
//
// It wraps GORM to open postgres, mysql or sqlite connections from the
// application's configuration, pinned to a single connection per environment.
//
// # Schema Introspection
//
// GetTableColumns returns the ordered columns of a table together with their
// declared type and coercion kind. It reads the catalog on every call so the
// destination schema, not the exported file, is the authority for coercion.
//
// # Errors
//
// Failures are reported through three sentinels: ErrConnection,
// ErrSchemaLookup and ErrStatement. Classify maps driver errors onto them and
// keeps the postgres SQLSTATE.
//
// # Usage
//
//	db, err := database.Connect(cfg.Destination)
//	if err != nil {
//	    return err
//	}
//
//	columns, err := database.GetTableColumns(ctx, db, "quiz_question")
package database
