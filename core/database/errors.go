package database

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrConnection means the database could not be reached.
	ErrConnection = errors.New("database connection failed")
	// ErrSchemaLookup means a table or column is missing from the catalog.
	ErrSchemaLookup = errors.New("schema lookup failed")
	// ErrStatement means a statement was rejected by the database.
	ErrStatement = errors.New("statement failed")
)

// Classify wraps a driver error with ErrStatement, or with ErrConnection for
// connection failures (SQLSTATE class 08 or a broken driver connection).
// Postgres errors keep their SQLSTATE in the message.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnection) || errors.Is(err, ErrStatement) || errors.Is(err, ErrSchemaLookup) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := ErrStatement
		if strings.HasPrefix(pgErr.Code, "08") {
			kind = ErrConnection
		}
		return fmt.Errorf("%w (SQLSTATE %s): %w", kind, pgErr.Code, err)
	}

	if errors.Is(err, driver.ErrBadConn) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %w", ErrConnection, err)
	}

	return fmt.Errorf("%w: %w", ErrStatement, err)
}

// SQLState returns the postgres SQLSTATE carried by err, if any.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
