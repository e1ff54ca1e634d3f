// Package coerce turns raw interchange values into values the destination
// column accepts.
//
// Declared column types are folded into a closed set of kinds (integer,
// float, date, other). Missing values become NULL for every kind; integer and
// float kinds narrow numeric representations to int64 and float64; every other
// case passes the value through unchanged. Coercion never fails.
package coerce
