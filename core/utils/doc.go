// Package utils provides common utility functions for envsync.
// It includes the numeric narrowing and value rendering helpers shared by the
// value coercer and the interchange writer.
package utils
