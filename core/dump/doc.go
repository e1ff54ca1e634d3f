// Package dump wraps the PostgreSQL client binaries used for full database
// backups and restores.
//
// Backup produces a custom format archive (pg_dump -F c -b) named after the
// time it was taken and the environment tag. Clean drops and recreates the
// database through psql, and Restore feeds an archive to pg_restore --clean.
// Credentials reach each binary through that invocation's own environment;
// the process environment is never modified. Any non-zero exit is reported
// as ErrExternalTool together with the tail of the tool's stderr.
package dump
