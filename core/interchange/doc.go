// Package interchange reads and writes the per-table snapshot files that
// carry data from the source environment to the destination.
//
// A file is CSV with a header row of column names and one record per table
// row. NULL is written as the empty field; on read the empty field and the
// configured null tokens (NaN by default) come back as coerce.Missing and
// every other field as a string. Files can be zstd compressed and mirrored
// through object storage so export and restore may run on different hosts.
package interchange
