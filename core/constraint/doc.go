// Package constraint brackets bulk changes with suspended constraint
// enforcement.
//
// A Gate disables trigger based enforcement (foreign keys, check triggers and
// custom triggers alike) on a set of tables and restores it afterwards. Each
// Suspend or Resume call commits once for its whole table set. There is no
// nesting: suspending a table twice or resuming a table that is not suspended
// is an error. A process killed between Suspend and Resume leaves enforcement
// disabled until an operator resumes it.
package constraint
