// Package migration moves curated tables from the source environment to the
// destination.
//
// The Exporter snapshots source tables into interchange files. The
// Orchestrator replays them on the destination batch by batch: a full backup
// first, then for each batch suspend constraints, reconcile every table on the
// batch key, resume constraints. After the last batch the Rewriter replaces a
// stored URL prefix, and the Verifier can compare files with destination
// tables afterwards.
//
// Batches run one after another on a single destination connection. A table
// that fails is reported and the batch continues; a constraint gate failure
// stops the run.
package migration
