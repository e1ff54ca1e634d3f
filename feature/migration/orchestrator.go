package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"envsync/core/database"
	"envsync/core/interchange"
	"envsync/core/reconcile"

	"go.uber.org/zap"
)

// Gate suspends and resumes constraint enforcement around a batch.
type Gate interface {
	Suspend(ctx context.Context, tables []string) error
	Resume(ctx context.Context, tables []string) error
}

// NopGate leaves enforcement untouched. Dry runs use it.
type NopGate struct{}

func (NopGate) Suspend(context.Context, []string) error { return nil }
func (NopGate) Resume(context.Context, []string) error  { return nil }

// BackupFunc takes the full database backup that precedes batch work and
// returns the archive it wrote.
type BackupFunc func(ctx context.Context) (string, error)

// TableOutcome is the result of one table within a batch.
type TableOutcome struct {
	Table   string                 `json:"table"`
	Result  *reconcile.TableResult `json:"result,omitempty"`
	Skipped bool                   `json:"skipped"`
	Err     error                  `json:"-"`
}

// BatchReport collects the outcomes of one batch.
type BatchReport struct {
	Name   string         `json:"name"`
	Key    string         `json:"key"`
	Tables []TableOutcome `json:"tables"`
}

// Report summarizes one orchestrator run.
type Report struct {
	BackupFile string         `json:"backup_file,omitempty"`
	Batches    []BatchReport  `json:"batches"`
	Rewrite    *RewriteResult `json:"rewrite,omitempty"`
}

// Failed returns the outcomes that ended in an error.
func (r *Report) Failed() []TableOutcome {
	var failed []TableOutcome
	for _, b := range r.Batches {
		for _, t := range b.Tables {
			if t.Err != nil {
				failed = append(failed, t)
			}
		}
	}
	return failed
}

// Orchestrator drives batches of tables through the gate and the reconciler.
type Orchestrator struct {
	gate       Gate
	reconciler *reconcile.Reconciler
	store      *interchange.Store
	backup     BackupFunc
	rewriter   *Rewriter
	logger     *zap.Logger
}

// NewOrchestrator wires the run. backup and rewriter may be nil to skip those steps.
func NewOrchestrator(gate Gate, reconciler *reconcile.Reconciler, store *interchange.Store, backup BackupFunc, rewriter *Rewriter, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		gate:       gate,
		reconciler: reconciler,
		store:      store,
		backup:     backup,
		rewriter:   rewriter,
		logger:     logger,
	}
}

// Run executes batches in order.
//
// A failing backup aborts before any batch. Table failures are recorded in
// the report and the batch carries on, except a lost connection, which stops
// the run once the gate has been asked to resume. A gate failure abandons the
// batch and the run, since enforcement may be left disabled on its tables.
func (o *Orchestrator) Run(ctx context.Context, batches []Batch) (*Report, error) {
	report := &Report{}
	if err := ValidateBatches(batches); err != nil {
		return report, err
	}

	if o.backup != nil {
		file, err := o.backup(ctx)
		if err != nil {
			return report, fmt.Errorf("backup before restore: %w", err)
		}
		report.BackupFile = file
	}

	for _, b := range batches {
		br, err := o.runBatch(ctx, b)
		report.Batches = append(report.Batches, br)
		if err != nil {
			return report, err
		}
	}

	if o.rewriter.Enabled() {
		res, err := o.rewriter.Rewrite(ctx)
		report.Rewrite = res
		if err != nil {
			return report, err
		}
	}

	return report, nil
}

func (o *Orchestrator) runBatch(ctx context.Context, b Batch) (BatchReport, error) {
	br := BatchReport{Name: b.Name, Key: b.Key}
	log := o.logger.With(zap.String("batch", b.Name), zap.String("key_column", b.Key))

	if err := o.gate.Suspend(ctx, b.Tables); err != nil {
		log.Error("Batch abandoned, constraints may be disabled", zap.Strings("tables", b.Tables), zap.Error(err))
		return br, fmt.Errorf("batch %s: %w", b.Name, err)
	}

	var lost error
	for _, table := range b.Tables {
		out := o.runTable(ctx, log, table, b.Key)
		br.Tables = append(br.Tables, out)
		if errors.Is(out.Err, database.ErrConnection) {
			lost = fmt.Errorf("batch %s: %w", b.Name, out.Err)
			break
		}
	}

	if err := o.gate.Resume(ctx, b.Tables); err != nil {
		log.Error("Batch abandoned, constraints may be disabled", zap.Strings("tables", b.Tables), zap.Error(err))
		return br, errors.Join(lost, fmt.Errorf("batch %s: %w", b.Name, err))
	}
	if lost != nil {
		return br, lost
	}

	log.Info("Batch completed", zap.Int("tables", len(b.Tables)))
	return br, nil
}

func (o *Orchestrator) runTable(ctx context.Context, log *zap.Logger, table, key string) TableOutcome {
	out := TableOutcome{Table: table}

	reader, err := o.store.Open(ctx, table)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("Interchange file not found, table skipped", zap.String("table", table), zap.String("file", o.store.Path(table)))
		out.Skipped = true
		return out
	}
	if err != nil {
		log.Error("Table failed", zap.String("table", table), zap.Error(err))
		out.Err = err
		return out
	}
	defer reader.Close()

	res, err := o.reconciler.Reconcile(ctx, table, key, reader)
	out.Result = res
	if err != nil {
		log.Error("Table failed", zap.String("table", table), zap.Error(err))
		out.Err = err
	}
	return out
}
