package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"envsync/core/constraint"
	"envsync/core/database"
	"envsync/core/dump"
	"envsync/core/reconcile"
	"envsync/feature/migration"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the restore command
	dryRunRestore  bool
	skipBackup     bool
	skipRewrite    bool
	restoreBatches []string
	yesConfirm     bool
)

// restoreCmd applies interchange files to the destination batch by batch.
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore interchange files into the destination database",
	Long: `Restore the configured batches into the destination (prod) database.

Before any batch a full backup of the source database is taken with pg_dump.
Each batch is applied with foreign key enforcement suspended on its tables;
rows are matched on the batch key column and replaced, updated or inserted.
Stored URL prefixes are rewritten once every batch is done.

Examples:
  # Decide and report without writing
  envsync restore --dry-run

  # Restore every batch (with interactive confirmation)
  envsync restore

  # Restore two batches non-interactively, without the backup
  envsync restore --batch core --batch relations --skip-backup --yes`,
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().BoolVar(&dryRunRestore, "dry-run", false, "Decide and tally actions without writing")
	restoreCmd.Flags().BoolVar(&skipBackup, "skip-backup", false, "Do not take the full backup before the first batch")
	restoreCmd.Flags().BoolVar(&skipRewrite, "skip-rewrite", false, "Do not rewrite URL prefixes after the last batch")
	restoreCmd.Flags().StringSliceVar(&restoreBatches, "batch", nil, "Batch to restore (repeatable, default all)")
	restoreCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")

	RootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := bootstrap("restore")
	if err != nil {
		return err
	}
	defer a.close()

	batches, err := migration.SelectBatches(a.batches(), restoreBatches)
	if err != nil {
		return err
	}
	if err := migration.ValidateBatches(batches); err != nil {
		return fmt.Errorf("invalid batch configuration: %w", err)
	}

	if !dryRunRestore && !confirmDestructiveAction(a.cfg.Destination) {
		a.log.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	db, err := a.connect(a.cfg.Destination)
	if err != nil {
		return err
	}
	defer database.Close(db)

	store, err := a.store()
	if err != nil {
		return err
	}

	var backup migration.BackupFunc
	if !dryRunRestore && !skipBackup {
		runner := dump.NewRunner(a.cfg.Dump, a.log)
		backup = func(ctx context.Context) (string, error) {
			file := runner.BackupFile(a.cfg.Source.Env)
			return file, runner.Backup(ctx, a.cfg.Source, file)
		}
	}

	var rewriter *migration.Rewriter
	if !dryRunRestore && !skipRewrite {
		rewriter = a.rewriter(db)
	}

	reconciler := reconcile.New(db, a.log, reconcile.Options{DryRun: dryRunRestore})
	var gate migration.Gate = migration.NopGate{}
	if !dryRunRestore {
		gate = constraint.NewGate(db, a.log)
	}
	orchestrator := migration.NewOrchestrator(gate, reconciler, store, backup, rewriter, a.log)

	a.log.Info("Starting restore", zap.Int("batches", len(batches)), zap.Bool("dry_run", dryRunRestore))
	report, err := orchestrator.Run(ctx, batches)
	printRestoreReport(a.log, report)
	if err != nil {
		return fmt.Errorf("restore aborted: %w", err)
	}

	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("restore finished with %d failed tables", len(failed))
	}
	if dryRunRestore {
		a.log.Info("Dry-run mode: No changes were made.")
	}
	return nil
}

// printRestoreReport prints a formatted restore report using logger.
func printRestoreReport(l *zap.Logger, report *migration.Report) {
	if report == nil {
		return
	}
	if report.BackupFile != "" {
		l.Info("Backup taken", zap.String("file", report.BackupFile))
	}

	var inserted, updated, replaced, skipped int
	for _, b := range report.Batches {
		for _, t := range b.Tables {
			switch {
			case t.Skipped:
				skipped++
				l.Warn("Table skipped", zap.String("batch", b.Name), zap.String("table", t.Table))
			case t.Err != nil:
				l.Error("Table failed", zap.String("batch", b.Name), zap.String("table", t.Table), zap.Error(t.Err))
			}
			if t.Result == nil {
				continue
			}
			inserted += t.Result.Inserted
			updated += t.Result.Updated
			replaced += t.Result.Replaced
			l.Info("Table result",
				zap.String("batch", b.Name),
				zap.String("table", t.Table),
				zap.Int("rows", t.Result.Rows),
				zap.Int("inserted", t.Result.Inserted),
				zap.Int("updated", t.Result.Updated),
				zap.Int("replaced", t.Result.Replaced),
				zap.Int64("deleted", t.Result.Deleted),
			)
		}
	}

	l.Info("Restore report",
		zap.Int("batches", len(report.Batches)),
		zap.Int("inserted", inserted),
		zap.Int("updated", updated),
		zap.Int("replaced", replaced),
		zap.Int("skipped_tables", skipped),
		zap.Int("failed_tables", len(report.Failed())),
	)

	if report.Rewrite != nil {
		l.Info("URL rewrite report",
			zap.Any("updated", report.Rewrite.Updated),
			zap.Any("failed", report.Rewrite.Failed),
		)
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction(target database.Config) bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Printf("\n⚠️  This writes to %s (%s on %s). Type 'yes' to confirm: ", target.Env, target.Name, target.Host)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(response)
	return response == "yes"
}
