package cmd

import (
	"fmt"

	"envsync/core/database"
	"envsync/core/dump"

	"github.com/spf13/cobra"
)

var (
	dumpEnv   string
	dumpFile  string
	dumpClean bool
)

// dumpCmd groups the full database dump commands.
var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Full database backup and restore with pg_dump/pg_restore",
}

var dumpBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Write a custom format archive of a database",
	Long: `Write a pg_dump custom format archive of the source or destination
database into dump.dir, named <dd-mm-yy HH-MM>_<env>dump.dump.

Examples:
  envsync dump backup --env source`,
	RunE: runDumpBackup,
}

var dumpRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore an archive into a database",
	Long: `Restore a pg_dump archive with pg_restore --clean.

With --clean the database is dropped and recreated through the maintenance
database first.

Examples:
  envsync dump restore --env destination --file "db_backups/04-10-24 18-30_uatdump.dump"
  envsync dump restore --env destination --file backup.dump --clean --yes`,
	RunE: runDumpRestore,
}

func init() {
	dumpCmd.PersistentFlags().StringVar(&dumpEnv, "env", "source", "Database to use (source or destination)")
	dumpRestoreCmd.Flags().StringVar(&dumpFile, "file", "", "Archive to restore")
	dumpRestoreCmd.Flags().BoolVar(&dumpClean, "clean", false, "Drop and recreate the database before restoring")
	dumpRestoreCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	_ = dumpRestoreCmd.MarkFlagRequired("file")

	dumpCmd.AddCommand(dumpBackupCmd, dumpRestoreCmd)
	RootCmd.AddCommand(dumpCmd)
}

func (a *app) dumpTarget() (database.Config, error) {
	switch dumpEnv {
	case "source":
		return a.cfg.Source, nil
	case "destination":
		return a.cfg.Destination, nil
	default:
		return database.Config{}, fmt.Errorf("unknown --env %q, want source or destination", dumpEnv)
	}
}

func runDumpBackup(cmd *cobra.Command, args []string) error {
	a, err := bootstrap("dump backup")
	if err != nil {
		return err
	}
	defer a.close()

	db, err := a.dumpTarget()
	if err != nil {
		return err
	}

	runner := dump.NewRunner(a.cfg.Dump, a.log)
	return runner.Backup(cmd.Context(), db, runner.BackupFile(db.Env))
}

func runDumpRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := bootstrap("dump restore")
	if err != nil {
		return err
	}
	defer a.close()

	db, err := a.dumpTarget()
	if err != nil {
		return err
	}

	if !confirmDestructiveAction(db) {
		a.log.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	runner := dump.NewRunner(a.cfg.Dump, a.log)
	if dumpClean {
		if err := runner.Clean(ctx, db); err != nil {
			return err
		}
	}
	return runner.Restore(ctx, db, dumpFile)
}
