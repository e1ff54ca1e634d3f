package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"envsync/core/database"
	"envsync/feature/migration"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// verifyCmd compares interchange files with the destination tables.
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Compare interchange files with the destination tables",
	Long:  `Checks every batch table: file columns must exist in the destination, and the destination must hold at least as many rows as the file. Outputs a summary by default or the full report with --json.`,
	RunE:  runVerify,
}

func init() {
	verifyCmd.Flags().Bool("json", false, "Output the full report as JSON")
	RootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := bootstrap("verify")
	if err != nil {
		return err
	}
	defer a.close()

	tables := a.batchTables()
	if len(tables) == 0 {
		return fmt.Errorf("no batch tables configured")
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

	report := migration.NewVerifier(db, store, a.log).Verify(cmd.Context(), tables)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else {
		counts := map[string]int{}
		for _, t := range report.Tables {
			counts[t.Status]++
		}
		a.log.Info("Verification report",
			zap.Int("tables", len(report.Tables)),
			zap.Int(migration.StatusOK, counts[migration.StatusOK]),
			zap.Int(migration.StatusShort, counts[migration.StatusShort]),
			zap.Int(migration.StatusMissingFile, counts[migration.StatusMissingFile]),
			zap.Int(migration.StatusError, counts[migration.StatusError]),
		)
	}

	if !report.Matched {
		return fmt.Errorf("destination does not match the interchange files")
	}
	return nil
}
