package cmd

import (
	"fmt"

	"envsync/core/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rewriteCmd runs the URL prefix rewrite on its own.
var rewriteCmd = &cobra.Command{
	Use:   "rewrite-urls",
	Short: "Rewrite stored URL prefixes in the destination database",
	Long: `Replace rewrite.old_prefix with rewrite.new_prefix in every configured
rewrite target of the destination database. restore does this after its last
batch; this command runs it alone.`,
	RunE: runRewrite,
}

func init() {
	rewriteCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	RootCmd.AddCommand(rewriteCmd)
}

func runRewrite(cmd *cobra.Command, args []string) error {
	a, err := bootstrap("rewrite-urls")
	if err != nil {
		return err
	}
	defer a.close()

	db, err := a.connect(a.cfg.Destination)
	if err != nil {
		return err
	}
	defer database.Close(db)

	w := a.rewriter(db)
	if !w.Enabled() {
		a.log.Info("Nothing to rewrite. Set rewrite.old_prefix and rewrite.targets.")
		return nil
	}
	if !confirmDestructiveAction(a.cfg.Destination) {
		a.log.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}

	res, err := w.Rewrite(cmd.Context())
	if err != nil {
		return err
	}
	a.log.Info("URL rewrite report", zap.Any("updated", res.Updated), zap.Any("failed", res.Failed))
	if len(res.Failed) > 0 {
		return fmt.Errorf("url rewrite failed for %d targets", len(res.Failed))
	}
	return nil
}
