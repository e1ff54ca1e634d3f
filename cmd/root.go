package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"envsync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// configFile is the optional YAML file given with --config.
var configFile string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "envsync",
	Short: "One-way database sync from UAT to production",
	Long: `envsync copies a database from the UAT environment to production.

It takes full dumps with pg_dump/pg_restore, and restores a curated list of
tables row by row from flat interchange files, batch by batch, with foreign
key enforcement suspended while a batch is applied.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Interrupts cancel the command context so a
// running tool or statement is stopped, and any failure exits with status 1.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := RootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		reportFailure(err)
		os.Exit(1)
	}
}

// reportFailure logs err on the console with ISO8601 timestamps, whatever
// the configured format is, since configuration may be what failed.
func reportFailure(err error) {
	l, logErr := logger.New(&logger.Config{Level: "debug", Format: "console"})
	if logErr != nil {
		fmt.Fprintln(os.Stderr, err)
		return
	}
	l.Error("command failed", zap.Error(err))
	_ = l.Sync()
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configFile, "config", "", "YAML config file (default ./envsync.yaml when present)")
}
