package dump

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"envsync/core/database"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"
)

// ErrExternalTool means a dump or restore binary exited unsuccessfully.
var ErrExternalTool = errors.New("external tool failed")

// timestampLayout renders as dd-mm-yy HH-MM.
const timestampLayout = "02-01-06 15-04"

// Command is one external tool invocation.
type Command struct {
	Name string
	Args []string
	// Env is added to the inherited environment of this invocation only.
	Env []string
}

// Executor runs a command, streaming its output to stdout and stderr.
type Executor interface {
	Run(ctx context.Context, cmd Command, stdout, stderr io.Writer) error
}

type execExecutor struct{}

func (execExecutor) Run(ctx context.Context, c Command, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// Runner drives pg_dump, pg_restore and psql.
type Runner struct {
	cfg  Config
	exec Executor
	log  *zap.Logger
	now  func() time.Time
}

// NewRunner creates a Runner executing real binaries.
func NewRunner(cfg Config, log *zap.Logger) *Runner {
	return &Runner{cfg: cfg, exec: execExecutor{}, log: log, now: time.Now}
}

// WithExecutor replaces how commands are run.
func (r *Runner) WithExecutor(e Executor) *Runner {
	r.exec = e
	return r
}

// BackupFile returns the archive path for a backup of env taken now.
func (r *Runner) BackupFile(env string) string {
	name := fmt.Sprintf("%s_%sdump.dump", r.now().Format(timestampLayout), env)
	return filepath.Join(r.cfg.Dir, name)
}

// Backup writes a custom format archive of db, large objects included.
func (r *Runner) Backup(ctx context.Context, db database.Config, file string) error {
	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		return fmt.Errorf("failed to create dump folder: %w", err)
	}

	err := r.run(ctx, Command{
		Name: r.cfg.PgDump,
		Args: []string{"-F", "c", "-b", "-v", "-f", file, "--dbname=" + db.URL(db.Name)},
		Env:  credentials(db),
	})
	if err != nil {
		return err
	}
	r.log.Info("Database backed up", zap.String("database", db.Name), zap.String("file", file))
	return nil
}

// Clean drops and recreates db through the maintenance database.
func (r *Runner) Clean(ctx context.Context, db database.Config) error {
	maintenance := "--dbname=" + db.URL(r.cfg.MaintenanceDB)
	name := pq.QuoteIdentifier(db.Name)

	for _, stmt := range []string{
		"DROP DATABASE IF EXISTS " + name,
		"CREATE DATABASE " + name,
	} {
		err := r.run(ctx, Command{
			Name: r.cfg.Psql,
			Args: []string{maintenance, "-v", "ON_ERROR_STOP=1", "-c", stmt},
			Env:  credentials(db),
		})
		if err != nil {
			return err
		}
	}
	r.log.Info("Database cleaned and recreated", zap.String("database", db.Name))
	return nil
}

// Restore loads file into db, dropping objects before recreating them.
func (r *Runner) Restore(ctx context.Context, db database.Config, file string) error {
	if _, err := os.Stat(file); err != nil {
		return fmt.Errorf("dump file: %w", err)
	}

	err := r.run(ctx, Command{
		Name: r.cfg.PgRestore,
		Args: []string{"--clean", "-v", "--dbname=" + db.URL(db.Name), file},
		Env:  credentials(db),
	})
	if err != nil {
		return err
	}
	r.log.Info("Database restored", zap.String("database", db.Name), zap.String("file", file))
	return nil
}

func (r *Runner) run(ctx context.Context, c Command) error {
	log := r.log.With(zap.String("tool", c.Name))
	// exec copies stdout and stderr concurrently, so each gets its own writer.
	stdout := &zapio.Writer{Log: log.With(zap.String("stream", "stdout")), Level: zapcore.DebugLevel}
	defer stdout.Close()
	errLog := &zapio.Writer{Log: log.With(zap.String("stream", "stderr")), Level: zapcore.DebugLevel}
	defer errLog.Close()

	var tail tailBuffer
	stderr := io.MultiWriter(errLog, &tail)

	log.Debug("Running external tool", zap.Strings("args", c.Args))
	if err := r.exec.Run(ctx, c, stdout, stderr); err != nil {
		return fmt.Errorf("%w: %s: %w: %s", ErrExternalTool, c.Name, err, bytes.TrimSpace(tail.Bytes()))
	}
	return nil
}

// credentials passes the password to the child process only.
func credentials(db database.Config) []string {
	if db.Password == "" {
		return nil
	}
	return []string{"PGPASSWORD=" + db.Password}
}

const tailSize = 2048

// tailBuffer keeps the last tailSize bytes written to it.
type tailBuffer struct {
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > tailSize {
		t.buf = t.buf[len(t.buf)-tailSize:]
	}
	return len(p), nil
}

func (t *tailBuffer) Bytes() []byte {
	return t.buf
}
