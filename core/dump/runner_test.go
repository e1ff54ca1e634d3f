package dump

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"envsync/core/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeExecutor struct {
	commands []Command
	failOn   string
	stderr   string
}

func (f *fakeExecutor) Run(ctx context.Context, c Command, stdout, stderr io.Writer) error {
	f.commands = append(f.commands, c)
	_, _ = io.WriteString(stdout, "pg_dump: reading schemas\n")
	if f.failOn != "" && c.Name == f.failOn {
		_, _ = io.WriteString(stderr, f.stderr)
		return errors.New("exit status 1")
	}
	return nil
}

func newTestRunner(t *testing.T, exec *fakeExecutor) *Runner {
	r := NewRunner(Config{
		Dir:           t.TempDir(),
		PgDump:        "pg_dump",
		PgRestore:     "pg_restore",
		Psql:          "psql",
		MaintenanceDB: "postgres",
	}, zap.NewNop()).WithExecutor(exec)
	r.now = func() time.Time { return time.Date(2024, 10, 4, 12, 42, 0, 0, time.UTC) }
	return r
}

var prod = database.Config{Host: "localhost", Port: 5432, User: "ubuntu", Password: "pw", Name: "simulab", SSLMode: "disable"}

func TestBackupFile(t *testing.T) {
	r := newTestRunner(t, &fakeExecutor{})
	assert.Equal(t, filepath.Join(r.cfg.Dir, "04-10-24 12-42_uatdump.dump"), r.BackupFile("uat"))
}

func TestBackup(t *testing.T) {
	exec := &fakeExecutor{}
	r := newTestRunner(t, exec)
	file := filepath.Join(r.cfg.Dir, "nested", "prod.dump")

	require.NoError(t, r.Backup(context.Background(), prod, file))
	require.Len(t, exec.commands, 1)

	c := exec.commands[0]
	assert.Equal(t, "pg_dump", c.Name)
	assert.Equal(t, []string{"-F", "c", "-b", "-v", "-f", file, "--dbname=postgres://ubuntu@localhost:5432/simulab?sslmode=disable"}, c.Args)
	assert.Equal(t, []string{"PGPASSWORD=pw"}, c.Env)
	assert.DirExists(t, filepath.Dir(file))

	assert.NotEqual(t, "pw", os.Getenv("PGPASSWORD"), "process environment must stay untouched")
}

func TestClean(t *testing.T) {
	exec := &fakeExecutor{}
	r := newTestRunner(t, exec)

	require.NoError(t, r.Clean(context.Background(), prod))
	require.Len(t, exec.commands, 2)

	maintenance := "--dbname=postgres://ubuntu@localhost:5432/postgres?sslmode=disable"
	assert.Equal(t, []string{maintenance, "-v", "ON_ERROR_STOP=1", "-c", `DROP DATABASE IF EXISTS "simulab"`}, exec.commands[0].Args)
	assert.Equal(t, []string{maintenance, "-v", "ON_ERROR_STOP=1", "-c", `CREATE DATABASE "simulab"`}, exec.commands[1].Args)
}

func TestRestore(t *testing.T) {
	exec := &fakeExecutor{}
	r := newTestRunner(t, exec)
	ctx := context.Background()

	err := r.Restore(ctx, prod, filepath.Join(r.cfg.Dir, "missing.dump"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, exec.commands)

	file := filepath.Join(r.cfg.Dir, "prod.dump")
	require.NoError(t, os.WriteFile(file, []byte("PGDMP"), 0o600))
	require.NoError(t, r.Restore(ctx, prod, file))
	assert.Equal(t, []string{"--clean", "-v", "--dbname=postgres://ubuntu@localhost:5432/simulab?sslmode=disable", file}, exec.commands[0].Args)
}

func TestExternalToolFailure(t *testing.T) {
	exec := &fakeExecutor{failOn: "psql", stderr: "psql: error: database \"simulab\" is being accessed by other users\n"}
	r := newTestRunner(t, exec)

	err := r.Clean(context.Background(), prod)
	assert.ErrorIs(t, err, ErrExternalTool)
	assert.ErrorContains(t, err, "being accessed by other users")
	assert.Len(t, exec.commands, 1, "create is not attempted after a failed drop")
}

func TestTailBuffer(t *testing.T) {
	var tb tailBuffer
	big := make([]byte, tailSize+10)
	for i := range big {
		big[i] = 'a'
	}
	big[len(big)-1] = 'z'

	n, err := tb.Write(big)
	require.NoError(t, err)
	assert.Equal(t, len(big), n)
	assert.Len(t, tb.Bytes(), tailSize)
	assert.Equal(t, byte('z'), tb.Bytes()[tailSize-1])
}
