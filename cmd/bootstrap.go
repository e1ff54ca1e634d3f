package cmd

import (
	"fmt"

	"envsync/core/config"
	"envsync/core/database"
	"envsync/core/interchange"
	"envsync/core/logger"
	"envsync/core/storage"
	"envsync/feature/migration"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app is what every command needs: configuration and a run-scoped logger.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

func bootstrap(command string) (*app, error) {
	cfg, err := config.LoadConfig(".", configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	l, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	l = logger.WithRunID(l, logger.NewRunID()).With(zap.String("command", command))

	return &app{cfg: cfg, log: l}, nil
}

func (a *app) close() {
	_ = a.log.Sync()
}

func (a *app) connect(db database.Config) (*gorm.DB, error) {
	conn, err := database.Connect(db)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", db.Env, err)
	}
	a.log.Info("Connected to database", zap.String("env", db.Env), zap.String("driver", db.Driver), zap.String("host", db.Host), zap.String("database", db.Name))
	return conn, nil
}

// store opens the interchange store, mirrored through object storage when enabled.
func (a *app) store() (*interchange.Store, error) {
	var remote *interchange.Remote
	if a.cfg.Storage.Enabled {
		client, err := storage.NewClient(a.cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to storage: %w", err)
		}
		remote = &interchange.Remote{
			Client: client,
			Bucket: a.cfg.Storage.Bucket,
			Prefix: a.cfg.Storage.Prefix,
			Region: a.cfg.Storage.Region,
		}
	}

	return interchange.NewStore(a.cfg.Sync.Config, remote, a.log)
}

func (a *app) batches() []migration.Batch {
	out := make([]migration.Batch, 0, len(a.cfg.Sync.Batches))
	for _, b := range a.cfg.Sync.Batches {
		out = append(out, migration.Batch{Name: b.Name, Key: b.Key, Tables: b.Tables})
	}
	return out
}

func (a *app) rewriter(db *gorm.DB) *migration.Rewriter {
	targets := make([]migration.Target, 0, len(a.cfg.Rewrite.Targets))
	for _, t := range a.cfg.Rewrite.Targets {
		targets = append(targets, migration.Target{Table: t.Table, Column: t.Column})
	}
	return migration.NewRewriter(db, a.cfg.Rewrite.OldPrefix, a.cfg.Rewrite.NewPrefix, targets, a.log)
}

// batchTables lists every table of the configured batches once.
func (a *app) batchTables() []string {
	var tables []string
	for _, b := range a.cfg.Sync.Batches {
		tables = append(tables, b.Tables...)
	}
	return migration.Distinct(tables)
}
