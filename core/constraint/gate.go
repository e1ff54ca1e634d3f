package constraint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"envsync/core/database"

	"github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrAlreadySuspended is returned when a table is suspended twice without a resume.
	ErrAlreadySuspended = errors.New("constraints already suspended")
	// ErrNotSuspended is returned when resuming a table the gate never suspended.
	ErrNotSuspended = errors.New("constraints not suspended")
)

// Gate suspends and resumes trigger based constraint enforcement for named
// tables on one destination connection.
//
// On postgres every table is toggled with ALTER TABLE ... TRIGGER ALL inside a
// single transaction per call. Triggers that were already disabled before
// Suspend are disabled again on Resume so the prior state is restored.
// On mysql and sqlite enforcement is a session switch: it is turned off with
// the first suspended table and restored to its previous value once the last
// one is resumed.
type Gate struct {
	db  *gorm.DB
	log *zap.Logger

	mu        sync.Mutex
	suspended map[string][]string
	session   *sessionSwitch
}

// NewGate creates a gate for db. The dialect is taken from the connection.
func NewGate(db *gorm.DB, log *zap.Logger) *Gate {
	g := &Gate{
		db:        db,
		log:       log,
		suspended: make(map[string][]string),
	}

	switch db.Dialector.Name() {
	case "mysql":
		g.session = &sessionSwitch{
			read:  "SELECT @@SESSION.FOREIGN_KEY_CHECKS",
			write: "SET FOREIGN_KEY_CHECKS = %d",
		}
	case "sqlite":
		g.session = &sessionSwitch{
			read:  "PRAGMA foreign_keys",
			write: "PRAGMA foreign_keys = %d",
		}
	}
	return g
}

// Suspended reports whether the gate currently holds table suspended.
func (g *Gate) Suspended(table string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.suspended[table]
	return ok
}

// Suspend disables constraint enforcement for every table in tables.
// Nothing is recorded when the call fails.
func (g *Gate) Suspend(ctx context.Context, tables []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	tables = distinct(tables)
	for _, t := range tables {
		if _, ok := g.suspended[t]; ok {
			return fmt.Errorf("%w: %s", ErrAlreadySuspended, t)
		}
	}
	if len(tables) == 0 {
		return nil
	}

	var states map[string][]string
	var err error
	if g.session != nil {
		states, err = g.suspendSession(ctx, tables)
	} else {
		states, err = g.suspendTriggers(ctx, tables)
	}
	if err != nil {
		return fmt.Errorf("suspend constraints on %s: %w", strings.Join(tables, ", "), err)
	}

	for t, disabled := range states {
		g.suspended[t] = disabled
	}
	g.log.Info("Constraints suspended", zap.Strings("tables", tables))
	return nil
}

// Resume re-enables constraint enforcement for every table in tables.
func (g *Gate) Resume(ctx context.Context, tables []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	tables = distinct(tables)
	for _, t := range tables {
		if _, ok := g.suspended[t]; !ok {
			return fmt.Errorf("%w: %s", ErrNotSuspended, t)
		}
	}
	if len(tables) == 0 {
		return nil
	}

	var err error
	if g.session != nil {
		err = g.resumeSession(ctx, tables)
	} else {
		err = g.resumeTriggers(ctx, tables)
	}
	if err != nil {
		return fmt.Errorf("resume constraints on %s: %w", strings.Join(tables, ", "), err)
	}

	for _, t := range tables {
		delete(g.suspended, t)
	}
	g.log.Info("Constraints resumed", zap.Strings("tables", tables))
	return nil
}

func (g *Gate) suspendTriggers(ctx context.Context, tables []string) (map[string][]string, error) {
	states := make(map[string][]string, len(tables))

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			var disabled []string
			err := tx.Raw(`SELECT tgname FROM pg_trigger WHERE tgrelid = CAST(? AS regclass) AND tgenabled = 'D' ORDER BY tgname`,
				pq.QuoteIdentifier(t)).Scan(&disabled).Error
			if err != nil {
				return fmt.Errorf("read trigger state of %s: %w", t, database.Classify(err))
			}
			if err := tx.Exec(fmt.Sprintf("ALTER TABLE %s DISABLE TRIGGER ALL", pq.QuoteIdentifier(t))).Error; err != nil {
				return fmt.Errorf("disable triggers on %s: %w", t, database.Classify(err))
			}
			states[t] = disabled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return states, nil
}

func (g *Gate) resumeTriggers(ctx context.Context, tables []string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range tables {
			quoted := pq.QuoteIdentifier(t)
			if err := tx.Exec(fmt.Sprintf("ALTER TABLE %s ENABLE TRIGGER ALL", quoted)).Error; err != nil {
				return fmt.Errorf("enable triggers on %s: %w", t, database.Classify(err))
			}
			for _, trigger := range g.suspended[t] {
				stmt := fmt.Sprintf("ALTER TABLE %s DISABLE TRIGGER %s", quoted, pq.QuoteIdentifier(trigger))
				if err := tx.Exec(stmt).Error; err != nil {
					return fmt.Errorf("restore disabled trigger %s on %s: %w", trigger, t, database.Classify(err))
				}
			}
		}
		return nil
	})
}

func (g *Gate) suspendSession(ctx context.Context, tables []string) (map[string][]string, error) {
	if len(g.suspended) == 0 {
		if err := g.session.off(ctx, g.db); err != nil {
			return nil, err
		}
	}
	states := make(map[string][]string, len(tables))
	for _, t := range tables {
		states[t] = nil
	}
	return states, nil
}

func (g *Gate) resumeSession(ctx context.Context, tables []string) error {
	if len(g.suspended) > len(tables) {
		return nil
	}
	return g.session.restore(ctx, g.db)
}

// sessionSwitch toggles a connection scoped enforcement flag and remembers
// the value it replaced.
type sessionSwitch struct {
	read  string
	write string
	prev  int
}

func (s *sessionSwitch) off(ctx context.Context, db *gorm.DB) error {
	var current int
	if err := db.WithContext(ctx).Raw(s.read).Scan(&current).Error; err != nil {
		return fmt.Errorf("read foreign key setting: %w", database.Classify(err))
	}
	if err := db.WithContext(ctx).Exec(fmt.Sprintf(s.write, 0)).Error; err != nil {
		return fmt.Errorf("disable foreign keys: %w", database.Classify(err))
	}
	s.prev = current
	return nil
}

func (s *sessionSwitch) restore(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Exec(fmt.Sprintf(s.write, s.prev)).Error; err != nil {
		return fmt.Errorf("restore foreign keys: %w", database.Classify(err))
	}
	return nil
}

func distinct(tables []string) []string {
	seen := make(map[string]struct{}, len(tables))
	out := make([]string, 0, len(tables))
	for _, t := range tables {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
