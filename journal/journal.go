// Package journal persists committed lifecycle events in SQLite so a host can
// audit what was installed on an account and when.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/modacct/account-sdk/component/ports"
	"github.com/modacct/account-sdk/component/values"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Event kinds recorded by the journal.
const (
	KindInstalled   = "installed"
	KindUninstalled = "uninstalled"
)

// Event is one recorded lifecycle event.
type Event struct {
	ID           string
	Kind         string
	Component    values.Address
	Digest       string
	Dependencies []values.FuncRef
	TeardownOK   bool
	RecordedAt   time.Time
}

// Config holds journal configuration.
type Config struct {
	DataDir string
}

// DefaultConfig returns the default configuration for the journal.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".acctlib")}
}

// Journal is a SQLite-backed event sink. It implements ports.EventSink; sink
// methods log failures instead of returning them because lifecycle events are
// emitted after the state change has already committed.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Journal.
type Option func(*Journal)

// WithJournalLogger sets the logger used for recording failures.
func WithJournalLogger(logger *slog.Logger) Option {
	return func(j *Journal) {
		j.logger = logger
	}
}

// New opens (or creates) the journal database under cfg.DataDir and runs
// migrations.
func New(cfg Config, opts ...Option) (*Journal, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("journal: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "journal.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("journal: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("journal: pragma %q: %w", p, err)
		}
	}

	j := &Journal{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(j)
	}
	if err := j.migrate(); err != nil {
		return nil, fmt.Errorf("journal: migration: %w", err)
	}
	return j, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS lifecycle_events (
			id           TEXT PRIMARY KEY,
			kind         TEXT NOT NULL,
			component    TEXT NOT NULL,
			digest       TEXT,
			dependencies TEXT,
			teardown_ok  INTEGER NOT NULL DEFAULT 1,
			recorded_at  TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_events_component ON lifecycle_events(component);
		CREATE INDEX IF NOT EXISTS idx_events_recorded  ON lifecycle_events(recorded_at DESC);
	`
	_, err := j.db.Exec(schema)
	return err
}

// ComponentInstalled records a committed install.
func (j *Journal) ComponentInstalled(ctx context.Context, component values.Address, digest values.Digest, dependencies []values.FuncRef) {
	deps := make([]string, len(dependencies))
	for i, d := range dependencies {
		deps[i] = d.String()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO lifecycle_events (id, kind, component, digest, dependencies) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), KindInstalled, component.String(), digest.String(), strings.Join(deps, ","),
	)
	if err != nil {
		j.logger.Warn("journal: failed to record install event",
			"component", component.String(),
			"error", err)
	}
}

// ComponentUninstalled records a committed removal.
func (j *Journal) ComponentUninstalled(ctx context.Context, component values.Address, teardownOK bool) {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO lifecycle_events (id, kind, component, teardown_ok) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), KindUninstalled, component.String(), teardownOK,
	)
	if err != nil {
		j.logger.Warn("journal: failed to record uninstall event",
			"component", component.String(),
			"error", err)
	}
}

// List returns recorded events, newest first, optionally filtered to one
// component. A zero component address means all components.
func (j *Journal) List(ctx context.Context, component values.Address, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, kind, component, ifnull(digest, ''), ifnull(dependencies, ''), teardown_ok, recorded_at
		FROM lifecycle_events
		WHERE 1=1
	`
	args := []any{}

	if !component.IsZero() {
		query += " AND component = ?"
		args = append(args, component.String())
	}
	query += " ORDER BY recorded_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: list events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e          Event
			addr       string
			deps       string
			recordedAt string
		)
		if err := rows.Scan(&e.ID, &e.Kind, &addr, &e.Digest, &deps, &e.TeardownOK, &recordedAt); err != nil {
			return nil, err
		}
		if e.Component, err = values.ParseAddress(addr); err != nil {
			return nil, fmt.Errorf("journal: corrupt component column: %w", err)
		}
		if e.RecordedAt, err = time.Parse(time.DateTime, recordedAt); err != nil {
			return nil, fmt.Errorf("journal: corrupt recorded_at column: %w", err)
		}
		if e.Dependencies, err = parseDeps(deps); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func parseDeps(s string) ([]values.FuncRef, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	refs := make([]values.FuncRef, 0, len(parts))
	for _, part := range parts {
		addrStr, fnStr, ok := strings.Cut(part, "#")
		if !ok {
			return nil, fmt.Errorf("journal: corrupt dependency entry %q", part)
		}
		addr, err := values.ParseAddress(addrStr)
		if err != nil {
			return nil, fmt.Errorf("journal: corrupt dependency entry %q: %w", part, err)
		}
		var fn uint8
		if _, err := fmt.Sscanf(fnStr, "%d", &fn); err != nil {
			return nil, fmt.Errorf("journal: corrupt dependency entry %q: %w", part, err)
		}
		refs = append(refs, values.NewFuncRef(addr, fn))
	}
	return refs, nil
}

var _ ports.EventSink = (*Journal)(nil)
