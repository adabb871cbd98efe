// Package schedule runs the cron-driven delegation schedule processor:
// persisted schedules fire delegations to specialist agents on a cron
// cadence.
package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("schedule: not found")

type Schedule struct {
	ID            string
	WorkspaceID   string
	HeadAgentSlug string
	AgentSlug     string
	Task          string
	Context       string
	CronExpr      string
	Enabled       bool
	LastRun       time.Time
}

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) init() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schedules (
		id TEXT PRIMARY KEY,
		workspace_id TEXT NOT NULL,
		head_agent_slug TEXT NOT NULL,
		agent_slug TEXT NOT NULL,
		task TEXT NOT NULL,
		context TEXT,
		cron_expr TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		last_run DATETIME
	);`)
	if err != nil {
		return fmt.Errorf("schedule init: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Add(ctx context.Context, sched *Schedule) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedules (id, workspace_id, head_agent_slug, agent_slug, task, context, cron_expr, enabled, last_run)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sched.ID, sched.WorkspaceID, sched.HeadAgentSlug, sched.AgentSlug,
		sched.Task, sched.Context, sched.CronExpr, boolToInt(sched.Enabled), sched.LastRun)
	return err
}

func (s *SQLiteStore) Enabled(ctx context.Context) ([]*Schedule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workspace_id, head_agent_slug, agent_slug, task, context, cron_expr, enabled, last_run
		 FROM schedules WHERE enabled=1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []*Schedule
	for rows.Next() {
		var sched Schedule
		var enabled int
		var lastRun sql.NullTime
		if err := rows.Scan(&sched.ID, &sched.WorkspaceID, &sched.HeadAgentSlug, &sched.AgentSlug,
			&sched.Task, &sched.Context, &sched.CronExpr, &enabled, &lastRun); err != nil {
			return nil, err
		}
		sched.Enabled = enabled != 0
		if lastRun.Valid {
			sched.LastRun = lastRun.Time
		}
		list = append(list, &sched)
	}
	return list, rows.Err()
}

func (s *SQLiteStore) MarkRun(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, "UPDATE schedules SET last_run=? WHERE id=?", at, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SetEnabled(ctx context.Context, id string, enabled bool) error {
	res, err := s.db.ExecContext(ctx, "UPDATE schedules SET enabled=? WHERE id=?", boolToInt(enabled), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
