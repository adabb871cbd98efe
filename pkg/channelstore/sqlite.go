package channelstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

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
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS channels (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			agent_slug TEXT NOT NULL,
			name TEXT,
			UNIQUE(workspace_id, agent_slug)
		);`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id TEXT PRIMARY KEY,
			workspace_id TEXT NOT NULL,
			agent_slug TEXT NOT NULL,
			display_name TEXT,
			UNIQUE(workspace_id, agent_slug)
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			request_id TEXT PRIMARY KEY,
			channel_id TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			body TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("channelstore init: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) AgentChannel(ctx context.Context, workspaceID, agentSlug string) (*Channel, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, workspace_id, agent_slug, name FROM channels WHERE workspace_id=? AND agent_slug=?",
		workspaceID, agentSlug)
	var ch Channel
	err := row.Scan(&ch.ID, &ch.WorkspaceID, &ch.AgentSlug, &ch.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (s *SQLiteStore) AgentProfile(ctx context.Context, workspaceID, agentSlug string) (*Profile, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, workspace_id, agent_slug, display_name FROM profiles WHERE workspace_id=? AND agent_slug=?",
		workspaceID, agentSlug)
	var p Profile
	err := row.Scan(&p.ID, &p.WorkspaceID, &p.AgentSlug, &p.DisplayName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PostMessage inserts the request row. The insert is acknowledged: a failed
// write is an error, not a silent drop.
func (s *SQLiteStore) PostMessage(ctx context.Context, msg *Message) error {
	if msg.Status == "" {
		msg.Status = StatusPending
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (request_id, channel_id, sender_id, body, status, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		msg.RequestID, msg.ChannelID, msg.SenderID, msg.Body, string(msg.Status), msg.CreatedAt)
	return err
}

func (s *SQLiteStore) Message(ctx context.Context, requestID string) (*Message, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT request_id, channel_id, sender_id, body, status, created_at FROM messages WHERE request_id=?",
		requestID)
	var msg Message
	var status string
	err := row.Scan(&msg.RequestID, &msg.ChannelID, &msg.SenderID, &msg.Body, &status, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	msg.Status = MessageStatus(status)
	return &msg, nil
}

func (s *SQLiteStore) UpdateMessageStatus(ctx context.Context, requestID string, status MessageStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE messages SET status=? WHERE request_id=?", string(status), requestID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateChannel and CreateProfile are administrative writes used when a
// workspace provisions its channel substrate.
func (s *SQLiteStore) CreateChannel(ctx context.Context, ch *Channel) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO channels (id, workspace_id, agent_slug, name) VALUES (?, ?, ?, ?)",
		ch.ID, ch.WorkspaceID, ch.AgentSlug, ch.Name)
	return err
}

func (s *SQLiteStore) CreateProfile(ctx context.Context, p *Profile) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO profiles (id, workspace_id, agent_slug, display_name) VALUES (?, ?, ?, ?)",
		p.ID, p.WorkspaceID, p.AgentSlug, p.DisplayName)
	return err
}
