package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	practicesession "github.com/dstainton/transcript-flash-cards/internal/domain/practice_session"
)

const schema = `
CREATE TABLE IF NOT EXISTS browser_sessions (
    token TEXT PRIMARY KEY,
    project_id TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS study_sessions (
    token TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    project_id TEXT NOT NULL,
    data TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

// SQLiteStore keeps per-browser state: the selected project and the
// serialized practice session, keyed by the browser's session token.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// one writer avoids SQLITE_BUSY under concurrent requests
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Selected project
// ============================================================================

// GetCurrentProject returns the project selected by the browser.
func (s *SQLiteStore) GetCurrentProject(ctx context.Context, token string) (string, error) {
	var projectID string
	err := s.db.QueryRowContext(ctx,
		"SELECT project_id FROM browser_sessions WHERE token = ?", token,
	).Scan(&projectID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return projectID, nil
}

// SetCurrentProject records the browser's selected project.
func (s *SQLiteStore) SetCurrentProject(ctx context.Context, token, projectID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO browser_sessions (token, project_id, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET project_id = excluded.project_id, updated_at = excluded.updated_at`,
		token, projectID, time.Now().UTC(),
	)
	return err
}

// ClearProject drops every selection and session pointing at a deleted project.
func (s *SQLiteStore) ClearProject(ctx context.Context, projectID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM browser_sessions WHERE project_id = ?", projectID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM study_sessions WHERE project_id = ?", projectID); err != nil {
		return err
	}
	return tx.Commit()
}

// ============================================================================
// Practice sessions
// ============================================================================

// SaveSession stores the browser's session, replacing any previous one.
func (s *SQLiteStore) SaveSession(ctx context.Context, token string, sess *practicesession.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO study_sessions (token, session_id, project_id, data, updated_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
			session_id = excluded.session_id,
			project_id = excluded.project_id,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		token, sess.ID, sess.ProjectID, string(data), time.Now().UTC(),
	)
	return err
}

// GetSession loads the browser's session.
func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*practicesession.Session, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		"SELECT data FROM study_sessions WHERE token = ?", token,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sess practicesession.Session
	if err := json.Unmarshal([]byte(data), &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes the browser's session.
func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM study_sessions WHERE token = ?", token)
	return err
}
