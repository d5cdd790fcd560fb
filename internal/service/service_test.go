package service_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	practicesession "github.com/dstainton/transcript-flash-cards/internal/domain/practice_session"
	"github.com/dstainton/transcript-flash-cards/internal/infrastructure/config"
	"github.com/dstainton/transcript-flash-cards/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memSessions serializes sessions like the SQLite store does.
type memSessions struct {
	mu        sync.Mutex
	sessions  map[string][]byte
	selection map[string]string
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string][]byte{}, selection: map[string]string{}}
}

func (m *memSessions) GetSession(_ context.Context, token string) (*practicesession.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sessions[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	var s practicesession.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (m *memSessions) SaveSession(_ context.Context, token string, s *practicesession.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = data
	return nil
}

func (m *memSessions) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *memSessions) GetCurrentProject(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.selection[token]
	if !ok {
		return "", store.ErrNotFound
	}
	return id, nil
}

func (m *memSessions) SetCurrentProject(_ context.Context, token, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selection[token] = projectID
	return nil
}

func (m *memSessions) ClearProject(_ context.Context, projectID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, id := range m.selection {
		if id == projectID {
			delete(m.selection, token)
		}
	}
	return nil
}

type fixture struct {
	projects *store.ProjectStore
	sessions *memSessions
	settings *config.SettingsStore
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	projects, err := store.NewProjectStore(filepath.Join(dir, "projects"), testLogger())
	if err != nil {
		t.Fatal(err)
	}
	settings, err := config.LoadSettings(filepath.Join(dir, "settings.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	return &fixture{
		projects: projects,
		sessions: newMemSessions(),
		settings: settings,
		now:      time.Date(2026, 6, 1, 9, 0, 0, 0, time.Local),
	}
}

func (f *fixture) clock() time.Time { return f.now }
