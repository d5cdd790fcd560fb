package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dstainton/transcript-flash-cards/internal/domain/flashcard"
	practicesession "github.com/dstainton/transcript-flash-cards/internal/domain/practice_session"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_CurrentProject(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	if _, err := s.GetCurrentProject(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.SetCurrentProject(ctx, "tok", "alpha"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCurrentProject(ctx, "tok", "beta"); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetCurrentProject(ctx, "tok")
	if err != nil {
		t.Fatal(err)
	}
	if got != "beta" {
		t.Errorf("expected beta, got %q", got)
	}
}

func TestSQLite_SessionRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

	cards := []flashcard.Flashcard{{Topic: "T1", Question: "Q", Answer: "True", AnswerType: flashcard.KindTrueFalse}}
	sess, err := practicesession.Start("alpha", cards, nil, practicesession.DefaultConfig(), now)
	if err != nil {
		t.Fatal(err)
	}
	sess.Streaks[cards[0].Hash()] = 2

	if err := s.SaveSession(ctx, "tok", sess); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetSession(ctx, "tok")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != sess.ID || got.Phase != practicesession.PhaseActive || len(got.Pool) != 1 {
		t.Errorf("unexpected session %+v", got)
	}
	if got.Streaks[cards[0].Hash()] != 2 {
		t.Errorf("streaks not persisted: %+v", got.Streaks)
	}
	if got.TimePerCard != sess.TimePerCard || !got.StartedAt.Equal(now) {
		t.Errorf("timing not persisted: %v %v", got.TimePerCard, got.StartedAt)
	}

	if err := s.DeleteSession(ctx, "tok"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetSession(ctx, "tok"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLite_ClearProject(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	s.SetCurrentProject(ctx, "a", "doomed")
	s.SetCurrentProject(ctx, "b", "kept")
	cards := []flashcard.Flashcard{{Topic: "T", Question: "Q", Answer: "Yes"}}
	sess, _ := practicesession.Start("doomed", cards, nil, practicesession.DefaultConfig(), time.Now())
	s.SaveSession(ctx, "a", sess)

	if err := s.ClearProject(ctx, "doomed"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetCurrentProject(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected selection cleared, got %v", err)
	}
	if _, err := s.GetSession(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected session cleared, got %v", err)
	}
	if got, _ := s.GetCurrentProject(ctx, "b"); got != "kept" {
		t.Errorf("unrelated selection changed: %q", got)
	}
}
