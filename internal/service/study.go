package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	practicesession "github.com/dstainton/transcript-flash-cards/internal/domain/practice_session"
	"github.com/dstainton/transcript-flash-cards/internal/domain/project"
	"github.com/dstainton/transcript-flash-cards/internal/grader"
	"github.com/dstainton/transcript-flash-cards/internal/infrastructure/config"
	"github.com/dstainton/transcript-flash-cards/internal/store"
)

// ErrNoSession is returned when the browser has no session to act on.
var ErrNoSession = errors.New("no session in progress")

// SessionRepository persists one practice session per browser token.
type SessionRepository interface {
	GetSession(ctx context.Context, token string) (*practicesession.Session, error)
	SaveSession(ctx context.Context, token string, sess *practicesession.Session) error
	DeleteSession(ctx context.Context, token string) error
}

// StartOptions are the caller's choices for a new session. Zero values
// fall back to the saved settings.
type StartOptions struct {
	Mode         practicesession.Mode
	Topics       []string
	TimePerCard  time.Duration
	ExamDuration time.Duration
	MinQuestions int
	MaxQuestions int
}

// StudyService drives practice sessions against the project store.
// Session state lives in the SessionRepository between requests.
type StudyService struct {
	projects *store.ProjectStore
	sessions SessionRepository
	grader   grader.Grader
	settings *config.SettingsStore
	logger   *slog.Logger
	now      func() time.Time
}

func NewStudyService(projects *store.ProjectStore, sessions SessionRepository, g grader.Grader, settings *config.SettingsStore, logger *slog.Logger) *StudyService {
	return &StudyService{
		projects: projects,
		sessions: sessions,
		grader:   g,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
}

// WithClock overrides the clock, for tests.
func (s *StudyService) WithClock(now func() time.Time) *StudyService {
	s.now = now
	return s
}

// SessionConfig merges opts with the saved settings.
func (s *StudyService) SessionConfig(opts StartOptions) practicesession.SessionConfig {
	st := s.settings.Get()
	cfg := practicesession.SessionConfig{
		Mode:         opts.Mode,
		Topics:       opts.Topics,
		TimePerCard:  opts.TimePerCard,
		ExamDuration: opts.ExamDuration,
		MinQuestions: opts.MinQuestions,
		MaxQuestions: opts.MaxQuestions,
	}
	if cfg.Mode == "" {
		cfg.Mode = practicesession.ModeStudy
	}
	if cfg.TimePerCard <= 0 {
		cfg.TimePerCard = time.Duration(st.TimePerCard) * time.Second
	}
	if cfg.ExamDuration <= 0 {
		cfg.ExamDuration = time.Duration(st.TotalExamTime) * time.Second
	}
	if cfg.MinQuestions <= 0 {
		cfg.MinQuestions = st.MinExamQuestions
	}
	if cfg.MaxQuestions <= 0 {
		cfg.MaxQuestions = st.MaxExamQuestions
	}
	return cfg
}

// Start saves any unfinished session for the browser and begins a new one
// over the project's cards. Excluded cards never enter the pool.
func (s *StudyService) Start(ctx context.Context, token, projectID string, opts StartOptions) (*practicesession.Session, error) {
	if _, err := s.projects.GetProject(projectID); err != nil {
		return nil, err
	}
	if _, err := s.FinalizeIfPending(ctx, token); err != nil {
		return nil, err
	}

	cards := s.projects.LoadFlashcards(projectID)
	excluded := s.projects.LoadExcluded(projectID)
	if len(excluded) > 0 {
		kept := cards[:0]
		for _, c := range cards {
			if _, ok := excluded[c.Hash()]; !ok {
				kept = append(kept, c)
			}
		}
		cards = kept
	}

	sess, err := practicesession.Start(projectID, cards, s.projects.LoadMastery(projectID), s.SessionConfig(opts), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SaveSession(ctx, token, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	if err := s.projects.Touch(projectID); err != nil {
		s.logger.Warn("failed to touch project", "project_id", projectID, "error", err)
	}

	s.logger.Info("session started",
		"session_id", sess.ID,
		"project_id", projectID,
		"mode", sess.Mode,
		"cards", len(sess.Pool),
	)
	return sess, nil
}

// Current returns the browser's session after applying any expired exam
// deadline. The feedback is non-nil when a deadline fired during this call.
func (s *StudyService) Current(ctx context.Context, token string) (*practicesession.Session, *practicesession.Feedback, error) {
	sess, err := s.load(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	fb := sess.CheckDeadlines(s.grader, s.now())
	if fb != nil {
		if err := s.sessions.SaveSession(ctx, token, sess); err != nil {
			return nil, nil, fmt.Errorf("save session: %w", err)
		}
	}
	return sess, fb, nil
}

// Submit grades one answer for the browser's session.
func (s *StudyService) Submit(ctx context.Context, token, answer string) (practicesession.Feedback, *practicesession.Session, error) {
	sess, err := s.load(ctx, token)
	if err != nil {
		return practicesession.Feedback{}, nil, err
	}

	tracker := sess.Tracker(s.projects.LoadMastery(sess.ProjectID), s.projects.Recorder(sess.ProjectID))
	fb, err := sess.Submit(ctx, answer, s.grader, tracker, s.now())
	if errors.Is(err, practicesession.ErrEmptyAnswer) {
		return fb, sess, err
	}

	if saveErr := s.sessions.SaveSession(ctx, token, sess); saveErr != nil {
		return fb, sess, fmt.Errorf("save session: %w", saveErr)
	}
	if err != nil {
		return fb, sess, err
	}

	if fb.PersistErr != nil {
		s.logger.Error("failed to persist mastery",
			"project_id", sess.ProjectID,
			"question", fb.Card.Question,
			"error", fb.PersistErr,
		)
	}
	if fb.JustMastered {
		s.logger.Info("card mastered", "project_id", sess.ProjectID, "topic", fb.Card.Topic)
	}
	return fb, sess, nil
}

// Results finalizes the browser's session if needed and returns its result.
// An active session has no results yet.
func (s *StudyService) Results(ctx context.Context, token string) (practicesession.Result, error) {
	sess, _, err := s.Current(ctx, token)
	if err != nil {
		return practicesession.Result{}, err
	}
	if sess.Phase == practicesession.PhaseActive {
		return practicesession.Result{}, practicesession.ErrNotActive
	}
	return s.finalize(ctx, token, sess)
}

// Exit ends the browser's session. A session with answers is finalized
// and its result returned; an unanswered one is simply discarded.
func (s *StudyService) Exit(ctx context.Context, token string) (*practicesession.Result, error) {
	sess, err := s.load(ctx, token)
	if err != nil {
		return nil, err
	}

	if !sess.HasAnswers() {
		if err := s.sessions.DeleteSession(ctx, token); err != nil {
			return nil, fmt.Errorf("delete session: %w", err)
		}
		return nil, nil
	}

	sess.Exit()
	res, err := s.finalize(ctx, token, sess)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// FinalizeIfPending records the result of an unsaved session that has at
// least one answer, ending it first if it is still active. It is called at
// every navigation boundary and is safe to repeat; it returns the result
// only when this call saved it.
func (s *StudyService) FinalizeIfPending(ctx context.Context, token string) (*practicesession.Result, error) {
	sess, _, err := s.Current(ctx, token)
	if errors.Is(err, ErrNoSession) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.saveAbandoned(ctx, token, sess)
}

// DiscardForOtherProject drops the browser's session when it belongs to a
// project other than projectID. Its answers are recorded first.
func (s *StudyService) DiscardForOtherProject(ctx context.Context, token, projectID string) error {
	sess, err := s.load(ctx, token)
	if errors.Is(err, ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	if sess.ProjectID == projectID {
		return nil
	}
	if _, err := s.saveAbandoned(ctx, token, sess); err != nil {
		return err
	}
	return s.sessions.DeleteSession(ctx, token)
}

// saveAbandoned finalizes sess unless it is already saved or has no answers.
func (s *StudyService) saveAbandoned(ctx context.Context, token string, sess *practicesession.Session) (*practicesession.Result, error) {
	if sess.Saved() {
		return nil, nil
	}
	if sess.Phase != practicesession.PhaseResultsPending && !sess.HasAnswers() {
		return nil, nil
	}

	sess.Exit()
	res, err := s.finalize(ctx, token, sess)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// finalize computes the result and, the first time only, appends it to
// the project's history. The session is saved before history is written
// so a retry can never record twice.
func (s *StudyService) finalize(ctx context.Context, token string, sess *practicesession.Session) (practicesession.Result, error) {
	res, first := sess.Finalize(s.grader, s.now())
	if !first {
		return res, nil
	}

	if err := s.sessions.SaveSession(ctx, token, sess); err != nil {
		return res, fmt.Errorf("save session: %w", err)
	}
	if !sess.HasAnswers() {
		return res, nil
	}

	rec := project.HistoryRecord{
		Score:      res.Score,
		Total:      res.Total,
		Percentage: res.Percentage,
		Topics:     res.Topics,
	}
	kind := project.HistoryExam
	if res.Mode == practicesession.ModeStudy {
		kind = project.HistoryStudy
		mastered := res.CardsMastered
		rec.CardsMastered = &mastered
	}

	if _, err := s.projects.AppendHistory(sess.ProjectID, kind, res.CompletedAt, rec); err != nil {
		s.logger.Error("failed to record history",
			"project_id", sess.ProjectID,
			"session_id", sess.ID,
			"error", err,
		)
		return res, nil
	}

	s.logger.Info("session results saved",
		"session_id", sess.ID,
		"project_id", sess.ProjectID,
		"mode", res.Mode,
		"score", res.Score,
		"total", res.Total,
	)
	return res, nil
}

func (s *StudyService) load(ctx context.Context, token string) (*practicesession.Session, error) {
	sess, err := s.sessions.GetSession(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return sess, nil
}

// ============================================================================
// Topics, mastery and stats
// ============================================================================

// TopicSummary counts a topic's cards.
type TopicSummary struct {
	Name     string `json:"name"`
	Cards    int    `json:"cards"`
	Mastered int    `json:"mastered"`
}

// Topics lists the project's topics alphabetically.
func (s *StudyService) Topics(projectID string) ([]TopicSummary, error) {
	if _, err := s.projects.GetProject(projectID); err != nil {
		return nil, err
	}

	cards := s.projects.LoadFlashcards(projectID)
	table := s.projects.LoadMastery(projectID)

	counts := make(map[string]*TopicSummary)
	for _, c := range cards {
		t, ok := counts[c.Topic]
		if !ok {
			t = &TopicSummary{Name: c.Topic}
			counts[c.Topic] = t
		}
		t.Cards++
		if table.IsMastered(c.Hash()) {
			t.Mastered++
		}
	}

	out := make([]TopicSummary, 0, len(counts))
	for _, t := range counts {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MasteredCard is a mastery record joined with its card text when known.
type MasteredCard struct {
	Hash       string    `json:"hash"`
	Topic      string    `json:"topic"`
	Filename   string    `json:"filename,omitempty"`
	Question   string    `json:"question,omitempty"`
	MasteredAt time.Time `json:"mastered_at"`
}

// Mastery lists the project's mastered cards, newest first.
func (s *StudyService) Mastery(projectID string) ([]MasteredCard, error) {
	if _, err := s.projects.GetProject(projectID); err != nil {
		return nil, err
	}

	questions := make(map[string]string)
	for _, c := range s.projects.LoadFlashcards(projectID) {
		questions[c.Hash()] = c.Question
	}

	table := s.projects.LoadMastery(projectID)
	out := make([]MasteredCard, 0, len(table))
	for hash, rec := range table {
		out = append(out, MasteredCard{
			Hash:       hash,
			Topic:      rec.Topic,
			Filename:   rec.Filename,
			Question:   questions[hash],
			MasteredAt: rec.MasteredAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MasteredAt.Equal(out[j].MasteredAt) {
			return out[i].MasteredAt.After(out[j].MasteredAt)
		}
		return out[i].Hash < out[j].Hash
	})
	return out, nil
}

// ResetTopic clears mastery for every card in the topic so they return to study pools.
func (s *StudyService) ResetTopic(projectID, topic string) (int, error) {
	if _, err := s.projects.GetProject(projectID); err != nil {
		return 0, err
	}
	removed, err := s.projects.ResetTopic(projectID, topic)
	if err != nil {
		return removed, err
	}
	s.logger.Info("mastery reset", "project_id", projectID, "topic", topic, "removed", removed)
	return removed, nil
}

// StatsView is a project's statistics with its session history.
type StatsView struct {
	project.Stats
	History []project.Entry `json:"history"`
}

func (s *StudyService) Stats(projectID string) (StatsView, error) {
	stats, err := s.projects.Stats(projectID)
	if err != nil {
		return StatsView{}, err
	}
	return StatsView{
		Stats:   stats,
		History: s.projects.LoadHistory(projectID).Entries(),
	}, nil
}
