package practicesession

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/dstainton/transcript-flash-cards/internal/domain/flashcard"
	"github.com/dstainton/transcript-flash-cards/internal/domain/mastery"
	"github.com/dstainton/transcript-flash-cards/internal/grader"
	"github.com/dstainton/transcript-flash-cards/internal/id"
)

// Phase is the lifecycle state of a session.
type Phase string

const (
	PhaseActive         Phase = "active"
	PhaseResultsPending Phase = "results_pending"
	PhaseResultsSaved   Phase = "results_saved"
)

var (
	ErrEmptyPool   = errors.New("no flashcards available for the selected topics")
	ErrEmptyAnswer = errors.New("please provide an answer")
	ErrNotActive   = errors.New("session is not active")
)

// AnswerLogEntry is one exam answer, graded only when results are computed.
type AnswerLogEntry struct {
	Question      string `json:"question"`
	Topic         string `json:"topic"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	TimedOut      bool   `json:"timed_out,omitempty"`
}

// CompletedCard is the display log of answered cards.
type CompletedCard struct {
	Question      string `json:"question"`
	Topic         string `json:"topic"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Correct       *bool  `json:"correct,omitempty"` // nil for exam answers until results
	Streak        int    `json:"streak,omitempty"`
	Mastered      bool   `json:"mastered,omitempty"`
}

// GradedAnswer is an exam answer after scoring.
type GradedAnswer struct {
	Question      string `json:"question"`
	Topic         string `json:"topic"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Correct       bool   `json:"correct"`
}

// Result is the final outcome of a session, computed once.
type Result struct {
	Mode          Mode           `json:"mode"`
	Score         int            `json:"score"`
	Total         int            `json:"total"`
	Percentage    float64        `json:"percentage"`
	Topics        []string       `json:"topics"`
	CardsMastered int            `json:"cards_mastered,omitempty"`
	Answers       []GradedAnswer `json:"answers,omitempty"`
	CompletedAt   time.Time      `json:"completed_at"`
}

// Feedback describes the outcome of one submission.
type Feedback struct {
	Card         flashcard.Flashcard `json:"card"`
	UserAnswer   string              `json:"user_answer"`
	Correct      *bool               `json:"correct,omitempty"` // withheld for regular exam answers
	Streak       int                 `json:"streak,omitempty"`
	JustMastered bool                `json:"just_mastered,omitempty"`
	TimedOut     bool                `json:"timed_out,omitempty"`
	ExamExpired  bool                `json:"exam_expired,omitempty"`
	Finished     bool                `json:"finished"`

	// PersistErr is set when a mastery promotion could not be written.
	PersistErr error `json:"-"`
}

// Session is a single user's pass through a pool of cards.
// It is a plain value so it can be serialized between requests.
type Session struct {
	ID        string   `json:"id"`
	ProjectID string   `json:"project_id"`
	Mode      Mode     `json:"mode"`
	Phase     Phase    `json:"phase"`
	Topics    []string `json:"topics"`

	// Pool is the working copy of cards. Study mode removes mastered cards;
	// in exam mode it is the fixed question list.
	Pool     []flashcard.Flashcard `json:"pool"`
	Position int                   `json:"position"`
	Round    int                   `json:"round"`

	Score               int              `json:"score"`
	TotalAttempts       int              `json:"total_attempts"`
	MasteredThisSession int              `json:"mastered_this_session"`
	Streaks             mastery.Streaks  `json:"streaks"`
	Completed           []CompletedCard  `json:"completed"`
	Answers             []AnswerLogEntry `json:"answers,omitempty"`

	TimePerCard       time.Duration `json:"time_per_card"`
	ExamDuration      time.Duration `json:"exam_duration"`
	StartedAt         time.Time     `json:"started_at"`
	QuestionStartedAt time.Time     `json:"question_started_at"`

	Result *Result `json:"result,omitempty"`
}

// Start builds a session from a project's cards and mastery table.
func Start(projectID string, cards []flashcard.Flashcard, mastered mastery.Table, config SessionConfig, now time.Time) (*Session, error) {
	mode := config.Mode
	if mode != ModeExam {
		mode = ModeStudy
	}

	pool := filterCards(cards, config, mode, mastered)
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}
	pool = shuffleCards(pool)

	if mode == ModeExam {
		lo, hi := config.questionRange(len(pool))
		n := lo + rand.Intn(hi-lo+1)
		pool = pool[:n]
	}

	topics := config.Topics
	if config.allTopics() {
		topics = []string{AllTopics}
	}

	return &Session{
		ID:                id.GenerateID(),
		ProjectID:         projectID,
		Mode:              mode,
		Phase:             PhaseActive,
		Topics:            append([]string(nil), topics...),
		Pool:              pool,
		Streaks:           make(mastery.Streaks),
		Completed:         []CompletedCard{},
		TimePerCard:       config.TimePerCard,
		ExamDuration:      config.ExamDuration,
		StartedAt:         now,
		QuestionStartedAt: now,
	}, nil
}

func filterCards(cards []flashcard.Flashcard, config SessionConfig, mode Mode, mastered mastery.Table) []flashcard.Flashcard {
	wanted := make(map[string]bool, len(config.Topics))
	for _, t := range config.Topics {
		wanted[t] = true
	}
	all := config.allTopics()

	var pool []flashcard.Flashcard
	for _, c := range cards {
		if !all && !wanted[c.Topic] {
			continue
		}
		if mode == ModeStudy && mastered.IsMastered(c.Hash()) {
			continue
		}
		pool = append(pool, c)
	}
	return pool
}

// shuffleCards returns a new slice with cards in random order.
func shuffleCards(cards []flashcard.Flashcard) []flashcard.Flashcard {
	shuffled := make([]flashcard.Flashcard, len(cards))
	copy(shuffled, cards)

	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	return shuffled
}

// Tracker returns a mastery tracker bound to this session's streaks.
func (s *Session) Tracker(table mastery.Table, recorder mastery.Recorder) *mastery.Tracker {
	if s.Streaks == nil {
		s.Streaks = make(mastery.Streaks)
	}
	return mastery.NewTracker(s.Streaks, table, recorder)
}

// Current returns the card being presented, if any.
func (s *Session) Current() (flashcard.Flashcard, bool) {
	if s.Phase != PhaseActive || s.Position >= len(s.Pool) {
		return flashcard.Flashcard{}, false
	}
	return s.Pool[s.Position], true
}

// HasAnswers reports whether at least one card was answered.
func (s *Session) HasAnswers() bool {
	return s.TotalAttempts > 0
}

// Saved reports whether results have been recorded.
func (s *Session) Saved() bool {
	return s.Phase == PhaseResultsSaved
}

// Submit applies one answer to the current card.
// In study mode the tracker must wrap this session's streaks (see Tracker).
func (s *Session) Submit(ctx context.Context, answer string, g grader.Grader, tracker *mastery.Tracker, now time.Time) (Feedback, error) {
	if s.Phase != PhaseActive {
		return Feedback{}, ErrNotActive
	}
	if s.Mode == ModeExam {
		return s.submitExam(answer, g, now)
	}
	return s.submitStudy(ctx, answer, g, tracker, now)
}

func (s *Session) submitStudy(ctx context.Context, answer string, g grader.Grader, tracker *mastery.Tracker, now time.Time) (Feedback, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Feedback{}, ErrEmptyAnswer
	}
	if s.Position >= len(s.Pool) {
		s.Phase = PhaseResultsPending
		return Feedback{Finished: true}, ErrNotActive
	}

	card := s.Pool[s.Position]
	correct := g.Grade(card.Question, answer, card.Answer)
	if correct {
		s.Score++
	}

	streak, justMastered, persistErr := tracker.RecordAttempt(ctx, card.Hash(), card.Topic, card.Filename, correct)

	s.Pool[s.Position].Attempts++
	card.Attempts++
	s.TotalAttempts++
	s.Completed = append(s.Completed, CompletedCard{
		Question:      card.Question,
		Topic:         card.Topic,
		UserAnswer:    answer,
		CorrectAnswer: card.Answer,
		Correct:       &correct,
		Streak:        streak,
		Mastered:      justMastered,
	})

	if justMastered {
		s.Pool = append(s.Pool[:s.Position], s.Pool[s.Position+1:]...)
		s.MasteredThisSession++
	} else {
		s.Position++
	}

	switch {
	case len(s.Pool) == 0:
		s.Phase = PhaseResultsPending
	case s.Position >= len(s.Pool):
		// Cards left that are not yet mastered: start another round.
		s.Position = 0
		s.Round++
	}
	s.QuestionStartedAt = now

	return Feedback{
		Card:         card,
		UserAnswer:   answer,
		Correct:      &correct,
		Streak:       streak,
		JustMastered: justMastered,
		Finished:     s.Phase != PhaseActive,
		PersistErr:   persistErr,
	}, nil
}

func (s *Session) submitExam(answer string, g grader.Grader, now time.Time) (Feedback, error) {
	if s.examExpired(now) {
		s.Phase = PhaseResultsPending
		return Feedback{ExamExpired: true, Finished: true}, nil
	}

	timedOut := s.questionExpired(now)
	answer = strings.TrimSpace(answer)
	if answer == "" && !timedOut {
		return Feedback{}, ErrEmptyAnswer
	}
	return s.recordExamAnswer(answer, timedOut, g, now), nil
}

func (s *Session) recordExamAnswer(answer string, timedOut bool, g grader.Grader, now time.Time) Feedback {
	card := s.Pool[s.Position]
	s.Pool[s.Position].Attempts++
	card.Attempts++
	s.TotalAttempts++

	s.Answers = append(s.Answers, AnswerLogEntry{
		Question:      card.Question,
		Topic:         card.Topic,
		UserAnswer:    answer,
		CorrectAnswer: card.Answer,
		TimedOut:      timedOut,
	})

	fb := Feedback{Card: card, UserAnswer: answer, TimedOut: timedOut}
	completed := CompletedCard{
		Question:      card.Question,
		Topic:         card.Topic,
		UserAnswer:    answer,
		CorrectAnswer: card.Answer,
	}
	// A timeout forces immediate feedback; otherwise scoring waits for results.
	if timedOut {
		correct := g.Grade(card.Question, answer, card.Answer)
		fb.Correct = &correct
		completed.Correct = &correct
	}
	s.Completed = append(s.Completed, completed)

	s.Position++
	s.QuestionStartedAt = now
	if s.Position >= len(s.Pool) {
		s.Phase = PhaseResultsPending
	}
	fb.Finished = s.Phase != PhaseActive
	return fb
}

// CheckDeadlines evaluates exam timers lazily. It returns feedback for an
// auto-submitted question, or nil when nothing expired.
func (s *Session) CheckDeadlines(g grader.Grader, now time.Time) *Feedback {
	if s.Mode != ModeExam || s.Phase != PhaseActive {
		return nil
	}
	if s.examExpired(now) {
		s.Phase = PhaseResultsPending
		return &Feedback{ExamExpired: true, Finished: true}
	}
	if s.questionExpired(now) {
		fb := s.recordExamAnswer("", true, g, now)
		return &fb
	}
	return nil
}

// ExamRemaining returns the time left before the exam deadline.
func (s *Session) ExamRemaining(now time.Time) time.Duration {
	if s.Mode != ModeExam || s.ExamDuration <= 0 {
		return 0
	}
	if left := s.ExamDuration - now.Sub(s.StartedAt); left > 0 {
		return left
	}
	return 0
}

// QuestionRemaining returns the time left on the current card.
func (s *Session) QuestionRemaining(now time.Time) time.Duration {
	if s.TimePerCard <= 0 {
		return 0
	}
	if left := s.TimePerCard - now.Sub(s.QuestionStartedAt); left > 0 {
		return left
	}
	return 0
}

func (s *Session) examExpired(now time.Time) bool {
	return s.ExamDuration > 0 && now.Sub(s.StartedAt) >= s.ExamDuration
}

func (s *Session) questionExpired(now time.Time) bool {
	return s.TimePerCard > 0 && now.Sub(s.QuestionStartedAt) >= s.TimePerCard
}

// Exit ends an active session early.
func (s *Session) Exit() {
	if s.Phase == PhaseActive {
		s.Phase = PhaseResultsPending
	}
}

// Finalize computes the session's result. An active session is exited
// first. The first call moves the session to PhaseResultsSaved and returns
// first=true; later calls return the same result with first=false so
// callers record history exactly once.
func (s *Session) Finalize(g grader.Grader, now time.Time) (result Result, first bool) {
	if s.Phase == PhaseResultsSaved && s.Result != nil {
		return *s.Result, false
	}
	s.Exit()

	res := Result{
		Mode:        s.Mode,
		Topics:      append([]string(nil), s.Topics...),
		CompletedAt: now,
	}
	if s.Mode == ModeExam {
		res.Score, res.Answers = ScoreAnswers(s.Answers, g)
		res.Total = len(s.Answers)
	} else {
		res.Score = s.Score
		res.Total = s.TotalAttempts
		res.CardsMastered = s.MasteredThisSession
	}
	res.Percentage = Percentage(res.Score, res.Total)

	s.Result = &res
	s.Phase = PhaseResultsSaved
	return res, true
}

// ScoreAnswers grades every logged exam answer.
func ScoreAnswers(log []AnswerLogEntry, g grader.Grader) (int, []GradedAnswer) {
	score := 0
	graded := make([]GradedAnswer, 0, len(log))
	for _, a := range log {
		correct := g.Grade(a.Question, a.UserAnswer, a.CorrectAnswer)
		if correct {
			score++
		}
		graded = append(graded, GradedAnswer{
			Question:      a.Question,
			Topic:         a.Topic,
			UserAnswer:    a.UserAnswer,
			CorrectAnswer: a.CorrectAnswer,
			Correct:       correct,
		})
	}
	return score, graded
}

// Percentage returns score/total as a percentage, or 0 when total is 0.
func Percentage(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(score) / float64(total) * 100
}
