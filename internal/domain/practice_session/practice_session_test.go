package practicesession_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dstainton/transcript-flash-cards/internal/domain/flashcard"
	"github.com/dstainton/transcript-flash-cards/internal/domain/mastery"
	practicesession "github.com/dstainton/transcript-flash-cards/internal/domain/practice_session"
	"github.com/dstainton/transcript-flash-cards/internal/grader"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func trueFalseCards(topic string, n int) []flashcard.Flashcard {
	cards := make([]flashcard.Flashcard, n)
	for i := range cards {
		cards[i] = flashcard.Flashcard{
			Topic:      topic,
			Question:   fmt.Sprintf("%s question %d", topic, i),
			Answer:     "True",
			AnswerType: flashcard.KindTrueFalse,
		}
	}
	return cards
}

func studyConfig(topics ...string) practicesession.SessionConfig {
	cfg := practicesession.DefaultConfig()
	cfg.Topics = topics
	return cfg
}

func examConfig(lo, hi int, topics ...string) practicesession.SessionConfig {
	cfg := practicesession.DefaultConfig()
	cfg.Mode = practicesession.ModeExam
	cfg.Topics = topics
	cfg.MinQuestions = lo
	cfg.MaxQuestions = hi
	cfg.TimePerCard = time.Minute
	cfg.ExamDuration = time.Hour
	return cfg
}

func TestStart_FiltersTopics(t *testing.T) {
	cards := append(trueFalseCards("T1", 3), trueFalseCards("T2", 4)...)

	s, err := practicesession.Start("p", cards, nil, studyConfig("T2"), t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Pool) != 4 {
		t.Fatalf("expected 4 cards, got %d", len(s.Pool))
	}
	for _, c := range s.Pool {
		if c.Topic != "T2" {
			t.Errorf("expected only T2 cards, got %q", c.Topic)
		}
	}
}

func TestStart_AllTopicsSentinel(t *testing.T) {
	cards := append(trueFalseCards("T1", 3), trueFalseCards("T2", 4)...)

	for _, topics := range [][]string{nil, {practicesession.AllTopics}, {"T1", practicesession.AllTopics}} {
		s, err := practicesession.Start("p", cards, nil, studyConfig(topics...), t0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(s.Pool) != 7 {
			t.Errorf("topics %v: expected 7 cards, got %d", topics, len(s.Pool))
		}
	}
}

func TestStart_StudyExcludesMastered(t *testing.T) {
	cards := trueFalseCards("T1", 3)
	mastered := mastery.Table{cards[0].Hash(): {Topic: "T1"}}

	s, err := practicesession.Start("p", cards, mastered, studyConfig("T1"), t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Pool) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(s.Pool))
	}
	for _, c := range s.Pool {
		if c.Hash() == cards[0].Hash() {
			t.Error("expected mastered card to be excluded")
		}
	}
}

func TestStart_ExamKeepsMastered(t *testing.T) {
	cards := trueFalseCards("T1", 2)
	mastered := mastery.Table{cards[0].Hash(): {Topic: "T1"}, cards[1].Hash(): {Topic: "T1"}}

	s, err := practicesession.Start("p", cards, mastered, examConfig(2, 2, "T1"), t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Pool) != 2 {
		t.Errorf("expected mastered cards to stay in the exam pool, got %d", len(s.Pool))
	}
}

func TestStart_EmptyPool(t *testing.T) {
	cards := trueFalseCards("T1", 2)

	if _, err := practicesession.Start("p", cards, nil, studyConfig("nope"), t0); !errors.Is(err, practicesession.ErrEmptyPool) {
		t.Errorf("expected ErrEmptyPool, got %v", err)
	}

	all := mastery.Table{cards[0].Hash(): {}, cards[1].Hash(): {}}
	if _, err := practicesession.Start("p", cards, all, studyConfig("T1"), t0); !errors.Is(err, practicesession.ErrEmptyPool) {
		t.Errorf("expected ErrEmptyPool after mastery exclusion, got %v", err)
	}
}

func TestStart_RandomizesPool(t *testing.T) {
	cards := trueFalseCards("T1", 20)
	first, _ := practicesession.Start("p", cards, nil, studyConfig(), t0)

	for i := 0; i < 10; i++ {
		s, _ := practicesession.Start("p", cards, nil, studyConfig(), t0)
		if !sameOrder(first.Pool, s.Pool) {
			return
		}
	}
	t.Error("expected pool order to be randomized across sessions")
}

func TestStart_ExamQuestionCountWithinRange(t *testing.T) {
	cards := trueFalseCards("T1", 30)

	for i := 0; i < 50; i++ {
		s, err := practicesession.Start("p", cards, nil, examConfig(5, 10), t0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n := len(s.Pool); n < 5 || n > 10 {
			t.Fatalf("expected between 5 and 10 questions, got %d", n)
		}
	}
}

func TestStart_ExamRangeCappedByPool(t *testing.T) {
	cards := trueFalseCards("T1", 3)

	s, err := practicesession.Start("p", cards, nil, examConfig(5, 10), t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s.Pool) != 3 {
		t.Errorf("expected all 3 available questions, got %d", len(s.Pool))
	}
}

func TestStudy_EmptyAnswerDoesNotAdvance(t *testing.T) {
	s, _ := practicesession.Start("p", trueFalseCards("T1", 2), nil, studyConfig(), t0)
	before := s.Position

	_, err := s.Submit(context.Background(), "  ", grader.Equivalence{}, s.Tracker(nil, nil), t0)
	if !errors.Is(err, practicesession.ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
	if s.Position != before || s.TotalAttempts != 0 {
		t.Error("expected state unchanged after validation error")
	}
}

func TestStudy_SingleCardMasteredAfterThreeCorrect(t *testing.T) {
	ctx := context.Background()
	s, err := practicesession.Start("p", trueFalseCards("T1", 1), nil, studyConfig("T1"), t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	table := make(mastery.Table)
	tracker := s.Tracker(table, nil)

	for i := 1; i <= 2; i++ {
		fb, err := s.Submit(ctx, "true", grader.Equivalence{}, tracker, t0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fb.JustMastered || fb.Finished {
			t.Fatalf("submission %d: expected card still in play", i)
		}
		if s.Position > len(s.Pool) {
			t.Fatalf("position %d beyond pool %d", s.Position, len(s.Pool))
		}
	}

	fb, err := s.Submit(ctx, "true", grader.Equivalence{}, tracker, t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fb.JustMastered || !fb.Finished {
		t.Fatalf("expected third submission to master and finish, got %+v", fb)
	}
	if len(s.Pool) != 0 || s.Phase != practicesession.PhaseResultsPending {
		t.Fatalf("expected empty pool and results pending, got %d cards phase %s", len(s.Pool), s.Phase)
	}
	if s.MasteredThisSession != 1 {
		t.Errorf("expected 1 mastered this session, got %d", s.MasteredThisSession)
	}

	res, first := s.Finalize(grader.Equivalence{}, t0)
	if !first {
		t.Fatal("expected first finalize to report first=true")
	}
	if res.Score != 3 || res.Total != 3 || res.Percentage != 100.0 {
		t.Errorf("expected 3/3 100%%, got %d/%d %.1f", res.Score, res.Total, res.Percentage)
	}
	if res.CardsMastered != 1 {
		t.Errorf("expected cards_mastered 1, got %d", res.CardsMastered)
	}

	if _, err := practicesession.Start("p", trueFalseCards("T1", 1), table, studyConfig("T1"), t0); !errors.Is(err, practicesession.ErrEmptyPool) {
		t.Errorf("expected next study session to find an empty pool, got %v", err)
	}
}

func TestStudy_WrongAnswerAdvancesAndKeepsCard(t *testing.T) {
	ctx := context.Background()
	s, _ := practicesession.Start("p", trueFalseCards("T1", 3), nil, studyConfig(), t0)
	tracker := s.Tracker(nil, nil)

	fb, err := s.Submit(ctx, "false", grader.Equivalence{}, tracker, t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fb.Correct == nil || *fb.Correct {
		t.Fatal("expected immediate incorrect feedback in study mode")
	}
	if s.Position != 1 || len(s.Pool) != 3 {
		t.Errorf("expected position 1 with 3 cards, got %d with %d", s.Position, len(s.Pool))
	}
	if s.Score != 0 || s.TotalAttempts != 1 {
		t.Errorf("expected score 0 attempts 1, got %d %d", s.Score, s.TotalAttempts)
	}
	if s.Pool[0].Attempts != 1 {
		t.Errorf("expected working-copy attempts incremented, got %d", s.Pool[0].Attempts)
	}
}

func TestStudy_PositionNeverExceedsPool(t *testing.T) {
	ctx := context.Background()
	s, _ := practicesession.Start("p", trueFalseCards("T1", 4), nil, studyConfig(), t0)
	tracker := s.Tracker(nil, nil)

	answers := []string{"true", "false", "true", "true", "true", "false", "true", "true", "true", "true", "true", "true", "true", "true"}
	for _, a := range answers {
		if s.Phase != practicesession.PhaseActive {
			break
		}
		if _, err := s.Submit(ctx, a, grader.Equivalence{}, tracker, t0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.Position > len(s.Pool) {
			t.Fatalf("position %d beyond pool %d", s.Position, len(s.Pool))
		}
	}
}

func TestExam_DefersScoringAndAlwaysAdvances(t *testing.T) {
	ctx := context.Background()
	s, err := practicesession.Start("p", trueFalseCards("T1", 2), nil, examConfig(2, 2, "T1"), t0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fb, err := s.Submit(ctx, "false", grader.Equivalence{}, nil, t0.Add(time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fb.Correct != nil {
		t.Error("expected exam feedback to withhold correctness")
	}
	if s.Position != 1 {
		t.Errorf("expected position 1, got %d", s.Position)
	}

	fb, err = s.Submit(ctx, "true", grader.Equivalence{}, nil, t0.Add(2*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fb.Finished || s.Phase != practicesession.PhaseResultsPending {
		t.Fatal("expected exam to finish after the last question")
	}

	res, first := s.Finalize(grader.Equivalence{}, t0.Add(3*time.Second))
	if !first {
		t.Fatal("expected first finalize")
	}
	if res.Score != 1 || res.Total != 2 || res.Percentage != 50.0 {
		t.Errorf("expected 1/2 50%%, got %d/%d %.1f", res.Score, res.Total, res.Percentage)
	}
	if len(res.Topics) != 1 || res.Topics[0] != "T1" {
		t.Errorf("expected topics [T1], got %v", res.Topics)
	}
}

func TestExam_EmptyAnswerRejectedBeforeTimeout(t *testing.T) {
	s, _ := practicesession.Start("p", trueFalseCards("T1", 2), nil, examConfig(2, 2), t0)

	_, err := s.Submit(context.Background(), "", grader.Equivalence{}, nil, t0.Add(time.Second))
	if !errors.Is(err, practicesession.ErrEmptyAnswer) {
		t.Fatalf("expected ErrEmptyAnswer, got %v", err)
	}
	if len(s.Answers) != 0 {
		t.Error("expected no answer logged")
	}
}

func TestExam_QuestionTimeoutAutoSubmits(t *testing.T) {
	s, _ := practicesession.Start("p", trueFalseCards("T1", 3), nil, examConfig(3, 3), t0)

	late := t0.Add(2 * time.Minute)
	fb, err := s.Submit(context.Background(), "", grader.Equivalence{}, nil, late)
	if err != nil {
		t.Fatalf("expected empty answer accepted on timeout, got %v", err)
	}
	if !fb.TimedOut || fb.Correct == nil || *fb.Correct {
		t.Fatalf("expected timed-out incorrect feedback, got %+v", fb)
	}
	if len(s.Answers) != 1 || !s.Answers[0].TimedOut {
		t.Fatal("expected timed-out answer in the log")
	}
	if s.Position != 1 || !s.QuestionStartedAt.Equal(late) {
		t.Error("expected advance and per-question clock reset")
	}
}

func TestExam_TimeoutScoresPendingAnswerImmediately(t *testing.T) {
	s, _ := practicesession.Start("p", trueFalseCards("T1", 2), nil, examConfig(2, 2), t0)

	fb, _ := s.Submit(context.Background(), "yes", grader.Equivalence{}, nil, t0.Add(time.Minute))
	if !fb.TimedOut || fb.Correct == nil || !*fb.Correct {
		t.Errorf("expected pending answer scored correct on timeout, got %+v", fb)
	}
}

func TestExam_GlobalDeadlineDiscardsAnswer(t *testing.T) {
	s, _ := practicesession.Start("p", trueFalseCards("T1", 3), nil, examConfig(3, 3), t0)

	fb, err := s.Submit(context.Background(), "true", grader.Equivalence{}, nil, t0.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fb.ExamExpired || s.Phase != practicesession.PhaseResultsPending {
		t.Fatal("expected exam expiry to force results pending")
	}
	if len(s.Answers) != 0 {
		t.Error("expected the unsubmitted answer to be discarded")
	}
}

func TestCheckDeadlines(t *testing.T) {
	s, _ := practicesession.Start("p", trueFalseCards("T1", 3), nil, examConfig(3, 3), t0)

	if fb := s.CheckDeadlines(grader.Equivalence{}, t0.Add(10*time.Second)); fb != nil {
		t.Fatalf("expected nothing expired, got %+v", fb)
	}

	fb := s.CheckDeadlines(grader.Equivalence{}, t0.Add(61*time.Second))
	if fb == nil || !fb.TimedOut {
		t.Fatal("expected question timeout")
	}
	if len(s.Answers) != 1 || s.Answers[0].UserAnswer != "" {
		t.Error("expected empty answer logged on timeout")
	}

	fb = s.CheckDeadlines(grader.Equivalence{}, t0.Add(2*time.Hour))
	if fb == nil || !fb.ExamExpired {
		t.Fatal("expected exam expiry")
	}
}

func TestCheckDeadlines_IgnoresStudyMode(t *testing.T) {
	s, _ := practicesession.Start("p", trueFalseCards("T1", 2), nil, studyConfig(), t0)

	if fb := s.CheckDeadlines(grader.Equivalence{}, t0.Add(24*time.Hour)); fb != nil {
		t.Error("expected study mode timers to be display hints only")
	}
}

func TestFinalize_Idempotent(t *testing.T) {
	s, _ := practicesession.Start("p", trueFalseCards("T1", 2), nil, studyConfig(), t0)
	s.Submit(context.Background(), "true", grader.Equivalence{}, s.Tracker(nil, nil), t0)
	s.Exit()

	res1, first := s.Finalize(grader.Equivalence{}, t0)
	res2, again := s.Finalize(grader.Equivalence{}, t0.Add(time.Hour))

	if !first || again {
		t.Fatalf("expected first=true then false, got %v %v", first, again)
	}
	if res1.Score != res2.Score || !res1.CompletedAt.Equal(res2.CompletedAt) {
		t.Error("expected the same result on repeated finalize")
	}
	if !s.Saved() {
		t.Error("expected session to be saved")
	}
}

func TestFinalize_ActiveSessionExitsFirst(t *testing.T) {
	s, _ := practicesession.Start("p", trueFalseCards("T1", 2), nil, studyConfig(), t0)
	s.Submit(context.Background(), "true", grader.Equivalence{}, s.Tracker(nil, nil), t0)
	if s.Phase != practicesession.PhaseActive {
		t.Fatalf("expected active session, got %s", s.Phase)
	}

	res, first := s.Finalize(grader.Equivalence{}, t0)
	if !first || !s.Saved() {
		t.Fatalf("expected first save, got first=%v phase=%s", first, s.Phase)
	}
	if res.Score != 1 || res.Total != 1 {
		t.Errorf("expected 1/1, got %d/%d", res.Score, res.Total)
	}
	if _, err := s.Submit(context.Background(), "true", grader.Equivalence{}, s.Tracker(nil, nil), t0); !errors.Is(err, practicesession.ErrNotActive) {
		t.Errorf("expected ErrNotActive after finalize, got %v", err)
	}
	if _, again := s.Finalize(grader.Equivalence{}, t0.Add(time.Minute)); again {
		t.Error("expected second finalize to report first=false")
	}
}

func TestExamScoreIsFoldOverLog(t *testing.T) {
	log := []practicesession.AnswerLogEntry{
		{Question: "a", UserAnswer: "t", CorrectAnswer: "True"},
		{Question: "b", UserAnswer: "C,A", CorrectAnswer: "A,C"},
		{Question: "c", UserAnswer: "", CorrectAnswer: "No", TimedOut: true},
		{Question: "d", UserAnswer: "B", CorrectAnswer: "D"},
	}

	want := 0
	for _, a := range log {
		if grader.Check(a.UserAnswer, a.CorrectAnswer) {
			want++
		}
	}

	got, graded := practicesession.ScoreAnswers(log, grader.Equivalence{})
	if got != want || got != 2 {
		t.Errorf("expected score %d, got %d", want, got)
	}
	if len(graded) != len(log) {
		t.Errorf("expected %d graded answers, got %d", len(log), len(graded))
	}
}

func TestRemainingTime(t *testing.T) {
	s, _ := practicesession.Start("p", trueFalseCards("T1", 2), nil, examConfig(2, 2), t0)

	if got := s.ExamRemaining(t0.Add(15 * time.Minute)); got != 45*time.Minute {
		t.Errorf("expected 45m remaining, got %v", got)
	}
	if got := s.QuestionRemaining(t0.Add(90 * time.Second)); got != 0 {
		t.Errorf("expected 0 remaining after deadline, got %v", got)
	}
}

func sameOrder(a, b []flashcard.Flashcard) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Question != b[i].Question {
			return false
		}
	}
	return true
}
