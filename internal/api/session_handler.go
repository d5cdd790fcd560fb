package api

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/dstainton/transcript-flash-cards/internal/domain/flashcard"
	practicesession "github.com/dstainton/transcript-flash-cards/internal/domain/practice_session"
	"github.com/dstainton/transcript-flash-cards/internal/service"
)

// ── Request / Response types ────────────────────────────────────────────────

type StartSessionRequest struct {
	Mode          string   `json:"mode" example:"study" enums:"study,exam"`
	Topics        []string `json:"topics" example:"all"`
	TimePerCard   int      `json:"time_per_card,omitempty" example:"10"`    // seconds
	TotalExamTime int      `json:"total_exam_time,omitempty" example:"600"` // seconds
	MinQuestions  int      `json:"min_questions,omitempty" example:"5"`
	MaxQuestions  int      `json:"max_questions,omitempty" example:"10"`
}

func (r *StartSessionRequest) Validate() error {
	switch practicesession.Mode(r.Mode) {
	case "", practicesession.ModeStudy, practicesession.ModeExam:
	default:
		return errors.New("mode must be study or exam")
	}
	if r.TimePerCard < 0 || r.TotalExamTime < 0 || r.MinQuestions < 0 || r.MaxQuestions < 0 {
		return errors.New("timings and question counts cannot be negative")
	}
	if r.MaxQuestions > 0 && r.MinQuestions > r.MaxQuestions {
		return errors.New("min_questions cannot exceed max_questions")
	}
	return nil
}

func (r *StartSessionRequest) options() service.StartOptions {
	return service.StartOptions{
		Mode:         practicesession.Mode(r.Mode),
		Topics:       r.Topics,
		TimePerCard:  time.Duration(r.TimePerCard) * time.Second,
		ExamDuration: time.Duration(r.TotalExamTime) * time.Second,
		MinQuestions: r.MinQuestions,
		MaxQuestions: r.MaxQuestions,
	}
}

type SubmitAnswerRequest struct {
	Answer string `json:"answer" example:"B"`
}

// CardView is the card being asked; its answer is never included.
type CardView struct {
	Topic      string               `json:"topic" example:"Sprint Planning"`
	Question   string               `json:"question" example:"Who owns the product backlog?"`
	AnswerType flashcard.AnswerKind `json:"answer_type" example:"multiple_choice"`
	Options    []string             `json:"options,omitempty"`
	Streak     int                  `json:"streak" example:"1"`
	Attempts   int                  `json:"attempts" example:"2"`
}

type FeedbackView struct {
	Question      string `json:"question,omitempty"`
	Topic         string `json:"topic,omitempty"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer,omitempty"`
	Explanation   string `json:"explanation,omitempty"`
	Correct       *bool  `json:"correct,omitempty"`
	Streak        int    `json:"streak,omitempty"`
	JustMastered  bool   `json:"just_mastered,omitempty"`
	TimedOut      bool   `json:"timed_out,omitempty"`
	ExamExpired   bool   `json:"exam_expired,omitempty"`
	Finished      bool   `json:"finished"`
}

type SessionResponse struct {
	ID                  string                          `json:"id"`
	ProjectID           string                          `json:"project_id"`
	Mode                practicesession.Mode            `json:"mode"`
	Phase               practicesession.Phase           `json:"phase"`
	Topics              []string                        `json:"topics"`
	Round               int                             `json:"round"`
	CardsRemaining      int                             `json:"cards_remaining"`
	Score               int                             `json:"score"`
	TotalAttempts       int                             `json:"total_attempts"`
	MasteredThisSession int                             `json:"mastered_this_session"`
	Current             *CardView                       `json:"current,omitempty"`
	QuestionSecondsLeft int                             `json:"question_seconds_left"`
	ExamSecondsLeft     int                             `json:"exam_seconds_left,omitempty"`
	Completed           []practicesession.CompletedCard `json:"completed"`
	Feedback            *FeedbackView                   `json:"feedback,omitempty"`
}

type SubmitAnswerResponse struct {
	Feedback FeedbackView    `json:"feedback"`
	Session  SessionResponse `json:"session"`
}

type ExitSessionResponse struct {
	Result *practicesession.Result `json:"result"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// startSession begins a study or exam session in the current project.
// @Summary      Start a session
// @Description  Study sessions loop over unmastered cards until all are mastered.
// @Description  Exam sessions ask a random number of questions and score them at the end.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        body  body      StartSessionRequest  true  "Session options"
// @Success      201   {object}  SessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /session [post]
func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := browserToken(r)

	var req StartSessionRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.projects.Current(ctx, token)
	if h.handleError(w, err, "project") {
		return
	}
	sess, err := h.study.Start(ctx, token, p.ID, req.options())
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusCreated, sessionResponse(sess, nil, time.Now()))
}

// getSession returns the browser's session, applying expired exam timers.
// @Summary      Get the current session
// @Tags         Sessions
// @Produce      json
// @Success      200  {object}  SessionResponse
// @Failure      404  {object}  map[string]string
// @Router       /session [get]
func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	sess, fb, err := h.study.Current(r.Context(), browserToken(r))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse(sess, fb, time.Now()))
}

// submitAnswer grades one answer.
// @Summary      Submit an answer
// @Description  Study answers are graded immediately. Exam answers are graded when results are computed,
// @Description  except answers submitted after the question timer ran out.
// @Tags         Sessions
// @Accept       json
// @Produce      json
// @Param        body  body      SubmitAnswerRequest  true  "Answer"
// @Success      200   {object}  SubmitAnswerResponse
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /session/answer [post]
func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req SubmitAnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fb, sess, err := h.study.Submit(r.Context(), browserToken(r), req.Answer)
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, SubmitAnswerResponse{
		Feedback: feedbackView(sess.Mode, fb),
		Session:  sessionResponse(sess, nil, time.Now()),
	})
}

// sessionResults returns the finished session's results, recording them once.
// @Summary      Get session results
// @Tags         Sessions
// @Produce      json
// @Success      200  {object}  practicesession.Result
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /session/results [get]
func (h *Handler) sessionResults(w http.ResponseWriter, r *http.Request) {
	res, err := h.study.Results(r.Context(), browserToken(r))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// exitSession ends the session early.
// @Summary      Exit the session
// @Description  A session with answers is scored and recorded; an unanswered one is discarded and result is null.
// @Tags         Sessions
// @Produce      json
// @Success      200  {object}  ExitSessionResponse
// @Failure      404  {object}  map[string]string
// @Router       /session/exit [post]
func (h *Handler) exitSession(w http.ResponseWriter, r *http.Request) {
	res, err := h.study.Exit(r.Context(), browserToken(r))
	if h.handleError(w, err, "session") {
		return
	}
	respondJSON(w, http.StatusOK, ExitSessionResponse{Result: res})
}

// ── Views ───────────────────────────────────────────────────────────────────

func sessionResponse(sess *practicesession.Session, fb *practicesession.Feedback, now time.Time) SessionResponse {
	resp := SessionResponse{
		ID:                  sess.ID,
		ProjectID:           sess.ProjectID,
		Mode:                sess.Mode,
		Phase:               sess.Phase,
		Topics:              sess.Topics,
		Round:               sess.Round,
		CardsRemaining:      len(sess.Pool) - sess.Position,
		Score:               sess.Score,
		TotalAttempts:       sess.TotalAttempts,
		MasteredThisSession: sess.MasteredThisSession,
		Completed:           completedView(sess),
	}
	if sess.Mode == practicesession.ModeStudy {
		resp.CardsRemaining = len(sess.Pool)
	}
	if resp.CardsRemaining < 0 {
		resp.CardsRemaining = 0
	}

	if card, ok := sess.Current(); ok {
		resp.Current = &CardView{
			Topic:      card.Topic,
			Question:   card.Question,
			AnswerType: card.AnswerType,
			Options:    card.Options,
			Streak:     sess.Streaks[card.Hash()],
			Attempts:   card.Attempts,
		}
		resp.QuestionSecondsLeft = seconds(sess.QuestionRemaining(now))
	}
	if sess.Mode == practicesession.ModeExam {
		resp.ExamSecondsLeft = seconds(sess.ExamRemaining(now))
	}
	if fb != nil {
		v := feedbackView(sess.Mode, *fb)
		resp.Feedback = &v
	}
	return resp
}

// completedView hides the correct answers of exam questions that have not been graded yet.
func completedView(sess *practicesession.Session) []practicesession.CompletedCard {
	if sess.Mode != practicesession.ModeExam || sess.Phase == practicesession.PhaseResultsSaved {
		return sess.Completed
	}
	out := make([]practicesession.CompletedCard, len(sess.Completed))
	for i, c := range sess.Completed {
		if c.Correct == nil {
			c.CorrectAnswer = ""
		}
		out[i] = c
	}
	return out
}

func feedbackView(mode practicesession.Mode, fb practicesession.Feedback) FeedbackView {
	v := FeedbackView{
		Question:     fb.Card.Question,
		Topic:        fb.Card.Topic,
		UserAnswer:   fb.UserAnswer,
		Correct:      fb.Correct,
		Streak:       fb.Streak,
		JustMastered: fb.JustMastered,
		TimedOut:     fb.TimedOut,
		ExamExpired:  fb.ExamExpired,
		Finished:     fb.Finished,
	}
	if mode == practicesession.ModeStudy || fb.Correct != nil {
		v.CorrectAnswer = fb.Card.Answer
		v.Explanation = fb.Card.Explanation
	}
	return v
}

func seconds(d time.Duration) int {
	return int(math.Ceil(d.Seconds()))
}
