package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dstainton/transcript-flash-cards/internal/service"
)

// ── Request / Response types ────────────────────────────────────────────────

type ResetMasteryRequest struct {
	Topic string `json:"topic" example:"Sprint Planning"`
}

func (r *ResetMasteryRequest) Validate() error {
	if strings.TrimSpace(r.Topic) == "" {
		return errors.New("topic is required")
	}
	return nil
}

type ResetMasteryResponse struct {
	Topic   string `json:"topic" example:"Sprint Planning"`
	Removed int    `json:"removed" example:"4"`
}

type TopicsResponse struct {
	ProjectID string                 `json:"project_id"`
	Topics    []service.TopicSummary `json:"topics"`
}

type MasteryResponse struct {
	ProjectID string                 `json:"project_id"`
	Cards     []service.MasteredCard `json:"cards"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// listTopics lists the current project's topics.
// @Summary      List topics
// @Tags         Study
// @Produce      json
// @Success      200  {object}  TopicsResponse
// @Router       /topics [get]
func (h *Handler) listTopics(w http.ResponseWriter, r *http.Request) {
	h.finalizePending(r)

	p, err := h.projects.Current(r.Context(), browserToken(r))
	if h.handleError(w, err, "project") {
		return
	}
	topics, err := h.study.Topics(p.ID)
	if h.handleError(w, err, "project") {
		return
	}
	respondJSON(w, http.StatusOK, TopicsResponse{ProjectID: p.ID, Topics: topics})
}

// getStats returns the current project's statistics and session history.
// @Summary      Get statistics
// @Tags         Study
// @Produce      json
// @Success      200  {object}  service.StatsView
// @Router       /stats [get]
func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	h.finalizePending(r)

	p, err := h.projects.Current(r.Context(), browserToken(r))
	if h.handleError(w, err, "project") {
		return
	}
	stats, err := h.study.Stats(p.ID)
	if h.handleError(w, err, "project") {
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// listMastery lists the current project's mastered cards.
// @Summary      List mastered cards
// @Tags         Study
// @Produce      json
// @Success      200  {object}  MasteryResponse
// @Router       /mastery [get]
func (h *Handler) listMastery(w http.ResponseWriter, r *http.Request) {
	h.finalizePending(r)

	p, err := h.projects.Current(r.Context(), browserToken(r))
	if h.handleError(w, err, "project") {
		return
	}
	cards, err := h.study.Mastery(p.ID)
	if h.handleError(w, err, "project") {
		return
	}
	respondJSON(w, http.StatusOK, MasteryResponse{ProjectID: p.ID, Cards: cards})
}

// resetMastery returns a topic's mastered cards to study.
// @Summary      Reset topic mastery
// @Tags         Study
// @Accept       json
// @Produce      json
// @Param        body  body      ResetMasteryRequest  true  "Topic to reset"
// @Success      200   {object}  ResetMasteryResponse
// @Failure      400   {object}  map[string]string
// @Router       /mastery/reset [post]
func (h *Handler) resetMastery(w http.ResponseWriter, r *http.Request) {
	var req ResetMasteryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	p, err := h.projects.Current(r.Context(), browserToken(r))
	if h.handleError(w, err, "project") {
		return
	}
	removed, err := h.study.ResetTopic(p.ID, req.Topic)
	if h.handleError(w, err, "project") {
		return
	}
	respondJSON(w, http.StatusOK, ResetMasteryResponse{Topic: req.Topic, Removed: removed})
}
