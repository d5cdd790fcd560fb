// internal/api/router.go
package api

import "net/http"

// RegisterRoutes wires all API routes onto the given mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /health", h.health)

	// Projects
	mux.HandleFunc("GET /projects", h.listProjects)
	mux.HandleFunc("POST /projects", h.createProject)
	mux.HandleFunc("GET /projects/current", h.currentProject)
	mux.HandleFunc("GET /projects/{projectID}", h.getProject)
	mux.HandleFunc("DELETE /projects/{projectID}", h.deleteProject)
	mux.HandleFunc("POST /projects/{projectID}/select", h.selectProject)
	mux.HandleFunc("POST /projects/{projectID}/documents", h.uploadDocuments)
	mux.HandleFunc("GET /progress/{progressID}", h.getProgress)

	// Study
	mux.HandleFunc("GET /topics", h.listTopics)
	mux.HandleFunc("GET /stats", h.getStats)
	mux.HandleFunc("GET /mastery", h.listMastery)
	mux.HandleFunc("POST /mastery/reset", h.resetMastery)

	// Sessions
	mux.HandleFunc("POST /session", h.startSession)
	mux.HandleFunc("GET /session", h.getSession)
	mux.HandleFunc("POST /session/answer", h.submitAnswer)
	mux.HandleFunc("GET /session/results", h.sessionResults)
	mux.HandleFunc("POST /session/exit", h.exitSession)

	// Settings
	mux.HandleFunc("GET /settings", h.getSettings)
	mux.HandleFunc("PUT /settings", h.updateSettings)
}
