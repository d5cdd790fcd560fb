package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dstainton/transcript-flash-cards/internal/domain/project"
	"github.com/dstainton/transcript-flash-cards/internal/extract"
)

const (
	maxUploadFiles  = 20
	multipartMemory = 32 << 20
)

// ── Request / Response types ────────────────────────────────────────────────

type CreateProjectRequest struct {
	Name string `json:"name" example:"Scrum Certification"`
}

func (r *CreateProjectRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

type ProjectListResponse struct {
	Current  string            `json:"current" example:"scrum-certification"`
	Projects []project.Summary `json:"projects"`
}

type ProjectResponse struct {
	ID           string        `json:"id" example:"scrum-certification"`
	Name         string        `json:"name" example:"Scrum Certification"`
	CreatedAt    time.Time     `json:"created_at"`
	LastAccessed time.Time     `json:"last_accessed"`
	Stats        project.Stats `json:"stats"`
	Documents    []string      `json:"documents"`
}

type CreateProjectResponse struct {
	Project    ProjectResponse `json:"project"`
	ProgressID string          `json:"progress_id,omitempty" example:"V1StGXR8_Z5jdHi6B-myT"`
}

type UploadResponse struct {
	ProgressID string   `json:"progress_id" example:"V1StGXR8_Z5jdHi6B-myT"`
	Files      []string `json:"files"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// listProjects lists every project.
// @Summary      List projects
// @Description  Returns all projects sorted by name, with the browser's current project id.
// @Tags         Projects
// @Produce      json
// @Success      200  {object}  ProjectListResponse
// @Failure      500  {object}  map[string]string
// @Router       /projects [get]
func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	h.finalizePending(r)

	current, err := h.projects.Current(r.Context(), browserToken(r))
	if h.handleError(w, err, "project") {
		return
	}
	respondJSON(w, http.StatusOK, ProjectListResponse{
		Current:  current.ID,
		Projects: h.projects.List(),
	})
}

// createProject creates a project, optionally from uploaded documents.
// @Summary      Create a project
// @Description  Accepts JSON {"name": ...} or multipart form data with a name field and files.
// @Description  Uploaded files are queued for flashcard generation; poll the returned progress id.
// @Tags         Projects
// @Accept       json,mpfd
// @Produce      json
// @Param        body   body      CreateProjectRequest  false  "Project to create"
// @Param        name   formData  string                false  "Project name"
// @Param        files  formData  file                  false  "Documents (.txt, .pdf, .docx)"
// @Success      201    {object}  CreateProjectResponse
// @Failure      400    {object}  map[string]string
// @Failure      413    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /projects [post]
func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := browserToken(r)

	var (
		name  string
		files []*multipart.FileHeader
	)
	if isMultipart(r) {
		form, ok := h.parseUploadForm(w, r)
		if !ok {
			return
		}
		name = strings.TrimSpace(r.FormValue("name"))
		files = form.File["files"]
		if name == "" {
			respondError(w, http.StatusBadRequest, "name is required")
			return
		}
		if !h.checkUploads(w, files, false) {
			return
		}
	} else {
		var req CreateProjectRequest
		if !decodeAndValidate(w, r, &req) {
			return
		}
		name = strings.TrimSpace(req.Name)
	}

	h.finalizePending(r)
	p, err := h.projects.Create(ctx, token, name)
	if h.handleError(w, err, "project") {
		return
	}
	if err := h.study.DiscardForOtherProject(ctx, token, p.ID); err != nil {
		h.logger.Error("failed to discard session", "error", err)
	}

	var progressID string
	if len(files) > 0 {
		saved, ok := h.saveUploads(w, p.ID, files)
		if !ok {
			return
		}
		progressID, err = h.generation.Enqueue(p.ID, saved)
		if h.handleError(w, err, "project") {
			return
		}
	}

	resp, err := h.projectResponse(p)
	if h.handleError(w, err, "project") {
		return
	}
	respondJSON(w, http.StatusCreated, CreateProjectResponse{Project: resp, ProgressID: progressID})
}

// currentProject returns the browser's selected project.
// @Summary      Get the current project
// @Description  Returns the browser's selected project, creating a default project on first run.
// @Tags         Projects
// @Produce      json
// @Success      200  {object}  ProjectResponse
// @Failure      500  {object}  map[string]string
// @Router       /projects/current [get]
func (h *Handler) currentProject(w http.ResponseWriter, r *http.Request) {
	h.finalizePending(r)

	p, err := h.projects.Current(r.Context(), browserToken(r))
	if h.handleError(w, err, "project") {
		return
	}
	resp, err := h.projectResponse(p)
	if h.handleError(w, err, "project") {
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// getProject returns a single project.
// @Summary      Get a project
// @Tags         Projects
// @Produce      json
// @Param        projectID  path      string  true  "Project ID"
// @Success      200        {object}  ProjectResponse
// @Failure      404        {object}  map[string]string
// @Router       /projects/{projectID} [get]
func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	h.finalizePending(r)

	p, err := h.projects.Get(r.PathValue("projectID"))
	if h.handleError(w, err, "project") {
		return
	}
	resp, err := h.projectResponse(p)
	if h.handleError(w, err, "project") {
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// deleteProject deletes a project and all its files.
// @Summary      Delete a project
// @Description  The last remaining project cannot be deleted.
// @Tags         Projects
// @Param        projectID  path  string  true  "Project ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /projects/{projectID} [delete]
func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	err := h.projects.Delete(r.Context(), r.PathValue("projectID"))
	if h.handleError(w, err, "project") {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// selectProject switches the browser to another project.
// @Summary      Select a project
// @Description  Makes the project current for this browser. A session from another project is discarded.
// @Tags         Projects
// @Produce      json
// @Param        projectID  path      string  true  "Project ID"
// @Success      200        {object}  ProjectResponse
// @Failure      404        {object}  map[string]string
// @Router       /projects/{projectID}/select [post]
func (h *Handler) selectProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := browserToken(r)
	projectID := r.PathValue("projectID")

	h.finalizePending(r)
	p, err := h.projects.Select(ctx, token, projectID)
	if h.handleError(w, err, "project") {
		return
	}
	if err := h.study.DiscardForOtherProject(ctx, token, p.ID); err != nil {
		h.logger.Error("failed to discard session", "error", err)
	}

	resp, err := h.projectResponse(p)
	if h.handleError(w, err, "project") {
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// uploadDocuments adds documents to a project and queues generation.
// @Summary      Upload documents
// @Description  Saves the files to the project and generates flashcards from them in the background.
// @Tags         Projects
// @Accept       mpfd
// @Produce      json
// @Param        projectID  path      string  true  "Project ID"
// @Param        files      formData  file    true  "Documents (.txt, .pdf, .docx)"
// @Success      202        {object}  UploadResponse
// @Failure      400        {object}  map[string]string
// @Failure      404        {object}  map[string]string
// @Failure      413        {object}  map[string]string
// @Router       /projects/{projectID}/documents [post]
func (h *Handler) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("projectID")
	if _, err := h.projects.Get(projectID); h.handleError(w, err, "project") {
		return
	}
	if !isMultipart(r) {
		respondError(w, http.StatusBadRequest, "expected multipart/form-data")
		return
	}

	form, ok := h.parseUploadForm(w, r)
	if !ok {
		return
	}
	files := form.File["files"]
	if !h.checkUploads(w, files, true) {
		return
	}

	saved, ok := h.saveUploads(w, projectID, files)
	if !ok {
		return
	}
	progressID, err := h.generation.Enqueue(projectID, saved)
	if h.handleError(w, err, "project") {
		return
	}
	respondJSON(w, http.StatusAccepted, UploadResponse{ProgressID: progressID, Files: saved})
}

// getProgress reports a generation job's progress.
// @Summary      Get generation progress
// @Tags         Projects
// @Produce      json
// @Param        progressID  path      string  true  "Progress ID"
// @Success      200         {object}  service.Progress
// @Failure      404         {object}  map[string]string
// @Router       /progress/{progressID} [get]
func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	p, err := h.generation.Progress(r.PathValue("progressID"))
	if h.handleError(w, err, "progress") {
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// ── Helpers ─────────────────────────────────────────────────────────────────

func (h *Handler) projectResponse(p *project.Project) (ProjectResponse, error) {
	stats, err := h.study.Stats(p.ID)
	if err != nil {
		return ProjectResponse{}, err
	}
	docs, err := h.projects.Documents(p.ID)
	if err != nil {
		return ProjectResponse{}, err
	}
	return ProjectResponse{
		ID:           p.ID,
		Name:         p.Name,
		CreatedAt:    p.CreatedAt,
		LastAccessed: p.LastAccessed,
		Stats:        stats.Stats,
		Documents:    docs,
	}, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func (h *Handler) parseUploadForm(w http.ResponseWriter, r *http.Request) (*multipart.Form, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload*maxUploadFiles+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return nil, false
		}
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, false
	}
	return r.MultipartForm, true
}

// checkUploads rejects the whole upload when any file is unusable.
func (h *Handler) checkUploads(w http.ResponseWriter, files []*multipart.FileHeader, required bool) bool {
	if required && len(files) == 0 {
		respondError(w, http.StatusBadRequest, "no files uploaded")
		return false
	}
	if len(files) > maxUploadFiles {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("at most %d files per upload", maxUploadFiles))
		return false
	}
	for _, fh := range files {
		switch {
		case !extract.Supported(fh.Filename):
			respondError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", fh.Filename, extract.ErrUnsupportedType))
			return false
		case fh.Size > h.maxUpload:
			respondError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("%s: %v (max %d MB)", fh.Filename, extract.ErrFileTooLarge, h.maxUpload>>20))
			return false
		case fh.Size == 0:
			respondError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", fh.Filename, extract.ErrEmptyFile))
			return false
		}
	}
	return true
}

func (h *Handler) saveUploads(w http.ResponseWriter, projectID string, files []*multipart.FileHeader) ([]string, bool) {
	saved := make([]string, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			h.logger.Error("failed to open upload", "filename", fh.Filename, "error", err)
			respondError(w, http.StatusBadRequest, "failed to read "+fh.Filename)
			return nil, false
		}
		name, err := h.generation.SaveDocument(projectID, fh.Filename, f)
		f.Close()
		if h.handleError(w, err, "project") {
			return nil, false
		}
		saved = append(saved, name)
	}
	return saved, true
}
