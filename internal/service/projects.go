package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dstainton/transcript-flash-cards/internal/domain/project"
	"github.com/dstainton/transcript-flash-cards/internal/infrastructure/config"
	"github.com/dstainton/transcript-flash-cards/internal/store"
)

// SelectionRepository remembers which project each browser has open.
type SelectionRepository interface {
	GetCurrentProject(ctx context.Context, token string) (string, error)
	SetCurrentProject(ctx context.Context, token, projectID string) error
	ClearProject(ctx context.Context, projectID string) error
}

// ProjectService manages projects and each browser's selected project.
type ProjectService struct {
	projects  *store.ProjectStore
	selection SelectionRepository
	settings  *config.SettingsStore
	logger    *slog.Logger
}

func NewProjectService(projects *store.ProjectStore, selection SelectionRepository, settings *config.SettingsStore, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		projects:  projects,
		selection: selection,
		settings:  settings,
		logger:    logger,
	}
}

// Current returns the browser's selected project. A browser without a
// valid selection gets the most recently used project, which is created
// on first run.
func (s *ProjectService) Current(ctx context.Context, token string) (*project.Project, error) {
	projectID, err := s.selection.GetCurrentProject(ctx, token)
	if err == nil {
		p, err := s.projects.GetProject(projectID)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load selection: %w", err)
	}

	p, err := s.projects.EnsureDefault(s.settings.Get().DefaultProjectName)
	if err != nil {
		return nil, err
	}
	if err := s.selection.SetCurrentProject(ctx, token, p.ID); err != nil {
		return nil, fmt.Errorf("save selection: %w", err)
	}
	return p, nil
}

// Select makes projectID the browser's current project.
func (s *ProjectService) Select(ctx context.Context, token, projectID string) (*project.Project, error) {
	p, err := s.projects.GetProject(projectID)
	if err != nil {
		return nil, err
	}
	if err := s.selection.SetCurrentProject(ctx, token, p.ID); err != nil {
		return nil, fmt.Errorf("save selection: %w", err)
	}
	if err := s.projects.Touch(p.ID); err != nil {
		s.logger.Warn("failed to touch project", "project_id", p.ID, "error", err)
	}
	return p, nil
}

// Create makes a new project and selects it for the browser.
func (s *ProjectService) Create(ctx context.Context, token, name string) (*project.Project, error) {
	p, err := s.projects.CreateProject(name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("project created", "project_id", p.ID, "name", p.Name)

	if err := s.selection.SetCurrentProject(ctx, token, p.ID); err != nil {
		return nil, fmt.Errorf("save selection: %w", err)
	}
	return p, nil
}

func (s *ProjectService) Get(projectID string) (*project.Project, error) {
	return s.projects.GetProject(projectID)
}

func (s *ProjectService) List() []project.Summary {
	return s.projects.ListProjects()
}

// Delete removes a project and forgets every browser selection and session
// that pointed at it.
func (s *ProjectService) Delete(ctx context.Context, projectID string) error {
	if err := s.projects.DeleteProject(projectID); err != nil {
		return err
	}
	if err := s.selection.ClearProject(ctx, projectID); err != nil {
		s.logger.Error("failed to clear selections for deleted project", "project_id", projectID, "error", err)
	}
	s.logger.Info("project deleted", "project_id", projectID)
	return nil
}

// Documents lists the project's uploaded files.
func (s *ProjectService) Documents(projectID string) ([]string, error) {
	return s.projects.ListDocuments(projectID)
}
