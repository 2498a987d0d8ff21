package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/devpulse/internal/github"
	"github.com/sakif/devpulse/internal/model"
	"github.com/sakif/devpulse/internal/repository"
)

// CreateProjectInput is the body of POST /api/projects. Owner and Repo may
// be left out when RepoURL is a parseable GitHub URL.
type CreateProjectInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	RepoURL string `json:"repoUrl" validate:"required"`
	Owner   string `json:"owner" validate:"required"`
	Repo    string `json:"repo" validate:"required"`
}

// ProjectService manages projects. Every operation on an existing project is
// restricted to its owner.
type ProjectService struct {
	projects repository.ProjectRepository
	guard    *Guard
	logger   *slog.Logger
}

func NewProjectService(projects repository.ProjectRepository, guard *Guard, logger *slog.Logger) *ProjectService {
	return &ProjectService{
		projects: projects,
		guard:    guard,
		logger:   logger,
	}
}

// Create registers a repository as a project owned by userID.
func (s *ProjectService) Create(ctx context.Context, userID string, in CreateProjectInput) (*model.Project, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.RepoURL = strings.TrimSpace(in.RepoURL)
	in.Owner = strings.TrimSpace(in.Owner)
	in.Repo = strings.TrimSpace(in.Repo)

	if in.RepoURL != "" && (in.Owner == "" || in.Repo == "") {
		if owner, repo, err := github.ParseRepoURL(in.RepoURL); err == nil {
			if in.Owner == "" {
				in.Owner = owner
			}
			if in.Repo == "" {
				in.Repo = repo
			}
		}
	}
	if err := checkInput(in); err != nil {
		return nil, err
	}

	project := &model.Project{
		Name:    in.Name,
		RepoURL: in.RepoURL,
		Owner:   in.Owner,
		Repo:    in.Repo,
		OwnerID: userID,
	}
	if err := s.projects.CreateProject(ctx, project); err != nil {
		s.logger.Error("failed to create project",
			slog.String("name", in.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating project: %w", err)
	}

	s.logger.Info("project created",
		slog.String("id", project.ID),
		slog.String("repo", project.Owner+"/"+project.Repo),
		slog.String("ownerID", userID),
	)
	return project, nil
}

// List returns the user's projects in creation order.
func (s *ProjectService) List(ctx context.Context, userID string) ([]model.Project, error) {
	projects, err := s.projects.ListProjectsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// Get returns one project. Missing is NotFound; not the caller's is Forbidden.
func (s *ProjectService) Get(ctx context.Context, userID, id string) (*model.Project, error) {
	return s.guard.OwnedProject(ctx, id, userID)
}

// Update merges patch into the project. Supplied fields may not be blank.
func (s *ProjectService) Update(ctx context.Context, userID, id string, patch model.ProjectPatch) (*model.Project, error) {
	if _, err := s.guard.OwnedProject(ctx, id, userID); err != nil {
		return nil, err
	}
	if err := checkProjectPatch(&patch); err != nil {
		return nil, err
	}

	project, err := s.projects.UpdateProject(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}

	s.logger.Info("project updated", slog.String("id", id))
	return project, nil
}

// Delete removes the project and its tasks.
func (s *ProjectService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.guard.OwnedProject(ctx, id, userID); err != nil {
		return err
	}
	if err := s.projects.DeleteProject(ctx, id); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}

	s.logger.Info("project deleted", slog.String("id", id))
	return nil
}

func checkProjectPatch(p *model.ProjectPatch) error {
	trimFields(p.Name, p.RepoURL, p.Owner, p.Repo)
	return checkInput(p)
}
