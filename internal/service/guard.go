package service

import (
	"context"
	"errors"

	"github.com/sakif/devpulse/internal/apperror"
	"github.com/sakif/devpulse/internal/model"
	"github.com/sakif/devpulse/internal/repository"
)

// Guard decides whether a user may act on a project. Only the project's
// owner may; there are no roles or shared access.
type Guard struct {
	projects repository.ProjectRepository
}

func NewGuard(projects repository.ProjectRepository) *Guard {
	return &Guard{projects: projects}
}

// RequireOwnership returns the project if userID owns it.
//
// A missing project and someone else's project give the same Forbidden
// error, so task and analytics routes don't reveal which project IDs exist.
func (g *Guard) RequireOwnership(ctx context.Context, projectID, userID string) (*model.Project, error) {
	p, err := g.projects.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Forbidden("access denied")
		}
		return nil, err
	}
	if userID == "" || p.OwnerID != userID {
		return nil, apperror.Forbidden("access denied")
	}
	return p, nil
}

// OwnedProject is RequireOwnership for the project routes themselves: a
// missing project is NotFound, and only an existing project owned by someone
// else is Forbidden.
func (g *Guard) OwnedProject(ctx context.Context, projectID, userID string) (*model.Project, error) {
	p, err := g.projects.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if userID == "" || p.OwnerID != userID {
		return nil, apperror.Forbidden("access denied")
	}
	return p, nil
}
