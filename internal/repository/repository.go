// Package repository declares the Record Store contract: the four entity
// collections (users, projects, tasks, analytics) and the operations services
// may perform on them. Implementations live in subpackages.
//
// Every method returns copies. Mutating a returned value never changes
// stored state; Update* is the only way to change a record.
package repository

import (
	"context"

	"github.com/sakif/devpulse/internal/model"
)

type UserRepository interface {
	// SaveUser creates the user or overwrites the record with the same ID.
	SaveUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, id string) (*model.User, error)
}

type ProjectRepository interface {
	CreateProject(ctx context.Context, project *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjectsByOwner(ctx context.Context, ownerID string) ([]model.Project, error)
	UpdateProject(ctx context.Context, id string, patch model.ProjectPatch) (*model.Project, error)
	// DeleteProject also removes every task of the project.
	DeleteProject(ctx context.Context, id string) error
}

type TaskRepository interface {
	CreateTask(ctx context.Context, task *model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasksByProject(ctx context.Context, projectID string) ([]model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

type AnalyticsRepository interface {
	CreateAnalytics(ctx context.Context, record *model.AnalyticsRecord) error
	ListAnalyticsByProject(ctx context.Context, projectID string) ([]model.AnalyticsRecord, error)
}

// Store is the full Record Store.
type Store interface {
	UserRepository
	ProjectRepository
	TaskRepository
	AnalyticsRepository
	Close() error
}
