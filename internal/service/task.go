package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/devpulse/internal/apperror"
	"github.com/sakif/devpulse/internal/model"
	"github.com/sakif/devpulse/internal/repository"
)

const dueDateLayout = "2006-01-02"

// CreateTaskInput is the body of POST /api/tasks.
type CreateTaskInput struct {
	ProjectID   string             `json:"projectId" validate:"required"`
	Title       string             `json:"title" validate:"required,max=200"`
	Description string             `json:"description"`
	Assignee    string             `json:"assignee" validate:"required"`
	Priority    model.TaskPriority `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     string             `json:"dueDate" validate:"omitempty,datetime=2006-01-02"`
}

// TaskService manages a project's tasks on behalf of the project owner.
type TaskService struct {
	tasks  repository.TaskRepository
	users  repository.UserRepository
	guard  *Guard
	logger *slog.Logger
}

func NewTaskService(
	tasks repository.TaskRepository,
	users repository.UserRepository,
	guard *Guard,
	logger *slog.Logger,
) *TaskService {
	return &TaskService{
		tasks:  tasks,
		users:  users,
		guard:  guard,
		logger: logger,
	}
}

// Create adds a pending task to a project the user owns. Priority defaults
// to medium.
func (s *TaskService) Create(ctx context.Context, userID string, in CreateTaskInput) (*model.Task, error) {
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.Title = strings.TrimSpace(in.Title)
	in.Assignee = strings.TrimSpace(in.Assignee)
	in.DueDate = strings.TrimSpace(in.DueDate)
	if err := checkInput(in); err != nil {
		return nil, err
	}

	if _, err := s.guard.RequireOwnership(ctx, in.ProjectID, userID); err != nil {
		return nil, err
	}

	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	task := &model.Task{
		ProjectID:   in.ProjectID,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		Assignee:    in.Assignee,
		Priority:    priority,
		Status:      model.StatusPending,
		DueDate:     in.DueDate,
		CreatedBy:   s.username(ctx, userID),
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		s.logger.Error("failed to create task",
			slog.String("projectID", in.ProjectID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating task: %w", err)
	}

	s.logger.Info("task created",
		slog.String("id", task.ID),
		slog.String("projectID", task.ProjectID),
		slog.String("assignee", task.Assignee),
	)
	return task, nil
}

// ListByProject returns the project's tasks in creation order.
func (s *TaskService) ListByProject(ctx context.Context, userID, projectID string) ([]model.Task, error) {
	if _, err := s.guard.RequireOwnership(ctx, projectID, userID); err != nil {
		return nil, err
	}
	tasks, err := s.tasks.ListTasksByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks: %w", err)
	}
	return tasks, nil
}

// Update merges patch into the task. An unknown task is NotFound; a task in
// someone else's project is Forbidden.
func (s *TaskService) Update(ctx context.Context, userID, id string, patch model.TaskPatch) (*model.Task, error) {
	if _, err := s.authorize(ctx, userID, id); err != nil {
		return nil, err
	}
	if err := checkTaskPatch(&patch); err != nil {
		return nil, err
	}

	task, err := s.tasks.UpdateTask(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("updating task: %w", err)
	}

	s.logger.Info("task updated",
		slog.String("id", id),
		slog.String("status", string(task.Status)),
	)
	return task, nil
}

func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.authorize(ctx, userID, id); err != nil {
		return err
	}
	if err := s.tasks.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}

	s.logger.Info("task deleted", slog.String("id", id))
	return nil
}

// authorize loads the task and checks the caller owns its project.
func (s *TaskService) authorize(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if _, err := s.guard.RequireOwnership(ctx, task.ProjectID, userID); err != nil {
		return nil, err
	}
	return task, nil
}

// username is the creator label stored on new tasks. It falls back to the
// user ID when the user record is gone.
func (s *TaskService) username(ctx context.Context, userID string) string {
	u, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			s.logger.Warn("could not load task creator",
				slog.String("userID", userID),
				slog.String("error", err.Error()),
			)
		}
		return userID
	}
	return u.Username
}

// checkTaskPatch trims the supplied text fields, then validates the patch.
func checkTaskPatch(p *model.TaskPatch) error {
	trimFields(p.Title, p.Assignee)
	return checkInput(p)
}
