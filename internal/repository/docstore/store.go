// Package docstore implements the Record Store over a single JSON document.
//
// Every call loads the whole document from a Backend, works on that private
// copy, and (for writes) saves the whole document back. Writes are
// optimistic: a Backend hands out an opaque version with each load and
// refuses a save whose version is stale. The Store then reloads and
// re-applies the mutation, up to MaxAttempts times.
//
// Without the version check, two interleaved writers would each rewrite the
// full document and the later save would silently drop the earlier one's
// change.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/devpulse/internal/apperror"
	"github.com/sakif/devpulse/internal/model"
	"github.com/sakif/devpulse/internal/repository"
)

// MaxAttempts bounds how often a write is re-applied after version conflicts.
const MaxAttempts = 3

// ErrVersionConflict is returned by Backend.Save when the stored document
// changed since the version passed in was read.
var ErrVersionConflict = errors.New("docstore: document version conflict")

// Backend persists the document. Load must return a document the caller may
// freely mutate. Save must be atomic with respect to the version check.
type Backend interface {
	Load(ctx context.Context) (doc *Document, version string, err error)
	Save(ctx context.Context, doc *Document, version string) (newVersion string, err error)
	Close() error
}

var _ repository.Store = (*Store)(nil)

// Store implements repository.Store on top of a Backend.
type Store struct {
	backend Backend
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

func New(backend Backend, logger *slog.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC().Round(0) },
		newID:   func() string { return xid.New().String() },
	}
}

func (s *Store) Close() error {
	return s.backend.Close()
}

// Ping reports whether the backend can currently be read.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.load(ctx)
	return err
}

func (s *Store) load(ctx context.Context) (*Document, error) {
	doc, _, err := s.backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("docstore: loading document: %w", err)
	}
	return doc, nil
}

// mutate runs fn against a fresh copy of the document and saves the result.
// fn may run more than once, so it must derive everything from the document
// it is given. An error from fn aborts without saving and is not retried.
func (s *Store) mutate(ctx context.Context, op string, fn func(doc *Document) error) error {
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		doc, version, err := s.backend.Load(ctx)
		if err != nil {
			return fmt.Errorf("docstore: %s: loading document: %w", op, err)
		}

		if err := fn(doc); err != nil {
			return err
		}

		_, err = s.backend.Save(ctx, doc, version)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return fmt.Errorf("docstore: %s: saving document: %w", op, err)
		}

		s.logger.Warn("document changed underneath write, retrying",
			slog.String("op", op),
			slog.Int("attempt", attempt),
			slog.String("version", version),
		)
	}

	return &apperror.AppError{
		Err:     apperror.ErrConflict,
		Message: fmt.Sprintf("%s lost a concurrent write %d times, try again", op, MaxAttempts),
	}
}

// === Users ===

func (s *Store) SaveUser(ctx context.Context, user *model.User) error {
	now := s.now()
	var saved model.User

	err := s.mutate(ctx, "save user", func(doc *Document) error {
		saved = *user
		saved.UpdatedAt = now
		for i := range doc.Users {
			if doc.Users[i].ID == user.ID {
				if saved.CreatedAt.IsZero() {
					saved.CreatedAt = doc.Users[i].CreatedAt
				}
				doc.Users[i] = saved
				return nil
			}
		}
		if saved.CreatedAt.IsZero() {
			saved.CreatedAt = now
		}
		doc.Users = append(doc.Users, saved)
		return nil
	})
	if err != nil {
		return err
	}

	*user = saved
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range doc.Users {
		if doc.Users[i].ID == id {
			u := doc.Users[i]
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", id)
}

// === Projects ===

func (s *Store) CreateProject(ctx context.Context, project *model.Project) error {
	now := s.now()
	created := *project
	created.ID = s.newID()
	created.CreatedAt = now
	created.UpdatedAt = now

	err := s.mutate(ctx, "create project", func(doc *Document) error {
		doc.Projects = append(doc.Projects, created)
		return nil
	})
	if err != nil {
		return err
	}

	*project = created
	return nil
}

func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexProject(doc, id); i >= 0 {
		p := doc.Projects[i]
		return &p, nil
	}
	return nil, apperror.NotFound("project", id)
}

func (s *Store) ListProjectsByOwner(ctx context.Context, ownerID string) ([]model.Project, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	projects := make([]model.Project, 0)
	for _, p := range doc.Projects {
		if p.OwnerID == ownerID {
			projects = append(projects, p)
		}
	}
	return projects, nil
}

func (s *Store) UpdateProject(ctx context.Context, id string, patch model.ProjectPatch) (*model.Project, error) {
	now := s.now()
	var updated model.Project

	err := s.mutate(ctx, "update project", func(doc *Document) error {
		i := indexProject(doc, id)
		if i < 0 {
			return apperror.NotFound("project", id)
		}
		patch.Apply(&doc.Projects[i])
		doc.Projects[i].UpdatedAt = now
		updated = doc.Projects[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteProject(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete project", func(doc *Document) error {
		if indexProject(doc, id) < 0 {
			return apperror.NotFound("project", id)
		}

		projects := doc.Projects[:0]
		for _, p := range doc.Projects {
			if p.ID != id {
				projects = append(projects, p)
			}
		}
		doc.Projects = projects

		tasks := doc.Tasks[:0]
		for _, t := range doc.Tasks {
			if t.ProjectID != id {
				tasks = append(tasks, t)
			}
		}
		doc.Tasks = tasks
		return nil
	})
}

// === Tasks ===

func (s *Store) CreateTask(ctx context.Context, task *model.Task) error {
	now := s.now()
	created := *task
	created.ID = s.newID()
	created.CreatedAt = now
	created.UpdatedAt = now

	err := s.mutate(ctx, "create task", func(doc *Document) error {
		if indexProject(doc, created.ProjectID) < 0 {
			return apperror.NotFound("project", created.ProjectID)
		}
		doc.Tasks = append(doc.Tasks, created)
		return nil
	})
	if err != nil {
		return err
	}

	*task = created
	return nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexTask(doc, id); i >= 0 {
		t := doc.Tasks[i]
		return &t, nil
	}
	return nil, apperror.NotFound("task", id)
}

func (s *Store) ListTasksByProject(ctx context.Context, projectID string) ([]model.Task, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	tasks := make([]model.Task, 0)
	for _, t := range doc.Tasks {
		if t.ProjectID == projectID {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	now := s.now()
	var updated model.Task

	err := s.mutate(ctx, "update task", func(doc *Document) error {
		i := indexTask(doc, id)
		if i < 0 {
			return apperror.NotFound("task", id)
		}
		patch.Apply(&doc.Tasks[i])
		doc.Tasks[i].UpdatedAt = now
		updated = doc.Tasks[i]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.mutate(ctx, "delete task", func(doc *Document) error {
		i := indexTask(doc, id)
		if i < 0 {
			return apperror.NotFound("task", id)
		}
		doc.Tasks = append(doc.Tasks[:i], doc.Tasks[i+1:]...)
		return nil
	})
}

// === Analytics ===

func (s *Store) CreateAnalytics(ctx context.Context, record *model.AnalyticsRecord) error {
	created := *record
	created.ID = s.newID()
	created.CreatedAt = s.now()

	err := s.mutate(ctx, "create analytics", func(doc *Document) error {
		if indexProject(doc, created.ProjectID) < 0 {
			return apperror.NotFound("project", created.ProjectID)
		}
		doc.Analytics = append(doc.Analytics, created)
		return nil
	})
	if err != nil {
		return err
	}

	*record = created
	return nil
}

func (s *Store) ListAnalyticsByProject(ctx context.Context, projectID string) ([]model.AnalyticsRecord, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]model.AnalyticsRecord, 0)
	for _, a := range doc.Analytics {
		if a.ProjectID == projectID {
			records = append(records, a)
		}
	}
	return records, nil
}

func indexProject(doc *Document, id string) int {
	for i := range doc.Projects {
		if doc.Projects[i].ID == id {
			return i
		}
	}
	return -1
}

func indexTask(doc *Document, id string) int {
	for i := range doc.Tasks {
		if doc.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}
