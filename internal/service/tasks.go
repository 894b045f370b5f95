package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/existflow/taskprox/internal/api"
	"github.com/existflow/taskprox/internal/attachment"
	"github.com/existflow/taskprox/internal/collab"
	"github.com/existflow/taskprox/internal/form"
	"github.com/existflow/taskprox/internal/logger"
	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/permission"
)

// LoadTasks fetches the tasks matching filter. Later refreshes reuse it.
func (s *Service) LoadTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error) {
	s.filter = filter
	return s.tasks.Load(ctx)
}

// RefreshTasks refetches with the current filter
func (s *Service) RefreshTasks(ctx context.Context) ([]model.Task, error) {
	return s.tasks.Load(ctx)
}

// Tasks returns the tasks last fetched
func (s *Service) Tasks() []model.Task {
	return s.tasks.Items()
}

// TasksStale reports whether the task list failed to refresh
func (s *Service) TasksStale() bool {
	return s.tasks.Stale()
}

// Filter returns the active task filter
func (s *Service) Filter() model.TaskFilter {
	return s.filter
}

// SharedTasks lists the project's tasks the caller collaborates on
func (s *Service) SharedTasks(ctx context.Context, projectID string) ([]model.Task, error) {
	return s.backend.ListTasksByProject(ctx, projectID)
}

// FindTask looks a task up in the local list
func (s *Service) FindTask(id string) (*model.Task, bool) {
	for _, t := range s.tasks.Items() {
		if t.ID == id {
			t := t
			return &t, true
		}
	}
	return nil, false
}

// Task returns a task from the local list or the server
func (s *Service) Task(ctx context.Context, id string) (*model.Task, error) {
	if t, ok := s.FindTask(id); ok {
		return t, nil
	}
	t, err := s.backend.GetTask(ctx, id)
	if api.IsStatus(err, http.StatusNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrTaskNotFound, err)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// TaskPermission resolves the caller's level on t, inheriting from its
// project when the caller has no direct role
func (s *Service) TaskPermission(t model.Task) permission.Level {
	var project *model.Project
	if t.ProjectID != "" {
		project, _ = s.FindProject(t.ProjectID)
	}
	return s.resolver.ResolveInherited(t, project, s.Identity())
}

// ViewTask returns a task the caller may see
func (s *Service) ViewTask(ctx context.Context, id string) (*model.Task, permission.Level, error) {
	t, err := s.Task(ctx, id)
	if err != nil {
		return nil, permission.None, err
	}
	level := s.TaskPermission(*t)
	if err := check(level, permission.View); err != nil {
		return nil, level, fmt.Errorf("%w: %s", ErrForbidden, permission.NoPermissionMessage)
	}
	return t, level, nil
}

func validateTask(t *model.Task) error {
	t.Title = strings.TrimSpace(t.Title)
	if t.Title == "" {
		return ErrTitleRequired
	}
	return form.Struct(*t)
}

func withFiles(t *model.Task, files []attachment.File) error {
	if err := attachment.ValidateSet(t.Recurso, files); err != nil {
		return err
	}
	for _, f := range files {
		t.Recurso = append(t.Recurso, attachment.Encode(f))
	}
	return nil
}

// CreateTask validates and saves a new task with optional attachments
func (s *Service) CreateTask(ctx context.Context, t model.Task, files []attachment.File) (*model.Task, error) {
	if err := validateTask(&t); err != nil {
		return nil, err
	}
	if err := collab.ValidateChanges(nil, t.Collaborators); err != nil {
		return nil, err
	}
	if t.ProjectID != "" {
		if p, ok := s.FindProject(t.ProjectID); ok {
			if err := check(s.ProjectPermission(*p), permission.Edit); err != nil {
				return nil, err
			}
		}
	}
	if err := withFiles(&t, files); err != nil {
		return nil, err
	}

	id := s.Identity()
	t.ID = ""
	t.Creator = id.Email
	t.CreatorName = id.FullName
	t.Completed = t.Status.IsDone()

	return s.saveNew(ctx, t)
}

func (s *Service) saveNew(ctx context.Context, t model.Task) (*model.Task, error) {
	var created *model.Task
	_, err := s.tasks.Apply(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.backend.CreateTask(ctx, t)
		return err
	})
	if created == nil {
		return nil, err
	}
	logger.Info("Task created", logger.F("task_id", created.ID))
	return created, err
}

// UpdateTask saves edited fields and appends any new attachments
func (s *Service) UpdateTask(ctx context.Context, t model.Task, files []attachment.File) (*model.Task, error) {
	current, err := s.Task(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	level := s.TaskPermission(*current)
	if err := check(level, permission.Edit); err != nil {
		return nil, err
	}

	// the creator is fixed and only admins change collaborators
	t.Creator = current.Creator
	t.CreatorName = current.CreatorName
	if !permission.Can(level, permission.ManageCollaborators) {
		t.Collaborators = current.Collaborators
	}

	if err := validateTask(&t); err != nil {
		return nil, err
	}
	if err := collab.ValidateChanges(current.Collaborators, t.Collaborators); err != nil {
		return nil, err
	}
	if err := withFiles(&t, files); err != nil {
		return nil, err
	}
	t.Completed = t.Status.IsDone()

	return s.save(ctx, t)
}

func (s *Service) save(ctx context.Context, t model.Task) (*model.Task, error) {
	var updated *model.Task
	_, err := s.tasks.Apply(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.backend.UpdateTask(ctx, t)
		return err
	})
	if updated == nil {
		return nil, err
	}
	return updated, err
}

// DeleteTask removes a task
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	current, err := s.Task(ctx, id)
	if err != nil {
		return err
	}
	if err := check(s.TaskPermission(*current), permission.Delete); err != nil {
		return err
	}

	_, err = s.tasks.Apply(ctx, func(ctx context.Context) error {
		return s.backend.DeleteTask(ctx, id)
	})
	if err == nil {
		logger.Info("Task deleted", logger.F("task_id", id))
	}
	return err
}

func (s *Service) copyTask(t model.Task) model.Task {
	id := s.Identity()
	return model.Task{
		Title:       t.Title + CopySuffix,
		Description: t.Description,
		Status:      t.Status,
		Completed:   t.Completed,
		StartDate:   t.StartDate,
		Deadline:    t.Deadline,
		Creator:     id.Email,
		CreatorName: id.FullName,
		ProjectID:   t.ProjectID,
		Recurso:     append([]model.Attachment(nil), t.Recurso...),
	}
}

// DuplicateTask saves a copy owned by the caller. Collaborators are not copied.
func (s *Service) DuplicateTask(ctx context.Context, id string) (*model.Task, error) {
	src, err := s.Task(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := check(s.TaskPermission(*src), permission.Duplicate); err != nil {
		return nil, err
	}
	return s.saveNew(ctx, s.copyTask(*src))
}

// SetStatus changes a task's status
func (s *Service) SetStatus(ctx context.Context, id string, status model.Status) (*model.Task, error) {
	current, err := s.Task(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := check(s.TaskPermission(*current), permission.ToggleStatus); err != nil {
		return nil, err
	}

	var updated *model.Task
	_, err = s.tasks.Apply(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.backend.UpdateTaskStatus(ctx, id, status)
		return err
	})
	if updated == nil {
		return nil, err
	}
	return updated, err
}

// ToggleDone flips a task between completed and pending
func (s *Service) ToggleDone(ctx context.Context, id string) (*model.Task, error) {
	current, err := s.Task(ctx, id)
	if err != nil {
		return nil, err
	}
	next := model.NewStatus(model.StatusCompleted)
	if current.IsDone() {
		next = model.NewStatus(model.StatusPending)
	}
	return s.SetStatus(ctx, id, next)
}

func (s *Service) editTaskCollaborators(ctx context.Context, id string, edit func(*collab.List) error) (*model.Task, error) {
	current, err := s.Task(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := collab.RequireAdmin(s.TaskPermission(*current)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrForbidden, err)
	}

	list := collab.FromSlice(current.Collaborators)
	if err := edit(list); err != nil {
		return nil, err
	}

	t := *current
	t.Collaborators = list.Items()
	return s.save(ctx, t)
}

// AddTaskCollaborator grants email access to a task
func (s *Service) AddTaskCollaborator(ctx context.Context, id, email string, level permission.Level) (*model.Task, error) {
	return s.editTaskCollaborators(ctx, id, func(l *collab.List) error { return l.Add(email, level) })
}

// RemoveTaskCollaborator revokes access by email or collaborator id
func (s *Service) RemoveTaskCollaborator(ctx context.Context, id, ref string) (*model.Task, error) {
	return s.editTaskCollaborators(ctx, id, func(l *collab.List) error { return l.Remove(ref) })
}

// SetTaskCollaboratorPermission changes one collaborator's level
func (s *Service) SetTaskCollaboratorPermission(ctx context.Context, id, ref string, level permission.Level) (*model.Task, error) {
	return s.editTaskCollaborators(ctx, id, func(l *collab.List) error { return l.SetPermission(ref, level) })
}

// DownloadAttachment writes the named attachment of a task into dir
func (s *Service) DownloadAttachment(ctx context.Context, id, name, dir string) (string, error) {
	t, _, err := s.ViewTask(ctx, id)
	if err != nil {
		return "", err
	}
	for _, a := range t.Recurso {
		if a.Name == name {
			return attachment.Save(a, dir)
		}
	}
	return "", fmt.Errorf("attachment %q not found on task %s", name, id)
}

// RemoveAttachment drops the named attachment from a task
func (s *Service) RemoveAttachment(ctx context.Context, id, name string) (*model.Task, error) {
	current, err := s.Task(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := check(s.TaskPermission(*current), permission.Edit); err != nil {
		return nil, err
	}

	t := *current
	t.Recurso = nil
	found := false
	for _, a := range current.Recurso {
		if a.Name == name && !found {
			found = true
			continue
		}
		t.Recurso = append(t.Recurso, a)
	}
	if !found {
		return nil, fmt.Errorf("attachment %q not found on task %s", name, id)
	}
	return s.save(ctx, t)
}
