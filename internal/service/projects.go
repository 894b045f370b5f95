package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/existflow/taskprox/internal/collab"
	"github.com/existflow/taskprox/internal/form"
	"github.com/existflow/taskprox/internal/logger"
	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/permission"
)

// LoadProjects fetches the project list
func (s *Service) LoadProjects(ctx context.Context) ([]model.Project, error) {
	return s.projects.Load(ctx)
}

// Projects returns the projects last fetched
func (s *Service) Projects() []model.Project {
	return s.projects.Items()
}

// ProjectsStale reports whether the project list failed to refresh
func (s *Service) ProjectsStale() bool {
	return s.projects.Stale()
}

// FindProject looks a project up in the local list
func (s *Service) FindProject(id string) (*model.Project, bool) {
	for _, p := range s.projects.Items() {
		if p.ID == id {
			p := p
			return &p, true
		}
	}
	return nil, false
}

// Project returns the local copy, falling back to the server
func (s *Service) Project(ctx context.Context, id string) (*model.Project, error) {
	if p, ok := s.FindProject(id); ok {
		return p, nil
	}
	return s.backend.GetProject(ctx, id)
}

// ProjectPermission resolves the caller's level on p
func (s *Service) ProjectPermission(p model.Project) permission.Level {
	return s.resolver.Resolve(p, s.Identity())
}

// Summary returns per-project completion counters
func (s *Service) Summary(ctx context.Context) ([]model.ProjectSummary, error) {
	return s.backend.ProjectSummary(ctx)
}

func validateProject(p *model.Project) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return ErrNameRequired
	}
	return form.Struct(*p)
}

// CreateProject saves a new project owned by the caller
func (s *Service) CreateProject(ctx context.Context, p model.Project) (*model.Project, error) {
	return s.createProject(ctx, p, nil)
}

// createProject saves p. Collaborators equal to an entry of prev are taken
// as already stored and not re-validated.
func (s *Service) createProject(ctx context.Context, p model.Project, prev []model.Collaborator) (*model.Project, error) {
	if err := validateProject(&p); err != nil {
		return nil, err
	}
	if err := collab.ValidateChanges(prev, p.Collaborators); err != nil {
		return nil, err
	}
	p.ID = ""
	p.UserEmail = s.Identity().Email

	var created *model.Project
	_, err := s.projects.Apply(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.backend.CreateProject(ctx, p)
		return err
	})
	if created == nil {
		return nil, err
	}
	logger.Info("Project created", logger.F("project_id", created.ID))
	return created, err
}

// UpdateProject saves edited project fields
func (s *Service) UpdateProject(ctx context.Context, p model.Project) (*model.Project, error) {
	current, err := s.Project(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	level := s.ProjectPermission(*current)
	if err := check(level, permission.Edit); err != nil {
		return nil, err
	}

	p.UserEmail = current.UserEmail
	p.UserID = current.UserID
	if !permission.Can(level, permission.ManageCollaborators) {
		p.Collaborators = current.Collaborators
	}
	if err := validateProject(&p); err != nil {
		return nil, err
	}
	if err := collab.ValidateChanges(current.Collaborators, p.Collaborators); err != nil {
		return nil, err
	}

	var updated *model.Project
	_, err = s.projects.Apply(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.backend.UpdateProject(ctx, p)
		return err
	})
	if updated == nil {
		return nil, err
	}
	return updated, err
}

// DeleteProject removes a project
func (s *Service) DeleteProject(ctx context.Context, id string) error {
	current, err := s.Project(ctx, id)
	if err != nil {
		return err
	}
	if err := check(s.ProjectPermission(*current), permission.Delete); err != nil {
		return err
	}

	_, err = s.projects.Apply(ctx, func(ctx context.Context) error {
		return s.backend.DeleteProject(ctx, id)
	})
	if err == nil {
		logger.Info("Project deleted", logger.F("project_id", id))
	}
	return err
}

// DuplicateProject copies a project and its tasks. The copy keeps the
// collaborators; tasks that fail to copy are reported but do not undo the
// project copy.
func (s *Service) DuplicateProject(ctx context.Context, id string) (*model.Project, error) {
	src, err := s.Project(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := check(s.ProjectPermission(*src), permission.Duplicate); err != nil {
		return nil, err
	}

	tasks, err := s.backend.ListTasks(ctx, model.TaskFilter{ProjectID: src.ID})
	if err != nil {
		return nil, err
	}

	copyProject := model.Project{
		Name:          src.Name + CopySuffix,
		Description:   src.Description,
		Collaborators: append([]model.Collaborator(nil), src.Collaborators...),
	}
	created, err := s.createProject(ctx, copyProject, src.Collaborators)
	if created == nil {
		return nil, err
	}

	var failed []string
	for _, t := range tasks {
		dup := s.copyTask(t)
		dup.ProjectID = created.ID
		if _, err := s.backend.CreateTask(ctx, dup); err != nil {
			logger.Warn("Failed to copy task", logger.F("task_id", t.ID), logger.F("error", err))
			failed = append(failed, t.Title)
		}
	}
	if _, err := s.tasks.Load(ctx); err != nil {
		logger.Warn("Task refresh after project copy failed", logger.F("error", err))
	}
	if len(failed) > 0 {
		return created, fmt.Errorf("project copied but %d task(s) failed: %s", len(failed), strings.Join(failed, ", "))
	}
	return created, nil
}

// editProjectCollaborators applies edit to a copy of the project's
// collaborators and saves the result. Only admins may do this.
func (s *Service) editProjectCollaborators(ctx context.Context, id string, edit func(*collab.List) error) (*model.Project, error) {
	current, err := s.Project(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := collab.RequireAdmin(s.ProjectPermission(*current)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrForbidden, err)
	}

	list := collab.FromSlice(current.Collaborators)
	if err := edit(list); err != nil {
		return nil, err
	}

	p := *current
	p.Collaborators = list.Items()
	var updated *model.Project
	_, err = s.projects.Apply(ctx, func(ctx context.Context) error {
		var err error
		updated, err = s.backend.UpdateProject(ctx, p)
		return err
	})
	if updated == nil {
		return nil, err
	}
	return updated, err
}

// AddProjectCollaborator grants email access to a project
func (s *Service) AddProjectCollaborator(ctx context.Context, id, email string, level permission.Level) (*model.Project, error) {
	return s.editProjectCollaborators(ctx, id, func(l *collab.List) error { return l.Add(email, level) })
}

// RemoveProjectCollaborator revokes access by email or collaborator id
func (s *Service) RemoveProjectCollaborator(ctx context.Context, id, ref string) (*model.Project, error) {
	return s.editProjectCollaborators(ctx, id, func(l *collab.List) error { return l.Remove(ref) })
}

// SetProjectCollaboratorPermission changes one collaborator's level
func (s *Service) SetProjectCollaboratorPermission(ctx context.Context, id, ref string, level permission.Level) (*model.Project, error) {
	return s.editProjectCollaborators(ctx, id, func(l *collab.List) error { return l.SetPermission(ref, level) })
}
