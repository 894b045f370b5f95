// Package service is the application layer shared by the CLI and the TUI.
// Every mutation is checked against the caller's resolved permission before
// a request is made, and every successful mutation refreshes the affected
// list from the server.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/existflow/taskprox/internal/api"
	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/permission"
	"github.com/existflow/taskprox/internal/reconcile"
)

var (
	ErrForbidden     = errors.New("permission denied")
	ErrTitleRequired = errors.New("title is required")
	ErrNameRequired  = errors.New("project name is required")
	ErrTaskNotFound  = errors.New("task not found")
	ErrNotLoggedIn   = errors.New("not logged in")
)

// CopySuffix is appended to duplicated titles and names
const CopySuffix = " (copia)"

// AuthAPI is the account half of the backend
type AuthAPI interface {
	Login(ctx context.Context, creds model.Credentials) (*api.LoginResult, error)
	Register(ctx context.Context, reg model.Registration) (string, error)
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, reset model.PasswordReset) (string, error)
	Me(ctx context.Context) (*model.User, error)
	UpdateProfile(ctx context.Context, update model.ProfileUpdate) (string, error)
	DeleteAccount(ctx context.Context) (string, error)
}

// ProjectAPI is the project half of the backend
type ProjectAPI interface {
	ListProjects(ctx context.Context) ([]model.Project, error)
	GetProject(ctx context.Context, id string) (*model.Project, error)
	CreateProject(ctx context.Context, p model.Project) (*model.Project, error)
	UpdateProject(ctx context.Context, p model.Project) (*model.Project, error)
	DeleteProject(ctx context.Context, id string) error
	ProjectSummary(ctx context.Context) ([]model.ProjectSummary, error)
}

// TaskAPI is the task half of the backend
type TaskAPI interface {
	ListTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	ListTasksByProject(ctx context.Context, projectID string) ([]model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	CreateTask(ctx context.Context, t model.Task) (*model.Task, error)
	UpdateTask(ctx context.Context, t model.Task) (*model.Task, error)
	UpdateTaskStatus(ctx context.Context, id string, status model.Status) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Backend is everything the service needs from the server
type Backend interface {
	AuthAPI
	ProjectAPI
	TaskAPI
}

// Session is the signed-in user's context
type Session interface {
	Init(ctx context.Context, token string, remember bool) error
	Teardown(ctx context.Context) error
	Identity() permission.Identity
	LoggedIn() bool
	SetUser(ctx context.Context, u *model.User) error
	SetRememberedEmail(ctx context.Context, email string) error
}

// Service coordinates the backend, the session and the local lists
type Service struct {
	backend  Backend
	session  Session
	resolver permission.Resolver
	now      func() time.Time

	filter   model.TaskFilter
	tasks    *reconcile.List[model.Task]
	projects *reconcile.List[model.Project]
}

// New creates a service
func New(backend Backend, session Session, resolver permission.Resolver) *Service {
	s := &Service{
		backend:  backend,
		session:  session,
		resolver: resolver,
		now:      time.Now,
	}
	s.tasks = reconcile.New(func(ctx context.Context) ([]model.Task, error) {
		return s.backend.ListTasks(ctx, s.filter)
	})
	s.projects = reconcile.New(s.backend.ListProjects)
	return s
}

// Identity returns the acting user
func (s *Service) Identity() permission.Identity {
	return s.session.Identity()
}

// Resolver returns the permission resolver shared by every view
func (s *Service) Resolver() permission.Resolver {
	return s.resolver
}

func forbidden(c permission.Capability) error {
	return fmt.Errorf("%w: you cannot %s this item", ErrForbidden, c)
}

func check(level permission.Level, c permission.Capability) error {
	if !permission.Can(level, c) {
		return forbidden(c)
	}
	return nil
}
