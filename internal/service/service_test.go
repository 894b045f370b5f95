package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/existflow/taskprox/internal/api"
	"github.com/existflow/taskprox/internal/apitest"
	"github.com/existflow/taskprox/internal/attachment"
	"github.com/existflow/taskprox/internal/collab"
	"github.com/existflow/taskprox/internal/form"
	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/permission"
	"github.com/existflow/taskprox/internal/reconcile"
	"github.com/existflow/taskprox/internal/session"
	"github.com/stretchr/testify/suite"
)

// memorySession keeps the token in memory and decodes identity from it
type memorySession struct {
	token      string
	remember   bool
	identity   permission.Identity
	user       *model.User
	remembered string
}

func (m *memorySession) Init(_ context.Context, token string, remember bool) error {
	claims, err := session.ParseClaims(token)
	if err != nil {
		return err
	}
	m.token, m.remember = token, remember
	m.identity = permission.Identity{Email: claims.Email, FullName: claims.FullName()}
	return nil
}

func (m *memorySession) Teardown(context.Context) error {
	*m = memorySession{remembered: m.remembered}
	return nil
}

func (m *memorySession) Token() string                 { return m.token }
func (m *memorySession) LoggedIn() bool                { return m.token != "" }
func (m *memorySession) Identity() permission.Identity { return m.identity }
func (m *memorySession) SetUser(_ context.Context, u *model.User) error {
	m.user = u
	return nil
}
func (m *memorySession) SetRememberedEmail(_ context.Context, email string) error {
	m.remembered = email
	return nil
}

type ServiceSuite struct {
	suite.Suite
	backend *apitest.Backend
	sess    *memorySession
	svc     *Service
	ctx     context.Context
}

func (s *ServiceSuite) SetupTest() {
	s.backend = apitest.New(s.T())
	s.backend.AddUser(model.User{Email: "ana@x.com", FirstName: "Ana", LastName: "Lopez"}, "secret")
	s.backend.AddUser(model.User{Email: "bob@x.com", FirstName: "Bob", LastName: "Diaz"}, "secret")
	s.backend.AddUser(model.User{Email: "carl@x.com", FirstName: "Carl", LastName: "Ruiz"}, "secret")

	s.sess = &memorySession{}
	client := api.NewClient(api.Options{BaseURL: s.backend.URL(), Tokens: s.sess})
	s.svc = New(client, s.sess, permission.NewResolver(permission.MatchEmailOrName))
	s.ctx = context.Background()
}

func (s *ServiceSuite) loginAs(email string) {
	_, err := s.svc.Login(s.ctx, model.Credentials{Email: email, Password: "secret"})
	s.Require().NoError(err)
}

// seedShared stores a task owned by Ana where Bob can write and Carl can read
func (s *ServiceSuite) seedShared() model.Task {
	return s.backend.SeedTask(model.Task{
		Title:       "Shared",
		Creator:     "ana@x.com",
		CreatorName: "Ana Lopez",
		Collaborators: []model.Collaborator{
			{Email: "bob@x.com", Permission: "write"},
			{Email: "carl@x.com", Permission: "read"},
		},
	})
}

func (s *ServiceSuite) requestCount(method string) int {
	n := 0
	for _, r := range s.backend.Requests() {
		if r.Method == method {
			n++
		}
	}
	return n
}

func (s *ServiceSuite) TestLoginCachesProfileAndRememberedEmail() {
	user, err := s.svc.Login(s.ctx, model.Credentials{Email: " ana@x.com ", Password: "secret", RememberMe: true})
	s.Require().NoError(err)
	s.Equal("Ana Lopez", user.FullName())
	s.Equal("ana@x.com", s.sess.remembered)
	s.Equal("Ana Lopez", s.sess.Identity().FullName)
	s.Equal(user, s.sess.user)
}

func (s *ServiceSuite) TestLoginValidatesBeforeRequest() {
	_, err := s.svc.Login(s.ctx, model.Credentials{Email: "nope", Password: ""})
	var fe *form.Error
	s.Require().ErrorAs(err, &fe)
	s.Empty(s.backend.Requests())
}

func (s *ServiceSuite) TestRegisterPasswordMismatch() {
	_, err := s.svc.Register(s.ctx, model.Registration{
		FirstName: "D", LastName: "E", Address: "A", PostalCode: "1", Email: "d@x.com", Password: "one",
	}, "two")
	s.ErrorIs(err, form.ErrPasswordMismatch)
	s.Empty(s.backend.Requests())
}

func (s *ServiceSuite) TestReadCollaboratorCannotToggle() {
	t := s.seedShared()
	s.loginAs("carl@x.com")
	_, err := s.svc.LoadTasks(s.ctx, model.TaskFilter{})
	s.Require().NoError(err)

	_, err = s.svc.ToggleDone(s.ctx, t.ID)
	s.ErrorIs(err, ErrForbidden)
	s.Zero(s.requestCount(http.MethodPatch))

	s.Equal(permission.Read, s.svc.TaskPermission(t))
}

func (s *ServiceSuite) TestWriteCollaboratorToggles() {
	t := s.seedShared()
	s.loginAs("bob@x.com")
	_, err := s.svc.LoadTasks(s.ctx, model.TaskFilter{})
	s.Require().NoError(err)

	updated, err := s.svc.ToggleDone(s.ctx, t.ID)
	s.Require().NoError(err)
	s.True(updated.IsDone())

	found, ok := s.svc.FindTask(t.ID)
	s.Require().True(ok)
	s.True(found.IsDone())

	_, err = s.svc.ToggleDone(s.ctx, t.ID)
	s.Require().NoError(err)
	found, _ = s.svc.FindTask(t.ID)
	s.Equal(model.StatusPending, found.Status.Kind)
}

func (s *ServiceSuite) TestWriteCollaboratorCannotDelete() {
	t := s.seedShared()
	s.loginAs("bob@x.com")

	s.ErrorIs(s.svc.DeleteTask(s.ctx, t.ID), ErrForbidden)
	s.Len(s.backend.Tasks(), 1)
}

func (s *ServiceSuite) TestFailedDeleteKeepsTask() {
	t := s.seedShared()
	s.loginAs("ana@x.com")
	_, err := s.svc.LoadTasks(s.ctx, model.TaskFilter{})
	s.Require().NoError(err)

	s.backend.Fail(http.MethodDelete, "/api/tasks/"+t.ID, http.StatusInternalServerError, "boom")
	err = s.svc.DeleteTask(s.ctx, t.ID)

	var apiErr *api.Error
	s.Require().ErrorAs(err, &apiErr)
	s.Equal("boom", apiErr.Message)
	_, ok := s.svc.FindTask(t.ID)
	s.True(ok)

	s.Require().NoError(s.svc.DeleteTask(s.ctx, t.ID))
	s.Empty(s.svc.Tasks())
}

func (s *ServiceSuite) TestCreateWithFailedRefreshIsStale() {
	s.loginAs("ana@x.com")
	_, err := s.svc.LoadTasks(s.ctx, model.TaskFilter{})
	s.Require().NoError(err)

	s.backend.Fail(http.MethodGet, "/api/tasks", http.StatusBadGateway, "upstream down")
	created, err := s.svc.CreateTask(s.ctx, model.Task{Title: "Saved anyway"}, nil)

	s.Require().NotNil(created)
	s.True(reconcile.IsStale(err))
	s.True(s.svc.TasksStale())
	s.Empty(s.svc.Tasks())
	s.Len(s.backend.Tasks(), 1)

	_, err = s.svc.RefreshTasks(s.ctx)
	s.Require().NoError(err)
	s.False(s.svc.TasksStale())
	s.Len(s.svc.Tasks(), 1)
}

func (s *ServiceSuite) TestCreateTaskValidation() {
	s.loginAs("ana@x.com")

	_, err := s.svc.CreateTask(s.ctx, model.Task{Title: "   "}, nil)
	s.ErrorIs(err, ErrTitleRequired)

	files := []attachment.File{
		{Name: "a.pdf", Type: "application/pdf", Content: []byte("%PDF-1")},
		{Name: "b.pdf", Type: "application/pdf", Content: []byte("%PDF-1")},
		{Name: "c.pdf", Type: "application/pdf", Content: []byte("%PDF-1")},
	}
	_, err = s.svc.CreateTask(s.ctx, model.Task{Title: "Docs"}, files)
	s.ErrorIs(err, attachment.ErrTooMany)
	s.Zero(s.requestCount(http.MethodPost) - 1) // only the login
}

func (s *ServiceSuite) TestCreateTaskWithAttachment() {
	s.loginAs("ana@x.com")

	created, err := s.svc.CreateTask(s.ctx, model.Task{Title: " Docs ", Status: model.NewStatus(model.StatusInProgress)},
		[]attachment.File{{Name: "a.pdf", Type: "application/pdf", Content: []byte("%PDF-1")}})
	s.Require().NoError(err)
	s.Equal("Docs", created.Title)
	s.Equal("ana@x.com", created.Creator)
	s.Equal("Ana Lopez", created.CreatorName)
	s.Require().Len(created.Recurso, 1)

	dir := s.T().TempDir()
	path, err := s.svc.DownloadAttachment(s.ctx, created.ID, "a.pdf", dir)
	s.Require().NoError(err)
	s.FileExists(path)

	updated, err := s.svc.RemoveAttachment(s.ctx, created.ID, "a.pdf")
	s.Require().NoError(err)
	s.Empty(updated.Recurso)
}

func (s *ServiceSuite) TestDuplicateTask() {
	t := s.seedShared()
	s.loginAs("carl@x.com")

	dup, err := s.svc.DuplicateTask(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal("Shared (copia)", dup.Title)
	s.Equal("carl@x.com", dup.Creator)
	s.Empty(dup.Collaborators)
	s.Equal(permission.Admin, s.svc.TaskPermission(*dup))
}

func (s *ServiceSuite) TestTaskCollaborators() {
	t := s.seedShared()
	s.loginAs("bob@x.com")
	_, err := s.svc.AddTaskCollaborator(s.ctx, t.ID, "dan@x.com", permission.Read)
	s.ErrorIs(err, ErrForbidden)
	s.ErrorIs(err, collab.ErrForbidden)

	s.Require().NoError(s.svc.Logout(s.ctx))
	s.loginAs("ana@x.com")

	_, err = s.svc.AddTaskCollaborator(s.ctx, t.ID, "BOB@x.com", permission.Admin)
	s.ErrorIs(err, collab.ErrDuplicate)

	updated, err := s.svc.AddTaskCollaborator(s.ctx, t.ID, "dan@x.com", permission.Read)
	s.Require().NoError(err)
	s.Len(updated.Collaborators, 3)

	updated, err = s.svc.SetTaskCollaboratorPermission(s.ctx, t.ID, "carl@x.com", permission.Write)
	s.Require().NoError(err)
	s.Equal("write", updated.Collaborators[1].Permission)

	updated, err = s.svc.RemoveTaskCollaborator(s.ctx, t.ID, "bob@x.com")
	s.Require().NoError(err)
	s.Equal([]string{"carl@x.com", "dan@x.com"}, []string{updated.Collaborators[0].Email, updated.Collaborators[1].Email})
}

func (s *ServiceSuite) TestUpdateTaskKeepsCollaboratorsForWriters() {
	t := s.seedShared()
	s.loginAs("bob@x.com")

	edit := t
	edit.Title = "Renamed"
	edit.Collaborators = nil
	updated, err := s.svc.UpdateTask(s.ctx, edit, nil)
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Title)
	s.Len(updated.Collaborators, 2)
	s.Equal("ana@x.com", updated.Creator)
}

func (s *ServiceSuite) TestUpdateTaskIgnoresStoredInvalidPermission() {
	t := s.backend.SeedTask(model.Task{
		Title:   "Legacy",
		Creator: "ana@x.com",
		Collaborators: []model.Collaborator{
			{Email: "bob@x.com", Permission: "write"},
			{Email: "eve@x.com", Permission: "viewer"},
		},
	})

	s.loginAs("bob@x.com")
	edit := t
	edit.Title = "Renamed"
	updated, err := s.svc.UpdateTask(s.ctx, edit, nil)
	s.Require().NoError(err)
	s.Equal("Renamed", updated.Title)
	s.Equal("viewer", s.backend.Tasks()[0].Collaborators[1].Permission)

	s.Require().NoError(s.svc.Logout(s.ctx))
	s.loginAs("ana@x.com")
	puts := s.requestCount(http.MethodPut)

	edit = s.backend.Tasks()[0]
	edit.Title = "Renamed again"
	_, err = s.svc.UpdateTask(s.ctx, edit, nil)
	s.Require().NoError(err)

	edit = s.backend.Tasks()[0]
	edit.Collaborators = append([]model.Collaborator(nil), edit.Collaborators...)
	edit.Collaborators[1].Permission = "owner"
	_, err = s.svc.UpdateTask(s.ctx, edit, nil)
	s.Error(err)
	s.Equal(puts+1, s.requestCount(http.MethodPut))
}

func (s *ServiceSuite) TestServerLevelUsedWithoutLocalProject() {
	t := s.backend.SeedTask(model.Task{
		Title:               "Inherited",
		Creator:             "ana@x.com",
		ProjectID:           "p-unlisted",
		EffectivePermission: "write",
	})
	s.loginAs("carl@x.com")

	s.Equal(permission.Write, s.svc.TaskPermission(t))

	edit := t
	edit.Title = "Edited by carl"
	updated, err := s.svc.UpdateTask(s.ctx, edit, nil)
	s.Require().NoError(err)
	s.Equal("Edited by carl", updated.Title)

	_, err = s.svc.AddTaskCollaborator(s.ctx, t.ID, "dan@x.com", permission.Read)
	s.ErrorIs(err, ErrForbidden)
}

func (s *ServiceSuite) TestProjectPermissionInherited() {
	p := s.backend.SeedProject(model.Project{Name: "Web", UserEmail: "ana@x.com",
		Collaborators: []model.Collaborator{{Email: "carl@x.com", Permission: "write"}}})
	t := s.backend.SeedTask(model.Task{Title: "Landing", Creator: "ana@x.com", ProjectID: p.ID})

	s.loginAs("carl@x.com")
	_, err := s.svc.LoadProjects(s.ctx)
	s.Require().NoError(err)

	s.Equal(permission.None, s.svc.Resolver().Resolve(t, s.svc.Identity()))
	s.Equal(permission.Write, s.svc.TaskPermission(t))
}

func (s *ServiceSuite) TestProjectLifecycle() {
	s.loginAs("ana@x.com")

	_, err := s.svc.CreateProject(s.ctx, model.Project{Name: " "})
	s.ErrorIs(err, ErrNameRequired)

	p, err := s.svc.CreateProject(s.ctx, model.Project{Name: "Web"})
	s.Require().NoError(err)
	s.Len(s.svc.Projects(), 1)
	s.Equal(permission.Admin, s.svc.ProjectPermission(*p))

	_, err = s.svc.CreateTask(s.ctx, model.Task{Title: "Landing", ProjectID: p.ID}, nil)
	s.Require().NoError(err)

	p, err = s.svc.AddProjectCollaborator(s.ctx, p.ID, "bob@x.com", permission.Read)
	s.Require().NoError(err)
	s.Len(p.Collaborators, 1)

	dup, err := s.svc.DuplicateProject(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("Web (copia)", dup.Name)
	s.Len(dup.Collaborators, 1)

	tasks, err := s.svc.LoadTasks(s.ctx, model.TaskFilter{ProjectID: dup.ID})
	s.Require().NoError(err)
	s.Require().Len(tasks, 1)
	s.Equal("Landing (copia)", tasks[0].Title)

	sums, err := s.svc.Summary(s.ctx)
	s.Require().NoError(err)
	s.Len(sums, 2)

	s.Require().NoError(s.svc.DeleteProject(s.ctx, dup.ID))
	s.Len(s.svc.Projects(), 1)
}

func (s *ServiceSuite) TestReadProjectCollaboratorCannotEdit() {
	p := s.backend.SeedProject(model.Project{Name: "Web", UserEmail: "ana@x.com",
		Collaborators: []model.Collaborator{{Email: "bob@x.com", Permission: "read"}}})
	s.loginAs("bob@x.com")
	_, err := s.svc.LoadProjects(s.ctx)
	s.Require().NoError(err)

	p.Name = "Hijacked"
	_, err = s.svc.UpdateProject(s.ctx, p)
	s.ErrorIs(err, ErrForbidden)

	_, err = s.svc.CreateTask(s.ctx, model.Task{Title: "x", ProjectID: p.ID}, nil)
	s.ErrorIs(err, ErrForbidden)
}

func (s *ServiceSuite) TestUpdateProjectKeepsCollaboratorsForWriters() {
	p := s.backend.SeedProject(model.Project{Name: "Web", UserEmail: "ana@x.com",
		Collaborators: []model.Collaborator{{Email: "bob@x.com", Permission: "write"}}})
	s.loginAs("bob@x.com")
	_, err := s.svc.LoadProjects(s.ctx)
	s.Require().NoError(err)

	edit := p
	edit.Name = "Web v2"
	edit.Collaborators = []model.Collaborator{
		{Email: "bob@x.com", Permission: "admin"},
		{Email: "eve@x.com", Permission: "admin"},
	}
	updated, err := s.svc.UpdateProject(s.ctx, edit)
	s.Require().NoError(err)
	s.Equal("Web v2", updated.Name)

	stored := s.backend.Projects()[0]
	s.Equal([]model.Collaborator{{Email: "bob@x.com", Permission: "write"}}, stored.Collaborators)
	s.Equal("ana@x.com", stored.UserEmail)
	s.Equal(permission.Write, s.svc.ProjectPermission(stored))
}

func (s *ServiceSuite) TestUpdateProjectAdminChangesCollaborators() {
	p := s.backend.SeedProject(model.Project{Name: "Web", UserEmail: "ana@x.com",
		Collaborators: []model.Collaborator{{Email: "bob@x.com", Permission: "write"}}})
	s.loginAs("ana@x.com")

	edit := p
	edit.Collaborators = []model.Collaborator{{Email: "bob@x.com", Permission: "read"}}
	_, err := s.svc.UpdateProject(s.ctx, edit)
	s.Require().NoError(err)
	s.Equal("read", s.backend.Projects()[0].Collaborators[0].Permission)

	edit.Collaborators = []model.Collaborator{{Email: "bob@x.com", Permission: "owner"}}
	_, err = s.svc.UpdateProject(s.ctx, edit)
	s.Error(err)
	s.Equal("read", s.backend.Projects()[0].Collaborators[0].Permission)
}

func (s *ServiceSuite) TestViewTaskWithoutPermission() {
	t := s.backend.SeedTask(model.Task{Title: "Private", Creator: "ana@x.com"})
	s.loginAs("bob@x.com")

	_, level, err := s.svc.ViewTask(s.ctx, t.ID)
	s.ErrorIs(err, ErrForbidden)
	s.ErrorContains(err, permission.NoPermissionMessage)
	s.Equal(permission.None, level)

	_, _, err = s.svc.ViewTask(s.ctx, "missing")
	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *ServiceSuite) TestDeleteAccountLogsOut() {
	s.loginAs("carl@x.com")
	s.Require().NoError(s.svc.DeleteAccount(s.ctx))
	s.False(s.sess.LoggedIn())

	_, err := s.svc.Profile(s.ctx)
	s.ErrorIs(err, ErrNotLoggedIn)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
