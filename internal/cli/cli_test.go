package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/existflow/taskprox/internal/apitest"
	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/suite"
)

type CLISuite struct {
	suite.Suite
	backend *apitest.Backend
	home    string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.backend = apitest.New(s.T())
	s.backend.AddUser(model.User{Email: "ana@x.com", FirstName: "Ana", LastName: "Lopez"}, "secret")
	s.backend.AddUser(model.User{Email: "carl@x.com", FirstName: "Carl", LastName: "Ruiz"}, "secret")

	s.home = s.T().TempDir()
	s.T().Setenv("TASKPROX_HOME", s.home)
	s.T().Setenv("TMPDIR", s.T().TempDir())
	s.T().Setenv("TASKPROX_SERVER_URL", s.backend.URL())
	s.T().Setenv("TASKPROX_SESSION_CHECK_DELAY", "1ms")
}

// resetFlags clears values and Changed marks left by a previous run
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// run executes the root command with stdin and returns stdout
func (s *CLISuite) run(stdin string, args ...string) (string, error) {
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (s *CLISuite) login(email string) {
	out, err := s.run(email+"\nsecret\n", "auth", "login")
	s.Require().NoError(err)
	s.Contains(out, "Logged in as")
}

func (s *CLISuite) TestCommandsNeedLogin() {
	_, err := s.run("", "task", "ls")
	s.ErrorIs(err, service.ErrNotLoggedIn)
}

func (s *CLISuite) TestLoginWhoamiLogout() {
	out, err := s.run("ana@x.com\nsecret\n", "auth", "login")
	s.Require().NoError(err)
	s.Contains(out, "Logged in as Ana Lopez")

	out, err = s.run("", "auth", "whoami")
	s.Require().NoError(err)
	s.Contains(out, "Ana Lopez <ana@x.com>")

	out, err = s.run("", "auth", "logout")
	s.Require().NoError(err)
	s.Contains(out, "Logged out")

	_, err = s.run("", "auth", "whoami")
	s.ErrorIs(err, service.ErrNotLoggedIn)
}

func (s *CLISuite) TestWrongPassword() {
	_, err := s.run("ana@x.com\nnope\n", "auth", "login")
	s.Error(err)
}

func (s *CLISuite) TestProjectAndTaskFlow() {
	s.login("ana@x.com")

	out, err := s.run("", "project", "add", "Web", "--description", "Relaunch")
	s.Require().NoError(err)
	s.Contains(out, "Created project: Web")
	s.Require().Len(s.backend.Projects(), 1)
	projectID := s.backend.Projects()[0].ID

	out, err = s.run("", "project", "ls")
	s.Require().NoError(err)
	s.Contains(out, projectID)
	s.Contains(out, "admin")

	out, err = s.run("", "task", "add", "Write", "copy", "--project", projectID, "--deadline", "2026-03-10")
	s.Require().NoError(err)
	s.Contains(out, `Added: "Write copy"`)

	tasks := s.backend.Tasks()
	s.Require().Len(tasks, 1)
	s.Equal(projectID, tasks[0].ProjectID)
	s.Require().NotNil(tasks[0].Deadline)
	s.Equal("2026-03-10", tasks[0].Deadline.String())

	out, err = s.run("", "task", "ls")
	s.Require().NoError(err)
	s.Contains(out, "Write copy")
	s.Contains(out, "2026-03-10")

	out, err = s.run("", "task", "done", tasks[0].ID)
	s.Require().NoError(err)
	s.Contains(out, "Completed")
	s.True(s.backend.Tasks()[0].IsDone())

	out, err = s.run("", "task", "dup", tasks[0].ID)
	s.Require().NoError(err)
	s.Contains(out, "Write copy (copia)")
	s.Len(s.backend.Tasks(), 2)
}

func (s *CLISuite) TestTaskEditKeepsUnsetFields() {
	s.login("ana@x.com")
	t := s.backend.SeedTask(model.Task{Title: "Draft", Description: "keep me", Creator: "ana@x.com"})

	_, err := s.run("", "task", "edit", t.ID, "--title", "Final")
	s.Require().NoError(err)

	got := s.backend.Tasks()[0]
	s.Equal("Final", got.Title)
	s.Equal("keep me", got.Description)
}

func (s *CLISuite) TestReadCollaboratorIsRefused() {
	t := s.backend.SeedTask(model.Task{
		Title:         "Shared",
		Creator:       "ana@x.com",
		CreatorName:   "Ana Lopez",
		Collaborators: []model.Collaborator{{Email: "carl@x.com", Permission: "read"}},
	})
	s.login("carl@x.com")

	_, err := s.run("", "task", "done", t.ID)
	s.ErrorIs(err, service.ErrForbidden)
	s.False(s.backend.Tasks()[0].IsDone())

	_, err = s.run("", "task", "rm", t.ID, "--yes")
	s.ErrorIs(err, service.ErrForbidden)
	s.Len(s.backend.Tasks(), 1)
}

func (s *CLISuite) TestDeleteAsksForConfirmation() {
	s.login("ana@x.com")
	t := s.backend.SeedTask(model.Task{Title: "Old", Creator: "ana@x.com"})

	out, err := s.run("n\n", "task", "rm", t.ID)
	s.Require().NoError(err)
	s.Contains(out, "Cancelled")
	s.Len(s.backend.Tasks(), 1)

	out, err = s.run("y\n", "task", "rm", t.ID)
	s.Require().NoError(err)
	s.Contains(out, "Deleted")
	s.Empty(s.backend.Tasks())
}

func (s *CLISuite) TestViewKanban() {
	s.login("ana@x.com")
	s.backend.SeedTask(model.Task{Title: "Ship", Creator: "ana@x.com", Status: model.NewStatus(model.StatusInProgress)})

	out, err := s.run("", "view", "kanban", "--width", "160")
	s.Require().NoError(err)
	s.Contains(out, "En progreso (1)")
	s.Contains(out, "Ship")
}

func (s *CLISuite) TestViewCalendarRejectsBadMonth() {
	_, err := s.run("", "view", "calendar", "--month", "March")
	s.ErrorContains(err, "YYYY-MM")
}

func (s *CLISuite) TestConfigSetAndShow() {
	out, err := s.run("", "config", "set", "default_view", "kanban")
	s.Require().NoError(err)
	s.Contains(out, "default_view = kanban")

	data, err := os.ReadFile(filepath.Join(s.home, "config.yaml"))
	s.Require().NoError(err)
	s.Contains(string(data), "default_view: kanban")

	out, err = s.run("", "config", "show")
	s.Require().NoError(err)
	s.Contains(out, "kanban")

	_, err = s.run("", "config", "set", "default_view", "gantt")
	s.Error(err)
}
