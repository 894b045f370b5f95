package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/taskprox/internal/logger"
	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/permission"
	"github.com/existflow/taskprox/internal/reconcile"
	"github.com/existflow/taskprox/internal/view"
)

// projectsMsg carries the result of a project list load
type projectsMsg struct {
	projects []model.Project
	err      error
}

// tasksMsg reports a task list load. The tasks themselves stay in the service.
type tasksMsg struct {
	err error
}

// actionMsg reports a finished mutation
type actionMsg struct {
	message        string
	err            error
	reloadProjects bool
}

// logoutMsg is sent once the session is torn down
type logoutMsg struct {
	err error
}

// Init loads the project list
func (m Model) Init() tea.Cmd {
	return m.loadProjects()
}

// request runs fn off the UI goroutine with the configured timeout
func (m Model) request(fn func(ctx context.Context) tea.Msg) tea.Cmd {
	timeout := m.opts.Timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return fn(ctx)
	}
}

func (m Model) loadProjects() tea.Cmd {
	svc := m.svc
	return m.request(func(ctx context.Context) tea.Msg {
		projects, err := svc.LoadProjects(ctx)
		return projectsMsg{projects: projects, err: err}
	})
}

func (m Model) loadTasks() tea.Cmd {
	svc, filter := m.svc, m.filter()
	return m.request(func(ctx context.Context) tea.Msg {
		_, err := svc.LoadTasks(ctx, filter)
		return tasksMsg{err: err}
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case projectsMsg:
		m.projects = msg.projects
		if m.projCursor > len(m.projects) {
			m.projCursor = 0
		}
		if msg.err != nil {
			m.setError("Could not load projects", msg.err)
		}
		return m, m.loadTasks()

	case tasksMsg:
		m.loading = false
		m.rebuildRows()
		if msg.err != nil {
			m.setError("Could not load tasks", msg.err)
		}
		return m, nil

	case actionMsg:
		m.loading = false
		m.rebuildRows()
		switch {
		case reconcile.IsStale(msg.err):
			m.message = msg.message + " (list may be out of date, press R)"
			m.failed = true
		case msg.err != nil:
			m.setError("", msg.err)
		default:
			m.message = msg.message
			m.failed = false
		}
		if msg.reloadProjects && msg.err == nil {
			m.loading = true
			return m, m.loadProjects()
		}
		return m, nil

	case logoutMsg:
		m.loading = false
		if msg.err != nil {
			m.setError("Logout error", msg.err)
			return m, nil
		}
		m.quit = true
		return m, tea.Quit

	case tea.KeyMsg:
		if m.loading {
			if msg.String() == "ctrl+c" {
				m.quit = true
				return m, tea.Quit
			}
			return m, nil
		}

		switch m.mode {
		case ModeAddTask, ModeAddProject, ModeEditTask:
			return m.updateInput(msg)
		case ModeConfirmDelete:
			return m.updateConfirm(msg)
		case ModeHelp:
			m.mode = ModeNormal
			return m, nil
		}
		return m.handleNormalKeys(msg)
	}

	return m, nil
}

func (m *Model) setError(prefix string, err error) {
	logger.Warn("TUI action failed", logger.F("error", err))
	m.failed = true
	if prefix == "" {
		m.message = err.Error()
		return
	}
	m.message = fmt.Sprintf("%s: %v", prefix, err)
}

func (m *Model) refuse(row *view.Row, c permission.Capability) {
	m.failed = true
	if !row.Visible() {
		m.message = permission.NoPermissionMessage
		return
	}
	m.message = fmt.Sprintf("Not allowed: %s (%s access)", c, row.Level)
}

func (m Model) handleNormalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quit = true
		return m, tea.Quit

	case key.Matches(msg, keys.Help):
		m.mode = ModeHelp
		return m, nil

	case key.Matches(msg, keys.Tab):
		if m.pane == PaneSidebar {
			m.pane = PaneTaskList
		} else {
			m.pane = PaneSidebar
		}
		return m, nil

	case key.Matches(msg, keys.Left):
		m.pane = PaneSidebar
		return m, nil

	case key.Matches(msg, keys.Right):
		m.pane = PaneTaskList
		return m, nil

	case key.Matches(msg, keys.Up):
		return m.handleUp()

	case key.Matches(msg, keys.Down):
		return m.handleDown()

	case key.Matches(msg, keys.Enter):
		if m.pane == PaneSidebar {
			m.pane = PaneTaskList
			return m, nil
		}
		return m.handleToggleDone()

	case key.Matches(msg, keys.Add):
		return m.startAddTask()

	case key.Matches(msg, keys.Project):
		return m.startAddProject()

	case key.Matches(msg, keys.Edit):
		return m.startEditTask()

	case key.Matches(msg, keys.Done):
		return m.handleToggleDone()

	case key.Matches(msg, keys.Delete):
		return m.handleDelete()

	case key.Matches(msg, keys.Duplicate):
		return m.handleDuplicate()

	case key.Matches(msg, keys.View):
		m.viewMode = m.viewMode.Next()
		m.taskCursor = 0
		m.rebuildRows()
		m.message = fmt.Sprintf("View: %s", m.viewMode)
		m.failed = false
		return m, nil

	case key.Matches(msg, keys.PrevMonth), key.Matches(msg, keys.NextMonth):
		if m.viewMode != view.ModeCalendar {
			return m, nil
		}
		step := 1
		if key.Matches(msg, keys.PrevMonth) {
			step = -1
		}
		m.month = m.month.AddDate(0, step, 0)
		m.taskCursor = 0
		m.rebuildRows()
		return m, nil

	case key.Matches(msg, keys.Logout):
		m.loading = true
		svc := m.svc
		return m, m.request(func(ctx context.Context) tea.Msg {
			return logoutMsg{err: svc.Logout(ctx)}
		})

	case key.Matches(msg, keys.Refresh):
		m.loading = true
		m.message = ""
		return m, m.loadProjects()
	}

	return m, nil
}

func (m Model) handleUp() (tea.Model, tea.Cmd) {
	if m.pane == PaneSidebar {
		if m.projCursor > 0 {
			m.projCursor--
			return m.selectProject()
		}
		return m, nil
	}
	if m.taskCursor > 0 {
		m.taskCursor--
	}
	return m, nil
}

func (m Model) handleDown() (tea.Model, tea.Cmd) {
	if m.pane == PaneSidebar {
		if m.projCursor < len(m.projects) {
			m.projCursor++
			return m.selectProject()
		}
		return m, nil
	}
	if m.taskCursor < len(m.rows)-1 {
		m.taskCursor++
	}
	return m, nil
}

func (m Model) selectProject() (tea.Model, tea.Cmd) {
	m.taskCursor = 0
	m.loading = true
	return m, m.loadTasks()
}

// taskRow returns the selected row when the task pane has focus
func (m *Model) taskRow() *view.Row {
	if m.pane != PaneTaskList {
		return nil
	}
	return m.currentRow()
}

func (m Model) startAddTask() (tea.Model, tea.Cmd) {
	if p := m.currentProject(); p != nil && !permission.Can(m.svc.ProjectPermission(*p), permission.Edit) {
		m.failed = true
		m.message = fmt.Sprintf("You cannot add tasks to %s", p.Name)
		return m, nil
	}
	m.mode = ModeAddTask
	m.input.SetValue("")
	m.input.Placeholder = "Task title..."
	m.input.Focus()
	return m, textinput.Blink
}

func (m Model) startAddProject() (tea.Model, tea.Cmd) {
	m.mode = ModeAddProject
	m.input.SetValue("")
	m.input.Placeholder = "Project name..."
	m.input.Focus()
	return m, textinput.Blink
}

func (m Model) startEditTask() (tea.Model, tea.Cmd) {
	row := m.taskRow()
	if row == nil {
		return m, nil
	}
	if !permission.Can(row.Level, permission.Edit) {
		m.refuse(row, permission.Edit)
		return m, nil
	}
	m.mode = ModeEditTask
	m.input.SetValue(row.Task.Title)
	m.input.Placeholder = "Task title..."
	m.input.Focus()
	m.input.CursorEnd()
	return m, textinput.Blink
}

func (m Model) handleToggleDone() (tea.Model, tea.Cmd) {
	row := m.taskRow()
	if row == nil {
		return m, nil
	}
	if !row.CanToggle() {
		m.refuse(row, permission.ToggleStatus)
		return m, nil
	}

	m.loading = true
	svc, id := m.svc, row.Task.ID
	return m, m.request(func(ctx context.Context) tea.Msg {
		t, err := svc.ToggleDone(ctx, id)
		if t == nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: fmt.Sprintf("%s: %s", t.Title, t.Status.Label()), err: err}
	})
}

func (m Model) handleDelete() (tea.Model, tea.Cmd) {
	row := m.taskRow()
	if row == nil {
		return m, nil
	}
	if !permission.Can(row.Level, permission.Delete) {
		m.refuse(row, permission.Delete)
		return m, nil
	}
	if m.opts.ConfirmDelete {
		m.mode = ModeConfirmDelete
		return m, nil
	}
	return m.deleteTask(row.Task)
}

func (m Model) deleteTask(t model.Task) (tea.Model, tea.Cmd) {
	m.loading = true
	svc := m.svc
	return m, m.request(func(ctx context.Context) tea.Msg {
		err := svc.DeleteTask(ctx, t.ID)
		return actionMsg{message: fmt.Sprintf("Deleted: %s", t.Title), err: err}
	})
}

func (m Model) handleDuplicate() (tea.Model, tea.Cmd) {
	row := m.taskRow()
	if row == nil {
		return m, nil
	}
	if !permission.Can(row.Level, permission.Duplicate) {
		m.refuse(row, permission.Duplicate)
		return m, nil
	}

	m.loading = true
	svc, id := m.svc, row.Task.ID
	return m, m.request(func(ctx context.Context) tea.Msg {
		t, err := svc.DuplicateTask(ctx, id)
		if t == nil {
			return actionMsg{err: err}
		}
		return actionMsg{message: fmt.Sprintf("Created: %s", t.Title), err: err}
	})
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = ModeNormal
	row := m.currentRow()
	if row == nil || !key.Matches(msg, keys.Confirm) {
		m.message = "Delete cancelled"
		m.failed = false
		return m, nil
	}
	return m.deleteTask(row.Task)
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Escape):
		m.mode = ModeNormal
		return m, nil

	case key.Matches(msg, keys.Enter):
		value := m.input.Value()
		mode := m.mode
		m.mode = ModeNormal
		if value == "" {
			return m, nil
		}

		svc := m.svc
		switch mode {
		case ModeAddTask:
			t := model.Task{
				Title:     value,
				Status:    model.NewStatus(model.StatusPending),
				ProjectID: m.filter().ProjectID,
			}
			m.loading = true
			return m, m.request(func(ctx context.Context) tea.Msg {
				created, err := svc.CreateTask(ctx, t, nil)
				if created == nil {
					return actionMsg{err: err}
				}
				return actionMsg{message: fmt.Sprintf("Added: %s", created.Title), err: err}
			})

		case ModeAddProject:
			m.loading = true
			return m, m.request(func(ctx context.Context) tea.Msg {
				p, err := svc.CreateProject(ctx, model.Project{Name: value})
				if p == nil {
					return actionMsg{err: err}
				}
				return actionMsg{message: fmt.Sprintf("Created project: %s", p.Name), err: err, reloadProjects: true}
			})

		case ModeEditTask:
			row := m.currentRow()
			if row == nil {
				return m, nil
			}
			t := row.Task
			t.Title = value
			m.loading = true
			return m, m.request(func(ctx context.Context) tea.Msg {
				updated, err := svc.UpdateTask(ctx, t, nil)
				if updated == nil {
					return actionMsg{err: err}
				}
				return actionMsg{message: fmt.Sprintf("Updated: %s", updated.Title), err: err}
			})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// Run starts the program and blocks until the user quits
func Run(m Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen())
	start := time.Now()
	_, err := p.Run()
	logger.Info("TUI exited", logger.F("duration", time.Since(start).Round(time.Second)))
	return err
}
