package tui

import (
	"context"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/existflow/taskprox/internal/attachment"
	"github.com/existflow/taskprox/internal/logger"
	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/permission"
	"github.com/existflow/taskprox/internal/view"
)

// Service is the part of the task service the TUI drives
type Service interface {
	Identity() permission.Identity
	LoadProjects(ctx context.Context) ([]model.Project, error)
	Projects() []model.Project
	ProjectsStale() bool
	LoadTasks(ctx context.Context, filter model.TaskFilter) ([]model.Task, error)
	Tasks() []model.Task
	TasksStale() bool
	TaskPermission(t model.Task) permission.Level
	ProjectPermission(p model.Project) permission.Level
	CreateTask(ctx context.Context, t model.Task, files []attachment.File) (*model.Task, error)
	UpdateTask(ctx context.Context, t model.Task, files []attachment.File) (*model.Task, error)
	DeleteTask(ctx context.Context, id string) error
	DuplicateTask(ctx context.Context, id string) (*model.Task, error)
	ToggleDone(ctx context.Context, id string) (*model.Task, error)
	CreateProject(ctx context.Context, p model.Project) (*model.Project, error)
	Logout(ctx context.Context) error
}

// Pane represents which pane is focused
type Pane int

const (
	PaneSidebar Pane = iota
	PaneTaskList
)

// Mode represents the current UI mode
type Mode int

const (
	ModeNormal Mode = iota
	ModeAddTask
	ModeAddProject
	ModeEditTask
	ModeConfirmDelete
	ModeHelp
)

// AllTasks labels the sidebar entry that lists every visible task
const AllTasks = "Todas"

// Options configures a Model
type Options struct {
	View          view.Mode
	ConfirmDelete bool
	Timeout       time.Duration
	Now           func() time.Time
}

// Model is the main TUI model
type Model struct {
	svc  Service
	opts Options

	projects []model.Project
	all      []view.Row // every task, in service order
	rows     []view.Row // the rows the cursor walks, in drawing order

	// UI state
	width      int
	height     int
	pane       Pane
	mode       Mode
	viewMode   view.Mode
	month      time.Time
	projCursor int // 0 is AllTasks, i+1 is projects[i]
	taskCursor int

	input textinput.Model

	// Set while a request is in flight; keys are ignored until it clears.
	loading bool

	message string
	failed  bool
	quit    bool
}

// NewModel creates a new TUI model
func NewModel(svc Service, opts Options) Model {
	logger.Info("Initializing TUI model", logger.F("view", opts.View))

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.View == "" {
		opts.View = view.ModeTable
	}

	ti := textinput.New()
	ti.CharLimit = 256
	ti.Width = 50

	now := opts.Now()
	return Model{
		svc:      svc,
		opts:     opts,
		pane:     PaneSidebar,
		mode:     ModeNormal,
		viewMode: opts.View,
		month:    time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC),
		input:    ti,
		loading:  true,
	}
}

func (m *Model) currentProject() *model.Project {
	i := m.projCursor - 1
	if i >= 0 && i < len(m.projects) {
		return &m.projects[i]
	}
	return nil
}

func (m *Model) currentRow() *view.Row {
	if m.taskCursor >= 0 && m.taskCursor < len(m.rows) {
		return &m.rows[m.taskCursor]
	}
	return nil
}

func (m *Model) filter() model.TaskFilter {
	if p := m.currentProject(); p != nil {
		return model.TaskFilter{ProjectID: p.ID}
	}
	return model.TaskFilter{}
}

// rebuildRows re-derives the rows from the service's task list, ordered the
// way the active view draws them so the cursor walks cards in screen order.
func (m *Model) rebuildRows() {
	rows := view.Rows(m.svc.Tasks(), m.svc.TaskPermission, m.opts.Now())
	m.all = rows
	switch m.viewMode {
	case view.ModeKanban:
		rows = view.KanbanOrder(view.KanbanColumns(rows))
	case view.ModeCalendar:
		rows = calendarOrder(rows, m.month)
	}
	m.rows = rows

	if m.taskCursor >= len(m.rows) {
		m.taskCursor = len(m.rows) - 1
	}
	if m.taskCursor < 0 {
		m.taskCursor = 0
	}
}

// calendarOrder keeps the rows scheduled in month, by day
func calendarOrder(rows []view.Row, month time.Time) []view.Row {
	days := view.CalendarDays(rows, month)
	keys := make([]int, 0, len(days))
	for d := range days {
		keys = append(keys, d)
	}
	sort.Ints(keys)

	var out []view.Row
	for _, d := range keys {
		out = append(out, days[d]...)
	}
	return out
}
