package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/taskprox/internal/view"
)

const sidebarWidth = 24

// View renders the UI
func (m Model) View() string {
	if m.quit {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	sidebar := m.renderSidebar()
	taskList := m.renderTaskList()
	statusBar := m.renderStatusBar()

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, taskList)

	switch m.mode {
	case ModeAddTask, ModeAddProject, ModeEditTask:
		mainContent = m.place(m.renderModal())
	case ModeConfirmDelete:
		mainContent = m.place(m.renderConfirm())
	case ModeHelp:
		mainContent = m.renderHelp()
	}

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, statusBar)
}

func (m Model) place(modal string) string {
	return lipgloss.Place(
		m.width, m.height-2,
		lipgloss.Center, lipgloss.Center,
		modal,
		lipgloss.WithWhitespaceChars(" "),
	)
}

func (m Model) renderSidebar() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("TaskProX") + "\n")
	if id := m.svc.Identity(); id.Email != "" {
		b.WriteString(HelpStyle.Render(truncate(id.Email, sidebarWidth-4)) + "\n")
	}
	b.WriteString(lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", sidebarWidth-4)) + "\n\n")

	entries := make([]string, 0, len(m.projects)+1)
	entries = append(entries, fmt.Sprintf("  %s", AllTasks))
	for _, p := range m.projects {
		tag := levelTag(m.svc.ProjectPermission(p))
		entries = append(entries, fmt.Sprintf("%s %s", tag, truncate(p.Name, sidebarWidth-8)))
	}

	for i, e := range entries {
		cursor := "  "
		style := ProjectItemStyle
		if i == m.projCursor {
			cursor = "❯ "
			if m.pane == PaneSidebar {
				style = ProjectItemSelectedStyle
			}
		}
		b.WriteString(style.Render(cursor+e) + "\n")
	}

	if m.svc.ProjectsStale() {
		b.WriteString("\n" + ErrorStyle.Render("projects out of date"))
	}

	return SidebarStyle.Width(sidebarWidth).Height(m.height - 2).Render(b.String())
}

func (m Model) renderTaskList() string {
	width := m.width - sidebarWidth - 2
	var b strings.Builder

	title := AllTasks
	if p := m.currentProject(); p != nil {
		title = p.Name
	}
	pending := 0
	for _, r := range m.all {
		if r.Visible() && !r.Task.IsDone() {
			pending++
		}
	}
	header := fmt.Sprintf("%s (%d pending) · %s", title, pending, m.viewMode)
	b.WriteString(TitleStyle.Render(header) + "\n")
	b.WriteString(lipgloss.NewStyle().Foreground(Border).Render(strings.Repeat("─", max(width-4, 1))) + "\n\n")

	selected := ""
	if r := m.currentRow(); r != nil && m.pane == PaneTaskList {
		selected = r.Task.ID
	}

	switch m.viewMode {
	case view.ModeKanban:
		b.WriteString(view.Kanban(view.KanbanColumns(withSelection(m.rows, selected)), width-4))
	case view.ModeCalendar:
		b.WriteString(view.Calendar(withSelection(m.all, selected), m.month, m.opts.Now()))
	default:
		if len(m.rows) == 0 {
			b.WriteString(HelpStyle.Render("  " + view.EmptyMessage + ". Press 'a' to add one."))
		} else {
			b.WriteString(view.Table(withSelection(m.rows, selected), width-4))
		}
	}

	return TaskListStyle.Width(width).Height(m.height - 2).Render(b.String())
}

func (m Model) renderStatusBar() string {
	var line string
	switch {
	case m.loading:
		line = "Loading..."
	case m.message != "" && m.failed:
		line = ErrorStyle.Render(m.message)
	case m.message != "":
		line = m.message
	default:
		var row *view.Row
		if m.pane == PaneTaskList {
			row = m.currentRow()
		}
		line = hints(row)
	}

	if m.svc.TasksStale() && !m.loading {
		line += "  " + ErrorStyle.Render("[tasks out of date, R to retry]")
	}
	return StatusBarStyle.Width(m.width).Render(line)
}

func (m Model) renderModal() string {
	title := "Add Task"
	switch m.mode {
	case ModeAddProject:
		title = "New Project"
	case ModeEditTask:
		title = "Edit Task"
	}
	if p := m.currentProject(); p != nil && m.mode == ModeAddTask {
		title = fmt.Sprintf("Add Task to: %s", p.Name)
	}

	content := lipgloss.NewStyle().Bold(true).Render(title) + "\n\n"
	content += m.input.View() + "\n\n"
	content += HelpStyle.Render("Enter:save  Esc:cancel")

	return ModalStyle.Render(content)
}

func (m Model) renderConfirm() string {
	name := ""
	if r := m.currentRow(); r != nil {
		name = r.Task.Title
	}
	content := lipgloss.NewStyle().Bold(true).Render("Delete task?") + "\n\n"
	content += truncate(name, 40) + "\n\n"
	content += HelpStyle.Render("y:delete  any other key:cancel")
	return ModalStyle.Render(content)
}

// helpSections groups bindings for the help overlay
var helpSections = []struct {
	title    string
	bindings []key.Binding
}{
	{"Move", []key.Binding{keys.Up, keys.Down, keys.Left, keys.Right, keys.Tab, keys.View, keys.PrevMonth, keys.NextMonth}},
	{"Tasks", []key.Binding{keys.Add, keys.Edit, keys.Done, keys.Delete, keys.Duplicate, keys.Project, keys.Refresh}},
	{"Session", []key.Binding{keys.Help, keys.Logout, keys.Quit}},
}

func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render("Keyboard shortcuts") + "\n")
	for _, sec := range helpSections {
		b.WriteString("\n" + TitleStyle.Render(sec.title) + "\n")
		for _, k := range sec.bindings {
			h := k.Help()
			fmt.Fprintf(&b, "  %-6s %s\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\n" + HelpStyle.Render("any key closes this"))
	return m.place(ModalStyle.Render(b.String()))
}
