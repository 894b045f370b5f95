// Package view renders task lists as a table, a kanban board or a month
// calendar. Renderers are pure: they take tasks and resolved permissions
// and return text.
package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/permission"
)

// Mode selects a renderer
type Mode string

const (
	ModeTable    Mode = "table"
	ModeKanban   Mode = "kanban"
	ModeCalendar Mode = "calendar"
)

// Modes lists the view modes in cycling order
var Modes = []Mode{ModeTable, ModeKanban, ModeCalendar}

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown view %q: use table, kanban or calendar", s)
}

// Next returns the mode after m
func (m Mode) Next() Mode {
	for i, known := range Modes {
		if m == known {
			return Modes[(i+1)%len(Modes)]
		}
	}
	return ModeTable
}

// NoDeadline is shown when a task has no deadline
const NoDeadline = "Sin fecha"

// Row is a task with the caller's resolved permission
type Row struct {
	Task     model.Task
	Level    permission.Level
	Overdue  bool
	Selected bool
}

// Visible reports whether the caller may see the task's contents
func (r Row) Visible() bool {
	return permission.Can(r.Level, permission.View)
}

// CanToggle reports whether the done toggle should be offered
func (r Row) CanToggle() bool {
	return permission.Can(r.Level, permission.ToggleStatus)
}

// Actions lists the action names the row offers
func (r Row) Actions() []string {
	var out []string
	for _, c := range permission.Allowed(r.Level) {
		if c == permission.View {
			continue
		}
		out = append(out, c.String())
	}
	return out
}

// Title returns the display title or the no-permission message
func (r Row) Title() string {
	if !r.Visible() {
		return permission.NoPermissionMessage
	}
	return r.Task.Title
}

// Deadline returns the formatted deadline
func (r Row) Deadline() string {
	if !r.Task.HasDeadline() {
		return NoDeadline
	}
	return r.Task.Deadline.String()
}

// Resolve returns the caller's level on a task
type Resolve func(model.Task) permission.Level

// Rows pairs tasks with their resolved permission, keeping order
func Rows(tasks []model.Task, resolve Resolve, now time.Time) []Row {
	rows := make([]Row, len(tasks))
	for i, t := range tasks {
		rows[i] = Row{Task: t, Level: resolve(t), Overdue: t.IsOverdue(now)}
	}
	return rows
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
