package view

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// EmptyMessage is shown when there is nothing to render
const EmptyMessage = "No hay tareas"

// Table renders rows as a bordered table. width 0 lets the table size itself.
func Table(rows []Row, width int) string {
	if len(rows) == 0 {
		return MutedStyle.Render(EmptyMessage)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Border)).
		Headers("ID", "Título", "Estado", "Fecha límite", "Permiso", "Acciones").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			if row >= 0 && row < len(rows) && rows[row].Selected {
				return SelectedStyle
			}
			return CardStyle
		})
	if width > 0 {
		t = t.Width(width)
	}

	for _, r := range rows {
		t.Row(tableCells(r)...)
	}
	return t.String()
}

func tableCells(r Row) []string {
	if !r.Visible() {
		return []string{r.Task.ID, MutedStyle.Render(r.Title()), "-", "-", PermissionBadge(r.Level), ""}
	}

	title := truncate(r.Title(), 40)
	if r.Task.IsDone() {
		title = DoneStyle.Render(title)
	}
	deadline := r.Deadline()
	if r.Overdue {
		deadline = OverdueStyle.Render(deadline)
	}
	return []string{
		r.Task.ID,
		title,
		StatusBadge(r.Task.Status),
		deadline,
		PermissionBadge(r.Level),
		strings.Join(r.Actions(), ", "),
	}
}
