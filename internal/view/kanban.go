package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/taskprox/internal/model"
)

// Column is one kanban lane
type Column struct {
	Status model.Status
	Rows   []Row
}

// KanbanColumns groups rows by status: every known status in workflow
// order, then one lane per custom status in the order first seen.
func KanbanColumns(rows []Row) []Column {
	cols := make([]Column, 0, len(model.KnownStatuses))
	index := map[string]int{}
	for _, kind := range model.KnownStatuses {
		s := model.NewStatus(kind)
		index[s.String()] = len(cols)
		cols = append(cols, Column{Status: s})
	}

	for _, r := range rows {
		key := r.Task.Status.String()
		i, ok := index[key]
		if !ok {
			i = len(cols)
			index[key] = i
			cols = append(cols, Column{Status: r.Task.Status})
		}
		cols[i].Rows = append(cols[i].Rows, r)
	}
	return cols
}

// Card renders one task. The done marker only appears when the caller may
// toggle it.
func Card(r Row, width int) string {
	if !r.Visible() {
		return MutedStyle.Render(truncate(r.Title(), width))
	}

	marker := "•"
	if r.CanToggle() {
		marker = "[ ]"
		if r.Task.IsDone() {
			marker = "[x]"
		}
	}

	title := truncate(r.Title(), width-len([]rune(marker))-1)
	if r.Task.IsDone() {
		title = DoneStyle.Render(title)
	}

	line := marker + " " + title
	meta := r.Deadline()
	if r.Overdue {
		meta = OverdueStyle.Render(meta)
	} else {
		meta = MutedStyle.Render(meta)
	}
	if r.Selected {
		return SelectedStyle.Render(line + "\n" + "  " + meta)
	}
	return CardStyle.Render(line + "\n" + "  " + meta)
}

// KanbanOrder flattens the columns into the order cards are drawn
func KanbanOrder(cols []Column) []Row {
	var out []Row
	for _, c := range cols {
		out = append(out, c.Rows...)
	}
	return out
}

// Kanban renders the columns side by side
func Kanban(cols []Column, width int) string {
	if len(cols) == 0 {
		return MutedStyle.Render(EmptyMessage)
	}

	colWidth := 24
	if width > 0 {
		if w := width/len(cols) - 4; w > 12 {
			colWidth = w
		}
	}

	rendered := make([]string, 0, len(cols))
	for _, c := range cols {
		var b strings.Builder
		header := lipgloss.NewStyle().Bold(true).Foreground(StatusColor(c.Status)).
			Render(fmt.Sprintf("%s (%d)", truncate(c.Status.Label(), colWidth-5), len(c.Rows)))
		b.WriteString(header)
		for _, r := range c.Rows {
			b.WriteString("\n")
			b.WriteString(Card(r, colWidth))
		}
		rendered = append(rendered, ColumnStyle.Width(colWidth).Render(b.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
