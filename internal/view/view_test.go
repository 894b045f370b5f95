package view

import (
	"strings"
	"testing"
	"time"

	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/permission"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func date(s string) *model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func fixtureRows() []Row {
	tasks := []model.Task{
		{ID: "t1", Title: "Write docs", Status: model.NewStatus(model.StatusInProgress), Deadline: date("2026-03-05")},
		{ID: "t2", Title: "Review", Status: model.CustomStatus("Bloqueada"), StartDate: date("2026-03-20")},
		{ID: "t3", Title: "Secret", Status: model.NewStatus(model.StatusPending)},
		{ID: "t4", Title: "Ship", Status: model.NewStatus(model.StatusCompleted), Deadline: date("2026-04-01")},
	}
	levels := map[string]permission.Level{"t1": permission.Read, "t2": permission.Write, "t3": permission.None, "t4": permission.Admin}
	return Rows(tasks, func(t model.Task) permission.Level { return levels[t.ID] }, today)
}

func TestRows(t *testing.T) {
	rows := fixtureRows()
	require.Len(t, rows, 4)
	assert.True(t, rows[0].Overdue)
	assert.False(t, rows[3].Overdue)

	assert.False(t, rows[0].CanToggle())
	assert.True(t, rows[1].CanToggle())
	assert.Equal(t, []string{"duplicate"}, rows[0].Actions())
	assert.Equal(t, []string{"edit", "toggle status", "duplicate"}, rows[1].Actions())

	assert.False(t, rows[2].Visible())
	assert.Equal(t, permission.NoPermissionMessage, rows[2].Title())
	assert.Equal(t, NoDeadline, rows[1].Deadline())
	assert.Equal(t, "2026-03-05", rows[0].Deadline())
}

func TestTable(t *testing.T) {
	out := Table(fixtureRows(), 0)

	assert.Contains(t, out, "Write docs")
	assert.Contains(t, out, "En progreso")
	assert.Contains(t, out, NoDeadline)
	assert.Contains(t, out, permission.NoPermissionMessage)
	assert.NotContains(t, out, "Secret")

	for _, line := range strings.Split(out, "\n") {
		if strings.Contains(line, "Write docs") {
			assert.NotContains(t, line, "toggle status")
		}
		if strings.Contains(line, "Review") {
			assert.Contains(t, line, "toggle status")
		}
	}

	assert.Equal(t, EmptyMessage, Table(nil, 80))
}

func TestKanbanColumns(t *testing.T) {
	cols := KanbanColumns(fixtureRows())
	require.Len(t, cols, len(model.KnownStatuses)+1)

	for i, kind := range model.KnownStatuses {
		assert.Equal(t, kind, cols[i].Status.Kind)
	}
	custom := cols[len(cols)-1]
	assert.True(t, custom.Status.IsCustom())
	assert.Equal(t, "Bloqueada", custom.Status.Custom)
	require.Len(t, custom.Rows, 1)
	assert.Equal(t, "t2", custom.Rows[0].Task.ID)

	assert.Len(t, cols[3].Rows, 1) // en progreso
	assert.Len(t, cols[5].Rows, 1) // completado
}

func TestCardToggleMarker(t *testing.T) {
	rows := fixtureRows()

	assert.NotContains(t, Card(rows[0], 30), "[ ]")
	assert.Contains(t, Card(rows[1], 30), "[ ]")
	assert.Contains(t, Card(rows[3], 30), "[x]")
	assert.Contains(t, Card(rows[2], 60), permission.NoPermissionMessage)
}

func TestKanbanRender(t *testing.T) {
	out := Kanban(KanbanColumns(fixtureRows()), 200)
	assert.Contains(t, out, "Bloqueada (1)")
	assert.Contains(t, out, "Pendiente (1)")
}

func TestCalendar(t *testing.T) {
	rows := fixtureRows()
	days := CalendarDays(rows, today)

	assert.Len(t, days[5], 1)
	assert.Len(t, days[20], 1)
	assert.Len(t, days, 2)
	assert.Len(t, Unscheduled(rows), 1)

	out := Calendar(rows, today, today)
	assert.Contains(t, out, "Marzo 2026")
	assert.Contains(t, out, "  5*")
	assert.Contains(t, out, "Write docs")
	assert.Contains(t, out, "Review")
	assert.NotContains(t, out, "Ship")
	assert.Contains(t, out, NoDeadline+": 1")
}

func TestCalendarGridStartsMonday(t *testing.T) {
	// 1 March 2026 is a Sunday
	out := Calendar(nil, today, today)
	lines := strings.Split(out, "\n")
	require.GreaterOrEqual(t, len(lines), 3)
	assert.Equal(t, strings.Repeat("    ", 6)+"  1 ", lines[2])
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Kanban ")
	require.NoError(t, err)
	assert.Equal(t, ModeKanban, m)
	assert.Equal(t, ModeCalendar, m.Next())
	assert.Equal(t, ModeTable, ModeCalendar.Next())

	_, err = ParseMode("gantt")
	assert.Error(t, err)
}

func TestKanbanOrderAndSelection(t *testing.T) {
	rows := fixtureRows()
	order := KanbanOrder(KanbanColumns(rows))
	require.Len(t, order, 4)
	// pending, in progress, completed, then the custom lane
	assert.Equal(t, []string{"t3", "t1", "t4", "t2"}, []string{order[0].Task.ID, order[1].Task.ID, order[2].Task.ID, order[3].Task.ID})

	assert.NotContains(t, Calendar(rows, today, today), "❯ ")
	rows[0].Selected = true
	assert.Contains(t, Calendar(rows, today, today), "❯ ")
}
