package tui

import (
	"strings"

	"github.com/existflow/taskprox/internal/permission"
	"github.com/existflow/taskprox/internal/view"
)

// truncate shortens a string to max runes with ellipsis
func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

// levelTag is the short sidebar marker for a project permission
func levelTag(l permission.Level) string {
	switch l {
	case permission.Admin:
		return "A"
	case permission.Write:
		return "W"
	case permission.Read:
		return "R"
	default:
		return "-"
	}
}

// hints lists the key hints for the selected row. Actions the caller may
// not perform are left out.
func hints(row *view.Row) string {
	parts := []string{"a:add", "p:project", "v:view"}
	if row != nil {
		for _, h := range []struct {
			c    permission.Capability
			hint string
		}{
			{permission.Edit, "e:edit"},
			{permission.ToggleStatus, "x:done"},
			{permission.Delete, "d:del"},
			{permission.Duplicate, "c:copy"},
		} {
			if permission.Can(row.Level, h.c) {
				parts = append(parts, h.hint)
			}
		}
	}
	parts = append(parts, "?:help", "q:quit", "L:logout")
	return strings.Join(parts, "  ")
}

// withSelection copies rows and marks the row whose task id is id
func withSelection(rows []view.Row, id string) []view.Row {
	out := make([]view.Row, len(rows))
	copy(out, rows)
	for i := range out {
		out[i].Selected = id != "" && out[i].Task.ID == id
	}
	return out
}
