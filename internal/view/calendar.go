package view

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/taskprox/internal/model"
)

var monthNames = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

var weekdayHeader = []string{"Lu", "Ma", "Mi", "Ju", "Vi", "Sá", "Do"}

// MonthTitle returns e.g. "Marzo 2026"
func MonthTitle(month time.Time) string {
	return fmt.Sprintf("%s %d", monthNames[month.Month()-1], month.Year())
}

// CalendarDays places rows on the day of month they fall on: deadline,
// else start date. Rows outside the month or without dates are skipped.
func CalendarDays(rows []Row, month time.Time) map[int][]Row {
	days := map[int][]Row{}
	for _, r := range rows {
		d, ok := r.Task.CalendarDate()
		if !ok {
			continue
		}
		if d.Year() != month.Year() || d.Month() != month.Month() {
			continue
		}
		days[d.Day()] = append(days[d.Day()], r)
	}
	return days
}

// Unscheduled returns rows with no deadline and no start date
func Unscheduled(rows []Row) []Row {
	var out []Row
	for _, r := range rows {
		if _, ok := r.Task.CalendarDate(); !ok {
			out = append(out, r)
		}
	}
	return out
}

// Calendar renders a Monday-first month grid followed by the agenda of the
// days that have tasks. Days with tasks are marked with an asterisk.
func Calendar(rows []Row, month, today time.Time) string {
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	days := CalendarDays(rows, first)
	todayDate := model.NewDate(today)

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(MonthTitle(first)))
	b.WriteString("\n")
	for _, wd := range weekdayHeader {
		b.WriteString(MutedStyle.Render(fmt.Sprintf(" %-3s", wd)))
	}
	b.WriteString("\n")

	// Monday = 0
	offset := (int(first.Weekday()) + 6) % 7
	b.WriteString(strings.Repeat("    ", offset))
	for day := 1; day <= daysInMonth; day++ {
		cell := fmt.Sprintf("%3d", day)
		if len(days[day]) > 0 {
			cell += "*"
		} else {
			cell += " "
		}
		date := model.NewDate(first.AddDate(0, 0, day-1))
		if date.Equal(todayDate.Time) {
			cell = TodayStyle.Render(cell)
		}
		b.WriteString(cell)
		if (offset+day)%7 == 0 && day != daysInMonth {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")

	keys := make([]int, 0, len(days))
	for d := range days {
		keys = append(keys, d)
	}
	sort.Ints(keys)
	for _, d := range keys {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%02d", d)))
		for _, r := range days[d] {
			b.WriteString("\n  ")
			b.WriteString(agendaLine(r))
		}
	}

	if rest := Unscheduled(rows); len(rest) > 0 {
		b.WriteString("\n\n")
		b.WriteString(MutedStyle.Render(fmt.Sprintf("%s: %d", NoDeadline, len(rest))))
	}
	return b.String()
}

func agendaLine(r Row) string {
	if !r.Visible() {
		if r.Selected {
			return "❯ " + MutedStyle.Render(r.Title())
		}
		return MutedStyle.Render(r.Title())
	}
	title := r.Task.Title
	switch {
	case r.Task.IsDone():
		title = DoneStyle.Render(title)
	case r.Overdue:
		title = OverdueStyle.Render(title)
	}
	line := title + " · " + StatusBadge(r.Task.Status)
	if r.Selected {
		return "❯ " + line
	}
	return line
}
