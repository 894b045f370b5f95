package view

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/permission"
)

// Color palette
var (
	Primary   = lipgloss.Color("#4ECDC4")
	Secondary = lipgloss.Color("#6C757D")
	Surface   = lipgloss.Color("#16213e")
	Text      = lipgloss.Color("#FFFFFF")
	TextMuted = lipgloss.Color("#888888")
	Border    = lipgloss.Color("#333333")
	Danger    = lipgloss.Color("#FF6B6B")

	// Status colors
	StatusPendingColor    = lipgloss.Color("#FFB347")
	StatusOnHoldColor     = lipgloss.Color("#B39DDB")
	StatusReadyColor      = lipgloss.Color("#64B5F6")
	StatusInProgressColor = lipgloss.Color("#FFE66D")
	StatusInReviewColor   = lipgloss.Color("#4ECDC4")
	StatusCompletedColor  = lipgloss.Color("#95E1A3")
	StatusCustomColor     = lipgloss.Color("#6C757D")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary).
			Padding(0, 1)

	ColumnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Border).
			Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Padding(0, 1)

	MutedStyle = lipgloss.NewStyle().
			Foreground(TextMuted)

	OverdueStyle = lipgloss.NewStyle().
			Foreground(Danger).
			Bold(true)

	DoneStyle = lipgloss.NewStyle().
			Foreground(TextMuted).
			Strikethrough(true)

	TodayStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	SelectedStyle = lipgloss.NewStyle().
			Background(Surface).
			Bold(true).
			Padding(0, 1)
)

// StatusColor returns the color for a status kind
func StatusColor(s model.Status) lipgloss.Color {
	switch s.Kind {
	case model.StatusPending:
		return StatusPendingColor
	case model.StatusOnHold:
		return StatusOnHoldColor
	case model.StatusReady:
		return StatusReadyColor
	case model.StatusInProgress:
		return StatusInProgressColor
	case model.StatusInReview:
		return StatusInReviewColor
	case model.StatusCompleted:
		return StatusCompletedColor
	case model.StatusCustom:
		return StatusCustomColor
	default:
		return StatusCustomColor
	}
}

// StatusBadge renders a status label in its color
func StatusBadge(s model.Status) string {
	return lipgloss.NewStyle().Foreground(StatusColor(s)).Render(s.Label())
}

// PermissionBadge renders a permission level
func PermissionBadge(l permission.Level) string {
	style := lipgloss.NewStyle()
	switch l {
	case permission.Admin:
		style = style.Foreground(Primary).Bold(true)
	case permission.Write:
		style = style.Foreground(StatusInProgressColor)
	case permission.Read:
		style = style.Foreground(TextMuted)
	default:
		style = style.Foreground(Danger)
	}
	return style.Render(string(l))
}
