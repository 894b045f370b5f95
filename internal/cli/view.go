package cli

import (
	"fmt"
	"time"

	"github.com/existflow/taskprox/internal/logger"
	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/view"
	"github.com/spf13/cobra"
)

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Print tasks as a table, kanban board or calendar",
	Long: `Print your tasks once and exit. Without a subcommand the default_view
setting is used.

Examples:
  taskprox view kanban
  taskprox view calendar --month 2026-03
  taskprox view table --project 65f1c2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := view.ParseMode(cfg.DefaultView)
		if err != nil {
			logger.Warn("Invalid default view, using table", logger.F("error", err))
			mode = view.ModeTable
		}
		return runView(cmd, mode)
	},
}

var viewTableCmd = &cobra.Command{
	Use:   "table",
	Short: "Tasks as a table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(cmd, view.ModeTable)
	},
}

var viewKanbanCmd = &cobra.Command{
	Use:   "kanban",
	Short: "Tasks grouped by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(cmd, view.ModeKanban)
	},
}

var viewCalendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Tasks on a month grid",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runView(cmd, view.ModeCalendar)
	},
}

var (
	viewProject string
	viewMonth   string
	viewWidth   int
)

func init() {
	viewCmd.PersistentFlags().StringVarP(&viewProject, "project", "P", "", "Only tasks of this project")
	viewCmd.PersistentFlags().IntVarP(&viewWidth, "width", "w", 0, "Render width (0 sizes to content)")
	viewCalendarCmd.Flags().StringVarP(&viewMonth, "month", "m", "", "Month to show (YYYY-MM), default current")

	viewCmd.AddCommand(viewTableCmd)
	viewCmd.AddCommand(viewKanbanCmd)
	viewCmd.AddCommand(viewCalendarCmd)
}

func parseMonth(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local), nil
	}
	m, err := time.ParseInLocation("2006-01", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, want YYYY-MM", s)
	}
	return m, nil
}

func runView(cmd *cobra.Command, mode view.Mode) error {
	now := time.Now()
	month, err := parseMonth(viewMonth, now)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	tasks, err := a.svc.LoadTasks(cmd.Context(), model.TaskFilter{ProjectID: viewProject})
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}
	rows := view.Rows(tasks, a.svc.TaskPermission, now)

	out := cmd.OutOrStdout()
	switch mode {
	case view.ModeKanban:
		fmt.Fprintln(out, view.Kanban(view.KanbanColumns(rows), viewWidth))
	case view.ModeCalendar:
		fmt.Fprintln(out, view.Calendar(rows, month, now))
	default:
		fmt.Fprintln(out, view.Table(rows, viewWidth))
	}
	return nil
}
