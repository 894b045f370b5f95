package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/existflow/taskprox/internal/attachment"
	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/permission"
	"github.com/existflow/taskprox/internal/service"
	"github.com/existflow/taskprox/internal/view"
	"github.com/spf13/cobra"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
}

var taskListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List tasks",
	Long: `List the tasks you created or collaborate on.

Examples:
  taskprox task ls
  taskprox task ls --project 65f1c2
  taskprox task ls --status "en progreso" --with-files`,
	RunE: runTaskList,
}

var taskShowCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskShow,
}

var taskAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a task",
	Long: `Create a task owned by you.

Examples:
  taskprox task add "Write release notes"
  taskprox task add "Review contract" --project 65f1c2 --deadline 2026-11-01
  taskprox task add "Mockups" --file ./home.png --file ./brief.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTaskAdd,
}

var taskEditCmd = &cobra.Command{
	Use:   "edit [task-id]",
	Short: "Edit a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskEdit,
}

var taskDeleteCmd = &cobra.Command{
	Use:     "rm [task-id]",
	Aliases: []string{"delete"},
	Short:   "Delete a task",
	Args:    cobra.ExactArgs(1),
	RunE:    runTaskDelete,
}

var taskDoneCmd = &cobra.Command{
	Use:   "done [task-id]",
	Short: "Toggle a task between completed and pending",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDone,
}

var taskStatusCmd = &cobra.Command{
	Use:   "status [task-id] [status]",
	Short: "Set a task's status",
	Long: `Set the status. Known values: pendiente, en espera, lista para comenzar,
en progreso, en revisión, completado. Any other text is kept as a custom
status.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTaskStatus,
}

var taskDupCmd = &cobra.Command{
	Use:   "dup [task-id]",
	Short: "Copy a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runTaskDup,
}

var taskCollabCmd = &cobra.Command{
	Use:   "collab",
	Short: "Manage task collaborators (admin only)",
}

var taskDownloadCmd = &cobra.Command{
	Use:   "download [task-id] [file-name]",
	Short: "Save an attachment to disk",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskDownload,
}

var taskDetachCmd = &cobra.Command{
	Use:   "detach [task-id] [file-name]",
	Short: "Remove an attachment from a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTaskDetach,
}

var (
	taskProject     string
	taskTitle       string
	taskDescription string
	taskStatus      string
	taskCreator     string
	taskStart       string
	taskDeadline    string
	taskNoDeadline  bool
	taskFiles       []string
	taskWithFiles   bool
	taskDir         string
	taskYes         bool
)

func init() {
	taskListCmd.Flags().StringVarP(&taskProject, "project", "P", "", "Only tasks of this project")
	taskListCmd.Flags().StringVarP(&taskTitle, "title", "t", "", "Title contains")
	taskListCmd.Flags().StringVarP(&taskStatus, "status", "s", "", "Exact status")
	taskListCmd.Flags().StringVar(&taskCreator, "creator", "", "Creator email")
	taskListCmd.Flags().BoolVar(&taskWithFiles, "with-files", false, "Only tasks with attachments")

	taskAddCmd.Flags().StringVarP(&taskProject, "project", "P", "", "Project id")
	for _, c := range []*cobra.Command{taskAddCmd, taskEditCmd} {
		c.Flags().StringVarP(&taskDescription, "description", "d", "", "Description")
		c.Flags().StringVarP(&taskStatus, "status", "s", "", "Status")
		c.Flags().StringVar(&taskStart, "start", "", "Start date (YYYY-MM-DD)")
		c.Flags().StringVar(&taskDeadline, "deadline", "", "Deadline (YYYY-MM-DD)")
		c.Flags().StringSliceVarP(&taskFiles, "file", "f", nil, "Attach a file (repeatable, at most 2 per task)")
	}
	taskEditCmd.Flags().StringVarP(&taskTitle, "title", "t", "", "New title")
	taskEditCmd.Flags().BoolVar(&taskNoDeadline, "no-deadline", false, "Clear the deadline")

	taskDeleteCmd.Flags().BoolVarP(&taskYes, "yes", "y", false, "Do not ask for confirmation")
	taskDownloadCmd.Flags().StringVar(&taskDir, "dir", ".", "Directory to save into")

	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskShowCmd)
	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskEditCmd)
	taskCmd.AddCommand(taskDeleteCmd)
	taskCmd.AddCommand(taskDoneCmd)
	taskCmd.AddCommand(taskStatusCmd)
	taskCmd.AddCommand(taskDupCmd)
	taskCmd.AddCommand(taskCollabCmd)
	taskCmd.AddCommand(taskDownloadCmd)
	taskCmd.AddCommand(taskDetachCmd)

	addCollabCommands(taskCollabCmd, "task", collabOps{
		add: func(ctx context.Context, svc *service.Service, id, email string, l permission.Level) (string, error) {
			t, err := svc.AddTaskCollaborator(ctx, id, email, l)
			return taskLabel(t), err
		},
		remove: func(ctx context.Context, svc *service.Service, id, ref string) (string, error) {
			t, err := svc.RemoveTaskCollaborator(ctx, id, ref)
			return taskLabel(t), err
		},
		set: func(ctx context.Context, svc *service.Service, id, ref string, l permission.Level) (string, error) {
			t, err := svc.SetTaskCollaboratorPermission(ctx, id, ref, l)
			return taskLabel(t), err
		},
	})
}

func taskLabel(t *model.Task) string {
	if t == nil {
		return ""
	}
	return t.Title
}

func parseDate(s string) (*model.Date, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := model.ParseDate(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func loadFiles(paths []string) ([]attachment.File, error) {
	files := make([]attachment.File, 0, len(paths))
	for _, p := range paths {
		f, err := attachment.Load(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func taskFilter() model.TaskFilter {
	return model.TaskFilter{
		ProjectID:  taskProject,
		Title:      taskTitle,
		Creator:    taskCreator,
		Status:     taskStatus,
		HasRecurso: taskWithFiles,
	}
}

func runTaskList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	tasks, err := a.svc.LoadTasks(cmd.Context(), taskFilter())
	if err != nil {
		return fmt.Errorf("failed to list tasks: %w", err)
	}

	rows := view.Rows(tasks, a.svc.TaskPermission, time.Now())
	fmt.Fprintln(cmd.OutOrStdout(), view.Table(rows, 0))
	return nil
}

func runTaskShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	t, level, err := a.svc.ViewTask(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	row := view.Row{Task: *t, Level: level, Overdue: t.IsOverdue(time.Now())}

	fmt.Fprintf(out, "%s\n", view.HeaderStyle.Render(t.Title))
	fmt.Fprintf(out, "ID:         %s\n", t.ID)
	fmt.Fprintf(out, "Status:     %s\n", view.StatusBadge(t.Status))
	if p, ok := a.svc.FindProject(t.ProjectID); ok {
		fmt.Fprintf(out, "Project:    %s\n", p.Name)
	}
	fmt.Fprintf(out, "Creator:    %s\n", firstNonEmpty(t.CreatorName, t.Creator))
	if t.StartDate != nil && !t.StartDate.IsZero() {
		fmt.Fprintf(out, "Start:      %s\n", t.StartDate)
	}
	deadline := row.Deadline()
	if row.Overdue {
		deadline = view.OverdueStyle.Render(deadline + " (overdue)")
	}
	fmt.Fprintf(out, "Deadline:   %s\n", deadline)
	fmt.Fprintf(out, "Access:     %s\n", view.PermissionBadge(level))
	fmt.Fprintf(out, "Actions:    %s\n", strings.Join(row.Actions(), ", "))
	if t.Description != "" {
		fmt.Fprintf(out, "\n%s\n\n", t.Description)
	}
	printCollaborators(cmd, t.Collaborators)

	if len(t.Recurso) > 0 {
		fmt.Fprintln(out, "Attachments:")
		for _, r := range t.Recurso {
			size := ""
			if f, err := attachment.Decode(r); err == nil {
				size = fmt.Sprintf("%.1f KB", float64(f.Size())/1024)
			}
			fmt.Fprintf(out, "  📎 %-32s %-24s %s\n", r.Name, r.Type, size)
		}
	}
	return nil
}

func runTaskAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	t := model.Task{
		Title:       strings.Join(args, " "),
		Description: taskDescription,
		Status:      model.ParseStatus(taskStatus),
		ProjectID:   taskProject,
	}
	if t.StartDate, err = parseDate(taskStart); err != nil {
		return err
	}
	if t.Deadline, err = parseDate(taskDeadline); err != nil {
		return err
	}
	files, err := loadFiles(taskFiles)
	if err != nil {
		return err
	}

	loadProjects(cmd.Context(), a)
	created, err := a.svc.CreateTask(cmd.Context(), t, files)
	if created == nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Added: %q (%s)\n", created.Title, created.ID)
	return staleWarning(cmd, err)
}

func runTaskEdit(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	current, err := a.svc.Task(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	t := *current
	t.Title = pick(cmd, "title", taskTitle, t.Title)
	t.Description = pick(cmd, "description", taskDescription, t.Description)
	if cmd.Flags().Changed("status") {
		t.Status = model.ParseStatus(taskStatus)
	}
	if cmd.Flags().Changed("start") {
		if t.StartDate, err = parseDate(taskStart); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("deadline") {
		if t.Deadline, err = parseDate(taskDeadline); err != nil {
			return err
		}
	}
	if taskNoDeadline {
		t.Deadline = nil
	}
	files, err := loadFiles(taskFiles)
	if err != nil {
		return err
	}

	updated, err := a.svc.UpdateTask(cmd.Context(), t, files)
	if updated == nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated: %q\n", updated.Title)
	return staleWarning(cmd, err)
}

func runTaskDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	t, err := a.svc.Task(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !permission.Can(a.svc.TaskPermission(*t), permission.Delete) {
		return fmt.Errorf("%w: only admins can delete this task", service.ErrForbidden)
	}

	if cfg.ConfirmDelete && !taskYes {
		ok, err := newPrompter(cmd).Confirm(fmt.Sprintf("Delete %q?", t.Title))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	err = a.svc.DeleteTask(cmd.Context(), t.ID)
	if err != nil && !isStale(err) {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "🗑  Deleted: %q\n", t.Title)
	return staleWarning(cmd, err)
}

func runTaskDone(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	t, err := a.svc.ToggleDone(cmd.Context(), args[0])
	if t == nil {
		return err
	}
	if t.IsDone() {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Completed: %q\n", t.Title)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "○ Reopened: %q\n", t.Title)
	}
	return staleWarning(cmd, err)
}

func runTaskStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	status := model.ParseStatus(strings.Join(args[1:], " "))
	t, err := a.svc.SetStatus(cmd.Context(), args[0], status)
	if t == nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %q: %s\n", t.Title, t.Status.Label())
	return staleWarning(cmd, err)
}

func runTaskDup(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	t, err := a.svc.DuplicateTask(cmd.Context(), args[0])
	if t == nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Added: %q (%s)\n", t.Title, t.ID)
	return staleWarning(cmd, err)
}

func runTaskDownload(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	path, err := a.svc.DownloadAttachment(cmd.Context(), args[0], args[1], taskDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "📎 Saved %s\n", path)
	return nil
}

func runTaskDetach(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	t, err := a.svc.RemoveAttachment(cmd.Context(), args[0], args[1])
	if t == nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s from %q\n", args[1], t.Title)
	return staleWarning(cmd, err)
}
