package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/existflow/taskprox/internal/logger"
	"github.com/existflow/taskprox/internal/model"
	"github.com/existflow/taskprox/internal/permission"
	"github.com/existflow/taskprox/internal/service"
	"github.com/existflow/taskprox/internal/view"
	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	Long:  `Create, list and share projects. Tasks inherit access from their project.`,
}

var projectListCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List your projects",
	RunE:    runProjectList,
}

var projectShowCmd = &cobra.Command{
	Use:   "show [project-id]",
	Short: "Show a project and its collaborators",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectShow,
}

var projectAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a project",
	Long: `Create a project owned by you.

Examples:
  taskprox project add "Web relaunch"
  taskprox project add Marketing --description "Q3 campaigns"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runProjectAdd,
}

var projectEditCmd = &cobra.Command{
	Use:   "edit [project-id]",
	Short: "Rename or describe a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectEdit,
}

var projectDeleteCmd = &cobra.Command{
	Use:     "rm [project-id]",
	Aliases: []string{"delete"},
	Short:   "Delete a project",
	Args:    cobra.ExactArgs(1),
	RunE:    runProjectDelete,
}

var projectDupCmd = &cobra.Command{
	Use:   "dup [project-id]",
	Short: "Copy a project with its tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectDup,
}

var projectCollabCmd = &cobra.Command{
	Use:   "collab",
	Short: "Manage project collaborators (admin only)",
}

var (
	projectName        string
	projectDescription string
	projectSummary     bool
	projectYes         bool
)

func init() {
	projectListCmd.Flags().BoolVarP(&projectSummary, "summary", "s", false, "Show completion progress")
	projectAddCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "Project description")
	projectEditCmd.Flags().StringVarP(&projectName, "name", "n", "", "New name")
	projectEditCmd.Flags().StringVarP(&projectDescription, "description", "d", "", "New description")
	projectDeleteCmd.Flags().BoolVarP(&projectYes, "yes", "y", false, "Do not ask for confirmation")

	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectEditCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectDupCmd)
	projectCmd.AddCommand(projectCollabCmd)

	addCollabCommands(projectCollabCmd, "project", collabOps{
		add: func(ctx context.Context, svc *service.Service, id, email string, l permission.Level) (string, error) {
			p, err := svc.AddProjectCollaborator(ctx, id, email, l)
			return projectLabel(p), err
		},
		remove: func(ctx context.Context, svc *service.Service, id, ref string) (string, error) {
			p, err := svc.RemoveProjectCollaborator(ctx, id, ref)
			return projectLabel(p), err
		},
		set: func(ctx context.Context, svc *service.Service, id, ref string, l permission.Level) (string, error) {
			p, err := svc.SetProjectCollaboratorPermission(ctx, id, ref, l)
			return projectLabel(p), err
		},
	})
}

func projectLabel(p *model.Project) string {
	if p == nil {
		return ""
	}
	return p.Name
}

func runProjectList(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	projects, err := a.svc.LoadProjects(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list projects: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects. Create one with 'taskprox project add <name>'")
		return nil
	}

	progress := map[string]string{}
	if projectSummary {
		summary, err := a.svc.Summary(cmd.Context())
		if err != nil {
			logger.Warn("Failed to load project summary", logger.F("error", err))
		}
		for _, s := range summary {
			progress[s.ID] = fmt.Sprintf("%d/%d (%.0f%%)", s.Completed, s.Total, s.Progress()*100)
		}
	}

	fmt.Fprintln(out)
	for _, p := range projects {
		level := a.svc.ProjectPermission(p)
		line := fmt.Sprintf("  %-24s  %-28s  %-6s", p.ID, truncate(p.Name, 28), level)
		if projectSummary {
			line += "  " + progress[p.ID]
		}
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
	fmt.Fprintln(out)
	return nil
}

func runProjectShow(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	p, err := a.svc.Project(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	level := a.svc.ProjectPermission(*p)
	if !permission.Can(level, permission.View) {
		fmt.Fprintln(out, permission.NoPermissionMessage)
		return nil
	}

	fmt.Fprintf(out, "📁 %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(out, "   %s\n", p.Description)
	}
	fmt.Fprintf(out, "Owner:      %s\n", p.UserEmail)
	fmt.Fprintf(out, "Access:     %s\n", level)
	printCollaborators(cmd, p.Collaborators)
	return nil
}

func runProjectAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.svc.CreateProject(cmd.Context(), model.Project{
		Name:        strings.Join(args, " "),
		Description: projectDescription,
	})
	if p == nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created project: %s (%s)\n", p.Name, p.ID)
	return staleWarning(cmd, err)
}

func runProjectEdit(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	current, err := a.svc.Project(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	p := *current
	p.Name = pick(cmd, "name", projectName, p.Name)
	p.Description = pick(cmd, "description", projectDescription, p.Description)

	updated, err := a.svc.UpdateProject(cmd.Context(), p)
	if updated == nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated project: %s\n", updated.Name)
	return staleWarning(cmd, err)
}

func runProjectDelete(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	p, err := a.svc.Project(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if !permission.Can(a.svc.ProjectPermission(*p), permission.Delete) {
		return fmt.Errorf("%w: only admins can delete %s", service.ErrForbidden, p.Name)
	}

	if cfg.ConfirmDelete && !projectYes {
		ok, err := newPrompter(cmd).Confirm(fmt.Sprintf("Delete project %q?", p.Name))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}
	}

	err = a.svc.DeleteProject(cmd.Context(), p.ID)
	if err != nil && !isStale(err) {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "🗑  Deleted project: %s\n", p.Name)
	return staleWarning(cmd, err)
}

func runProjectDup(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	p, err := a.svc.DuplicateProject(cmd.Context(), args[0])
	if p == nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created project: %s (%s)\n", p.Name, p.ID)
	return err
}

// loadProjects fills the local project list so permissions can be inherited
func loadProjects(ctx context.Context, a *app) {
	if _, err := a.svc.LoadProjects(ctx); err != nil {
		logger.Warn("Failed to load projects", logger.F("error", err))
	}
}

func printCollaborators(cmd *cobra.Command, cs []model.Collaborator) {
	out := cmd.OutOrStdout()
	if len(cs) == 0 {
		fmt.Fprintln(out, "Shared:     no")
		return
	}
	fmt.Fprintln(out, "Collaborators:")
	for _, c := range cs {
		fmt.Fprintf(out, "  %-32s %s\n", c.Email, view.PermissionBadge(permission.Level(c.Permission)))
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 3 || len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
