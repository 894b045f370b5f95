package cli

import (
	"context"
	"fmt"

	"github.com/existflow/taskprox/internal/permission"
	"github.com/existflow/taskprox/internal/reconcile"
	"github.com/existflow/taskprox/internal/service"
	"github.com/spf13/cobra"
)

// collabOps are the service calls behind one collab command group. Each
// returns the label of the saved item.
type collabOps struct {
	add    func(ctx context.Context, svc *service.Service, id, email string, l permission.Level) (string, error)
	remove func(ctx context.Context, svc *service.Service, id, ref string) (string, error)
	set    func(ctx context.Context, svc *service.Service, id, ref string, l permission.Level) (string, error)
}

// addCollabCommands attaches add, rm and set under parent
func addCollabCommands(parent *cobra.Command, kind string, ops collabOps) {
	var perm string

	add := &cobra.Command{
		Use:   fmt.Sprintf("add [%s-id] [email]", kind),
		Short: "Share with a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := permission.ParseAssignable(perm)
			if err != nil {
				return err
			}
			return runCollab(cmd, func(ctx context.Context, svc *service.Service) (string, error) {
				return ops.add(ctx, svc, args[0], args[1], level)
			}, fmt.Sprintf("Shared with %s (%s)", args[1], level))
		},
	}
	add.Flags().StringVarP(&perm, "perm", "p", string(permission.Read), "Access level: read, write or admin")

	remove := &cobra.Command{
		Use:     fmt.Sprintf("rm [%s-id] [email|collaborator-id]", kind),
		Aliases: []string{"remove"},
		Short:   "Stop sharing with a user",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollab(cmd, func(ctx context.Context, svc *service.Service) (string, error) {
				return ops.remove(ctx, svc, args[0], args[1])
			}, fmt.Sprintf("Removed %s", args[1]))
		},
	}

	set := &cobra.Command{
		Use:   fmt.Sprintf("set [%s-id] [email|collaborator-id] [read|write|admin]", kind),
		Short: "Change a collaborator's access",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := permission.ParseAssignable(args[2])
			if err != nil {
				return err
			}
			return runCollab(cmd, func(ctx context.Context, svc *service.Service) (string, error) {
				return ops.set(ctx, svc, args[0], args[1], level)
			}, fmt.Sprintf("%s now has %s access", args[1], level))
		},
	}

	parent.AddCommand(add, remove, set)
}

func runCollab(cmd *cobra.Command, fn func(context.Context, *service.Service) (string, error), done string) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	loadProjects(cmd.Context(), a)
	label, err := fn(cmd.Context(), a.svc)
	if label == "" && err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %s\n", label, done)
	return staleWarning(cmd, err)
}

func isStale(err error) bool {
	return reconcile.IsStale(err)
}

// staleWarning turns a refresh failure after a successful save into a
// warning; other errors pass through
func staleWarning(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	if isStale(err) {
		fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  Saved, but the list could not be refreshed: %v\n", err)
		return nil
	}
	return err
}
