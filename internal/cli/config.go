package cli

import (
	"fmt"
	"strconv"

	"github.com/existflow/taskprox/internal/config"
	"github.com/existflow/taskprox/internal/logger"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print every setting",
	RunE:  runConfigShow,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Long: `Change a setting and save it.

Examples:
  taskprox config set server_url https://tasks.example.com
  taskprox config set default_view kanban
  taskprox config set dark_mode false`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if path, err := config.Path(); err == nil {
		fmt.Fprintf(out, "# %s\n", path)
	}
	for _, key := range config.Keys() {
		v, _ := cfg.Get(key)
		fmt.Fprintf(out, "%-20s %s\n", key, v)
	}
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	v, err := cfg.Get(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	if err := cfg.Set(key, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := cfg.Save(); err != nil {
		return err
	}

	// dark mode is also kept per user with the session
	if key == "dark_mode" {
		db, sess, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		if sess.LoggedIn() {
			on, _ := strconv.ParseBool(value)
			if err := sess.SetDarkMode(cmd.Context(), on); err != nil {
				logger.Warn("Failed to save dark mode preference", logger.F("error", err))
			}
		}
	}

	got, _ := cfg.Get(key)
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s = %s\n", key, got)
	return nil
}
