package cli

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/existflow/taskprox/internal/config"
	"github.com/existflow/taskprox/internal/logger"
	"github.com/existflow/taskprox/internal/tui"
	"github.com/existflow/taskprox/internal/view"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	logLevel   string
	logFile    string
	logConsole bool

	// cfg is loaded once per invocation by the root pre-run hook
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "taskprox",
	Short: "TaskProX - tasks and projects from the terminal",
	Long: `TaskProX is a terminal client for the TaskProX task server.
Projects and tasks are shared with collaborators who get read, write
or admin access.

Run 'taskprox' without arguments to launch the interactive TUI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			logger.Warn("Config unreadable, falling back to defaults", logger.F("error", err))
			loaded = config.DefaultConfig()
		}
		cfg = loaded

		// global flags win over the file and are remembered
		overrides := map[string]func(){
			"server":      func() { cfg.ServerURL = serverURL },
			"log-level":   func() { cfg.LogLevel = logLevel },
			"log-file":    func() { cfg.LogFile = logFile },
			"log-console": func() { cfg.LogConsole = logConsole },
		}
		dirty := false
		for name, apply := range overrides {
			if cmd.Flags().Changed(name) {
				apply()
				dirty = true
			}
		}
		if dirty {
			if err := cfg.Save(); err != nil {
				logger.Warn("Could not persist flag overrides", logger.F("error", err))
			}
		}

		logConfig := logger.DefaultConfig()
		logConfig.Level = logger.ParseLevel(cfg.LogLevel)
		logConfig.FilePath = cfg.LogFile
		logConfig.Console = cfg.LogConsole

		if err := logger.Init(logConfig); err != nil {
			return fmt.Errorf("logger: %w", err)
		}

		logger.Info("TaskProX started", logger.F("command", cmd.CommandPath()))
		return nil
	},

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer a.Close()

		mode, err := view.ParseMode(cfg.DefaultView)
		if err != nil {
			logger.Warn("Invalid default view, using table", logger.F("error", err))
			mode = view.ModeTable
		}
		lipgloss.SetHasDarkBackground(a.session.DarkMode(cmd.Context(), cfg.DarkMode))

		logger.Info("Starting TUI", logger.F("view", string(mode)))
		m := tui.NewModel(a.svc, tui.Options{
			View:          mode,
			ConfirmDelete: cfg.ConfirmDelete,
			Timeout:       cfg.Timeout,
		})
		if err := tui.Run(m); err != nil {
			logger.Error("TUI exited with error", logger.F("error", err))
			return fmt.Errorf("tui: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Info("TaskProX exiting", logger.F("command", cmd.CommandPath()))
		logger.Close()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command; ctx cancels in-flight requests
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Server base URL (saved to config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Path to log file")
	rootCmd.PersistentFlags().BoolVar(&logConsole, "log-console", false, "Enable console logging")

	rootCmd.AddCommand(authCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(configCmd)
}
