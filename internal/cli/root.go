package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/existflow/sockmatch/internal/logger"
	"github.com/existflow/sockmatch/internal/tui"
	"github.com/spf13/cobra"
)

// Version is set at build time
var Version = "dev"

type rootOptions struct {
	logLevel   string
	logFile    string
	logConsole bool
	apiURL     string
	platform   string
	ephemeral  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	a := &app{}

	cmd := &cobra.Command{
		Use:   "sockmatch",
		Short: "SockMatch - find the other sock",
		Long: `SockMatch uploads photos of single socks, finds likely partners
among the socks you already uploaded, and keeps track of confirmed pairs.

Run 'sockmatch' without arguments to launch the interactive TUI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(a)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
			logger.Info("SockMatch exiting", logger.F("command", cmd.Name()))
			_ = logger.Close()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	flags.StringVar(&opts.logFile, "log-file", "", "Path to log file")
	flags.BoolVar(&opts.logConsole, "log-console", false, "Enable console logging")
	flags.StringVar(&opts.apiURL, "api-url", "", "Backend base URL for this run")
	flags.StringVar(&opts.platform, "platform", "", "Storage and upload strategy (native, web)")
	flags.BoolVar(&opts.ephemeral, "ephemeral", false, "Keep the session in memory only")

	cmd.AddCommand(newAuthCmd(a))
	cmd.AddCommand(newSocksCmd(a))
	cmd.AddCommand(newMatchesCmd(a))
	cmd.AddCommand(newTutorialCmd(a))
	cmd.AddCommand(newConfigCmd(a))
	return cmd
}

// Execute runs the root command
func Execute() error {
	return newRootCmd().Execute()
}

func runTUI(a *app) error {
	logger.Info("Launching TUI")
	m := tui.NewModel(tui.Deps{
		Session:  a.session,
		Socks:    a.socks,
		Matches:  a.matches,
		Pairing:  a.pairing,
		Platform: string(a.cfg.Platform),
	})
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", logger.F("error", err))
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	logger.Info("TUI exited normally")
	return nil
}
