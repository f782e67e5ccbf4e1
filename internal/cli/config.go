package cli

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/existflow/sockmatch/internal/logger"
	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			path := cfg.Path()
			if path == "" {
				path = "(defaults, not saved)"
			}
			a.printf("Config file:     %s\n", path)
			a.printf("Server:          %s (%s)\n", a.baseURL, a.source)
			a.printf("Platform:        %s\n", cfg.Platform)
			a.printf("Production:      %t\n", cfg.Production)
			a.printf("Data dir:        %s\n", cfg.DataDir)
			a.printf("Token key:       %s\n", cfg.TokenKey)
			a.printf("Tutorial key:    %s\n", cfg.TutorialKey)
			a.printf("Confirm delete:  %t\n", cfg.ConfirmDelete)
			a.printf("Log level:       %s\n", cfg.LogLevel)
			a.printf("Log file:        %s\n", cfg.LogFile)
			return nil
		},
	}

	var clearURL bool
	setServerCmd := &cobra.Command{
		Use:   "set-server [url]",
		Short: "Pin the backend base URL",
		Long: `Pin the backend base URL in the config file. SOCKMATCH_API_URL still
takes precedence. Use --clear to go back to automatic resolution.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case clearURL:
				a.cfg.APIURL = ""
			case len(args) == 1:
				raw := strings.TrimRight(strings.TrimSpace(args[0]), "/")
				u, err := url.Parse(raw)
				if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
					return fmt.Errorf("invalid server URL %q (want http://host[:port])", args[0])
				}
				a.cfg.APIURL = raw
			default:
				return fmt.Errorf("give a URL or --clear")
			}

			if err := a.cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			logger.Info("Server changed", logger.F("api_url", a.cfg.APIURL))

			resolved, source := a.cfg.ResolveBaseURL()
			a.printf("✅ Server is now %s (%s)\n", resolved, source)
			return nil
		},
	}
	setServerCmd.Flags().BoolVar(&clearURL, "clear", false, "Remove the pinned URL")

	var confirmDelete bool
	setConfirmCmd := &cobra.Command{
		Use:   "confirm-delete",
		Short: "Turn delete confirmations on or off",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.cfg.ConfirmDelete = confirmDelete
			if err := a.cfg.Save(); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			a.printf("✅ Delete confirmation: %t\n", confirmDelete)
			return nil
		},
	}
	setConfirmCmd.Flags().BoolVar(&confirmDelete, "enabled", true, "Ask before deleting")

	configCmd.AddCommand(showCmd, setServerCmd, setConfirmCmd)
	return configCmd
}
