// Package cli implements the ispadm command tree. Every command talks to
// the backend through the shared API client and resource cache set up in
// the root command's PersistentPreRun.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/netvigil/ispadm/config"
	"github.com/netvigil/ispadm/internal/api"
	"github.com/netvigil/ispadm/internal/logging"
	"github.com/netvigil/ispadm/internal/query"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile    string
	serverFlag string
	tokenFlag  string
	yesFlag    bool // --yes: skip confirmation prompts for destructive operations

	// Shared state set during PersistentPreRun
	cfg       *config.AppConfig
	cfgPath   string
	prefs     *config.Preferences
	prefsPath string
	client    *api.Client
	cache     *query.Cache
	notifier  query.Notifier
)

// printNotifier routes operation outcomes to the terminal.
type printNotifier struct{}

func (printNotifier) Success(msg string) { fmt.Fprintln(os.Stdout, msg) }
func (printNotifier) Error(msg string)   { fmt.Fprintln(os.Stderr, "Error:", msg) }

var rootCmd = &cobra.Command{
	Use:   "ispadm",
	Short: "ISP subscriber administration console",
	Long: `ispadm is the operator console for the subscriber-management backend.
It manages PPPoE subscribers, service plans, CDN shaping rules, backups
and backup schedules, runs bulk operations, and renders a live telemetry
dashboard for online subscribers.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgPath = cfgFile
		if cfgPath == "" {
			cfgPath = filepath.Join(config.DefaultDir(), "config.yaml")
		}
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if serverFlag != "" {
			cfg.Server.URL = serverFlag
		}
		if tokenFlag != "" {
			cfg.Server.Token = tokenFlag
		}
		if err := logging.Setup(cfg.Logger); err != nil {
			return fmt.Errorf("setup logging: %w", err)
		}

		prefsPath = filepath.Join(config.DefaultDir(), "prefs.yaml")
		prefs, err = config.LoadPreferences(prefsPath)
		if err != nil {
			return fmt.Errorf("load preferences: %w", err)
		}

		if client == nil {
			client = api.NewClient(api.Session{
				BaseURL:  cfg.Server.URL,
				Token:    cfg.Server.Token,
				Operator: cfg.Server.Operator,
				Timeout:  cfg.Server.Timeout,
			})
		}
		cache = query.NewCache()
		if notifier == nil {
			notifier = printNotifier{}
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", RenderError(err))
		os.Exit(1)
	}
}

// RenderError is the single place auth failures become user guidance.
// Commands wrap errors with %w, so the check unwraps through the chain.
func RenderError(err error) string {
	if api.IsAuthError(err) {
		return "session expired or unauthorized; run ispadm login"
	}
	return err.Error()
}

// SetClient allows tests to inject a pre-built client.
func SetClient(c *api.Client) {
	client = c
}

// SetNotifier allows tests to capture notifications.
func SetNotifier(n query.Notifier) {
	notifier = n
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is <user config dir>/ispadm/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "", "backend API base URL")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "session token override")
	rootCmd.PersistentFlags().BoolVar(&yesFlag, "yes", false, "skip confirmation prompts for destructive operations")
}
