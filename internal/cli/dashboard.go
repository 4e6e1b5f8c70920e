package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/netvigil/ispadm/internal/telemetry"
	"github.com/netvigil/ispadm/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Open the interactive dashboard",
	Long: `Opens the full-screen dashboard: subscriber, plan and CDN rule tabs
plus a Live tab polling the selected subscriber's telemetry. The active
tab is remembered across runs.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var archive *telemetry.Archive
		if cfg.Telemetry.ArchivePath != "" {
			var err error
			archive, err = telemetry.OpenArchive(cfg.Telemetry.ArchivePath)
			if err != nil {
				// A broken archive degrades to live-only; it never blocks
				// the dashboard.
				zap.L().Warn("telemetry archive unavailable", zap.Error(err))
				archive = nil
			} else {
				defer archive.Close()
			}
		}

		model := tui.New(tui.Options{
			Client:    client,
			Cache:     cache,
			Prefs:     prefs,
			PrefsPath: prefsPath,
			Interval:  cfg.Telemetry.Interval,
			Capacity:  cfg.Telemetry.BufferSize,
			Archive:   archive,
		})
		program := tea.NewProgram(model, tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("dashboard: %w", err)
		}
		savePrefs()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
