package cli

import (
	"context"
	"fmt"

	"github.com/netvigil/ispadm/internal/api"
	"github.com/netvigil/ispadm/internal/domain"
	"github.com/netvigil/ispadm/internal/form"
	"github.com/netvigil/ispadm/internal/query"
	"github.com/netvigil/ispadm/internal/view"
	"github.com/spf13/cobra"
)

var (
	backupKind    string
	backupStorage string
	scheduleSets  []string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage database backups",
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		h := cache.Resource("backups", func(ctx context.Context) (interface{}, error) {
			items, _, err := api.List[domain.Backup](ctx, client, "/api/v1/backups")
			return items, err
		})
		defer h.Release()

		ctx, cancel := commandContext()
		defer cancel()
		raw, err := h.Get(ctx)
		if err != nil {
			return fmt.Errorf("list backups: %w", err)
		}
		items, _ := raw.([]domain.Backup)

		table := view.New("backups", view.BackupColumns(), prefs)
		fmt.Fprint(cmd.OutOrStdout(), table.RenderPlain(items, false))
		return nil
	},
}

var backupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Trigger an immediate backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Post(ctx, "/api/v1/backups", map[string]string{
					"kind":         backupKind,
					"storage_type": backupStorage,
				})
			},
			Cache:         cache,
			Invalidates:   []string{"backups"},
			Notifier:      notifier,
			FallbackError: "failed to create backup",
		})
		ctx, cancel := commandContext()
		defer cancel()
		if !m.Run(ctx, nil) {
			return fmt.Errorf("another operation is in progress")
		}
		return m.Err()
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <filename>",
	Short: "Delete a backup artifact",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm(cmd, fmt.Sprintf("Delete backup %s? This cannot be undone.", args[0])) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Delete(ctx, "/api/v1/backups/"+args[0])
			},
			Cache:         cache,
			Invalidates:   []string{"backups"},
			Notifier:      notifier,
			FallbackError: "failed to delete backup",
		})
		ctx, cancel := commandContext()
		defer cancel()
		if !m.Run(ctx, nil) {
			return fmt.Errorf("another operation is in progress")
		}
		return m.Err()
	},
}

var backupDownloadCmd = &cobra.Command{
	Use:   "download <filename>",
	Short: "Print a short-lived download URL for a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		url, err := client.BackupDownloadURL(ctx, args[0])
		if err != nil {
			return fmt.Errorf("request download url: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), url)
		return nil
	},
}

var backupLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show schedule execution history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		logs, _, err := api.List[domain.BackupLog](ctx, client, "/api/v1/backup-logs")
		if err != nil {
			return fmt.Errorf("list backup logs: %w", err)
		}
		for _, log := range logs {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %-8s %-30s %s\n",
				log.CreatedAt.Format("2006-01-02 15:04"), log.Result, log.Filename, log.Message)
		}
		if len(logs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No rows.")
		}
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage recurring backup schedules",
}

var scheduleListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backup schedules",
	RunE: func(cmd *cobra.Command, args []string) error {
		h := cache.Resource("schedules", func(ctx context.Context) (interface{}, error) {
			items, _, err := api.List[domain.BackupSchedule](ctx, client, "/api/v1/schedules")
			return items, err
		})
		defer h.Release()

		ctx, cancel := commandContext()
		defer cancel()
		raw, err := h.Get(ctx)
		if err != nil {
			return fmt.Errorf("list schedules: %w", err)
		}
		items, _ := raw.([]domain.BackupSchedule)

		table := view.New("schedules", view.ScheduleColumns(), prefs)
		fmt.Fprint(cmd.OutOrStdout(), table.RenderPlain(items, false))
		return nil
	},
}

var scheduleCreateCmd = &cobra.Command{
	Use:   "create --set name=value ...",
	Short: "Create a backup schedule",
	Long: `Creates a recurring backup schedule. Unset fields take their
declared defaults: daily at 02:00, 7 copies kept, local storage. The run
time accepts both 12-hour ("02:00 AM") and 24-hour ("14:30") input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := form.NewSession(form.ScheduleSchema())
		if err := sess.OpenCreate(); err != nil {
			return err
		}
		if err := applySets(sess, scheduleSets); err != nil {
			return err
		}
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Post(ctx, "/api/v1/schedules", input)
			},
			Cache:         cache,
			Invalidates:   []string{"schedules"},
			Notifier:      notifier,
			FallbackError: "failed to save schedule",
		})
		return submitForm(sess, m)
	},
}

var scheduleEditCmd = &cobra.Command{
	Use:   "edit <id> --set name=value ...",
	Short: "Edit a backup schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		schedule, err := api.GetOne[domain.BackupSchedule](ctx, client, "/api/v1/schedules/"+args[0])
		if err != nil {
			return fmt.Errorf("get schedule: %w", err)
		}
		entity, err := form.EntityMap(schedule)
		if err != nil {
			return err
		}

		sess := form.NewSession(form.ScheduleSchema())
		if err := sess.OpenEdit(entity); err != nil {
			return err
		}
		if err := applySets(sess, scheduleSets); err != nil {
			return err
		}
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Put(ctx, "/api/v1/schedules/"+args[0], input)
			},
			Cache:         cache,
			Invalidates:   []string{"schedules"},
			Notifier:      notifier,
			FallbackError: "failed to save schedule",
		})
		return submitForm(sess, m)
	},
}

var scheduleDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a backup schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm(cmd, fmt.Sprintf("Delete schedule %s?", args[0])) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Delete(ctx, "/api/v1/schedules/"+args[0])
			},
			Cache:         cache,
			Invalidates:   []string{"schedules"},
			Notifier:      notifier,
			FallbackError: "failed to delete schedule",
		})
		ctx, cancel := commandContext()
		defer cancel()
		if !m.Run(ctx, nil) {
			return fmt.Errorf("another operation is in progress")
		}
		return m.Err()
	},
}

var scheduleRunCmd = &cobra.Command{
	Use:   "run <id>",
	Short: "Execute a schedule immediately",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Post(ctx, "/api/v1/schedules/"+args[0]+"/run", nil)
			},
			Cache:         cache,
			Invalidates:   []string{"schedules", "backups"},
			Notifier:      notifier,
			FallbackError: "failed to run schedule",
		})
		ctx, cancel := commandContext()
		defer cancel()
		if !m.Run(ctx, nil) {
			return fmt.Errorf("another operation is in progress")
		}
		return m.Err()
	},
}

func init() {
	backupCreateCmd.Flags().StringVar(&backupKind, "kind", "full", "backup kind: full or data")
	backupCreateCmd.Flags().StringVar(&backupStorage, "storage", "local", "storage target: local or cloud")
	scheduleCreateCmd.Flags().StringArrayVar(&scheduleSets, "set", nil, "field value as name=value (repeatable)")
	scheduleEditCmd.Flags().StringArrayVar(&scheduleSets, "set", nil, "field value as name=value (repeatable)")

	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupDeleteCmd)
	backupCmd.AddCommand(backupDownloadCmd)
	backupCmd.AddCommand(backupLogsCmd)
	rootCmd.AddCommand(backupCmd)

	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleCreateCmd)
	scheduleCmd.AddCommand(scheduleEditCmd)
	scheduleCmd.AddCommand(scheduleDeleteCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)
	rootCmd.AddCommand(scheduleCmd)
}
