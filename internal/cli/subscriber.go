package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/netvigil/ispadm/internal/api"
	"github.com/netvigil/ispadm/internal/domain"
	"github.com/netvigil/ispadm/internal/form"
	"github.com/netvigil/ispadm/internal/query"
	"github.com/netvigil/ispadm/internal/view"
	"github.com/spf13/cobra"
)

var (
	subscriberSets   []string
	subscriberSort   string
	subscriberDesc   bool
	subscriberQ      string
	subscriberStatus string
	exportFormat     string
	exportOut        string
)

var subscriberCmd = &cobra.Command{
	Use:     "subscriber",
	Aliases: []string{"sub"},
	Short:   "Manage PPPoE subscribers",
}

func subscriberHandle() *query.Handle {
	path := "/api/v1/subscribers"
	key := "subscribers"
	if subscriberQ != "" || subscriberStatus != "" {
		// A filtered list is its own resource; it must never overwrite
		// or answer for the unfiltered "subscribers" entry.
		path += "?q=" + subscriberQ + "&status=" + subscriberStatus
		key += "?q=" + subscriberQ + "&status=" + subscriberStatus
	}
	return cache.Resource(key, func(ctx context.Context) (interface{}, error) {
		items, _, err := api.List[domain.Subscriber](ctx, client, path)
		return items, err
	})
}

func fetchSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	h := subscriberHandle()
	defer h.Release()
	raw, err := h.Get(ctx)
	if err != nil {
		return nil, err
	}
	items, _ := raw.([]domain.Subscriber)
	return items, nil
}

var subscriberListCmd = &cobra.Command{
	Use:   "list",
	Short: "List subscribers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		items, err := fetchSubscribers(ctx)
		if err != nil {
			return fmt.Errorf("list subscribers: %w", err)
		}
		table := view.New("subscribers", view.SubscriberColumns(), prefs)
		if subscriberSort != "" {
			if err := table.SortBy(subscriberSort, subscriberDesc); err != nil {
				return err
			}
			savePrefs()
		}
		fmt.Fprint(cmd.OutOrStdout(), table.RenderPlain(items, false))
		return nil
	},
}

var subscriberGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one subscriber",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		sub, err := api.GetOne[domain.Subscriber](ctx, client, "/api/v1/subscribers/"+args[0])
		if err != nil {
			return fmt.Errorf("get subscriber: %w", err)
		}
		return printYAML(cmd, sub)
	},
}

var subscriberCreateCmd = &cobra.Command{
	Use:   "create --set name=value ...",
	Short: "Create a subscriber",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := form.NewSession(form.SubscriberSchema())
		if err := sess.OpenCreate(); err != nil {
			return err
		}
		if err := applySets(sess, subscriberSets); err != nil {
			return err
		}
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Post(ctx, "/api/v1/subscribers", input)
			},
			Cache:         cache,
			Invalidates:   []string{"subscribers"},
			Notifier:      notifier,
			FallbackError: "failed to create subscriber",
		})
		return submitForm(sess, m)
	},
}

var subscriberEditCmd = &cobra.Command{
	Use:   "edit <id> --set name=value ...",
	Short: "Edit a subscriber",
	Long: `Edits a subscriber. Fields not named in a --set flag are submitted
exactly as the backend returned them.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		sub, err := api.GetOne[domain.Subscriber](ctx, client, "/api/v1/subscribers/"+args[0])
		if err != nil {
			return fmt.Errorf("get subscriber: %w", err)
		}
		entity, err := form.EntityMap(sub)
		if err != nil {
			return err
		}

		sess := form.NewSession(form.SubscriberSchema())
		if err := sess.OpenEdit(entity); err != nil {
			return err
		}
		if err := applySets(sess, subscriberSets); err != nil {
			return err
		}
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Put(ctx, "/api/v1/subscribers/"+args[0], input)
			},
			Cache:         cache,
			Invalidates:   []string{"subscribers"},
			Notifier:      notifier,
			FallbackError: "failed to update subscriber",
		})
		return submitForm(sess, m)
	},
}

var subscriberDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a subscriber",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm(cmd, fmt.Sprintf("Delete subscriber %s? This cannot be undone.", args[0])) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Delete(ctx, "/api/v1/subscribers/"+args[0])
			},
			Cache:         cache,
			Invalidates:   []string{"subscribers"},
			Notifier:      notifier,
			FallbackError: "failed to delete subscriber",
		})
		ctx, cancel := commandContext()
		defer cancel()
		if !m.Run(ctx, nil) {
			return fmt.Errorf("another operation is in progress")
		}
		return m.Err()
	},
}

var subscriberExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export subscribers to CSV or XLSX",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		items, err := fetchSubscribers(ctx)
		if err != nil {
			return fmt.Errorf("list subscribers: %w", err)
		}

		switch exportFormat {
		case "csv":
			w := cmd.OutOrStdout()
			if exportOut != "" {
				f, err := os.Create(exportOut)
				if err != nil {
					return fmt.Errorf("create %s: %w", exportOut, err)
				}
				defer f.Close()
				w = f
			}
			return view.ExportCSV(w, items)
		case "xlsx":
			if exportOut == "" {
				return fmt.Errorf("--out is required for xlsx export")
			}
			cols := view.SubscriberColumns()
			headers := make([]string, len(cols))
			for i, c := range cols {
				headers[i] = c.Header
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				row := make([]string, len(cols))
				for i, c := range cols {
					row[i] = c.Render(item)
				}
				rows = append(rows, row)
			}
			if err := view.ExportXLSX(exportOut, headers, rows); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d subscribers to %s.\n", len(items), exportOut)
			return nil
		default:
			return fmt.Errorf("unknown export format %q", exportFormat)
		}
	},
}

var subscriberLiveCmd = &cobra.Command{
	Use:   "live <id>",
	Short: "Show the current live telemetry sample",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		sample, err := api.GetOne[domain.LiveSample](ctx, client, "/api/v1/subscribers/"+args[0]+"/live")
		if err != nil {
			var apiErr *api.Error
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				fmt.Fprintln(cmd.OutOrStdout(), "Subscriber is offline; no live data.")
				return nil
			}
			return fmt.Errorf("fetch live sample: %w", err)
		}
		return printYAML(cmd, sample)
	},
}

func init() {
	subscriberListCmd.Flags().StringVar(&subscriberQ, "q", "", "search username or customer name")
	subscriberListCmd.Flags().StringVar(&subscriberStatus, "status", "", "filter by status")
	subscriberListCmd.Flags().StringVar(&subscriberSort, "sort", "", "sort column (persists across runs)")
	subscriberListCmd.Flags().BoolVar(&subscriberDesc, "desc", false, "sort descending")
	subscriberCreateCmd.Flags().StringArrayVar(&subscriberSets, "set", nil, "field value as name=value (repeatable)")
	subscriberEditCmd.Flags().StringArrayVar(&subscriberSets, "set", nil, "field value as name=value (repeatable)")
	subscriberExportCmd.Flags().StringVar(&exportFormat, "format", "csv", "export format: csv or xlsx")
	subscriberExportCmd.Flags().StringVar(&exportOut, "out", "", "output file (csv defaults to stdout)")

	subscriberCmd.AddCommand(subscriberListCmd)
	subscriberCmd.AddCommand(subscriberGetCmd)
	subscriberCmd.AddCommand(subscriberCreateCmd)
	subscriberCmd.AddCommand(subscriberEditCmd)
	subscriberCmd.AddCommand(subscriberDeleteCmd)
	subscriberCmd.AddCommand(subscriberExportCmd)
	subscriberCmd.AddCommand(subscriberLiveCmd)
	rootCmd.AddCommand(subscriberCmd)
}
