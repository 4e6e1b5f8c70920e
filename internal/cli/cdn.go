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

var cdnSets []string

var cdnCmd = &cobra.Command{
	Use:   "cdn",
	Short: "Manage CDN traffic-shaping rules",
}

var cdnListCmd = &cobra.Command{
	Use:   "list",
	Short: "List CDN rules",
	RunE: func(cmd *cobra.Command, args []string) error {
		h := cache.Resource("cdn-rules", func(ctx context.Context) (interface{}, error) {
			items, _, err := api.List[domain.CdnRule](ctx, client, "/api/v1/cdn/rules")
			return items, err
		})
		defer h.Release()

		ctx, cancel := commandContext()
		defer cancel()
		raw, err := h.Get(ctx)
		if err != nil {
			return fmt.Errorf("list cdn rules: %w", err)
		}
		items, _ := raw.([]domain.CdnRule)

		table := view.New("cdn-rules", view.CdnRuleColumns(), prefs)
		fmt.Fprint(cmd.OutOrStdout(), table.RenderPlain(items, false))
		return nil
	},
}

var cdnGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one CDN rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		rule, err := api.GetOne[domain.CdnRule](ctx, client, "/api/v1/cdn/rules/"+args[0])
		if err != nil {
			return fmt.Errorf("get cdn rule: %w", err)
		}
		return printYAML(cmd, rule)
	},
}

var cdnCreateCmd = &cobra.Command{
	Use:   "create --set name=value ...",
	Short: "Create a CDN rule",
	Long: `Creates a CDN shaping rule. The match direction decides which field
applies: a port rule takes --set port=..., a dscp rule --set dscp=...;
the other one is rejected as disabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := form.NewSession(form.CdnRuleSchema())
		if err := sess.OpenCreate(); err != nil {
			return err
		}
		if err := applySets(sess, cdnSets); err != nil {
			return err
		}
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Post(ctx, "/api/v1/cdn/rules", input)
			},
			Cache:         cache,
			Invalidates:   []string{"cdn-rules"},
			Notifier:      notifier,
			FallbackError: "failed to create cdn rule",
		})
		return submitForm(sess, m)
	},
}

var cdnEditCmd = &cobra.Command{
	Use:   "edit <id> --set name=value ...",
	Short: "Edit a CDN rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		rule, err := api.GetOne[domain.CdnRule](ctx, client, "/api/v1/cdn/rules/"+args[0])
		if err != nil {
			return fmt.Errorf("get cdn rule: %w", err)
		}
		entity, err := form.EntityMap(rule)
		if err != nil {
			return err
		}

		sess := form.NewSession(form.CdnRuleSchema())
		if err := sess.OpenEdit(entity); err != nil {
			return err
		}
		if err := applySets(sess, cdnSets); err != nil {
			return err
		}
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Put(ctx, "/api/v1/cdn/rules/"+args[0], input)
			},
			Cache:         cache,
			Invalidates:   []string{"cdn-rules"},
			Notifier:      notifier,
			FallbackError: "failed to update cdn rule",
		})
		return submitForm(sess, m)
	},
}

var cdnDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a CDN rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm(cmd, fmt.Sprintf("Delete CDN rule %s?", args[0])) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Delete(ctx, "/api/v1/cdn/rules/"+args[0])
			},
			Cache:         cache,
			Invalidates:   []string{"cdn-rules"},
			Notifier:      notifier,
			FallbackError: "failed to delete cdn rule",
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
	cdnCreateCmd.Flags().StringArrayVar(&cdnSets, "set", nil, "field value as name=value (repeatable)")
	cdnEditCmd.Flags().StringArrayVar(&cdnSets, "set", nil, "field value as name=value (repeatable)")

	cdnCmd.AddCommand(cdnListCmd)
	cdnCmd.AddCommand(cdnGetCmd)
	cdnCmd.AddCommand(cdnCreateCmd)
	cdnCmd.AddCommand(cdnEditCmd)
	cdnCmd.AddCommand(cdnDeleteCmd)
	rootCmd.AddCommand(cdnCmd)
}
