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
	planSets []string
	planSort string
	planDesc bool
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage service plans",
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List service plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		h := cache.Resource("plans", func(ctx context.Context) (interface{}, error) {
			items, _, err := api.List[domain.ServicePlan](ctx, client, "/api/v1/plans")
			return items, err
		})
		defer h.Release()

		ctx, cancel := commandContext()
		defer cancel()
		raw, err := h.Get(ctx)
		if err != nil {
			return fmt.Errorf("list plans: %w", err)
		}
		items, _ := raw.([]domain.ServicePlan)

		table := view.New("plans", view.PlanColumns(), prefs)
		if planSort != "" {
			if err := table.SortBy(planSort, planDesc); err != nil {
				return err
			}
			savePrefs()
		}
		fmt.Fprint(cmd.OutOrStdout(), table.RenderPlain(items, false))
		return nil
	},
}

var planGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one service plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		plan, err := api.GetOne[domain.ServicePlan](ctx, client, "/api/v1/plans/"+args[0])
		if err != nil {
			return fmt.Errorf("get plan: %w", err)
		}
		return printYAML(cmd, plan)
	},
}

var planCreateCmd = &cobra.Command{
	Use:   "create --set name=value ...",
	Short: "Create a service plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := form.NewSession(form.PlanSchema())
		if err := sess.OpenCreate(); err != nil {
			return err
		}
		if err := applySets(sess, planSets); err != nil {
			return err
		}
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Post(ctx, "/api/v1/plans", input)
			},
			Cache:         cache,
			Invalidates:   []string{"plans"},
			Notifier:      notifier,
			FallbackError: "failed to create plan",
		})
		return submitForm(sess, m)
	},
}

var planEditCmd = &cobra.Command{
	Use:   "edit <id> --set name=value ...",
	Short: "Edit a service plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		plan, err := api.GetOne[domain.ServicePlan](ctx, client, "/api/v1/plans/"+args[0])
		if err != nil {
			return fmt.Errorf("get plan: %w", err)
		}
		entity, err := form.EntityMap(plan)
		if err != nil {
			return err
		}

		sess := form.NewSession(form.PlanSchema())
		if err := sess.OpenEdit(entity); err != nil {
			return err
		}
		if err := applySets(sess, planSets); err != nil {
			return err
		}
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Put(ctx, "/api/v1/plans/"+args[0], input)
			},
			Cache:         cache,
			Invalidates:   []string{"plans", "subscribers"},
			Notifier:      notifier,
			FallbackError: "failed to update plan",
		})
		return submitForm(sess, m)
	},
}

var planDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a service plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirm(cmd, fmt.Sprintf("Delete plan %s?", args[0])) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
		m := query.NewMutation(query.MutationConfig{
			Do: func(ctx context.Context, input interface{}) (*api.MutationResult, error) {
				return client.Delete(ctx, "/api/v1/plans/"+args[0])
			},
			Cache:         cache,
			Invalidates:   []string{"plans"},
			Notifier:      notifier,
			FallbackError: "failed to delete plan",
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
	planListCmd.Flags().StringVar(&planSort, "sort", "", "sort column (persists across runs)")
	planListCmd.Flags().BoolVar(&planDesc, "desc", false, "sort descending")
	planCreateCmd.Flags().StringArrayVar(&planSets, "set", nil, "field value as name=value (repeatable)")
	planEditCmd.Flags().StringArrayVar(&planSets, "set", nil, "field value as name=value (repeatable)")

	planCmd.AddCommand(planListCmd)
	planCmd.AddCommand(planGetCmd)
	planCmd.AddCommand(planCreateCmd)
	planCmd.AddCommand(planEditCmd)
	planCmd.AddCommand(planDeleteCmd)
	rootCmd.AddCommand(planCmd)
}
