package cli

import (
	"context"
	"fmt"

	"github.com/netvigil/ispadm/internal/api"
	"github.com/netvigil/ispadm/internal/domain"
	"github.com/netvigil/ispadm/internal/view"
	"github.com/spf13/cobra"
)

var ledgerUsername string

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Show subscriber transaction ledgers",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/v1/ledger"
		if ledgerUsername != "" {
			path += "?username=" + ledgerUsername
		}
		h := cache.Resource("ledger", func(ctx context.Context) (interface{}, error) {
			items, _, err := api.List[domain.LedgerEntry](ctx, client, path)
			return items, err
		})
		defer h.Release()

		ctx, cancel := commandContext()
		defer cancel()
		raw, err := h.Get(ctx)
		if err != nil {
			return fmt.Errorf("list ledger: %w", err)
		}
		items, _ := raw.([]domain.LedgerEntry)

		table := view.New("ledger", view.LedgerColumns(), prefs)
		fmt.Fprint(cmd.OutOrStdout(), table.RenderPlain(items, false))
		return nil
	},
}

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "List POP/NAS nodes",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		nodes, _, err := api.List[domain.NasNode](ctx, client, "/api/v1/nodes")
		if err != nil {
			return fmt.Errorf("list nodes: %w", err)
		}
		for _, n := range nodes {
			state := "offline"
			if n.Online {
				state = fmt.Sprintf("online %dms", n.Latency)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-16s %s\n", n.Name, n.Ipaddr, state)
		}
		if len(nodes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No rows.")
		}
		return nil
	},
}

func init() {
	ledgerCmd.Flags().StringVar(&ledgerUsername, "username", "", "filter by subscriber username")
	rootCmd.AddCommand(ledgerCmd)
	rootCmd.AddCommand(nodesCmd)
}
