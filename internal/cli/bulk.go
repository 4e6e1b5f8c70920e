package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/netvigil/ispadm/internal/bulk"
	"github.com/spf13/cobra"
)

var (
	bulkStatus    string
	bulkPlanID    int64
	bulkNodeID    int64
	bulkExpiring  string
	bulkPrefix    string
	bulkOp        string
	bulkParams    []string
	bulkWorkers   int
	bulkChunkSize int
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Run bulk subscriber operations",
	Long: `Previews and executes operations across every subscriber matching a
filter. Runs always go through a server-side preview first; per-subscriber
failures are reported without aborting the rest of the run.`,
}

func bulkFilterFromFlags() (bulk.Filter, error) {
	f := bulk.Filter{
		Status:         bulkStatus,
		PlanID:         bulkPlanID,
		NodeID:         bulkNodeID,
		UsernamePrefix: bulkPrefix,
	}
	if bulkExpiring != "" {
		t, err := dateparse.ParseAny(bulkExpiring)
		if err != nil {
			return f, fmt.Errorf("invalid --expiring-before %q: %w", bulkExpiring, err)
		}
		f.ExpiringBefore = t
	}
	return f, nil
}

func bulkActionFromFlags() (bulk.Action, error) {
	a := bulk.Action{Op: bulkOp, Params: map[string]interface{}{}}
	switch a.Op {
	case "enable", "disable", "change_plan", "extend_expiry":
	default:
		return a, fmt.Errorf("unknown operation %q", a.Op)
	}
	for _, p := range bulkParams {
		eq := strings.Index(p, "=")
		if eq < 1 {
			return a, fmt.Errorf("invalid --param %q, expected name=value", p)
		}
		a.Params[p[:eq]] = p[eq+1:]
	}
	return a, nil
}

var bulkPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show which subscribers a filter matches",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := bulkFilterFromFlags()
		if err != nil {
			return err
		}
		runner, err := bulk.NewRunner(client, cache, bulkWorkers, bulkChunkSize)
		if err != nil {
			return err
		}
		defer runner.Close()

		ctx, cancel := commandContext()
		defer cancel()
		preview, err := runner.PreviewFilter(ctx, filter)
		if err != nil {
			return fmt.Errorf("preview failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d subscribers match.\n", preview.Total)
		for _, id := range preview.IDs {
			fmt.Fprintln(cmd.OutOrStdout(), " ", id)
		}
		return nil
	},
}

var bulkRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute an operation on every matched subscriber",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := bulkFilterFromFlags()
		if err != nil {
			return err
		}
		action, err := bulkActionFromFlags()
		if err != nil {
			return err
		}
		runner, err := bulk.NewRunner(client, cache, bulkWorkers, bulkChunkSize)
		if err != nil {
			return err
		}
		defer runner.Close()

		ctx, cancel := commandContext()
		defer cancel()
		preview, err := runner.PreviewFilter(ctx, filter)
		if err != nil {
			return fmt.Errorf("preview failed: %w", err)
		}
		if preview.Total == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No subscribers match; nothing to do.")
			return nil
		}
		if !confirm(cmd, fmt.Sprintf("Apply %q to %d subscribers?", action.Op, preview.Total)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}

		// Bulk runs can take far longer than one request.
		runCtx, cancelRun := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancelRun()
		report, err := runner.Run(runCtx, filter, action)
		if err != nil {
			return fmt.Errorf("bulk run failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Done: %d succeeded, %d failed of %d.\n",
			report.Succeeded, report.Failed, report.Total)
		for id, msg := range report.Errors {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", id, msg)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{bulkPreviewCmd, bulkRunCmd} {
		c.Flags().StringVar(&bulkStatus, "status", "", "filter: subscriber status")
		c.Flags().Int64Var(&bulkPlanID, "plan", 0, "filter: plan ID")
		c.Flags().Int64Var(&bulkNodeID, "node", 0, "filter: node ID")
		c.Flags().StringVar(&bulkExpiring, "expiring-before", "", "filter: expiry before this date")
		c.Flags().StringVar(&bulkPrefix, "prefix", "", "filter: username prefix")
		c.Flags().IntVar(&bulkWorkers, "workers", 4, "concurrent chunks")
		c.Flags().IntVar(&bulkChunkSize, "chunk-size", 100, "subscribers per request")
	}
	bulkRunCmd.Flags().StringVar(&bulkOp, "op", "", "operation: enable, disable, change_plan, extend_expiry")
	bulkRunCmd.Flags().StringArrayVar(&bulkParams, "param", nil, "operation parameter as name=value (repeatable)")
	_ = bulkRunCmd.MarkFlagRequired("op")

	bulkCmd.AddCommand(bulkPreviewCmd)
	bulkCmd.AddCommand(bulkRunCmd)
	rootCmd.AddCommand(bulkCmd)
}
