package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/netvigil/ispadm/internal/sandbox"
	"github.com/spf13/cobra"
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Run the embedded development backend",
	Long: `Runs a local backend speaking the production API contract, seeded
with a demo dataset (operator admin/admin). Point the console at it with
--server http://<listen-addr>.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := sandbox.NewServer(cfg.Sandbox)
		if err != nil {
			return fmt.Errorf("start sandbox: %w", err)
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case <-sigCh:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		}
	},
}

func init() {
	rootCmd.AddCommand(sandboxCmd)
}
