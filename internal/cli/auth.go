package cli

import (
	"fmt"
	"syscall"

	"github.com/netvigil/ispadm/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var loginPassword string

var loginCmd = &cobra.Command{
	Use:   "login <username>",
	Short: "Log in and store the session token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password := loginPassword
		if password == "" {
			fmt.Fprint(cmd.OutOrStdout(), "Password: ")
			raw, err := term.ReadPassword(int(syscall.Stdin))
			fmt.Fprintln(cmd.OutOrStdout())
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			password = string(raw)
		}

		ctx, cancel := commandContext()
		defer cancel()
		sess, err := client.Login(ctx, args[0], password)
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		cfg.Server.Token = sess.Token
		cfg.Server.Operator = sess.Operator
		if err := saveConfig(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", sess.Operator)
		return nil
	},
}

var impersonateCmd = &cobra.Command{
	Use:   "impersonate <one-time-token>",
	Short: "Exchange a one-time impersonation token for a session",
	Long: `Exchanges a one-time impersonation token issued by another operator
for a session token and stores it. The one-time token is consumed on
first use.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		sess, err := client.Impersonate(ctx, args[0])
		if err != nil {
			return fmt.Errorf("impersonation failed: %w", err)
		}

		cfg.Server.Token = sess.Token
		cfg.Server.Operator = sess.Operator
		if err := saveConfig(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session switched to %s.\n", sess.Operator)
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess := client.Session()
		if !sess.Authenticated() {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "operator: %s\nserver: %s\n", sess.Operator, sess.BaseURL)
		if exp, err := sess.TokenExpiry(); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "token expires: %s\n", exp.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func saveConfig() error {
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

func init() {
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "password (prompted when omitted)")
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(impersonateCmd)
	rootCmd.AddCommand(whoamiCmd)
}
