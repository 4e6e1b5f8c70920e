package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/netvigil/ispadm/internal/form"
	"github.com/netvigil/ispadm/internal/query"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const commandTimeout = 30 * time.Second

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// applySets feeds repeated --set name=value flags into a form session.
func applySets(sess *form.Session, sets []string) error {
	for _, set := range sets {
		eq := strings.Index(set, "=")
		if eq < 1 {
			return fmt.Errorf("invalid --set %q, expected name=value", set)
		}
		if err := sess.Set(set[:eq], set[eq+1:]); err != nil {
			return err
		}
	}
	return nil
}

// confirm asks before a destructive operation unless --yes was given.
func confirm(cmd *cobra.Command, prompt string) bool {
	if yesFlag {
		return true
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Scan()
	return strings.ToLower(strings.TrimSpace(scanner.Text())) == "y"
}

// printYAML renders a single entity for `get`-style commands.
func printYAML(cmd *cobra.Command, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

// savePrefs persists UI preferences, logging nothing on failure; a broken
// prefs file must never fail an otherwise successful command.
func savePrefs() {
	if prefs != nil && prefsPath != "" {
		_ = prefs.Save(prefsPath)
	}
}

// submitForm runs one open form session through a mutation and reports
// the outcome through the notifier.
func submitForm(sess *form.Session, m *query.Mutation) error {
	ctx, cancel := commandContext()
	defer cancel()
	return sess.Submit(ctx, m)
}
