package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GregMSThompson/chart-renderer/internal/chartstate"
	"github.com/GregMSThompson/chart-renderer/internal/dto"
	"github.com/GregMSThompson/chart-renderer/internal/services"
	"github.com/GregMSThompson/chart-renderer/pkg/logger"
)

func NewResolveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <query>",
		Short: "Resolve a chart query and show the canonical state",
		Long: `Resolve a chart query string (for example "t=population&e=1&sb=1") the
same way GET /chart.png does, and print the canonical state, the fields the
query set explicitly and every constraint-driven change.`,
		Example: `  chartctl resolve 'c=USA,GBR&e=1'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := describeQuery(cmd, args[0])
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			printResolve(cmd, out)
			return nil
		},
	}
}

func NewKeyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "key <query>",
		Short: "Print the cache digest a chart query is stored under",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := describeQuery(cmd, args[0])
			if err != nil {
				return err
			}
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), map[string]string{"digest": out.Digest})
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Digest)
			return nil
		},
	}
}

func describeQuery(cmd *cobra.Command, query string) (dto.ResolveResponse, error) {
	raw, err := url.ParseQuery(strings.TrimPrefix(query, "?"))
	if err != nil {
		return dto.ResolveResponse{}, fmt.Errorf("parse query: %w", err)
	}
	// resolver diagnostics go to stderr so stdout stays parseable
	log := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
	ctx := logger.ToContext(context.Background(), log)
	return services.Describe(ctx, chartstate.NewResolver(chartstate.DefaultRegistry()), raw)
}

func printResolve(cmd *cobra.Command, out dto.ResolveResponse) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "view:      %s\n", out.View)
	fmt.Fprintf(w, "digest:    %s\n", out.Digest)
	fmt.Fprintf(w, "canonical: %s\n", out.Canonical)
	if !out.Converged {
		fmt.Fprintln(w, "WARNING: constraint resolution did not converge")
	}

	fmt.Fprintln(w, "\nstate:")
	keys := make([]string, 0, len(out.State))
	for k := range out.State {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-24s %v\n", k, out.State[k])
	}

	if len(out.Overrides) > 0 {
		fmt.Fprintf(w, "\nexplicit: %s\n", strings.Join(out.Overrides, ", "))
	}
	if len(out.Changes) > 0 {
		fmt.Fprintln(w, "\nchanges:")
		for _, c := range out.Changes {
			fmt.Fprintf(w, "  [%s] %s: %v -> %v (%s)\n", c.Priority, c.Field, c.Before, c.After, c.Reason)
		}
	}
}
