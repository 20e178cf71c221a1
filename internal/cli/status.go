package cli

import (
	"fmt"
	"io"
	"log/slog"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/health"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the user's addresses and the health of every dependency",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, _, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer stopApp(app)

	out := cmd.OutOrStdout()
	if _, err := app.Registry().Refresh(ctx); err != nil {
		slog.Warn("Failed to load user", "error", err)
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CHAIN\tADDRESS\tASSOCIATION")
	addrs := app.Registry().Addresses()
	for _, family := range domain.ChainFamilies {
		addr := addrs.Ethereum
		if family == domain.ChainFamilySolana {
			addr = addrs.Solana
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", family, orDash(addr), app.Association().State(family))
	}
	_ = w.Flush()
	_, _ = fmt.Fprintln(out)

	info := app.SessionInfo()
	_, _ = fmt.Fprintf(out, "User: %s | Journal: %s\n", info.UserID, info.Journal)
	printHealth(out, app.Health(ctx))
	return nil
}

func printHealth(out io.Writer, report health.Report) {
	_, _ = fmt.Fprintf(out, "System: %s\n", report.SystemStatus)

	names := make([]string, 0, len(report.Components))
	for name := range report.Components {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "COMPONENT\tSTATUS\tLATENCY(ms)\tERROR")
	for _, name := range names {
		c := report.Components[name]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", name, c.Status, c.LatencyMS, c.Error)
	}
	_ = w.Flush()
}
