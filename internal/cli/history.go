package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/bridge/internal/core/domain"
)

var historyPage int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List the user's deposits, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyPage, "page", 1, "page number")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, _, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer stopApp(app)

	entries := app.History().Page(ctx, app.Session().UserID(), historyPage)
	printHistory(cmd.OutOrStdout(), entries)
	return nil
}

func printHistory(out io.Writer, entries []domain.HistoryEntry) {
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(out, "No deposits")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, "TIME\tASSET\tAMOUNT\tPOINTS\tSTATUS")
	for _, e := range entries {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.Timestamp.Format(time.RFC3339), symbol(e.Asset), e.Amount, e.Points, e.Status)
	}
	_ = w.Flush()
}

// symbol is the display symbol, falling back to the raw code for assets the
// backend knows but this client does not.
func symbol(a domain.Asset) string {
	if !a.Valid() {
		return string(a)
	}
	return a.Info().Symbol
}
