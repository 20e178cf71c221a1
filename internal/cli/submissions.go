package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/storage/memory"
)

var submissionsLimit int

var submissionsCmd = &cobra.Command{
	Use:   "submissions",
	Short: "List the deposit transactions broadcast from this client",
	Args:  cobra.NoArgs,
	RunE:  runSubmissions,
}

func init() {
	submissionsCmd.Flags().IntVar(&submissionsLimit, "limit", 20, "number of records")
	rootCmd.AddCommand(submissionsCmd)
}

func runSubmissions(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, _, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer stopApp(app)

	if _, ok := app.Journal().(*memory.SubmissionRepo); ok {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No database configured; the journal only lives for one session")
	}

	records, err := app.Journal().ListRecent(ctx, submissionsLimit)
	if err != nil {
		return fmt.Errorf("list submissions: %w", err)
	}
	printSubmissions(cmd.OutOrStdout(), records)
	return nil
}

func printSubmissions(out io.Writer, records []*domain.SubmissionRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "SUBMITTED\tCHAIN\tASSET\tAMOUNT\tSTATUS\tKEY\tERROR")
	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.SubmittedAt.Format(time.RFC3339), r.Family, symbol(r.Asset), r.Amount, r.Status, r.Key, r.Error)
	}
	_ = w.Flush()
}
