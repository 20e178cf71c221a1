package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietddude/bridge/internal/core/domain"
)

var (
	quoteAsset  string
	quoteAmount string
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Show the points a deposit would earn",
	Args:  cobra.NoArgs,
	RunE:  runQuote,
}

func init() {
	quoteCmd.Flags().StringVar(&quoteAsset, "asset", string(domain.DefaultAsset), "asset (Eth, Usdc, Sol, Susdc)")
	quoteCmd.Flags().StringVar(&quoteAmount, "amount", "0", "amount to quote")
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) error {
	asset, amount, err := parseSelection(quoteAsset, quoteAmount)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	app, _, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer stopApp(app)

	q, err := app.Quotes().Quote(ctx, asset, amount)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s points\n", q.Amount, symbol(asset), q.Points)
	return nil
}
