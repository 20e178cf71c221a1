package cli

import (
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/workflow"
)

var (
	depositAsset  string
	depositAmount string
)

var depositCmd = &cobra.Command{
	Use:   "deposit",
	Short: "Deposit an asset, associating the chain's address first when needed",
	Args:  cobra.NoArgs,
	RunE:  runDeposit,
}

func init() {
	depositCmd.Flags().StringVar(&depositAsset, "asset", string(domain.DefaultAsset), "asset to deposit (Eth, Usdc, Sol, Susdc)")
	depositCmd.Flags().StringVar(&depositAmount, "amount", "", "amount to deposit")
	_ = depositCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(depositCmd)
}

func parseSelection(assetFlag, amountFlag string) (domain.Asset, decimal.Decimal, error) {
	asset, err := domain.ParseAsset(assetFlag)
	if err != nil {
		return "", decimal.Zero, err
	}
	amount, err := decimal.NewFromString(amountFlag)
	if err != nil {
		return "", decimal.Zero, fmt.Errorf("invalid amount %q: %w", amountFlag, err)
	}
	return asset, amount, nil
}

func runDeposit(cmd *cobra.Command, args []string) error {
	asset, amount, err := parseSelection(depositAsset, depositAmount)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, _, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer stopApp(app)

	ctrl := app.Controller()
	if err := ctrl.Open(ctx); err != nil {
		return err
	}
	if err := ctrl.SelectAsset(ctx, asset); err != nil {
		return err
	}
	if err := ctrl.SetAmount(ctx, amount); err != nil {
		return err
	}
	printSnapshot(cmd.OutOrStdout(), ctrl.Snapshot())

	if ctrl.NextStep() == workflow.StateNeedsAssociation {
		if err := ctrl.Confirm(ctx); err != nil {
			return err
		}
	}
	if err := ctrl.Confirm(ctx); err != nil {
		return err
	}

	state, err := ctrl.Wait(ctx)
	if err != nil {
		slog.Warn("Stopped waiting for confirmation", "error", err)
		return err
	}
	snap := ctrl.Snapshot()
	printSnapshot(cmd.OutOrStdout(), snap)
	if state == workflow.StateFailed {
		return snap.Err
	}
	return nil
}
