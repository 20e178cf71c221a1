package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietddude/bridge/internal/core/domain"
)

var associateCmd = &cobra.Command{
	Use:   "associate [ethereum|solana]",
	Short: "Associate the connected wallet's address on a chain with the user",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssociate,
}

func init() {
	rootCmd.AddCommand(associateCmd)
}

func runAssociate(cmd *cobra.Command, args []string) error {
	family, err := domain.ParseChainFamily(args[0])
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

	if _, err := app.Registry().Refresh(ctx); err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if err := app.Association().Associate(ctx, family); err != nil {
		return err
	}

	addrs := app.Registry().Addresses()
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "ethereum: %s\nsolana:   %s\n", orDash(addrs.Ethereum), orDash(addrs.Solana))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
