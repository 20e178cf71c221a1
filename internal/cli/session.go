package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/vietddude/bridge/internal/association"
	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/workflow"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run an interactive deposit session",
	Args:  cobra.NoArgs,
	RunE:  runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}

const sessionHelp = `commands:
  open              start a fresh deposit
  assets            list the supported assets
  asset <code>      select Eth, Usdc, Sol or Susdc
  amount <n>        set the amount
  confirm           associate the chain or submit the deposit
  wait              wait for the deposit to confirm
  show              show the current selection
  history [page]    list deposits
  close             abandon the deposit
  quit              leave`

// sessionController is the part of workflow.Controller driven by the REPL.
type sessionController interface {
	Open(ctx context.Context) error
	Close()
	SelectAsset(ctx context.Context, asset domain.Asset) error
	SetAmount(ctx context.Context, amount decimal.Decimal) error
	Confirm(ctx context.Context) error
	Wait(ctx context.Context) (workflow.State, error)
	Snapshot() workflow.Snapshot
	AssociationState() association.State
}

type historyPager interface {
	Page(ctx context.Context, userID string, page int) []domain.HistoryEntry
}

type repl struct {
	ctrl    sessionController
	history historyPager
	userID  string
	term    *terminal
	out     io.Writer
}

func runSession(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext(cmd.Context())
	defer stop()

	app, term, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer stopApp(app)

	if err := app.Start(ctx); err != nil {
		return err
	}
	slog.Info("Bridge session started", "config", cfgPath, "user", app.Session().UserID())

	r := &repl{
		ctrl:    app.Controller(),
		history: app.History(),
		userID:  app.Session().UserID(),
		term:    term,
		out:     cmd.OutOrStdout(),
	}
	return r.run(ctx)
}

// run reads commands until quit, end of input or cancellation.
func (r *repl) run(ctx context.Context) error {
	if err := r.ctrl.Open(ctx); err != nil {
		return err
	}
	r.show()

	for {
		if ctx.Err() != nil {
			r.ctrl.Close()
			return nil
		}
		r.term.printf("> ")
		line, err := r.term.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				r.ctrl.Close()
				return nil
			}
			return err
		}
		if line == "" {
			continue
		}
		quit, err := r.exec(ctx, line)
		if err != nil {
			r.term.printf("error: %v\n", err)
		}
		if quit {
			r.ctrl.Close()
			return nil
		}
	}
}

func (r *repl) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "open":
		if err := r.ctrl.Open(ctx); err != nil {
			return false, err
		}
		r.show()
	case "asset":
		if len(args) != 1 {
			return false, errors.New("usage: asset <code>")
		}
		asset, err := domain.ParseAsset(args[0])
		if err != nil {
			return false, err
		}
		if err := r.ctrl.SelectAsset(ctx, asset); err != nil {
			return false, err
		}
		r.show()
	case "amount":
		if len(args) != 1 {
			return false, errors.New("usage: amount <n>")
		}
		amount, err := decimal.NewFromString(args[0])
		if err != nil {
			return false, fmt.Errorf("invalid amount %q", args[0])
		}
		if err := r.ctrl.SetAmount(ctx, amount); err != nil {
			return false, err
		}
		r.show()
	case "confirm":
		// Errors are already rendered as notifications.
		if err := r.ctrl.Confirm(ctx); err != nil {
			slog.Debug("Confirm failed", "error", err)
		}
		r.show()
	case "wait":
		if _, err := r.ctrl.Wait(ctx); err != nil {
			return false, err
		}
		r.show()
	case "assets":
		for _, a := range domain.AssetOrder {
			info := a.Info()
			r.term.printf("  %-6s %-9s %s %s\n", a, info.Symbol, info.Family, info.Kind)
		}
	case "show":
		r.show()
	case "history":
		page := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return false, fmt.Errorf("invalid page %q", args[0])
			}
			page = n
		}
		printHistory(r.out, r.history.Page(ctx, r.userID, page))
	case "close":
		r.ctrl.Close()
		r.term.printf("deposit closed\n")
	case "quit", "exit":
		return true, nil
	case "help":
		r.term.printf("%s\n", sessionHelp)
	default:
		return false, fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return false, nil
}

func (r *repl) show() {
	snap := r.ctrl.Snapshot()
	var b strings.Builder
	printSnapshot(&b, snap)
	if snap.State == workflow.StateNeedsAssociation {
		fmt.Fprintf(&b, "association: %s (confirm to sign)\n", r.ctrl.AssociationState())
	}
	r.term.printf("%s", b.String())
}

func printSnapshot(out io.Writer, snap workflow.Snapshot) {
	points := "-"
	if snap.Quote != nil && snap.Quote.Matches(snap.Asset, snap.Amount) {
		points = snap.Quote.Points.String()
	}
	_, _ = fmt.Fprintf(out, "state: %s | asset: %s | amount: %s | points: %s\n",
		snap.State, symbol(snap.Asset), snap.Amount, points)
	if snap.Record != nil {
		_, _ = fmt.Fprintf(out, "tx: %s (%s)\n", snap.Record.Key, snap.Record.Status)
	}
}
