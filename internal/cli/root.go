package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/bridge/internal/control"
	"github.com/vietddude/bridge/internal/core/config"
)

var (
	cfgPath   string
	isDebug   bool
	assumeYes bool
)

var rootCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Deposit bridge client",
	Long: `Bridge deposits ETH, USDC, SOL and Solana USDC into the points program,
associating the user's Ethereum and Solana addresses along the way.`,
	PersistentPreRun: setupLogging,
	RunE:             runSession,
	SilenceUsage:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "approve wallet prompts without asking")
}

func setupLogging(cmd *cobra.Command, args []string) {
	_ = godotenv.Load()

	slogLevel := slog.LevelInfo
	if isDebug {
		slogLevel = slog.LevelDebug
	}
	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
}

func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return nil, err
	}
	if cfg.Logging.Level == "debug" && !isDebug {
		stylelog.InitDefault(&tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.RFC3339,
		})
	}
	return cfg, nil
}

// newApp loads the config and wires the application with terminal prompts
// and notifications.
func newApp(ctx context.Context, cmd *cobra.Command) (*control.App, *terminal, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	term := newTerminal(cmd.InOrStdin(), cmd.OutOrStdout(), assumeYes)
	app, err := control.NewApp(ctx, cfg, control.Options{
		Prompter: term,
		Notifier: term,
		Keys:     term,
	})
	if err != nil {
		slog.Error("Failed to initialize bridge", "error", err)
		return nil, nil, err
	}
	return app, term, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func stopApp(app *control.App) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}
}
