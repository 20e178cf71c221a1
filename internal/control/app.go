package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	solrpc "github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/bridge/internal/association"
	"github.com/vietddude/bridge/internal/builder"
	"github.com/vietddude/bridge/internal/core/config"
	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/core/session"
	"github.com/vietddude/bridge/internal/health"
	"github.com/vietddude/bridge/internal/history"
	"github.com/vietddude/bridge/internal/infra/api"
	"github.com/vietddude/bridge/internal/infra/chain"
	"github.com/vietddude/bridge/internal/infra/chain/evm"
	"github.com/vietddude/bridge/internal/infra/chain/solana"
	redisclient "github.com/vietddude/bridge/internal/infra/redis"
	"github.com/vietddude/bridge/internal/infra/storage"
	"github.com/vietddude/bridge/internal/infra/storage/memory"
	"github.com/vietddude/bridge/internal/infra/storage/postgres"
	"github.com/vietddude/bridge/internal/quote"
	"github.com/vietddude/bridge/internal/registry"
	"github.com/vietddude/bridge/internal/workflow"
)

// Options are the pieces supplied by the session host rather than config.
type Options struct {
	// Prompter approves wallet prompts. Defaults to chain.AutoApprove.
	Prompter chain.Prompter
	// Notifier renders workflow notifications. Defaults to workflow.LogNotifier.
	Notifier workflow.Notifier
	// Keys supplies a private key when a chain action needs a wallet that
	// is not configured. Without it such actions fail with
	// domain.ErrWalletNotConnected.
	Keys KeyReader
}

// KeyReader asks the user for the private key of a chain family. An empty
// key means the user declined to connect.
type KeyReader interface {
	ReadKey(ctx context.Context, family domain.ChainFamily) (string, error)
}

// App owns every component of a bridge session and their lifecycle.
type App struct {
	cfg *config.AppConfig
	log *slog.Logger

	backend     *api.Client
	session     *session.Session
	registry    *registry.Registry
	association *association.Flow
	quotes      *quote.Client
	history     *history.View
	journal     storage.SubmissionRepository
	journalKind string
	controller  *workflow.Controller
	wallets     *chain.WalletSet
	prompter    chain.Prompter
	keys        KeyReader

	ethClient *ethclient.Client
	solClient *solrpc.Client
	db        *postgres.DB
	redis     *redisclient.Client

	healthMon    *health.Monitor
	healthServer *health.Server

	mu     sync.Mutex
	cancel context.CancelFunc
	group  *errgroup.Group
}

// NewApp builds the component graph described by cfg.
func NewApp(ctx context.Context, cfg *config.AppConfig, opts Options) (*App, error) {
	if opts.Prompter == nil {
		opts.Prompter = chain.AutoApprove{}
	}
	a := &App{
		cfg:      cfg,
		log:      slog.Default().With("component", "app"),
		prompter: opts.Prompter,
		keys:     opts.Keys,
	}

	// 1. Backend
	a.backend = api.NewClient(api.Config{
		BaseURL: cfg.Backend.URL,
		Token:   cfg.Backend.Token,
		Timeout: cfg.Backend.Timeout,
		Proxy:   cfg.Backend.Proxy,
	})

	// 2. Journal
	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.journal = postgres.NewSubmissionRepo(db)
		a.journalKind = "postgres"
		a.log.Info("Using PostgreSQL journal")
	} else {
		a.journal = memory.NewSubmissionRepo()
		a.journalKind = "memory"
		a.log.Info("Using memory journal")
	}

	// 3. Quote cache
	var cache quote.Cache
	if cfg.Quote.CacheTTL > 0 {
		cache = quote.NewMemoryCache(cfg.Quote.CacheTTL)
		if cfg.Redis.URL != "" {
			client, err := redisclient.NewClient(cfg.Redis)
			if err != nil {
				a.log.Warn("Failed to connect to Redis, using memory quote cache", "error", err)
			} else {
				a.redis = client
				cache = redisclient.NewQuoteCache(client, cfg.Quote.CacheTTL)
			}
		}
	}

	// 4. Wallets and submitters
	a.wallets = chain.NewWalletSet(a.connectWallet)
	evmSubmitter, err := a.initEthereum(ctx)
	if err != nil {
		a.closeResources()
		return nil, err
	}
	solSubmitter, err := a.initSolana()
	if err != nil {
		a.closeResources()
		return nil, err
	}

	// 5. Workflow components
	a.session = session.New(cfg.User.ID)
	a.registry = registry.New(a.backend, a.session)
	a.association = association.New(a.backend, a.registry, a.wallets, a.session)
	a.quotes = quote.NewClient(a.backend, cache)
	a.history = history.NewView(a.backend, cfg.History.PageSize)
	a.controller = workflow.New(workflow.Deps{
		Session:     a.session,
		Registry:    a.registry,
		Association: a.association,
		Quotes:      a.quotes,
		Builder:     builder.New(a.backend),
		History:     a.history,
		Wallets:     a.wallets,
		Submitters:  []chain.Submitter{evmSubmitter, solSubmitter},
		Journal:     a.journal,
		Notifier:    opts.Notifier,
	})

	// 6. Health
	a.healthMon = health.NewMonitor(10 * time.Second)
	a.healthMon.AddCheck("backend", health.BackendCheck(a.backend))
	if a.db != nil {
		a.healthMon.AddCheck("database", health.PingCheck(a.db.Health))
	}
	if a.redis != nil {
		a.healthMon.AddCheck("redis", health.PingCheck(a.redis.Ping))
	}
	if a.ethClient != nil {
		eth := a.ethClient
		a.healthMon.AddCheck("ethereum", health.PingCheck(func(ctx context.Context) error {
			_, err := eth.BlockNumber(ctx)
			return err
		}))
	}
	if a.solClient != nil {
		sol := a.solClient
		a.healthMon.AddCheck("solana", health.PingCheck(func(ctx context.Context) error {
			_, err := sol.GetHealth(ctx)
			return err
		}))
	}
	if cfg.Server.Port > 0 {
		a.healthServer = health.NewServer(a.healthMon, cfg.Server.Port, a.SessionInfo)
	}

	return a, nil
}

func (a *App) initEthereum(ctx context.Context) (*evm.Submitter, error) {
	cfg := a.cfg.Ethereum
	if cfg.RPCURL != "" {
		client, err := ethclient.DialContext(ctx, cfg.RPCURL)
		if err != nil {
			return nil, fmt.Errorf("failed to dial ethereum rpc: %w", err)
		}
		a.ethClient = client
	}

	var watcher *evm.ReceiptWatcher
	if a.ethClient != nil {
		watcher = evm.NewReceiptWatcher(a.ethClient, cfg.ReceiptPollInterval)
	}
	if cfg.PrivateKey != "" {
		lw, err := a.ethereumWallet(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		a.wallets.Add(lw)
		a.log.Info("Ethereum wallet connected", "address", lw.Address())
	}

	waitForApproval := true
	if cfg.WaitForApproval != nil {
		waitForApproval = *cfg.WaitForApproval
	}
	return evm.NewSubmitter(a.wallets, watcher, evm.Config{
		USDCAddress:     cfg.USDCAddress,
		USDCDecimals:    cfg.USDCDecimals,
		ApproveMargin:   cfg.ApproveMargin,
		WaitForApproval: waitForApproval,
	}), nil
}

func (a *App) initSolana() (*solana.Submitter, error) {
	cfg := a.cfg.Solana
	var client solana.RPC
	if cfg.RPCURL != "" {
		a.solClient = solrpc.New(cfg.RPCURL)
		client = a.solClient
	}

	if cfg.PrivateKey != "" {
		lw, err := a.solanaWallet(cfg.PrivateKey)
		if err != nil {
			return nil, err
		}
		a.wallets.Add(lw)
		a.log.Info("Solana wallet connected", "address", lw.Address())
	}

	return solana.NewSubmitter(a.wallets, client, solana.Config{
		Simulation:         solana.SimulationPolicy(cfg.Simulation),
		ConfirmBroadcast:   cfg.ConfirmBroadcast,
		StatusPollInterval: cfg.StatusPollInterval,
	}), nil
}

func (a *App) ethereumWallet(key string) (*evm.LocalWallet, error) {
	if a.ethClient == nil {
		return nil, errors.New("ethereum.rpc_url is required to use an ethereum key")
	}
	lw, err := evm.NewLocalWallet(key, a.ethClient, a.cfg.Ethereum.ChainID, a.prompter)
	if err != nil {
		return nil, fmt.Errorf("ethereum wallet: %w", err)
	}
	return lw, nil
}

func (a *App) solanaWallet(key string) (*solana.LocalWallet, error) {
	if a.solClient == nil {
		return nil, errors.New("solana.rpc_url is required to use a solana key")
	}
	lw, err := solana.NewLocalWallet(key, a.prompter)
	if err != nil {
		return nil, fmt.Errorf("solana wallet: %w", err)
	}
	return lw, nil
}

// connectWallet is the wallet-connect prompt: it reads a key for family
// from the session host and opens a local wallet with it.
func (a *App) connectWallet(ctx context.Context, family domain.ChainFamily) (chain.MessageSigner, error) {
	if a.keys == nil {
		return nil, fmt.Errorf("%s: %w", family, domain.ErrWalletNotConnected)
	}
	key, err := a.keys.ReadKey(ctx, family)
	if err != nil {
		return nil, err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.ErrUserCancelled
	}

	var w chain.MessageSigner
	switch family {
	case domain.ChainFamilyEVM:
		w, err = a.ethereumWallet(key)
	case domain.ChainFamilySolana:
		w, err = a.solanaWallet(key)
	default:
		err = fmt.Errorf("unknown chain family %q", family)
	}
	if err != nil {
		return nil, err
	}
	a.log.Info("Wallet connected", "family", family, "address", w.Address())
	return w, nil
}

// Start launches the background services: the health server when a port is
// configured and the database pool collector. It does not block.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.group != nil {
		return errors.New("app already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	a.cancel = cancel
	a.group = g

	if a.healthServer != nil {
		srv := a.healthServer
		g.Go(func() error {
			a.log.Info("Health server listening", "port", a.cfg.Server.Port)
			if err := srv.Start(); err != nil {
				a.log.Error("Health server failed", "error", err)
				return err
			}
			return nil
		})
	}
	if a.db != nil {
		a.db.StartMetricsCollector(gctx)
	}
	return nil
}

// Stop closes the workflow, stops the background services and releases
// every connection.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping bridge...")
	a.controller.Close()

	a.mu.Lock()
	cancel, g := a.cancel, a.group
	a.cancel, a.group = nil, nil
	a.mu.Unlock()

	var errs []error
	if a.healthServer != nil && g != nil {
		if err := a.healthServer.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop health server: %w", err))
		}
	}
	if cancel != nil {
		cancel()
	}
	if g != nil {
		if err := g.Wait(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := a.closeResources(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (a *App) closeResources() error {
	var errs []error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
			errs = append(errs, err)
		}
		a.redis = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
			errs = append(errs, err)
		}
		a.db = nil
	}
	if a.ethClient != nil {
		a.ethClient.Close()
		a.ethClient = nil
	}
	if a.backend != nil {
		if err := a.backend.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) Controller() *workflow.Controller {
	return a.controller
}

func (a *App) Backend() *api.Client {
	return a.backend
}

func (a *App) Session() *session.Session {
	return a.session
}

func (a *App) Registry() *registry.Registry {
	return a.registry
}

func (a *App) Association() *association.Flow {
	return a.association
}

func (a *App) Quotes() *quote.Client {
	return a.quotes
}

func (a *App) History() *history.View {
	return a.history
}

func (a *App) Journal() storage.SubmissionRepository {
	return a.journal
}

// SessionInfo describes the session for the health endpoints.
func (a *App) SessionInfo() health.SessionInfo {
	return health.SessionInfo{
		UserID:   a.session.UserID(),
		Journal:  a.journalKind,
		Workflow: a.controller.State().String(),
	}
}

// Health runs the registered checks.
func (a *App) Health(ctx context.Context) health.Report {
	return a.healthMon.CheckHealth(ctx)
}
