package config

import (
	"time"

	redisclient "github.com/vietddude/bridge/internal/infra/redis"
	"github.com/vietddude/bridge/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Backend  BackendConfig      `yaml:"backend"`
	User     UserConfig         `yaml:"user"`
	Ethereum EthereumConfig     `yaml:"ethereum"`
	Solana   SolanaConfig       `yaml:"solana"`
	Quote    QuoteConfig        `yaml:"quote"`
	History  HistoryConfig      `yaml:"history"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds the health/metrics HTTP server settings. Port 0 disables it.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// BackendConfig points at the deposit backend.
type BackendConfig struct {
	URL     string        `yaml:"url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	Proxy   string        `yaml:"proxy"` // host:port[:user:pass[:socks5]]
}

// UserConfig identifies the session's user.
type UserConfig struct {
	ID string `yaml:"id"`
}

// EthereumConfig holds the EVM wallet and token settings.
type EthereumConfig struct {
	RPCURL              string        `yaml:"rpc_url"`
	PrivateKey          string        `yaml:"private_key"`
	ChainID             int64         `yaml:"chain_id"`
	USDCAddress         string        `yaml:"usdc_address"`
	USDCDecimals        int32         `yaml:"usdc_decimals"`
	ApproveMargin       int64         `yaml:"approve_margin"`
	ReceiptPollInterval time.Duration `yaml:"receipt_poll_interval"`
	WaitForApproval     *bool         `yaml:"wait_for_approval"`
}

// SolanaConfig holds the Solana wallet settings.
type SolanaConfig struct {
	RPCURL             string        `yaml:"rpc_url"`
	PrivateKey         string        `yaml:"private_key"`
	Simulation         string        `yaml:"simulation"` // advisory, gate, off
	ConfirmBroadcast   bool          `yaml:"confirm_broadcast"`
	StatusPollInterval time.Duration `yaml:"status_poll_interval"`
}

// QuoteConfig controls the quote cache. A zero TTL disables caching.
type QuoteConfig struct {
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// HistoryConfig controls the history page size.
type HistoryConfig struct {
	PageSize int `yaml:"page_size"`
}
