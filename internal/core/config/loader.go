package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v2"
)

const (
	// Ethereum mainnet USDC.
	defaultUSDCAddress = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	defaultBackendURL  = "http://localhost:8000"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Backend.URL == "" {
		cfg.Backend.URL = defaultBackendURL
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 30 * time.Second
	}

	if cfg.Ethereum.ChainID == 0 {
		cfg.Ethereum.ChainID = 1
	}
	if cfg.Ethereum.USDCAddress == "" {
		cfg.Ethereum.USDCAddress = defaultUSDCAddress
	}
	if cfg.Ethereum.USDCDecimals == 0 {
		cfg.Ethereum.USDCDecimals = 6
	}
	if cfg.Ethereum.ApproveMargin == 0 {
		cfg.Ethereum.ApproveMargin = 10
	}
	if cfg.Ethereum.ReceiptPollInterval == 0 {
		cfg.Ethereum.ReceiptPollInterval = 4 * time.Second
	}
	if cfg.Ethereum.WaitForApproval == nil {
		wait := true
		cfg.Ethereum.WaitForApproval = &wait
	}

	if cfg.Solana.Simulation == "" {
		cfg.Solana.Simulation = "advisory"
	}
	if cfg.Solana.StatusPollInterval == 0 {
		cfg.Solana.StatusPollInterval = 2 * time.Second
	}

	if cfg.History.PageSize == 0 {
		cfg.History.PageSize = 20
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "pgx"
	}
}

// Validate checks values that have no sensible default.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.User.ID) == "" {
		return errors.New("user.id is required")
	}
	switch c.Solana.Simulation {
	case "advisory", "gate", "off":
	default:
		return fmt.Errorf("invalid solana.simulation %q (want advisory, gate or off)", c.Solana.Simulation)
	}
	switch c.Database.Driver {
	case "pgx", "postgres":
	default:
		return fmt.Errorf("invalid database.driver %q (want pgx or postgres)", c.Database.Driver)
	}
	if c.History.PageSize < 0 {
		return fmt.Errorf("history.page_size must be positive")
	}
	return nil
}
