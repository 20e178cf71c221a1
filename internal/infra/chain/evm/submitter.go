// Package evm submits deposits on Ethereum-family chains.
package evm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/chain"
)

const DefaultApproveMargin = 10

// Config controls the token allowance step.
type Config struct {
	USDCAddress   string
	USDCDecimals  int32
	ApproveMargin int64
	// WaitForApproval waits for the approve receipt before the deposit is sent.
	WaitForApproval bool
}

// Submitter sends EVM deposits through the connected wallet.
type Submitter struct {
	wallets chain.WalletSource
	watcher *ReceiptWatcher
	cfg     Config
	log     *slog.Logger
}

var (
	_ chain.Submitter = (*Submitter)(nil)
	_ chain.Confirmer = (*Submitter)(nil)
)

// NewSubmitter creates the submitter. The signer is looked up in wallets on
// every call, so a wallet connected later is picked up.
func NewSubmitter(wallets chain.WalletSource, watcher *ReceiptWatcher, cfg Config) *Submitter {
	if cfg.USDCDecimals == 0 {
		cfg.USDCDecimals = domain.AssetUsdc.Info().Decimals
	}
	return &Submitter{
		wallets: wallets,
		watcher: watcher,
		cfg:     cfg,
		log:     slog.Default().With("component", "evm_submitter"),
	}
}

func (s *Submitter) Family() domain.ChainFamily {
	return domain.ChainFamilyEVM
}

func (s *Submitter) Connected() bool {
	_, ok := s.wallet()
	return ok
}

// wallet returns the connected EVM wallet if it can send transactions.
func (s *Submitter) wallet() (Wallet, bool) {
	if s.wallets == nil {
		return nil, false
	}
	signer, ok := s.wallets.Connected(domain.ChainFamilyEVM)
	if !ok {
		return nil, false
	}
	w, ok := signer.(Wallet)
	if !ok || w.Address() == "" {
		return nil, false
	}
	return w, true
}

// Submit approves the token allowance when the asset is an ERC20, then sends
// the payload's {to, value, data} verbatim.
func (s *Submitter) Submit(ctx context.Context, req chain.SubmitRequest) (*domain.SubmissionRecord, error) {
	wallet, ok := s.wallet()
	if !ok {
		return nil, domain.ErrWalletNotConnected
	}
	if req.Payload.EVM == nil {
		return nil, fmt.Errorf("payload for %s has no evm call", req.Asset)
	}

	call, err := decodeCall(*req.Payload.EVM)
	if err != nil {
		return nil, err
	}

	if req.Asset.Info().Kind == domain.TokenKindERC20 {
		if err := s.approve(ctx, wallet, call.To, req.Amount); err != nil {
			return nil, err
		}
	}

	call.Label = fmt.Sprintf("deposit %s %s", req.Amount.String(), req.Asset.Info().Symbol)
	hash, err := wallet.SendTransaction(ctx, call)
	if err != nil {
		return nil, s.sendError(err)
	}

	s.log.Info("deposit sent", "asset", req.Asset, "amount", req.Amount.String(), "tx", hash.Hex())

	now := time.Now()
	return &domain.SubmissionRecord{
		ID:          uuid.NewString(),
		Key:         hash.Hex(),
		Family:      domain.ChainFamilyEVM,
		Asset:       req.Asset,
		Amount:      req.Amount,
		Status:      domain.SubmissionStatusPending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}, nil
}

// Watch observes the deposit receipt keyed by transaction hash.
func (s *Submitter) Watch(ctx context.Context, key string) <-chan domain.SubmissionUpdate {
	return s.watcher.Watch(ctx, key)
}

func (s *Submitter) approve(ctx context.Context, wallet Wallet, spender common.Address, amount decimal.Decimal) error {
	if !common.IsHexAddress(s.cfg.USDCAddress) {
		return fmt.Errorf("invalid usdc contract address %q", s.cfg.USDCAddress)
	}

	allowance := ApproveAmount(amount, s.cfg.ApproveMargin, s.cfg.USDCDecimals)
	hash, err := wallet.SendTransaction(ctx, Call{
		To:    common.HexToAddress(s.cfg.USDCAddress),
		Value: new(big.Int),
		Data:  EncodeApprove(spender, allowance),
		Label: "approve USDC",
	})
	if err != nil {
		return s.sendError(err)
	}
	s.log.Info("approve sent", "spender", spender.Hex(), "allowance", allowance.String(), "tx", hash.Hex())

	if !s.cfg.WaitForApproval || s.watcher == nil {
		return nil
	}
	if _, err := s.watcher.Wait(ctx, hash); err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	return nil
}

// sendError keeps cancellations recognisable and reports anything else the
// node refused as a chain rejection.
func (s *Submitter) sendError(err error) error {
	if errors.Is(err, domain.ErrUserCancelled) || errors.Is(err, context.Canceled) {
		return err
	}
	return &domain.ChainRejectedError{Family: domain.ChainFamilyEVM, Reason: err.Error()}
}

func decodeCall(p domain.EVMPayload) (Call, error) {
	if !common.IsHexAddress(p.To) {
		return Call{}, fmt.Errorf("invalid payload target %q", p.To)
	}

	value := new(big.Int)
	if v := strings.TrimSpace(p.Value); v != "" {
		if _, ok := value.SetString(v, 0); !ok {
			return Call{}, fmt.Errorf("invalid payload value %q", p.Value)
		}
	}

	var data []byte
	if d := strings.TrimSpace(p.Data); d != "" && d != "0x" {
		if !strings.HasPrefix(d, "0x") {
			d = "0x" + d
		}
		decoded, err := hexutil.Decode(d)
		if err != nil {
			return Call{}, fmt.Errorf("invalid payload data: %w", err)
		}
		data = decoded
	}

	return Call{To: common.HexToAddress(p.To), Value: value, Data: data}, nil
}
