package evm

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/chain"
)

// Call is a transaction request handed to the wallet.
type Call struct {
	To    common.Address
	Value *big.Int
	Data  []byte
	// Label is shown in the confirmation prompt.
	Label string
}

// Wallet is the connected EVM account.
type Wallet interface {
	Address() string
	SignMessage(ctx context.Context, message []byte) (string, error)
	SendTransaction(ctx context.Context, call Call) (common.Hash, error)
}

// Backend is the subset of ethclient.Client used to send transactions.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// LocalWallet signs with a private key held by the process.
type LocalWallet struct {
	key      *ecdsa.PrivateKey
	address  common.Address
	backend  Backend
	chainID  *big.Int
	prompter chain.Prompter
}

// NewLocalWallet parses a hex private key (with or without 0x).
func NewLocalWallet(
	privateKeyHex string,
	backend Backend,
	chainID int64,
	prompter chain.Prompter,
) (*LocalWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return NewLocalWalletFromKey(key, backend, chainID, prompter), nil
}

func NewLocalWalletFromKey(
	key *ecdsa.PrivateKey,
	backend Backend,
	chainID int64,
	prompter chain.Prompter,
) *LocalWallet {
	return &LocalWallet{
		key:      key,
		address:  crypto.PubkeyToAddress(key.PublicKey),
		backend:  backend,
		chainID:  big.NewInt(chainID),
		prompter: prompter,
	}
}

func (w *LocalWallet) Family() domain.ChainFamily {
	return domain.ChainFamilyEVM
}

func (w *LocalWallet) Address() string {
	return w.address.Hex()
}

// SignMessage produces an EIP-191 personal_sign signature, hex encoded with
// v in {27, 28}.
func (w *LocalWallet) SignMessage(ctx context.Context, message []byte) (string, error) {
	if err := chain.Ask(ctx, w.prompter, fmt.Sprintf("sign message with %s", w.address.Hex())); err != nil {
		return "", err
	}
	sig, err := crypto.Sign(accounts.TextHash(message), w.key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// SendTransaction prices, signs and broadcasts an EIP-1559 transaction.
func (w *LocalWallet) SendTransaction(ctx context.Context, call Call) (common.Hash, error) {
	if w.backend == nil {
		return common.Hash{}, errors.New("no rpc backend configured")
	}
	value := call.Value
	if value == nil {
		value = new(big.Int)
	}

	summary := fmt.Sprintf("%s: to %s value %s wei", call.Label, call.To.Hex(), value.String())
	if err := chain.Ask(ctx, w.prompter, summary); err != nil {
		return common.Hash{}, err
	}

	nonce, err := w.backend.PendingNonceAt(ctx, w.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get nonce: %w", err)
	}
	tip, err := w.backend.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest tip: %w", err)
	}
	head, err := w.backend.HeaderByNumber(ctx, nil)
	if err != nil {
		return common.Hash{}, fmt.Errorf("get head: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	to := call.To
	gas, err := w.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  w.address,
		To:    &to,
		Value: value,
		Data:  call.Data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   w.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        &to,
		Value:     value,
		Data:      call.Data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(w.chainID), w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign tx: %w", err)
	}
	if err := w.backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("send tx: %w", err)
	}
	return signed.Hash(), nil
}
