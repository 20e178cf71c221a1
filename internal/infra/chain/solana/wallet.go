package solana

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/chain"
)

// Wallet is the connected Solana account.
type Wallet interface {
	PublicKey() solana.PublicKey
	Address() string
	SignMessage(ctx context.Context, message []byte) (string, error)
	SignTransaction(ctx context.Context, tx *solana.Transaction) error
}

// LocalWallet signs with a keypair held by the process.
type LocalWallet struct {
	key      solana.PrivateKey
	prompter chain.Prompter
}

// NewLocalWallet parses a base58 encoded 64-byte keypair.
func NewLocalWallet(privateKeyBase58 string, prompter chain.Prompter) (*LocalWallet, error) {
	key, err := solana.PrivateKeyFromBase58(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return NewLocalWalletFromKey(key, prompter), nil
}

func NewLocalWalletFromKey(key solana.PrivateKey, prompter chain.Prompter) *LocalWallet {
	return &LocalWallet{key: key, prompter: prompter}
}

func (w *LocalWallet) Family() domain.ChainFamily {
	return domain.ChainFamilySolana
}

func (w *LocalWallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

func (w *LocalWallet) Address() string {
	return w.key.PublicKey().String()
}

// SignMessage returns the base58 ed25519 signature over message.
func (w *LocalWallet) SignMessage(ctx context.Context, message []byte) (string, error) {
	if err := chain.Ask(ctx, w.prompter, fmt.Sprintf("sign message with %s", w.Address())); err != nil {
		return "", err
	}
	sig, err := w.key.Sign(message)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	return sig.String(), nil
}

// SignTransaction fills this wallet's signature slot and leaves any other
// signatures the backend already placed untouched.
func (w *LocalWallet) SignTransaction(ctx context.Context, tx *solana.Transaction) error {
	pub := w.PublicKey()
	required := int(tx.Message.Header.NumRequiredSignatures)

	idx := -1
	for i := 0; i < required && i < len(tx.Message.AccountKeys); i++ {
		if tx.Message.AccountKeys[i].Equals(pub) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("wallet %s is not a signer of this transaction", pub)
	}

	summary := fmt.Sprintf("sign deposit transaction as %s", pub)
	if err := chain.Ask(ctx, w.prompter, summary); err != nil {
		return err
	}

	content, err := tx.Message.MarshalBinary()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	sig, err := w.key.Sign(content)
	if err != nil {
		return fmt.Errorf("sign transaction: %w", err)
	}

	for len(tx.Signatures) < required {
		tx.Signatures = append(tx.Signatures, solana.Signature{})
	}
	tx.Signatures[idx] = sig
	return nil
}
