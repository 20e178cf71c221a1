package evm

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/chain"
)

type rejectAll struct{}

func (rejectAll) Confirm(ctx context.Context, summary string) (bool, error) { return false, nil }

func TestLocalWallet_SignMessageRecoversAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	w := NewLocalWalletFromKey(key, nil, 1, chain.AutoApprove{})

	msg := []byte("link my wallet")
	sigHex, err := w.SignMessage(context.Background(), msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	sig, err := hexutil.Decode(sigHex)
	if err != nil {
		t.Fatal(err)
	}
	if len(sig) != 65 || (sig[64] != 27 && sig[64] != 28) {
		t.Fatalf("unexpected signature shape: %x", sig)
	}
	sig[64] -= 27

	pub, err := crypto.SigToPub(accounts.TextHash(msg), sig)
	if err != nil {
		t.Fatal(err)
	}
	if got := crypto.PubkeyToAddress(*pub).Hex(); got != w.Address() {
		t.Errorf("recovered %s, want %s", got, w.Address())
	}
}

func TestLocalWallet_RejectedPrompt(t *testing.T) {
	key, _ := crypto.GenerateKey()
	w := NewLocalWalletFromKey(key, nil, 1, rejectAll{})

	_, err := w.SignMessage(context.Background(), []byte("x"))
	if !errors.Is(err, domain.ErrUserCancelled) {
		t.Fatalf("expected ErrUserCancelled, got %v", err)
	}
}

func TestNewLocalWallet_InvalidKey(t *testing.T) {
	if _, err := NewLocalWallet("0xnothex", nil, 1, nil); err == nil {
		t.Fatal("expected error for invalid key")
	}
}
