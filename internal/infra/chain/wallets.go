package chain

import (
	"context"
	"fmt"
	"sync"

	"github.com/vietddude/bridge/internal/core/domain"
)

// ConnectFunc opens the wallet-connect prompt for a family and returns the
// wallet the user connected.
type ConnectFunc func(ctx context.Context, family domain.ChainFamily) (MessageSigner, error)

// WalletSource yields the wallet currently connected for a family.
// Submitters resolve their signer through it on every call.
type WalletSource interface {
	Connected(family domain.ChainFamily) (MessageSigner, bool)
}

// WalletSet tracks the connected wallet of each chain family.
type WalletSet struct {
	mu      sync.RWMutex
	wallets map[domain.ChainFamily]MessageSigner
	connect ConnectFunc
}

var _ WalletSource = (*WalletSet)(nil)

// NewWalletSet creates an empty set. connect may be nil, in which case
// Connect fails for families without a wallet.
func NewWalletSet(connect ConnectFunc) *WalletSet {
	return &WalletSet{
		wallets: make(map[domain.ChainFamily]MessageSigner),
		connect: connect,
	}
}

// Add registers an already connected wallet.
func (s *WalletSet) Add(w MessageSigner) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[w.Family()] = w
}

// Connected returns the wallet for family, if any.
func (s *WalletSet) Connected(family domain.ChainFamily) (MessageSigner, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[family]
	return w, ok
}

// Connect returns the connected wallet or opens the connect prompt.
func (s *WalletSet) Connect(ctx context.Context, family domain.ChainFamily) (MessageSigner, error) {
	if w, ok := s.Connected(family); ok {
		return w, nil
	}
	if s.connect == nil {
		return nil, fmt.Errorf("%s: %w", family, domain.ErrWalletNotConnected)
	}

	w, err := s.connect(ctx, family)
	if err != nil {
		return nil, err
	}
	if w == nil || w.Family() != family {
		return nil, fmt.Errorf("%s: %w", family, domain.ErrWalletNotConnected)
	}
	s.Add(w)
	return w, nil
}
