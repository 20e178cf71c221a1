// Package association binds a newly connected wallet address to the active
// user. Ownership is proven by a message signed with the wallet of the chain
// family the user already has an address on.
package association

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/core/session"
	"github.com/vietddude/bridge/internal/infra/api"
	"github.com/vietddude/bridge/internal/infra/chain"
	"github.com/vietddude/bridge/internal/metrics"
	"github.com/vietddude/bridge/internal/registry"
)

// State is the association state of one chain family.
type State string

const (
	StateNotConnected          State = "not_connected"
	StateConnectedUnassociated State = "connected_unassociated"
	StateAssociating           State = "associating"
	StateAssociated            State = "associated"
)

// Backend posts the association request.
type Backend interface {
	AssociateAddress(ctx context.Context, userID string, req api.AssociateRequest) error
}

// Wallets resolves connected wallets, opening the connect prompt on demand.
type Wallets interface {
	Connected(family domain.ChainFamily) (chain.MessageSigner, bool)
	Connect(ctx context.Context, family domain.ChainFamily) (chain.MessageSigner, error)
}

// Message is the fixed text signed to prove ownership of address.
func Message(userID, address string) []byte {
	return []byte(fmt.Sprintf("Associate address %s with account %s", address, userID))
}

type Flow struct {
	backend  Backend
	registry *registry.Registry
	wallets  Wallets
	session  *session.Session
	log      *slog.Logger

	mu          sync.Mutex
	associating map[domain.ChainFamily]bool
}

func New(
	backend Backend,
	reg *registry.Registry,
	wallets Wallets,
	sess *session.Session,
) *Flow {
	return &Flow{
		backend:     backend,
		registry:    reg,
		wallets:     wallets,
		session:     sess,
		log:         slog.Default().With("component", "association"),
		associating: make(map[domain.ChainFamily]bool),
	}
}

// State derives the family's state from the registry and connected wallets.
func (f *Flow) State(family domain.ChainFamily) State {
	if f.registry.IsAssociated(family) {
		return StateAssociated
	}

	f.mu.Lock()
	busy := f.associating[family]
	f.mu.Unlock()
	if busy {
		return StateAssociating
	}

	if _, ok := f.wallets.Connected(family); ok {
		return StateConnectedUnassociated
	}
	return StateNotConnected
}

// Associate connects the family's wallet if needed and registers its address.
// It is a no-op when the family is already associated. With no address on
// either family only the connect step runs and ErrNoProvenAddress is
// returned. A conflict or transport failure leaves the family in
// ConnectedUnassociated.
func (f *Flow) Associate(ctx context.Context, family domain.ChainFamily) error {
	addrs := f.registry.Addresses()
	if addrs.Has(family) {
		return nil
	}

	target, err := f.wallets.Connect(ctx, family)
	if err != nil {
		return err
	}

	if !addrs.Any() {
		f.log.Info("wallet connected but no address to prove ownership with", "chain", family)
		return domain.ErrNoProvenAddress
	}

	proving := family.Other()
	prover, err := f.wallets.Connect(ctx, proving)
	if err != nil {
		return err
	}
	if want := identityAddress(proving, addrs); !sameAddress(proving, prover.Address(), want) {
		return fmt.Errorf("connected %s wallet %s is not the associated address %s", proving, prover.Address(), want)
	}

	if !f.session.TryBegin() {
		return domain.ErrWorkflowBusy
	}
	defer f.session.End()

	f.setAssociating(family, true)
	defer f.setAssociating(family, false)

	err = f.associate(ctx, family, target, prover)
	outcome := "success"
	var conflict *domain.AssociationConflictError
	switch {
	case errors.As(err, &conflict):
		outcome = "conflict"
	case errors.Is(err, domain.ErrUserCancelled):
		outcome = "cancelled"
	case err != nil:
		outcome = "error"
	}
	metrics.AssociationAttempts.WithLabelValues(string(family), outcome).Inc()
	return err
}

func (f *Flow) associate(
	ctx context.Context,
	family domain.ChainFamily,
	target, prover chain.MessageSigner,
) error {
	userID := f.session.UserID()
	address := target.Address()

	sig, err := prover.SignMessage(ctx, Message(userID, address))
	if err != nil {
		return err
	}

	err = f.backend.AssociateAddress(ctx, userID, api.AssociateRequest{
		PublicAddress: address,
		SignedMessage: sig,
		SignedOn:      prover.Family().SignedOnCode(),
	})
	if err != nil {
		var conflict *domain.AssociationConflictError
		if errors.As(err, &conflict) {
			conflict.Family = family
			f.log.Warn("address already associated to another account", "chain", family, "address", address)
		} else {
			f.log.Error("associate address failed", "chain", family, "error", err)
		}
		return err
	}

	f.log.Info("address associated", "chain", family, "address", address)

	if _, err := f.registry.Refresh(ctx); err != nil {
		// The backend accepted the association. Record it locally so the
		// workflow moves on instead of retrying into a rejection.
		f.log.Warn("refresh after association failed", "chain", family, "error", err)
		id := f.session.Identity()
		if family == domain.ChainFamilyEVM {
			id.EthereumAddress = address
		} else {
			id.SolanaAddress = address
		}
		f.session.SetIdentity(id)
	}
	return nil
}

func (f *Flow) setAssociating(family domain.ChainFamily, v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v {
		f.associating[family] = true
	} else {
		delete(f.associating, family)
	}
}

func identityAddress(family domain.ChainFamily, addrs domain.Addresses) string {
	if family == domain.ChainFamilyEVM {
		return addrs.Ethereum
	}
	return addrs.Solana
}

// sameAddress compares EVM addresses case-insensitively and Solana ones exactly.
func sameAddress(family domain.ChainFamily, a, b string) bool {
	if family == domain.ChainFamilyEVM {
		return strings.EqualFold(a, b)
	}
	return a == b
}
