// Package registry exposes which external addresses belong to the active
// user. It is a read model over the user profile and is only updated by an
// explicit Refresh.
package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/core/session"
)

// ProfileSource fetches the user profile.
type ProfileSource interface {
	GetUser(ctx context.Context, userID string) (domain.Identity, error)
}

type Registry struct {
	source  ProfileSource
	session *session.Session
	log     *slog.Logger
}

func New(source ProfileSource, sess *session.Session) *Registry {
	return &Registry{
		source:  source,
		session: sess,
		log:     slog.Default().With("component", "registry"),
	}
}

// Refresh re-reads the profile and replaces the session identity. On error
// the previous identity is kept.
func (r *Registry) Refresh(ctx context.Context) (domain.Identity, error) {
	id, err := r.source.GetUser(ctx, r.session.UserID())
	if err != nil {
		return r.session.Identity(), fmt.Errorf("refresh profile: %w", err)
	}
	r.session.SetIdentity(id)

	r.log.Debug("identity refreshed",
		"user", r.session.UserID(),
		"ethereum", id.EthereumAddress,
		"solana", id.SolanaAddress,
	)
	return r.session.Identity(), nil
}

func (r *Registry) IsAssociated(family domain.ChainFamily) bool {
	return r.Addresses().Has(family)
}

func (r *Registry) Addresses() domain.Addresses {
	id := r.session.Identity()
	return domain.Addresses{
		Ethereum: id.EthereumAddress,
		Solana:   id.SolanaAddress,
	}
}

func (r *Registry) Identity() domain.Identity {
	return r.session.Identity()
}
