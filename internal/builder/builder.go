// Package builder asks the backend for a ready-to-sign deposit transaction.
package builder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/vietddude/bridge/internal/core/domain"
)

// Backend builds chain-specific deposit payloads.
type Backend interface {
	BuildSolanaDeposit(ctx context.Context, asset domain.Asset, amount decimal.Decimal) (string, error)
	BuildEthereumDeposit(ctx context.Context, asset domain.Asset, amount decimal.Decimal) (domain.EVMPayload, error)
}

type Builder struct {
	backend Backend
	log     *slog.Logger
}

func New(backend Backend) *Builder {
	return &Builder{
		backend: backend,
		log:     slog.Default().With("component", "builder"),
	}
}

// Build returns the payload without inspecting it. amount <= 0 fails with
// ErrInvalidAmount before any request; backend failures are *domain.BuildError.
func (b *Builder) Build(
	ctx context.Context,
	family domain.ChainFamily,
	asset domain.Asset,
	amount decimal.Decimal,
) (domain.Payload, error) {
	if !amount.IsPositive() {
		return domain.Payload{}, domain.ErrInvalidAmount
	}
	if !asset.Valid() {
		return domain.Payload{}, fmt.Errorf("unsupported asset %q", asset)
	}
	if asset.Family() != family {
		return domain.Payload{}, fmt.Errorf("asset %s is not on %s", asset, family)
	}

	b.log.Debug("building deposit", "chain", family, "asset", asset, "amount", amount.String())

	switch family {
	case domain.ChainFamilySolana:
		tx, err := b.backend.BuildSolanaDeposit(ctx, asset, amount)
		if err != nil {
			return domain.Payload{}, &domain.BuildError{Asset: asset, Err: err}
		}
		return domain.Payload{
			Family: family,
			Solana: &domain.SolanaPayload{Transaction: tx},
		}, nil

	case domain.ChainFamilyEVM:
		call, err := b.backend.BuildEthereumDeposit(ctx, asset, amount)
		if err != nil {
			return domain.Payload{}, &domain.BuildError{Asset: asset, Err: err}
		}
		return domain.Payload{
			Family: family,
			EVM:    &call,
		}, nil
	}

	return domain.Payload{}, fmt.Errorf("unsupported chain family %q", family)
}
