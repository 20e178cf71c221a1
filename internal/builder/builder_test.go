package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/bridge/internal/core/domain"
)

type MockBackend struct {
	Err         error
	solanaCalls int
	evmCalls    int
}

func (m *MockBackend) BuildSolanaDeposit(ctx context.Context, asset domain.Asset, amount decimal.Decimal) (string, error) {
	m.solanaCalls++
	return "AQID", m.Err
}

func (m *MockBackend) BuildEthereumDeposit(
	ctx context.Context,
	asset domain.Asset,
	amount decimal.Decimal,
) (domain.EVMPayload, error) {
	m.evmCalls++
	return domain.EVMPayload{To: "0x1", Value: "0", Data: "0x"}, m.Err
}

func TestBuilder_RejectsNonPositiveAmount(t *testing.T) {
	backend := &MockBackend{}
	b := New(backend)

	for _, amount := range []string{"0", "-1", "-0.0001"} {
		_, err := b.Build(context.Background(), domain.ChainFamilyEVM, domain.AssetEth, decimal.RequireFromString(amount))
		require.ErrorIs(t, err, domain.ErrInvalidAmount, amount)
	}
	assert.Zero(t, backend.evmCalls+backend.solanaCalls)
}

func TestBuilder_DispatchesByFamily(t *testing.T) {
	backend := &MockBackend{}
	b := New(backend)

	p, err := b.Build(context.Background(), domain.ChainFamilySolana, domain.AssetSusdc, decimal.NewFromInt(5))
	require.NoError(t, err)
	require.NotNil(t, p.Solana)
	assert.Equal(t, "AQID", p.Solana.Transaction)
	assert.Nil(t, p.EVM)

	p, err = b.Build(context.Background(), domain.ChainFamilyEVM, domain.AssetUsdc, decimal.NewFromInt(5))
	require.NoError(t, err)
	require.NotNil(t, p.EVM)
	assert.Equal(t, domain.ChainFamilyEVM, p.Family)
}

func TestBuilder_FamilyMismatch(t *testing.T) {
	backend := &MockBackend{}
	_, err := New(backend).Build(context.Background(), domain.ChainFamilyEVM, domain.AssetSol, decimal.NewFromInt(1))
	require.Error(t, err)
	assert.Zero(t, backend.evmCalls+backend.solanaCalls)
}

func TestBuilder_WrapsBackendError(t *testing.T) {
	cause := &domain.TransportError{Op: "build_ethereum_deposit", StatusCode: 500}
	_, err := New(&MockBackend{Err: cause}).Build(
		context.Background(), domain.ChainFamilyEVM, domain.AssetEth, decimal.NewFromInt(1),
	)

	var buildErr *domain.BuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Equal(t, domain.AssetEth, buildErr.Asset)
	var transport *domain.TransportError
	assert.True(t, errors.As(err, &transport))
}
