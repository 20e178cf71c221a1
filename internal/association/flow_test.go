package association

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/core/session"
	"github.com/vietddude/bridge/internal/infra/api"
	"github.com/vietddude/bridge/internal/infra/chain"
	"github.com/vietddude/bridge/internal/registry"
)

const (
	ethAddr = "0x2222222222222222222222222222222222222222"
	solAddr = "So11111111111111111111111111111111111111112"
)

type MockSigner struct {
	family  domain.ChainFamily
	address string
	Err     error
	signed  [][]byte
}

func (m *MockSigner) Family() domain.ChainFamily { return m.family }
func (m *MockSigner) Address() string            { return m.address }

func (m *MockSigner) SignMessage(ctx context.Context, message []byte) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.signed = append(m.signed, message)
	return "sig-" + string(m.family), nil
}

// MockBackend serves the profile and association endpoints from memory.
type MockBackend struct {
	Identity  domain.Identity
	AssocErr  error
	UserErr   error
	requests  []api.AssociateRequest
	userCalls int
}

func (m *MockBackend) GetUser(ctx context.Context, userID string) (domain.Identity, error) {
	m.userCalls++
	if m.UserErr != nil {
		return domain.Identity{}, m.UserErr
	}
	return m.Identity, nil
}

func (m *MockBackend) AssociateAddress(ctx context.Context, userID string, req api.AssociateRequest) error {
	m.requests = append(m.requests, req)
	if m.AssocErr != nil {
		return m.AssocErr
	}
	switch req.SignedOn {
	case "Sol":
		m.Identity.EthereumAddress = req.PublicAddress
	case "Eth":
		m.Identity.SolanaAddress = req.PublicAddress
	}
	return nil
}

type fixture struct {
	backend *MockBackend
	reg     *registry.Registry
	wallets *chain.WalletSet
	sess    *session.Session
	flow    *Flow
}

func newFixture(t *testing.T, id domain.Identity, signers ...chain.MessageSigner) *fixture {
	t.Helper()
	backend := &MockBackend{Identity: id}
	sess := session.New("u-1")
	reg := registry.New(backend, sess)
	_, err := reg.Refresh(context.Background())
	require.NoError(t, err)

	wallets := chain.NewWalletSet(nil)
	for _, s := range signers {
		wallets.Add(s)
	}
	return &fixture{
		backend: backend,
		reg:     reg,
		wallets: wallets,
		sess:    sess,
		flow:    New(backend, reg, wallets, sess),
	}
}

func TestFlow_SignsWithExistingChain(t *testing.T) {
	sol := &MockSigner{family: domain.ChainFamilySolana, address: solAddr}
	eth := &MockSigner{family: domain.ChainFamilyEVM, address: ethAddr}
	f := newFixture(t, domain.Identity{ID: "u-1", SolanaAddress: solAddr}, sol, eth)

	assert.Equal(t, StateConnectedUnassociated, f.flow.State(domain.ChainFamilyEVM))

	require.NoError(t, f.flow.Associate(context.Background(), domain.ChainFamilyEVM))

	require.Len(t, f.backend.requests, 1)
	req := f.backend.requests[0]
	assert.Equal(t, ethAddr, req.PublicAddress)
	assert.Equal(t, "Sol", req.SignedOn)
	assert.Equal(t, "sig-solana", req.SignedMessage)
	assert.Empty(t, eth.signed)
	require.Len(t, sol.signed, 1)
	assert.Equal(t, Message("u-1", ethAddr), sol.signed[0])

	// registry reports the new address without any further refresh
	assert.True(t, f.reg.IsAssociated(domain.ChainFamilyEVM))
	assert.Equal(t, StateAssociated, f.flow.State(domain.ChainFamilyEVM))
	assert.False(t, f.sess.Loading())
}

func TestFlow_Conflict(t *testing.T) {
	sol := &MockSigner{family: domain.ChainFamilySolana, address: solAddr}
	eth := &MockSigner{family: domain.ChainFamilyEVM, address: ethAddr}
	f := newFixture(t, domain.Identity{ID: "u-1", SolanaAddress: solAddr}, sol, eth)
	f.backend.AssocErr = &domain.AssociationConflictError{Address: ethAddr}

	err := f.flow.Associate(context.Background(), domain.ChainFamilyEVM)
	var conflict *domain.AssociationConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, domain.ChainFamilyEVM, conflict.Family)
	assert.Equal(t, StateConnectedUnassociated, f.flow.State(domain.ChainFamilyEVM))
	assert.False(t, f.reg.IsAssociated(domain.ChainFamilyEVM))
}

func TestFlow_TransportErrorReturnsToConnected(t *testing.T) {
	sol := &MockSigner{family: domain.ChainFamilySolana, address: solAddr}
	eth := &MockSigner{family: domain.ChainFamilyEVM, address: ethAddr}
	f := newFixture(t, domain.Identity{ID: "u-1", SolanaAddress: solAddr}, sol, eth)
	f.backend.AssocErr = &domain.TransportError{Op: "associate_address", StatusCode: 502}

	err := f.flow.Associate(context.Background(), domain.ChainFamilyEVM)
	var transport *domain.TransportError
	require.True(t, errors.As(err, &transport))
	assert.Equal(t, StateConnectedUnassociated, f.flow.State(domain.ChainFamilyEVM))
}

func TestFlow_AlreadyAssociatedIsNoop(t *testing.T) {
	f := newFixture(t, domain.Identity{ID: "u-1", SolanaAddress: solAddr, EthereumAddress: ethAddr})

	require.NoError(t, f.flow.Associate(context.Background(), domain.ChainFamilyEVM))
	require.NoError(t, f.flow.Associate(context.Background(), domain.ChainFamilySolana))
	assert.Empty(t, f.backend.requests)
}

func TestFlow_NoAddressOnEitherChain(t *testing.T) {
	eth := &MockSigner{family: domain.ChainFamilyEVM, address: ethAddr}
	f := newFixture(t, domain.Identity{ID: "u-1"}, eth)

	err := f.flow.Associate(context.Background(), domain.ChainFamilyEVM)
	require.ErrorIs(t, err, domain.ErrNoProvenAddress)
	assert.Empty(t, f.backend.requests)
	assert.Empty(t, eth.signed)
}

func TestFlow_WalletNotConnected(t *testing.T) {
	sol := &MockSigner{family: domain.ChainFamilySolana, address: solAddr}
	f := newFixture(t, domain.Identity{ID: "u-1", SolanaAddress: solAddr}, sol)

	assert.Equal(t, StateNotConnected, f.flow.State(domain.ChainFamilyEVM))
	err := f.flow.Associate(context.Background(), domain.ChainFamilyEVM)
	require.ErrorIs(t, err, domain.ErrWalletNotConnected)
	assert.Empty(t, f.backend.requests)
}

func TestFlow_ConnectPromptAddsWallet(t *testing.T) {
	sol := &MockSigner{family: domain.ChainFamilySolana, address: solAddr}
	f := newFixture(t, domain.Identity{ID: "u-1", SolanaAddress: solAddr}, sol)
	f.wallets = chain.NewWalletSet(func(ctx context.Context, family domain.ChainFamily) (chain.MessageSigner, error) {
		return &MockSigner{family: family, address: ethAddr}, nil
	})
	f.wallets.Add(sol)
	f.flow = New(f.backend, f.reg, f.wallets, f.sess)

	require.NoError(t, f.flow.Associate(context.Background(), domain.ChainFamilyEVM))
	assert.True(t, f.reg.IsAssociated(domain.ChainFamilyEVM))
}

func TestFlow_SignRejected(t *testing.T) {
	sol := &MockSigner{family: domain.ChainFamilySolana, address: solAddr, Err: domain.ErrUserCancelled}
	eth := &MockSigner{family: domain.ChainFamilyEVM, address: ethAddr}
	f := newFixture(t, domain.Identity{ID: "u-1", SolanaAddress: solAddr}, sol, eth)

	err := f.flow.Associate(context.Background(), domain.ChainFamilyEVM)
	require.ErrorIs(t, err, domain.ErrUserCancelled)
	assert.Empty(t, f.backend.requests)
	assert.Equal(t, StateConnectedUnassociated, f.flow.State(domain.ChainFamilyEVM))
}

func TestFlow_WrongProvingWallet(t *testing.T) {
	sol := &MockSigner{family: domain.ChainFamilySolana, address: "SoSomeoneElse"}
	eth := &MockSigner{family: domain.ChainFamilyEVM, address: ethAddr}
	f := newFixture(t, domain.Identity{ID: "u-1", SolanaAddress: solAddr}, sol, eth)

	err := f.flow.Associate(context.Background(), domain.ChainFamilyEVM)
	require.Error(t, err)
	assert.Empty(t, f.backend.requests)
}

func TestFlow_BusySession(t *testing.T) {
	sol := &MockSigner{family: domain.ChainFamilySolana, address: solAddr}
	eth := &MockSigner{family: domain.ChainFamilyEVM, address: ethAddr}
	f := newFixture(t, domain.Identity{ID: "u-1", SolanaAddress: solAddr}, sol, eth)
	require.True(t, f.sess.TryBegin())

	err := f.flow.Associate(context.Background(), domain.ChainFamilyEVM)
	require.ErrorIs(t, err, domain.ErrWorkflowBusy)
}

func TestFlow_RefreshFailureAfterAssociateStillSucceeds(t *testing.T) {
	sol := &MockSigner{family: domain.ChainFamilySolana, address: solAddr}
	eth := &MockSigner{family: domain.ChainFamilyEVM, address: ethAddr}
	f := newFixture(t, domain.Identity{ID: "u-1", SolanaAddress: solAddr}, sol, eth)
	f.backend.UserErr = &domain.TransportError{Op: "get user", StatusCode: 503}

	require.NoError(t, f.flow.Associate(context.Background(), domain.ChainFamilyEVM))
	require.Len(t, f.backend.requests, 1)

	assert.True(t, f.reg.IsAssociated(domain.ChainFamilyEVM))
	assert.Equal(t, ethAddr, f.sess.Identity().EthereumAddress)
	assert.Equal(t, solAddr, f.sess.Identity().SolanaAddress)
	assert.Equal(t, StateAssociated, f.flow.State(domain.ChainFamilyEVM))

	// A second attempt is a no-op rather than a duplicate POST.
	require.NoError(t, f.flow.Associate(context.Background(), domain.ChainFamilyEVM))
	assert.Len(t, f.backend.requests, 1)
}
