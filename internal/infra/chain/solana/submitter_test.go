package solana

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/chain"
)

func walletsOf(wallet chain.MessageSigner) *chain.WalletSet {
	set := chain.NewWalletSet(nil)
	set.Add(wallet)
	return set
}

// MockRPC records broadcasts and serves scripted simulation and status results.
type MockRPC struct {
	mu        sync.Mutex
	SimErr    any
	SimFail   error
	SendErr   error
	Statuses  []*rpc.SignatureStatusesResult
	simulated int
	sent      []*solana.Transaction
	polls     int
}

func (m *MockRPC) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.simulated++
	if m.SimFail != nil {
		return nil, m.SimFail
	}
	return &rpc.SimulateTransactionResponse{
		Value: &rpc.SimulateTransactionResult{Err: m.SimErr},
	}, nil
}

func (m *MockRPC) SendTransactionWithOpts(
	ctx context.Context,
	tx *solana.Transaction,
	opts rpc.TransactionOpts,
) (solana.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return solana.Signature{}, m.SendErr
	}
	m.sent = append(m.sent, tx)
	return tx.Signatures[0], nil
}

func (m *MockRPC) GetSignatureStatuses(
	ctx context.Context,
	searchTransactionHistory bool,
	sigs ...solana.Signature,
) (*rpc.GetSignatureStatusesResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var st *rpc.SignatureStatusesResult
	if m.polls < len(m.Statuses) {
		st = m.Statuses[m.polls]
	}
	m.polls++
	return &rpc.GetSignatureStatusesResult{Value: []*rpc.SignatureStatusesResult{st}}, nil
}

type rejectAll struct{}

func (rejectAll) Confirm(ctx context.Context, summary string) (bool, error) { return false, nil }

// unsignedTransfer builds the kind of transaction the backend returns: the
// user pays the fee and every signature slot is empty.
func unsignedTransfer(t *testing.T, payer solana.PublicKey) string {
	t.Helper()
	vault := solana.NewWallet().PublicKey()
	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(2_500_000_000, payer, vault).Build()},
		solana.Hash{1, 2, 3},
		solana.TransactionPayer(payer),
	)
	require.NoError(t, err)
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(raw)
}

func solRequest(encoded string) chain.SubmitRequest {
	return chain.SubmitRequest{
		Asset:  domain.AssetSol,
		Amount: decimal.RequireFromString("2.5"),
		Payload: domain.Payload{
			Family: domain.ChainFamilySolana,
			Solana: &domain.SolanaPayload{Transaction: encoded},
		},
	}
}

func TestSubmitter_SignsAndBroadcasts(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	wallet := NewLocalWalletFromKey(key, chain.AutoApprove{})
	client := &MockRPC{}
	s := NewSubmitter(walletsOf(wallet), client, Config{})

	rec, err := s.Submit(context.Background(), solRequest(unsignedTransfer(t, key.PublicKey())))
	require.NoError(t, err)

	require.Len(t, client.sent, 1)
	assert.Equal(t, 1, client.simulated)
	require.NoError(t, client.sent[0].VerifySignatures())
	assert.Equal(t, client.sent[0].Signatures[0].String(), rec.Key)
	assert.Equal(t, domain.SubmissionStatusConfirmed, rec.Status)
}

func TestSubmitter_AdvisorySimulationContinues(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	client := &MockRPC{SimErr: "InsufficientFundsForRent"}
	s := NewSubmitter(walletsOf(NewLocalWalletFromKey(key, chain.AutoApprove{})), client, Config{Simulation: SimulationAdvisory})

	_, err := s.Submit(context.Background(), solRequest(unsignedTransfer(t, key.PublicKey())))
	require.NoError(t, err)
	assert.Len(t, client.sent, 1)
}

func TestSubmitter_GateSimulationAborts(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	client := &MockRPC{SimErr: map[string]any{"InstructionError": []any{0, "Custom"}}}
	s := NewSubmitter(walletsOf(NewLocalWalletFromKey(key, chain.AutoApprove{})), client, Config{Simulation: SimulationGate})

	_, err := s.Submit(context.Background(), solRequest(unsignedTransfer(t, key.PublicKey())))
	var rejected *domain.ChainRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Contains(t, rejected.Reason, "InstructionError")
	assert.Empty(t, client.sent)
}

func TestSubmitter_SimulationOff(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	client := &MockRPC{SimFail: errors.New("should not be called")}
	s := NewSubmitter(walletsOf(NewLocalWalletFromKey(key, chain.AutoApprove{})), client, Config{Simulation: SimulationOff})

	_, err := s.Submit(context.Background(), solRequest(unsignedTransfer(t, key.PublicKey())))
	require.NoError(t, err)
	assert.Equal(t, 0, client.simulated)
}

func TestSubmitter_WalletRejects(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	client := &MockRPC{}
	s := NewSubmitter(walletsOf(NewLocalWalletFromKey(key, rejectAll{})), client, Config{})

	_, err := s.Submit(context.Background(), solRequest(unsignedTransfer(t, key.PublicKey())))
	require.ErrorIs(t, err, domain.ErrUserCancelled)
	assert.Empty(t, client.sent)
}

func TestSubmitter_WrongSigner(t *testing.T) {
	other := solana.NewWallet().PublicKey()
	s := NewSubmitter(walletsOf(NewLocalWalletFromKey(solana.NewWallet().PrivateKey, chain.AutoApprove{})), &MockRPC{}, Config{})

	_, err := s.Submit(context.Background(), solRequest(unsignedTransfer(t, other)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a signer")
}

func TestSubmitter_BroadcastRejected(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	client := &MockRPC{SendErr: errors.New("Blockhash not found")}
	s := NewSubmitter(walletsOf(NewLocalWalletFromKey(key, chain.AutoApprove{})), client, Config{})

	_, err := s.Submit(context.Background(), solRequest(unsignedTransfer(t, key.PublicKey())))
	var rejected *domain.ChainRejectedError
	require.True(t, errors.As(err, &rejected))
}

func TestSubmitter_InvalidBase64(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	s := NewSubmitter(walletsOf(NewLocalWalletFromKey(key, chain.AutoApprove{})), &MockRPC{}, Config{})

	_, err := s.Submit(context.Background(), solRequest("%%%"))
	assert.Error(t, err)
}

func TestSubmitter_ConfirmBroadcastPolls(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	client := &MockRPC{Statuses: []*rpc.SignatureStatusesResult{
		nil,
		{ConfirmationStatus: rpc.ConfirmationStatusProcessed},
		{ConfirmationStatus: rpc.ConfirmationStatusConfirmed},
	}}
	s := NewSubmitter(walletsOf(NewLocalWalletFromKey(key, chain.AutoApprove{})), client, Config{
		ConfirmBroadcast:   true,
		StatusPollInterval: time.Millisecond,
	})

	rec, err := s.Submit(context.Background(), solRequest(unsignedTransfer(t, key.PublicKey())))
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionStatusPending, rec.Status)

	select {
	case update := <-s.Watch(context.Background(), rec.Key):
		assert.Equal(t, domain.SubmissionStatusConfirmed, update.Status)
		assert.Equal(t, rec.Key, update.Key)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for confirmation")
	}
}

func TestSubmitter_ConfirmBroadcastFailure(t *testing.T) {
	client := &MockRPC{Statuses: []*rpc.SignatureStatusesResult{
		{Err: map[string]any{"InstructionError": []any{0, "Custom"}}},
	}}
	s := NewSubmitter(nil, client, Config{ConfirmBroadcast: true, StatusPollInterval: time.Millisecond})

	sig := solana.Signature{9}
	update := <-s.Watch(context.Background(), sig.String())
	assert.Equal(t, domain.SubmissionStatusFailed, update.Status)
	var rejected *domain.ChainRejectedError
	assert.True(t, errors.As(update.Err, &rejected))
}

func TestLocalWallet_SignMessage(t *testing.T) {
	key := solana.NewWallet().PrivateKey
	w := NewLocalWalletFromKey(key, chain.AutoApprove{})

	msg := []byte("link my wallet")
	encoded, err := w.SignMessage(context.Background(), msg)
	require.NoError(t, err)

	sig, err := solana.SignatureFromBase58(encoded)
	require.NoError(t, err)
	assert.True(t, sig.Verify(key.PublicKey(), msg))
}
