// Package solana submits deposits on Solana.
//
// The backend returns a partially built transaction; the submitter decodes
// it, optionally simulates it, has the wallet sign it and broadcasts it. The
// broadcast itself is treated as acceptance unless confirmation polling is
// enabled.
package solana

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/google/uuid"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/infra/chain"
	"github.com/vietddude/bridge/internal/metrics"
)

// SimulationPolicy decides what a failed simulation does.
type SimulationPolicy string

const (
	// SimulationAdvisory logs the failure and signs anyway.
	SimulationAdvisory SimulationPolicy = "advisory"
	// SimulationGate aborts before signing.
	SimulationGate SimulationPolicy = "gate"
	// SimulationOff skips simulation.
	SimulationOff SimulationPolicy = "off"
)

// RPC is the subset of rpc.Client used by the submitter.
type RPC interface {
	SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*rpc.SimulateTransactionResponse, error)
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(
		ctx context.Context,
		searchTransactionHistory bool,
		transactionSignatures ...solana.Signature,
	) (*rpc.GetSignatureStatusesResult, error)
}

type Config struct {
	Simulation SimulationPolicy
	// ConfirmBroadcast polls signature status after broadcast until the
	// transaction is confirmed or fails.
	ConfirmBroadcast   bool
	StatusPollInterval time.Duration
}

// Submitter signs and broadcasts Solana deposits.
type Submitter struct {
	wallets chain.WalletSource
	client  RPC
	cfg     Config
	log     *slog.Logger
}

var (
	_ chain.Submitter = (*Submitter)(nil)
	_ chain.Confirmer = (*Submitter)(nil)
)

// NewSubmitter creates the submitter. The signing wallet is resolved from
// wallets on every call.
func NewSubmitter(wallets chain.WalletSource, client RPC, cfg Config) *Submitter {
	if cfg.Simulation == "" {
		cfg.Simulation = SimulationAdvisory
	}
	if cfg.StatusPollInterval <= 0 {
		cfg.StatusPollInterval = 2 * time.Second
	}
	return &Submitter{
		wallets: wallets,
		client:  client,
		cfg:     cfg,
		log:     slog.Default().With("component", "solana_submitter"),
	}
}

func (s *Submitter) Family() domain.ChainFamily {
	return domain.ChainFamilySolana
}

func (s *Submitter) Connected() bool {
	_, ok := s.wallet()
	return ok
}

func (s *Submitter) wallet() (Wallet, bool) {
	if s.wallets == nil {
		return nil, false
	}
	signer, ok := s.wallets.Connected(domain.ChainFamilySolana)
	if !ok {
		return nil, false
	}
	w, ok := signer.(Wallet)
	if !ok || w.Address() == "" {
		return nil, false
	}
	return w, true
}

// Submit decodes, simulates, signs and broadcasts the payload. Without
// ConfirmBroadcast the returned record is already Confirmed.
func (s *Submitter) Submit(ctx context.Context, req chain.SubmitRequest) (*domain.SubmissionRecord, error) {
	wallet, ok := s.wallet()
	if !ok {
		return nil, domain.ErrWalletNotConnected
	}
	if req.Payload.Solana == nil {
		return nil, fmt.Errorf("payload for %s has no solana transaction", req.Asset)
	}

	tx, err := DecodeTransaction(req.Payload.Solana.Transaction)
	if err != nil {
		return nil, err
	}

	if err := s.simulate(ctx, tx); err != nil {
		return nil, err
	}

	if err := wallet.SignTransaction(ctx, tx); err != nil {
		if errors.Is(err, domain.ErrUserCancelled) {
			return nil, err
		}
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	sig, err := s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &domain.ChainRejectedError{Family: domain.ChainFamilySolana, Reason: err.Error()}
	}

	s.log.Info("deposit broadcast",
		"asset", req.Asset,
		"amount", req.Amount.String(),
		"signature", sig.String(),
	)

	status := domain.SubmissionStatusConfirmed
	if s.cfg.ConfirmBroadcast {
		status = domain.SubmissionStatusPending
	}

	now := time.Now()
	return &domain.SubmissionRecord{
		ID:          uuid.NewString(),
		Key:         sig.String(),
		Family:      domain.ChainFamilySolana,
		Asset:       req.Asset,
		Amount:      req.Amount,
		Status:      status,
		SubmittedAt: now,
		UpdatedAt:   now,
	}, nil
}

// Watch polls the signature status. It is only needed when ConfirmBroadcast
// is set; otherwise Submit already returned a terminal record.
func (s *Submitter) Watch(ctx context.Context, key string) <-chan domain.SubmissionUpdate {
	out := make(chan domain.SubmissionUpdate, 1)
	start := time.Now()

	go func() {
		defer close(out)

		sig, err := solana.SignatureFromBase58(key)
		if err != nil {
			out <- domain.SubmissionUpdate{Key: key, Status: domain.SubmissionStatusFailed, Err: err}
			return
		}

		ticker := time.NewTicker(s.cfg.StatusPollInterval)
		defer ticker.Stop()

		for {
			update, done := s.checkStatus(ctx, sig)
			if done {
				metrics.ConfirmationLatency.WithLabelValues(string(domain.ChainFamilySolana)).
					Observe(time.Since(start).Seconds())
				out <- update
				return
			}

			select {
			case <-ctx.Done():
				s.log.Debug("signature watch cancelled", "signature", key)
				return
			case <-ticker.C:
			}
		}
	}()

	return out
}

func (s *Submitter) checkStatus(ctx context.Context, sig solana.Signature) (domain.SubmissionUpdate, bool) {
	update := domain.SubmissionUpdate{Key: sig.String()}

	res, err := s.client.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("signature status lookup failed", "signature", sig.String(), "error", err)
		}
		return update, false
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return update, false
	}

	st := res.Value[0]
	if st.Err != nil {
		update.Status = domain.SubmissionStatusFailed
		update.Err = &domain.ChainRejectedError{
			Family: domain.ChainFamilySolana,
			Key:    sig.String(),
			Reason: formatTxErr(st.Err),
		}
		return update, true
	}

	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		update.Status = domain.SubmissionStatusConfirmed
		return update, true
	}
	return update, false
}

func (s *Submitter) simulate(ctx context.Context, tx *solana.Transaction) error {
	if s.cfg.Simulation == SimulationOff {
		return nil
	}

	res, err := s.client.SimulateTransaction(ctx, tx)
	var simErr error
	switch {
	case err != nil:
		simErr = err
	case res != nil && res.Value != nil && res.Value.Err != nil:
		simErr = errors.New(formatTxErr(res.Value.Err))
		s.log.Debug("simulation logs", "logs", res.Value.Logs)
	}
	if simErr == nil {
		return nil
	}

	if s.cfg.Simulation == SimulationGate {
		return &domain.ChainRejectedError{
			Family: domain.ChainFamilySolana,
			Reason: "simulation failed: " + simErr.Error(),
		}
	}
	s.log.Warn("simulation failed, continuing", "error", simErr)
	return nil
}

// DecodeTransaction parses base64 transaction bytes.
func DecodeTransaction(encoded string) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("decode transaction base64: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return tx, nil
}

func formatTxErr(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
