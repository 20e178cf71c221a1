package evm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/metrics"
)

// ReceiptSource is the subset of ethclient.Client used to observe receipts.
type ReceiptSource interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// ReceiptWatcher polls for a transaction receipt. A missing receipt is
// pending; the watcher never gives up on its own and stops only when its
// context is cancelled.
type ReceiptWatcher struct {
	source   ReceiptSource
	interval time.Duration
	log      *slog.Logger
}

func NewReceiptWatcher(source ReceiptSource, interval time.Duration) *ReceiptWatcher {
	if interval <= 0 {
		interval = 4 * time.Second
	}
	return &ReceiptWatcher{
		source:   source,
		interval: interval,
		log:      slog.Default().With("component", "receipt_watcher"),
	}
}

// Wait blocks until the receipt is available. A reverted transaction is
// reported as *domain.ChainRejectedError.
func (w *ReceiptWatcher) Wait(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		receipt, err := w.source.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status == types.ReceiptStatusFailed {
				return receipt, &domain.ChainRejectedError{
					Family: domain.ChainFamilyEVM,
					Key:    hash.Hex(),
					Reason: "execution reverted",
				}
			}
			return receipt, nil
		case err == nil, errors.Is(err, ethereum.NotFound):
			// pending
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			w.log.Warn("receipt lookup failed", "tx", hash.Hex(), "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Watch waits in the background. The channel receives one terminal update
// and is then closed; on cancellation it is closed without an update.
func (w *ReceiptWatcher) Watch(ctx context.Context, key string) <-chan domain.SubmissionUpdate {
	out := make(chan domain.SubmissionUpdate, 1)
	start := time.Now()

	go func() {
		defer close(out)

		_, err := w.Wait(ctx, common.HexToHash(key))
		if ctx.Err() != nil {
			w.log.Debug("receipt watch cancelled", "tx", key)
			return
		}
		metrics.ConfirmationLatency.WithLabelValues(string(domain.ChainFamilyEVM)).
			Observe(time.Since(start).Seconds())

		update := domain.SubmissionUpdate{Key: key, Status: domain.SubmissionStatusConfirmed}
		if err != nil {
			update.Status = domain.SubmissionStatusFailed
			update.Err = err
		}
		out <- update
	}()

	return out
}
