package evm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vietddude/bridge/internal/core/domain"
)

func TestReceiptWatcher_PendingThenConfirmed(t *testing.T) {
	receipts := &MockReceipts{Pending: 3, Status: types.ReceiptStatusSuccessful}
	w := NewReceiptWatcher(receipts, time.Millisecond)

	key := common.HexToHash("0x01").Hex()
	select {
	case update, ok := <-w.Watch(context.Background(), key):
		if !ok {
			t.Fatal("channel closed without update")
		}
		if update.Status != domain.SubmissionStatusConfirmed {
			t.Errorf("expected confirmed, got %s", update.Status)
		}
		if update.Key != key {
			t.Errorf("expected key %s, got %s", key, update.Key)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for receipt")
	}
}

func TestReceiptWatcher_Reverted(t *testing.T) {
	w := NewReceiptWatcher(&MockReceipts{Status: types.ReceiptStatusFailed}, time.Millisecond)

	update := <-w.Watch(context.Background(), common.HexToHash("0x02").Hex())
	if update.Status != domain.SubmissionStatusFailed {
		t.Fatalf("expected failed, got %s", update.Status)
	}
	var rejected *domain.ChainRejectedError
	if !errors.As(update.Err, &rejected) {
		t.Fatalf("expected ChainRejectedError, got %v", update.Err)
	}
}

type notFoundSource struct{}

func (notFoundSource) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return nil, ethereum.NotFound
}

func TestReceiptWatcher_CancelClosesWithoutUpdate(t *testing.T) {
	w := NewReceiptWatcher(notFoundSource{}, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	ch := w.Watch(ctx, common.HexToHash("0x03").Hex())
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case update, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel, got %+v", update)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}
