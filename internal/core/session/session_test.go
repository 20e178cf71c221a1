package session

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vietddude/bridge/internal/core/domain"
)

func TestSession_TryBeginIsExclusive(t *testing.T) {
	s := New("u-1")

	var won atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.TryBegin() {
				won.Add(1)
			}
		}()
	}
	wg.Wait()

	if won.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", won.Load())
	}
	if !s.Loading() {
		t.Error("expected loading after TryBegin")
	}

	s.End()
	if !s.TryBegin() {
		t.Error("expected TryBegin to succeed after End")
	}
}

func TestSession_SetIdentityKeepsUserID(t *testing.T) {
	s := New("u-1")
	s.SetIdentity(domain.Identity{SolanaAddress: "So1"})

	got := s.Identity()
	if got.ID != "u-1" || got.SolanaAddress != "So1" {
		t.Errorf("unexpected identity %+v", got)
	}
}
