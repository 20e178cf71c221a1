package chain

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vietddude/bridge/internal/core/domain"
)

// SubmitRequest is a built deposit ready to be signed and broadcast.
type SubmitRequest struct {
	Asset   domain.Asset
	Amount  decimal.Decimal
	Payload domain.Payload
}

// Submitter signs and broadcasts a built payload through the connected wallet
// of one chain family.
type Submitter interface {
	// Family returns the chain family this submitter serves.
	Family() domain.ChainFamily

	// Connected reports whether a wallet is available for signing.
	Connected() bool

	// Submit signs and broadcasts the payload. The returned record is
	// Pending unless the chain's acceptance is already terminal.
	Submit(ctx context.Context, req SubmitRequest) (*domain.SubmissionRecord, error)
}

// Confirmer is implemented by submitters whose confirmation arrives after
// broadcast. Watch delivers exactly one terminal update, or none when ctx is
// cancelled first.
type Confirmer interface {
	Watch(ctx context.Context, key string) <-chan domain.SubmissionUpdate
}

// MessageSigner signs the fixed association message with a chain wallet.
type MessageSigner interface {
	Family() domain.ChainFamily
	Address() string
	SignMessage(ctx context.Context, message []byte) (string, error)
}

// Prompter asks the user to approve a signing request. Wallet-signing calls
// are the only operations that may block on the user indefinitely, so
// implementations must honour ctx.
type Prompter interface {
	Confirm(ctx context.Context, summary string) (bool, error)
}

// AutoApprove approves every request without asking.
type AutoApprove struct{}

func (AutoApprove) Confirm(ctx context.Context, _ string) (bool, error) {
	return ctx.Err() == nil, ctx.Err()
}

// Ask runs the prompter and maps a rejection to domain.ErrUserCancelled.
func Ask(ctx context.Context, p Prompter, summary string) error {
	if p == nil {
		return nil
	}
	ok, err := p.Confirm(ctx, summary)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrUserCancelled
	}
	return nil
}
