// Package workflow drives one deposit from asset selection to a confirmed
// or failed transaction.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/bridge/internal/association"
	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/core/session"
	"github.com/vietddude/bridge/internal/infra/chain"
	"github.com/vietddude/bridge/internal/infra/storage"
	"github.com/vietddude/bridge/internal/metrics"
)

// Registry answers which chain families have an associated address.
type Registry interface {
	Refresh(ctx context.Context) (domain.Identity, error)
	IsAssociated(family domain.ChainFamily) bool
}

type Associator interface {
	State(family domain.ChainFamily) association.State
	Associate(ctx context.Context, family domain.ChainFamily) error
}

type Quoter interface {
	Quote(ctx context.Context, asset domain.Asset, amount decimal.Decimal) (domain.Quote, error)
	Latest() (domain.Quote, bool)
	Reset()
}

type TxBuilder interface {
	Build(
		ctx context.Context,
		family domain.ChainFamily,
		asset domain.Asset,
		amount decimal.Decimal,
	) (domain.Payload, error)
}

type HistoryView interface {
	Page(ctx context.Context, userID string, page int) []domain.HistoryEntry
	Invalidate()
}

// Wallets opens the connect prompt for a family without a wallet.
type Wallets interface {
	Connect(ctx context.Context, family domain.ChainFamily) (chain.MessageSigner, error)
}

// Deps are the collaborators of a Controller. Journal, Notifier and
// Explorers are optional.
type Deps struct {
	Session     *session.Session
	Registry    Registry
	Association Associator
	Quotes      Quoter
	Builder     TxBuilder
	History     HistoryView
	Wallets     Wallets
	Submitters  []chain.Submitter
	Journal     storage.SubmissionRepository
	Notifier    Notifier
	Explorers   *Explorers
}

// Snapshot is a consistent view of the controller for display.
type Snapshot struct {
	State  State
	Asset  domain.Asset
	Amount decimal.Decimal
	Quote  *domain.Quote
	Record *domain.SubmissionRecord
	Err    error
}

// Controller is the deposit workflow state machine. Only one deposit can be
// in flight per session.
type Controller struct {
	session     *session.Session
	registry    Registry
	association Associator
	quotes      Quoter
	builder     TxBuilder
	history     HistoryView
	wallets     Wallets
	submitters  map[domain.ChainFamily]chain.Submitter
	journal     storage.SubmissionRepository
	notifier    Notifier
	explorers   Explorers
	log         *slog.Logger

	mu          sync.Mutex
	runID       string
	generation  uint64
	state       State
	asset       domain.Asset
	amount      decimal.Decimal
	quoted      *domain.Quote
	record      *domain.SubmissionRecord
	lastErr     error
	opCancel    context.CancelFunc
	watchCancel context.CancelFunc
	done        chan struct{}
}

func New(deps Deps) *Controller {
	c := &Controller{
		session:     deps.Session,
		registry:    deps.Registry,
		association: deps.Association,
		quotes:      deps.Quotes,
		builder:     deps.Builder,
		history:     deps.History,
		wallets:     deps.Wallets,
		submitters:  make(map[domain.ChainFamily]chain.Submitter),
		journal:     deps.Journal,
		notifier:    deps.Notifier,
		explorers:   DefaultExplorers,
		log:         slog.Default().With("component", "workflow"),
		state:       StateSelectingAsset,
		asset:       domain.DefaultAsset,
	}
	if c.notifier == nil {
		c.notifier = LogNotifier{}
	}
	if deps.Explorers != nil {
		c.explorers = *deps.Explorers
	}
	for _, s := range deps.Submitters {
		c.submitters[s.Family()] = s
	}
	return c
}

// Open starts a fresh workflow: the selection is reset to defaults, any
// previous watch is torn down, then the identity, the default quote and the
// first history page are loaded concurrently. Load failures are logged only.
func (c *Controller) Open(ctx context.Context) error {
	c.Close()

	c.mu.Lock()
	c.runID = uuid.NewString()
	c.asset = domain.DefaultAsset
	c.amount = decimal.Zero
	c.quoted = nil
	runID := c.runID
	c.mu.Unlock()
	c.quotes.Reset()
	c.history.Invalidate()

	c.log.Info("workflow opened", "run", runID, "user", c.session.UserID())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := c.registry.Refresh(gctx); err != nil {
			c.log.Warn("load identity failed", "error", err)
		}
		return nil
	})
	g.Go(func() error {
		c.refreshQuote(gctx)
		return nil
	})
	g.Go(func() error {
		c.history.Page(gctx, c.session.UserID(), 1)
		return nil
	})
	return g.Wait()
}

// Close abandons the workflow. An in-flight signing prompt is cancelled and
// a pending confirmation watch is torn down so that no notification fires
// afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	c.generation++
	wasBusy := c.state.Busy()
	if c.opCancel != nil {
		c.opCancel()
		c.opCancel = nil
	}
	if c.watchCancel != nil {
		c.watchCancel()
		c.watchCancel = nil
	}
	done := c.done
	c.done = nil
	c.state = StateSelectingAsset
	c.record = nil
	c.lastErr = nil
	c.mu.Unlock()

	if done != nil {
		close(done)
	}
	if wasBusy {
		c.session.End()
	}
}

// SelectAsset changes the asset and refreshes the quote.
func (c *Controller) SelectAsset(ctx context.Context, asset domain.Asset) error {
	if !asset.Valid() {
		return errors.New("unsupported asset " + string(asset))
	}
	if err := c.updateSelection(func() { c.asset = asset }); err != nil {
		return err
	}
	c.refreshQuote(ctx)
	return nil
}

// SetAmount changes the amount and refreshes the quote. Non-positive
// amounts are accepted here and rejected on Confirm.
func (c *Controller) SetAmount(ctx context.Context, amount decimal.Decimal) error {
	if err := c.updateSelection(func() { c.amount = amount }); err != nil {
		return err
	}
	c.refreshQuote(ctx)
	return nil
}

func (c *Controller) updateSelection(apply func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() {
		return domain.ErrWorkflowBusy
	}
	apply()
	c.state = StateSelectingAsset
	c.lastErr = nil
	return nil
}

// refreshQuote requests a quote once per distinct (asset, amount) pair.
func (c *Controller) refreshQuote(ctx context.Context) {
	c.mu.Lock()
	asset, amount := c.asset, c.amount
	if c.quoted != nil && c.quoted.Matches(asset, amount) {
		c.mu.Unlock()
		return
	}
	c.quoted = &domain.Quote{Asset: asset, Amount: amount}
	c.mu.Unlock()

	if _, err := c.quotes.Quote(ctx, asset, amount); err != nil && !errors.Is(err, domain.ErrStaleQuote) {
		c.mu.Lock()
		if c.quoted != nil && c.quoted.Matches(asset, amount) {
			c.quoted = nil
		}
		c.mu.Unlock()
	}
}

// NextStep resolves whether the selected asset needs association first.
// While a deposit is in flight or just finished the current state is
// returned unchanged.
func (c *Controller) NextStep() State {
	c.mu.Lock()
	asset, state := c.asset, c.state
	c.mu.Unlock()
	if state.Busy() || state.Terminal() {
		return state
	}

	next := StateReadyToBuild
	if !c.registry.IsAssociated(asset.Family()) {
		next = StateNeedsAssociation
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Busy() || c.state.Terminal() {
		return c.state
	}
	c.state = next
	return next
}

// Confirm runs the next required step: association when the asset's chain
// has no address, the deposit otherwise. Every error is also notified.
func (c *Controller) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Busy() {
		c.mu.Unlock()
		return domain.ErrWorkflowBusy
	}
	if c.state.Terminal() {
		c.state = StateSelectingAsset
		c.lastErr = nil
	}
	gen, asset, amount := c.generation, c.asset, c.amount
	c.mu.Unlock()

	if c.NextStep() == StateNeedsAssociation {
		return c.associate(ctx, asset.Family())
	}
	return c.deposit(ctx, gen, asset, amount)
}

func (c *Controller) associate(ctx context.Context, family domain.ChainFamily) error {
	err := c.association.Associate(ctx, family)
	switch {
	case err == nil:
		c.notifier.Notify(Notification{Level: LevelSuccess, Title: associationSuccess})
		c.NextStep()
		return nil
	case errors.Is(err, domain.ErrNoProvenAddress):
		c.notifier.Notify(Notification{
			Level:   LevelInfo,
			Title:   "Wallet connected",
			Message: "Addresses are associated once a second chain is needed",
			Err:     err,
		})
	default:
		c.notifier.Notify(errorNotification(err))
	}
	return err
}

func (c *Controller) deposit(ctx context.Context, gen uint64, asset domain.Asset, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		c.notifier.Notify(errorNotification(domain.ErrInvalidAmount))
		return domain.ErrInvalidAmount
	}

	family := asset.Family()
	submitter, ok := c.submitters[family]
	if !ok {
		err := errors.New("no submitter configured for " + string(family))
		c.notifier.Notify(errorNotification(err))
		return err
	}

	if !c.session.TryBegin() {
		return domain.ErrWorkflowBusy
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	if !c.transition(gen, StateBuilding, cancel) {
		c.session.End()
		return context.Canceled
	}

	if !submitter.Connected() {
		if _, err := c.wallets.Connect(opCtx, family); err != nil {
			return c.abort(gen, err)
		}
		if !submitter.Connected() {
			return c.abort(gen, domain.ErrWalletNotConnected)
		}
	}

	payload, err := c.builder.Build(opCtx, family, asset, amount)
	if err != nil {
		return c.abort(gen, err)
	}

	if !c.transition(gen, StateSubmitting, cancel) {
		return context.Canceled
	}
	rec, err := submitter.Submit(opCtx, chain.SubmitRequest{
		Asset:   asset,
		Amount:  amount,
		Payload: payload,
	})
	if err != nil {
		return c.abort(gen, err)
	}

	metrics.DepositsStarted.WithLabelValues(string(asset)).Inc()
	c.saveRecord(rec)

	if rec.Status.Terminal() {
		c.complete(gen, rec, rec.Status, nil)
		return nil
	}

	confirmer, ok := submitter.(chain.Confirmer)
	if !ok {
		c.complete(gen, rec, domain.SubmissionStatusConfirmed, nil)
		return nil
	}
	c.watch(gen, rec, confirmer)
	return nil
}

// transition moves to a busy state unless the workflow was closed since gen.
func (c *Controller) transition(gen uint64, state State, cancel context.CancelFunc) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.state = state
	c.opCancel = cancel
	return true
}

// abort ends a deposit that failed before broadcast. A wallet rejection
// returns to asset selection; anything else is Failed with the selection
// kept so the user can retry.
func (c *Controller) abort(gen uint64, err error) error {
	cancelled := errors.Is(err, domain.ErrUserCancelled) || errors.Is(err, context.Canceled)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return err
	}
	c.opCancel = nil
	if cancelled {
		c.state = StateSelectingAsset
	} else {
		c.state = StateFailed
		c.lastErr = err
	}
	c.mu.Unlock()
	c.session.End()

	c.log.Warn("deposit aborted", "error", err, "cancelled", cancelled, "recoverable", domain.IsRecoverable(err))
	if errors.Is(err, context.Canceled) {
		return err
	}
	c.notifier.Notify(errorNotification(err))
	return err
}

func (c *Controller) watch(gen uint64, rec *domain.SubmissionRecord, confirmer chain.Confirmer) {
	watchCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		cancel()
		return
	}
	c.state = StateConfirming
	c.record = rec
	c.opCancel = nil
	c.watchCancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.log.Info("waiting for confirmation", "chain", rec.Family, "key", rec.Key)

	go func() {
		for update := range confirmer.Watch(watchCtx, rec.Key) {
			c.complete(gen, rec, update.Status, update.Err)
		}
	}()
}

// complete records the terminal outcome of a broadcast deposit.
func (c *Controller) complete(
	gen uint64,
	rec *domain.SubmissionRecord,
	status domain.SubmissionStatus,
	cause error,
) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	wasPending := rec.Status == domain.SubmissionStatusPending
	rec.Status = status
	rec.UpdatedAt = time.Now()
	if cause != nil {
		rec.Error = cause.Error()
	}
	c.record = rec
	c.opCancel = nil
	if c.watchCancel != nil {
		c.watchCancel()
		c.watchCancel = nil
	}
	done := c.done
	if status == domain.SubmissionStatusConfirmed {
		c.state = StateSucceeded
	} else {
		c.state = StateFailed
		c.lastErr = cause
	}
	c.mu.Unlock()
	c.session.End()

	// Side effects land before waiters are released.
	defer func() {
		c.mu.Lock()
		owned := done != nil && c.done == done
		if owned {
			c.done = nil
		}
		c.mu.Unlock()
		if owned {
			close(done)
		}
	}()

	if wasPending {
		c.updateRecord(rec)
	}
	metrics.DepositsFinished.WithLabelValues(string(rec.Asset), string(status)).Inc()

	if status != domain.SubmissionStatusConfirmed {
		if cause == nil {
			cause = &domain.ChainRejectedError{Family: rec.Family, Key: rec.Key, Reason: "transaction failed"}
		}
		c.notifier.Notify(errorNotification(cause))
		return
	}

	c.history.Invalidate()
	c.log.Info("deposit confirmed", "chain", rec.Family, "key", rec.Key)
	c.notifier.Notify(Notification{
		Level:   LevelSuccess,
		Title:   depositSuccessTitle,
		Message: depositSuccessMessage,
		Link:    c.explorers.Link(rec.Family, rec.Key),
	})
}

// Wait blocks until a watched deposit has finished and returns the
// resulting state.
func (c *Controller) Wait(ctx context.Context) (State, error) {
	c.mu.Lock()
	if c.done == nil {
		s := c.state
		c.mu.Unlock()
		return s, nil
	}
	done := c.done
	c.mu.Unlock()

	select {
	case <-done:
		return c.State(), nil
	case <-ctx.Done():
		return c.State(), ctx.Err()
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Quote returns the latest successful quote. After a failed refresh it is
// the previous one; callers compare its pair with the selection.
func (c *Controller) Quote() (domain.Quote, bool) {
	return c.quotes.Latest()
}

func (c *Controller) Snapshot() Snapshot {
	q, ok := c.Quote()

	c.mu.Lock()
	defer c.mu.Unlock()
	snap := Snapshot{
		State:  c.state,
		Asset:  c.asset,
		Amount: c.amount,
		Err:    c.lastErr,
	}
	if ok {
		snap.Quote = &q
	}
	if c.record != nil {
		rec := *c.record
		snap.Record = &rec
	}
	return snap
}

// AssociationState reports the association progress of the selected asset's chain.
func (c *Controller) AssociationState() association.State {
	c.mu.Lock()
	family := c.asset.Family()
	c.mu.Unlock()
	return c.association.State(family)
}

func (c *Controller) saveRecord(rec *domain.SubmissionRecord) {
	if c.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.journal.Save(ctx, rec); err != nil {
		c.log.Warn("journal save failed", "key", rec.Key, "error", err)
	}
}

func (c *Controller) updateRecord(rec *domain.SubmissionRecord) {
	if c.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.journal.UpdateStatus(ctx, rec.Key, rec.Status, rec.Error); err != nil {
		c.log.Warn("journal update failed", "key", rec.Key, "error", err)
	}
}
