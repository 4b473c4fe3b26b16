package swap

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"amm-swap/pkg/metrics"
	"amm-swap/pkg/token"
	"amm-swap/pkg/wallet"
)

// State is the orchestrator's position in the swap lifecycle.
type State int

const (
	// StateIdle means the token catalog has not been loaded yet.
	StateIdle State = iota
	// StateParametersIncomplete means the catalog is loaded but no valid
	// pair-plus-amount is set.
	StateParametersIncomplete
	// StateQuoting means a quote query is in flight.
	StateQuoting
	// StateQuoted means the last quote query resolved: either a fresh quote
	// matching the current parameters, or an absent quote with the failure
	// surfaced as QuoteErr.
	StateQuoted
	// StateExecuting means a swap has been submitted and awaits settlement.
	StateExecuting
	// StateSettled means the last swap reached a terminal state.
	StateSettled
)

// String renders the state for display and logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateParametersIncomplete:
		return "parameters-incomplete"
	case StateQuoting:
		return "quoting"
	case StateQuoted:
		return "quoted"
	case StateExecuting:
		return "executing"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// DisabledReason explains why the swap action is unavailable. Reasons follow
// a fixed priority: wallet, then pair, then amount, then quote.
type DisabledReason string

const (
	ReasonNone      DisabledReason = ""
	ReasonNoSession DisabledReason = "connect a wallet"
	ReasonNoPair    DisabledReason = "select two different tokens"
	ReasonNoAmount  DisabledReason = "enter an amount"
	ReasonNoQuote   DisabledReason = "insufficient quote"
)

// Snapshot is a consistent read of everything the caller needs to render the
// swap surface.
type Snapshot struct {
	State      State
	Parameters Parameters
	Quote      Quote
	QuoteStale bool
	QuoteErr   error
	MinimumOut *big.Int
	CanSwap    bool
	Reason     DisabledReason
	Tx         *Transaction
}

// Orchestrator reconciles the token catalog, the wallet session, the user's
// parameters, and the live quote into one coherent surface. It is the single
// owner of the current quote and transaction; every derived value is
// recomputed synchronously when a transition is applied.
type Orchestrator struct {
	log       zerolog.Logger
	catalog   *token.Catalog
	connector *wallet.Connector
	fetcher   *Fetcher
	executor  *Executor

	mu         sync.Mutex
	state      State
	params     Parameters
	quote      Quote
	quoteErr   error
	generation uint64
	tx         *Transaction
}

// NewOrchestrator wires the components together. The initial state is Idle
// until the catalog is loaded.
func NewOrchestrator(catalog *token.Catalog, connector *wallet.Connector, fetcher *Fetcher, executor *Executor, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		log:       log,
		catalog:   catalog,
		connector: connector,
		fetcher:   fetcher,
		executor:  executor,
		state:     StateIdle,
		params:    NewParameters(),
	}
}

// Start begins observing wallet events until ctx is done. Revocation by the
// external environment keeps quoting valid but disables execution.
func (o *Orchestrator) Start(ctx context.Context) {
	go o.connector.Watch(ctx, o.onWalletEvent)
}

// LoadTokens fetches the catalog and applies the default pair policy: the
// first two tokens in registry order become the provisional selection. A
// catalog failure leaves the orchestrator in a safe, displayable state.
func (o *Orchestrator) LoadTokens(ctx context.Context) ([]token.Token, error) {
	tokens, err := o.catalog.Load(ctx)
	if err != nil {
		o.log.Warn().Err(err).Msg("catalog load failed")
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateIdle {
		o.state = StateParametersIncomplete
	}
	if o.params.From.IsZero() && o.params.To.IsZero() {
		if from, to, ok := o.catalog.DefaultPair(); ok {
			o.params.From = from
			o.params.To = to
			o.log.Debug().Str("from", from.Symbol).Str("to", to.Symbol).Msg("default pair selected")
		}
	}
	o.reconcileLocked()
	return tokens, nil
}

// SetFromToken selects the input token. Selecting the current output token
// flips the pair instead of violating the from != to invariant.
func (o *Orchestrator) SetFromToken(t token.Token) {
	o.edit(func(p *Parameters) {
		if t.Equal(p.To) {
			p.To = p.From
		}
		p.From = t
	})
}

// SetToToken selects the output token, flipping if it matches the input.
func (o *Orchestrator) SetToToken(t token.Token) {
	o.edit(func(p *Parameters) {
		if t.Equal(p.From) {
			p.From = p.To
		}
		p.To = t
	})
}

// SetAmountText replaces the typed amount.
func (o *Orchestrator) SetAmountText(text string) {
	o.edit(func(p *Parameters) { p.AmountText = text })
}

// Flip swaps the from/to selection. Any in-flight quote for the old direction
// is discarded.
func (o *Orchestrator) Flip() {
	o.edit(func(p *Parameters) { p.From, p.To = p.To, p.From })
}

// SetSlippagePercent updates the tolerance. The quote itself stays valid;
// only the minimum output moves.
func (o *Orchestrator) SetSlippagePercent(percent float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.params.SlippageBps = ToleranceBps(percent)
}

// SetDeadlineMinutes updates how long a submitted swap is awaited.
func (o *Orchestrator) SetDeadlineMinutes(minutes int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.params.DeadlineMinutes = minutes
}

// edit applies a parameter mutation, invalidates the current quote
// immediately, and recomputes downstream state. The generation bump makes any
// in-flight fetch stale before its result arrives.
func (o *Orchestrator) edit(mutate func(*Parameters)) {
	o.mu.Lock()
	defer o.mu.Unlock()

	mutate(&o.params)
	o.quote = Quote{}
	o.quoteErr = nil
	o.generation++
	o.reconcileLocked()
}

// reconcileLocked recomputes the state from the current parameter snapshot
// and issues a quote fetch when one is needed. An edit arriving while a swap
// executes supersedes the Executing display; the submitted transaction keeps
// being tracked through o.tx. Callers hold o.mu.
func (o *Orchestrator) reconcileLocked() {
	if !o.params.Complete() {
		o.state = StateParametersIncomplete
		return
	}

	o.state = StateQuoting
	gen := o.generation
	from, to := o.params.From, o.params.To
	amount := o.params.ScaledAmount()
	go o.fetchQuote(gen, from, to, amount)
}

// RefreshQuote re-queries the AMM for the current parameters. Unlike a
// parameter edit, the displayed quote is kept (marked stale) while the new
// one is in flight.
func (o *Orchestrator) RefreshQuote() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshLocked()
}

func (o *Orchestrator) refreshLocked() {
	if !o.params.Complete() || o.state == StateExecuting || o.state == StateIdle {
		return
	}
	o.quoteErr = nil
	o.generation++
	o.state = StateQuoting
	gen := o.generation
	from, to := o.params.From, o.params.To
	go o.fetchQuote(gen, from, to, o.params.ScaledAmount())
}

func (o *Orchestrator) fetchQuote(gen uint64, from, to token.Token, amount *big.Int) {
	quote, err := o.fetcher.Fetch(context.Background(), from, to, amount)
	o.applyQuote(gen, quote, err)
}

// applyQuote installs a fetch result, but only if its generation still
// matches: last request wins, regardless of network response ordering.
func (o *Orchestrator) applyQuote(gen uint64, quote Quote, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if gen != o.generation {
		metrics.QuotesDiscarded.Inc()
		o.log.Debug().Uint64("gen", gen).Uint64("current", o.generation).Msg("superseded quote discarded")
		return
	}

	if err != nil {
		// A failed fetch still resolves the quoting round: the quote degrades
		// to absent, the error is surfaced, and RefreshQuote retries it.
		o.quote = Quote{}
		o.quoteErr = err
		if o.state == StateQuoting {
			o.state = StateQuoted
		}
		return
	}

	o.quote = quote
	o.quoteErr = nil
	if o.state == StateQuoting {
		o.state = StateQuoted
	}
}

// onWalletEvent reacts to asynchronous provider notifications. The connector
// has already replaced or destroyed the session; quoting stays valid, so the
// quote is refreshed rather than discarded.
func (o *Orchestrator) onWalletEvent(ev wallet.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.log.Info().Int("kind", int(ev.Kind)).Msg("wallet event")
	o.refreshLocked()
}

// AwaitQuote blocks until the in-flight quote resolves or ctx is done. It
// returns the applied quote, or the fetch failure when the query errored.
func (o *Orchestrator) AwaitQuote(ctx context.Context) (Quote, error) {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		o.mu.Lock()
		state, quote, quoteErr := o.state, o.quote, o.quoteErr
		o.mu.Unlock()

		if quoteErr != nil {
			return Quote{}, quoteErr
		}
		if state != StateQuoting {
			return quote, nil
		}

		select {
		case <-ctx.Done():
			return Quote{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// reasonLocked evaluates the swap preconditions in their fixed priority
// order. Callers hold o.mu.
func (o *Orchestrator) reasonLocked() DisabledReason {
	if o.connector.Session() == nil {
		return ReasonNoSession
	}
	if !o.params.PairSelected() {
		return ReasonNoPair
	}
	if o.params.ScaledAmount().Sign() <= 0 {
		return ReasonNoAmount
	}
	if MinimumOut(o.quote.AmountOut, o.params.SlippageBps).Sign() <= 0 {
		return ReasonNoQuote
	}
	return ReasonNone
}

// Connect establishes the wallet session through the injected provider.
func (o *Orchestrator) Connect(ctx context.Context) (*wallet.Session, error) {
	return o.connector.Connect(ctx)
}

// Swap submits the trade described by the current parameters and quote. At
// most one swap is in flight; a second invocation while the prior transaction
// is still Submitted fails.
func (o *Orchestrator) Swap(ctx context.Context) (*Transaction, error) {
	o.mu.Lock()

	if o.swapInFlightLocked() {
		o.mu.Unlock()
		return nil, ErrSwapInFlight
	}

	switch reason := o.reasonLocked(); reason {
	case ReasonNone:
	case ReasonNoSession:
		o.mu.Unlock()
		return nil, ErrNoSession
	default:
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrInvalidParameters, reason)
	}

	if o.quote.Fingerprint != o.params.Fingerprint() {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: quote is stale", ErrInvalidParameters)
	}

	params := o.params
	minOut := MinimumOut(o.quote.AmountOut, o.params.SlippageBps)
	session := o.connector.Session()
	prevState := o.state
	o.state = StateExecuting
	o.mu.Unlock()

	tx, err := o.executor.Execute(ctx, params, minOut, session)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		// A concurrent edit may already have moved the state on; only undo
		// our own Executing transition.
		if o.state == StateExecuting {
			o.state = prevState
		}
		return nil, err
	}
	o.tx = tx
	go o.awaitSettle(tx)
	return tx, nil
}

// swapInFlightLocked reports whether a submitted transaction is still awaiting
// settlement. The guard follows the transaction, not the display state, so a
// parameter edit during execution cannot open a second submission. Callers
// hold o.mu.
func (o *Orchestrator) swapInFlightLocked() bool {
	if o.state == StateExecuting {
		return true
	}
	return o.tx != nil && o.tx.Status() == StatusSubmitted
}

func (o *Orchestrator) awaitSettle(tx *Transaction) {
	status, _ := tx.Wait(context.Background())

	o.mu.Lock()
	defer o.mu.Unlock()
	// When an edit superseded the Executing display, the edited flow keeps
	// its state; the outcome stays observable through the transaction.
	if o.tx == tx && o.state == StateExecuting {
		o.state = StateSettled
	}
	o.log.Info().Str("tx", tx.Hash().Hex()).Str("status", status.String()).Msg("swap settled")
}

// Catalog exposes the token catalog for symbol lookups.
func (o *Orchestrator) Catalog() *token.Catalog {
	return o.catalog
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Parameters returns a copy of the current user intent.
func (o *Orchestrator) Parameters() Parameters {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.params
}

// Snapshot returns a consistent view of the whole surface.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	reason := o.reasonLocked()
	return Snapshot{
		State:      o.state,
		Parameters: o.params,
		Quote:      o.quote,
		QuoteStale: o.state == StateQuoting && !o.quote.IsZero(),
		QuoteErr:   o.quoteErr,
		MinimumOut: MinimumOut(o.quote.AmountOut, o.params.SlippageBps),
		CanSwap:    reason == ReasonNone && !o.swapInFlightLocked(),
		Reason:     reason,
		Tx:         o.tx,
	}
}
