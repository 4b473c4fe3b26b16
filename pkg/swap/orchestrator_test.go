package swap

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"amm-swap/pkg/token"
	"amm-swap/pkg/wallet"
)

type fakeProvider struct {
	accounts []string
	events   chan wallet.Event
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		accounts: []string{"0x00000000000000000000000000000000000Feed1"},
		events:   make(chan wallet.Event, 4),
	}
}

func (p *fakeProvider) RequestAccounts(ctx context.Context) ([]string, error) {
	return p.accounts, nil
}

func (p *fakeProvider) Signer(ctx context.Context, account string) (wallet.Signer, error) {
	return stubSigner{}, nil
}

func (p *fakeProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (p *fakeProvider) Events() <-chan wallet.Event {
	return p.events
}

// blockingQuoter parks each query until the test releases it, keyed by the
// scaled input amount.
type blockingQuoter struct {
	mu      sync.Mutex
	pending map[string]chan *big.Int
	ready   chan string
}

func newBlockingQuoter() *blockingQuoter {
	return &blockingQuoter{pending: make(map[string]chan *big.Int), ready: make(chan string, 8)}
}

func (q *blockingQuoter) GetAmountOut(ctx context.Context, amountIn *big.Int, aToB bool) (*big.Int, error) {
	ch := make(chan *big.Int, 1)
	q.mu.Lock()
	q.pending[amountIn.String()] = ch
	q.mu.Unlock()
	q.ready <- amountIn.String()
	return <-ch, nil
}

func (q *blockingQuoter) release(t *testing.T, amount string, out int64) {
	t.Helper()
	q.mu.Lock()
	ch, ok := q.pending[amount]
	q.mu.Unlock()
	require.True(t, ok, "no pending query for amount %s", amount)
	ch <- big.NewInt(out)
}

func (q *blockingQuoter) awaitQuery(t *testing.T) string {
	t.Helper()
	select {
	case amount := <-q.ready:
		return amount
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a quote query")
		return ""
	}
}

func newTestOrchestrator(quoter Quoter, swapper Swapper, provider wallet.Provider) *Orchestrator {
	return NewOrchestrator(
		token.NewCatalog("http://127.0.0.1:1", 1, 0),
		wallet.NewConnector(provider),
		NewFetcher(quoter, zerolog.Nop()),
		NewExecutor(swapper, zerolog.Nop()),
		zerolog.Nop(),
	)
}

func awaitState(t *testing.T, orch *Orchestrator, want State) {
	t.Helper()
	require.Eventually(t, func() bool {
		return orch.State() == want
	}, 2*time.Second, 5*time.Millisecond, "expected state %s", want)
}

func TestOrchestratorLoadTokensAppliesDefaultPair(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tokens":[
			{"symbol":"AAA","address":"0x1111111111111111111111111111111111111111","decimals":18,"chainId":1},
			{"symbol":"BBB","address":"0x2222222222222222222222222222222222222222","decimals":6,"chainId":1}
		]}`))
	}))
	defer srv.Close()

	orch := NewOrchestrator(
		token.NewCatalog(srv.URL, 1, 0),
		wallet.NewConnector(nil),
		NewFetcher(&scriptedQuoter{out: big.NewInt(1)}, zerolog.Nop()),
		NewExecutor(newScriptedSwapper(), zerolog.Nop()),
		zerolog.Nop(),
	)

	require.Equal(t, StateIdle, orch.State())

	tokens, err := orch.LoadTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	require.Equal(t, StateParametersIncomplete, orch.State())

	params := orch.Parameters()
	require.Equal(t, "AAA", params.From.Symbol)
	require.Equal(t, "BBB", params.To.Symbol)
}

func TestOrchestratorQuoteLifecycle(t *testing.T) {
	quoter := &scriptedQuoter{out: big.NewInt(4000000)}
	orch := newTestOrchestrator(quoter, newScriptedSwapper(), nil)

	orch.SetFromToken(tokenA)
	require.Equal(t, StateParametersIncomplete, orch.State())

	orch.SetToToken(tokenB)
	require.Equal(t, StateParametersIncomplete, orch.State())

	orch.SetAmountText("2.5")
	awaitState(t, orch, StateQuoted)

	snapshot := orch.Snapshot()
	require.Equal(t, "2500000000000000000", snapshot.Quote.AmountIn.String())
	require.Equal(t, "4000000", snapshot.Quote.AmountOut.String())
	// 50 bps default: floor(4000000 * 9950 / 10000)
	require.Equal(t, "3980000", snapshot.MinimumOut.String())
}

func TestOrchestratorEditInvalidatesQuoteImmediately(t *testing.T) {
	quoter := &scriptedQuoter{out: big.NewInt(4000000)}
	orch := newTestOrchestrator(quoter, newScriptedSwapper(), nil)

	orch.SetFromToken(tokenA)
	orch.SetToToken(tokenB)
	orch.SetAmountText("1")
	awaitState(t, orch, StateQuoted)

	orch.SetAmountText("")
	snapshot := orch.Snapshot()
	require.Equal(t, StateParametersIncomplete, snapshot.State)
	require.True(t, snapshot.Quote.IsZero(), "parameter change must zero the quote before the new one arrives")
}

func TestOrchestratorLastRequestWins(t *testing.T) {
	quoter := newBlockingQuoter()
	orch := newTestOrchestrator(quoter, newScriptedSwapper(), nil)

	orch.SetFromToken(tokenA)
	orch.SetToToken(tokenB)

	orch.SetAmountText("1")
	first := quoter.awaitQuery(t)
	require.Equal(t, "1000000000000000000", first)

	orch.SetAmountText("2")
	second := quoter.awaitQuery(t)
	require.Equal(t, "2000000000000000000", second)

	// Resolve out of order: the later request's result lands first.
	quoter.release(t, second, 8000000)
	awaitState(t, orch, StateQuoted)

	quoter.release(t, first, 4000000)

	// The superseded result must never overwrite the applied quote.
	require.Never(t, func() bool {
		q := orch.Snapshot().Quote
		return !q.IsZero() && q.AmountIn.String() == first
	}, 200*time.Millisecond, 20*time.Millisecond)

	snapshot := orch.Snapshot()
	require.Equal(t, second, snapshot.Quote.AmountIn.String())
	require.Equal(t, "8000000", snapshot.Quote.AmountOut.String())
}

func TestOrchestratorFlipSwapsPairAndDiscardsQuote(t *testing.T) {
	quoter := newBlockingQuoter()
	orch := newTestOrchestrator(quoter, newScriptedSwapper(), nil)

	orch.SetFromToken(tokenA)
	orch.SetToToken(tokenB)
	orch.SetAmountText("1")
	pending := quoter.awaitQuery(t)

	orch.Flip()
	params := orch.Parameters()
	require.Equal(t, tokenB.Address, params.From.Address)
	require.Equal(t, tokenA.Address, params.To.Address)

	// The old direction's quote resolves late and must be discarded. The flip
	// re-parses "1" against the new input token's decimals.
	quoter.release(t, pending, 4000000)
	flipped := quoter.awaitQuery(t)
	require.Equal(t, "1000000", flipped)

	quoter.release(t, flipped, 999)
	awaitState(t, orch, StateQuoted)
	require.Equal(t, "999", orch.Snapshot().Quote.AmountOut.String())
}

func TestOrchestratorSelectingSameTokenFlips(t *testing.T) {
	quoter := &scriptedQuoter{out: big.NewInt(1)}
	orch := newTestOrchestrator(quoter, newScriptedSwapper(), nil)

	orch.SetFromToken(tokenA)
	orch.SetToToken(tokenB)

	// Choosing the output token as the new input swaps the pair instead of
	// violating the from != to invariant.
	orch.SetFromToken(tokenB)
	params := orch.Parameters()
	require.Equal(t, tokenB.Address, params.From.Address)
	require.Equal(t, tokenA.Address, params.To.Address)
}

func TestOrchestratorReasonPriority(t *testing.T) {
	quoter := &scriptedQuoter{err: context.DeadlineExceeded}
	provider := newFakeProvider()
	orch := newTestOrchestrator(quoter, newScriptedSwapper(), provider)

	// No session outranks everything.
	require.Equal(t, ReasonNoSession, orch.Snapshot().Reason)

	_, err := orch.Connect(context.Background())
	require.NoError(t, err)
	require.Equal(t, ReasonNoPair, orch.Snapshot().Reason)

	orch.SetFromToken(tokenA)
	orch.SetToToken(tokenB)
	require.Equal(t, ReasonNoAmount, orch.Snapshot().Reason)

	orch.SetAmountText("1")
	require.Equal(t, ReasonNoQuote, orch.Snapshot().Reason)
}

func TestOrchestratorDisconnectKeepsQuote(t *testing.T) {
	quoter := &scriptedQuoter{out: big.NewInt(4000000)}
	provider := newFakeProvider()
	orch := newTestOrchestrator(quoter, newScriptedSwapper(), provider)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orch.Start(ctx)

	_, err := orch.Connect(ctx)
	require.NoError(t, err)

	orch.SetFromToken(tokenA)
	orch.SetToToken(tokenB)
	orch.SetAmountText("1")
	awaitState(t, orch, StateQuoted)
	require.True(t, orch.Snapshot().CanSwap)

	provider.events <- wallet.Event{Kind: wallet.EventDisconnected}

	require.Eventually(t, func() bool {
		s := orch.Snapshot()
		return s.Reason == ReasonNoSession && !s.CanSwap
	}, 2*time.Second, 5*time.Millisecond)

	// The displayed quote survives revocation; only execution is disallowed.
	awaitState(t, orch, StateQuoted)
	require.False(t, orch.Snapshot().Quote.IsZero())

	_, err = orch.Swap(ctx)
	require.ErrorIs(t, err, ErrNoSession)
}

func TestOrchestratorSwapLifecycle(t *testing.T) {
	quoter := &scriptedQuoter{out: big.NewInt(4000000)}
	swapper := newScriptedSwapper()
	provider := newFakeProvider()
	orch := newTestOrchestrator(quoter, swapper, provider)

	ctx := context.Background()
	_, err := orch.Connect(ctx)
	require.NoError(t, err)

	orch.SetFromToken(tokenA)
	orch.SetToToken(tokenB)
	orch.SetAmountText("2.5")
	awaitState(t, orch, StateQuoted)

	tx, err := orch.Swap(ctx)
	require.NoError(t, err)
	require.Equal(t, StateExecuting, orch.State())
	require.Equal(t, StatusSubmitted, tx.Status())

	// At most one swap in flight.
	_, err = orch.Swap(ctx)
	require.ErrorIs(t, err, ErrSwapInFlight)

	close(swapper.mined)
	awaitState(t, orch, StateSettled)

	status, waitErr := tx.Wait(ctx)
	require.NoError(t, waitErr)
	require.Equal(t, StatusConfirmed, status)
}

func TestOrchestratorEditDuringExecutionRequotes(t *testing.T) {
	quoter := &scriptedQuoter{out: big.NewInt(4000000)}
	swapper := newScriptedSwapper()
	provider := newFakeProvider()
	orch := newTestOrchestrator(quoter, swapper, provider)

	ctx := context.Background()
	_, err := orch.Connect(ctx)
	require.NoError(t, err)

	orch.SetFromToken(tokenA)
	orch.SetToToken(tokenB)
	orch.SetAmountText("1")
	awaitState(t, orch, StateQuoted)

	tx, err := orch.Swap(ctx)
	require.NoError(t, err)
	require.Equal(t, StateExecuting, orch.State())

	// An edit during execution supersedes the Executing display and gets its
	// own quote while the submitted transaction keeps being tracked.
	orch.SetAmountText("5")
	awaitState(t, orch, StateQuoted)
	require.Equal(t, "5000000000000000000", orch.Snapshot().Quote.AmountIn.String())

	// The prior transaction still blocks a second submission until it settles.
	_, err = orch.Swap(ctx)
	require.ErrorIs(t, err, ErrSwapInFlight)
	require.False(t, orch.Snapshot().CanSwap)

	close(swapper.mined)
	status, waitErr := tx.Wait(ctx)
	require.NoError(t, waitErr)
	require.Equal(t, StatusConfirmed, status)

	// Settlement must not stomp the edited flow: the surface stays on the
	// re-quoted parameters and the next swap goes through.
	require.Equal(t, StateQuoted, orch.State())
	_, err = orch.Swap(ctx)
	require.NoError(t, err)
}

func TestOrchestratorQuoteFailureResolvesRound(t *testing.T) {
	quoter := &scriptedQuoter{err: context.DeadlineExceeded}
	orch := newTestOrchestrator(quoter, newScriptedSwapper(), nil)

	orch.SetFromToken(tokenA)
	orch.SetToToken(tokenB)
	orch.SetAmountText("1")

	// The failed fetch ends the quoting round instead of leaving the surface
	// on "quoting" forever.
	awaitState(t, orch, StateQuoted)

	snapshot := orch.Snapshot()
	require.ErrorIs(t, snapshot.QuoteErr, ErrQuoteFetchFailed)
	require.True(t, snapshot.Quote.IsZero())
	require.False(t, snapshot.QuoteStale)
}

func TestOrchestratorRefreshClearsQuoteError(t *testing.T) {
	quoter := &scriptedQuoter{err: context.DeadlineExceeded}
	orch := newTestOrchestrator(quoter, newScriptedSwapper(), nil)

	orch.SetFromToken(tokenA)
	orch.SetToToken(tokenB)
	orch.SetAmountText("1")

	require.Eventually(t, func() bool {
		return orch.Snapshot().QuoteErr != nil
	}, 2*time.Second, 5*time.Millisecond)

	quoter.mu.Lock()
	quoter.err = nil
	quoter.out = big.NewInt(4000000)
	quoter.mu.Unlock()

	// A refresh starts a clean round: the stale failure must not leak into
	// the retry's result.
	orch.RefreshQuote()
	require.NoError(t, orch.Snapshot().QuoteErr)

	quoteCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	quote, err := orch.AwaitQuote(quoteCtx)
	require.NoError(t, err)
	require.Equal(t, "4000000", quote.AmountOut.String())
}

func TestOrchestratorSwapWithoutQuote(t *testing.T) {
	quoter := &scriptedQuoter{err: context.DeadlineExceeded}
	provider := newFakeProvider()
	orch := newTestOrchestrator(quoter, newScriptedSwapper(), provider)

	ctx := context.Background()
	_, err := orch.Connect(ctx)
	require.NoError(t, err)

	orch.SetFromToken(tokenA)
	orch.SetToToken(tokenB)
	orch.SetAmountText("1")

	_, err = orch.Swap(ctx)
	require.ErrorIs(t, err, ErrInvalidParameters)
}
