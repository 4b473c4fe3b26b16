package swap

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"

	"amm-swap/pkg/metrics"
	"amm-swap/pkg/token"
)

// Quoter is the AMM's read-only quote operation.
type Quoter interface {
	GetAmountOut(ctx context.Context, amountIn *big.Int, aToB bool) (*big.Int, error)
}

// Quote is one output estimate from the AMM, stamped with the parameters that
// produced it.
type Quote struct {
	Fingerprint Fingerprint
	From        token.Token
	To          token.Token
	AmountIn    *big.Int
	AmountOut   *big.Int
	IssuedAt    time.Time
}

// IsZero reports whether this is the absent quote.
func (q Quote) IsZero() bool {
	return q.AmountOut == nil || q.AmountOut.Sign() == 0
}

// Fetcher queries the AMM for output estimates. It performs one external call
// per invocation; superseding stale results is the orchestrator's job.
type Fetcher struct {
	quoter  Quoter
	log     zerolog.Logger
	timeout time.Duration
}

// NewFetcher wraps a Quoter.
func NewFetcher(quoter Quoter, log zerolog.Logger) *Fetcher {
	return &Fetcher{quoter: quoter, log: log, timeout: 15 * time.Second}
}

// Fetch queries the AMM for the expected output of trading amount of from
// into to. A zero amount or an invalid pair yields the absent quote without
// touching the network. Query failures wrap ErrQuoteFetchFailed.
func (f *Fetcher) Fetch(ctx context.Context, from, to token.Token, amount *big.Int) (Quote, error) {
	if amount == nil || amount.Sign() <= 0 || from.IsZero() || to.IsZero() || from.Equal(to) {
		return Quote{}, nil
	}

	aToB, err := Direction(from, to)
	if err != nil {
		return Quote{}, fmt.Errorf("%w: %v", ErrQuoteFetchFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	metrics.QuotesTotal.Inc()
	out, err := f.quoter.GetAmountOut(ctx, amount, aToB)
	if err != nil {
		metrics.QuotesFailed.Inc()
		f.log.Warn().Err(err).Str("from", from.Symbol).Str("to", to.Symbol).Msg("quote query failed")
		return Quote{}, fmt.Errorf("%w: %v", ErrQuoteFetchFailed, err)
	}

	quote := Quote{
		Fingerprint: Fingerprint{From: from.Address, To: to.Address, Amount: amount.String()},
		From:        from,
		To:          to,
		AmountIn:    new(big.Int).Set(amount),
		AmountOut:   out,
		IssuedAt:    time.Now(),
	}
	f.log.Debug().
		Str("from", from.Symbol).
		Str("to", to.Symbol).
		Str("amount_in", amount.String()).
		Str("amount_out", out.String()).
		Msg("quote received")
	return quote, nil
}
