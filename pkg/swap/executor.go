package swap

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"

	"amm-swap/pkg/metrics"
	"amm-swap/pkg/wallet"
)

// Swapper is the AMM's state-changing surface: submit a trade and wait for
// the ledger to report its outcome.
type Swapper interface {
	Swap(ctx context.Context, amountIn, minAmountOut *big.Int, aToB bool, session *wallet.Session) (common.Hash, error)
	WaitMined(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
}

// Status is the lifecycle position of a submitted swap.
type Status int

const (
	// StatusSubmitted means the transaction was accepted by the network and
	// is awaiting finality.
	StatusSubmitted Status = iota
	// StatusConfirmed means the ledger reported a successful execution.
	StatusConfirmed
	// StatusFailed means the transaction failed or reverted, typically
	// because the realized output fell below the minimum.
	StatusFailed
)

// String renders the status for display.
func (s Status) String() string {
	switch s {
	case StatusSubmitted:
		return "SUBMITTED"
	case StatusConfirmed:
		return "CONFIRMED"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Transaction tracks one submitted swap to its terminal state. It is never
// reused for a second trade.
type Transaction struct {
	hash common.Hash

	mu     sync.RWMutex
	status Status
	err    error
	done   chan struct{}
}

func newTransaction(hash common.Hash) *Transaction {
	return &Transaction{hash: hash, status: StatusSubmitted, done: make(chan struct{})}
}

// Hash returns the submitted transaction hash.
func (t *Transaction) Hash() common.Hash {
	return t.hash
}

// Status returns the current lifecycle position.
func (t *Transaction) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Err returns the failure detail, nil unless the transaction failed.
func (t *Transaction) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Wait blocks until the transaction settles or ctx is done.
func (t *Transaction) Wait(ctx context.Context) (Status, error) {
	select {
	case <-ctx.Done():
		return t.Status(), ctx.Err()
	case <-t.done:
		t.mu.RLock()
		defer t.mu.RUnlock()
		return t.status, t.err
	}
}

// settle moves the transaction to a terminal state exactly once.
func (t *Transaction) settle(status Status, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != StatusSubmitted {
		return
	}
	t.status = status
	t.err = err
	close(t.done)
}

// Executor submits slippage-protected trades through the wallet session and
// tracks each one to confirmation.
type Executor struct {
	swapper Swapper
	log     zerolog.Logger
}

// NewExecutor wraps a Swapper.
func NewExecutor(swapper Swapper, log zerolog.Logger) *Executor {
	return &Executor{swapper: swapper, log: log}
}

// Execute validates every precondition, submits the trade, and returns a
// Transaction in the Submitted state. The transaction transitions to
// Confirmed or Failed in the background once the ledger reports the outcome.
// Precondition violations return before any network call.
func (e *Executor) Execute(ctx context.Context, params Parameters, minAmountOut *big.Int, session *wallet.Session) (*Transaction, error) {
	if session == nil || session.Signer == nil {
		return nil, ErrNoSession
	}
	if !params.PairSelected() {
		return nil, fmt.Errorf("%w: no valid token pair selected", ErrInvalidParameters)
	}
	scaled := params.ScaledAmount()
	if scaled.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidParameters)
	}
	if minAmountOut == nil || minAmountOut.Sign() <= 0 {
		return nil, fmt.Errorf("%w: minimum output must be positive", ErrInvalidParameters)
	}

	aToB, err := Direction(params.From, params.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}

	hash, err := e.swapper.Swap(ctx, scaled, minAmountOut, aToB, session)
	if err != nil {
		if errors.Is(err, ErrSubmissionRejected) || errors.Is(err, ErrSubmissionFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}

	e.log.Info().
		Str("tx", hash.Hex()).
		Str("amount_in", scaled.String()).
		Str("min_out", minAmountOut.String()).
		Bool("a_to_b", aToB).
		Msg("swap submitted")

	tx := newTransaction(hash)
	go e.track(tx, params.DeadlineMinutes)
	return tx, nil
}

// track waits for finality and settles the transaction. The deadline bounds
// how long the confirmation wait may take.
func (e *Executor) track(tx *Transaction, deadlineMinutes int) {
	if deadlineMinutes <= 0 {
		deadlineMinutes = DefaultDeadlineMinutes
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(deadlineMinutes)*time.Minute)
	defer cancel()

	receipt, err := e.swapper.WaitMined(ctx, tx.Hash())
	if err != nil {
		metrics.SwapsTotal.WithLabelValues("failed").Inc()
		e.log.Error().Err(err).Str("tx", tx.Hash().Hex()).Msg("confirmation wait failed")
		tx.settle(StatusFailed, fmt.Errorf("%w: %v", ErrSubmissionFailed, err))
		return
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		metrics.SwapsTotal.WithLabelValues("failed").Inc()
		e.log.Warn().Str("tx", tx.Hash().Hex()).Msg("swap reverted")
		tx.settle(StatusFailed, fmt.Errorf("%w: transaction reverted", ErrSubmissionFailed))
		return
	}

	metrics.SwapsTotal.WithLabelValues("confirmed").Inc()
	e.log.Info().Str("tx", tx.Hash().Hex()).Uint64("block", receipt.BlockNumber.Uint64()).Msg("swap confirmed")
	tx.settle(StatusConfirmed, nil)
}
