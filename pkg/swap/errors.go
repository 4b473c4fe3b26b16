package swap

import "errors"

// Sentinel errors for the quoting and execution pipeline. Callers classify
// with errors.Is; everything here is represented as state, never a process
// abort.
var (
	// ErrQuoteFetchFailed marks a failed quote query. The quote degrades to
	// absent/zero and the condition is retryable.
	ErrQuoteFetchFailed = errors.New("quote fetch failed")

	// ErrNoSession is returned when execution is attempted without an active
	// wallet session.
	ErrNoSession = errors.New("no wallet session")

	// ErrInvalidParameters is returned when an execution precondition is
	// unmet. No network call is made.
	ErrInvalidParameters = errors.New("invalid swap parameters")

	// ErrSubmissionRejected marks a submission declined before it reached the
	// network, such as a refused signature.
	ErrSubmissionRejected = errors.New("swap submission rejected")

	// ErrSubmissionFailed marks a submission the network refused or a
	// transaction that did not take effect.
	ErrSubmissionFailed = errors.New("swap submission failed")

	// ErrSwapInFlight is returned when a swap is attempted while a prior
	// transaction is still awaiting settlement.
	ErrSwapInFlight = errors.New("a swap is already in flight")
)
