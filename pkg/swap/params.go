package swap

import (
	"math/big"

	"amm-swap/pkg/token"
)

// Default user-intent settings, matching the product defaults.
const (
	DefaultSlippagePercent = 0.5
	DefaultDeadlineMinutes = 30
)

// Parameters is the mutable user intent: the selected pair, the typed amount,
// and the protection settings. It is mutated only by explicit user action.
type Parameters struct {
	From            token.Token
	To              token.Token
	AmountText      string
	SlippageBps     int64
	DeadlineMinutes int
}

// NewParameters returns parameters with the default tolerance and deadline
// and no pair selected.
func NewParameters() Parameters {
	return Parameters{
		SlippageBps:     ToleranceBps(DefaultSlippagePercent),
		DeadlineMinutes: DefaultDeadlineMinutes,
	}
}

// PairSelected reports whether both tokens are set and distinct.
func (p Parameters) PairSelected() bool {
	return !p.From.IsZero() && !p.To.IsZero() && !p.From.Equal(p.To)
}

// ScaledAmount parses the typed amount into the input token's smallest unit.
// Malformed text is the zero amount, never an error.
func (p Parameters) ScaledAmount() *big.Int {
	return token.ParseAmount(p.AmountText, p.From.Decimals)
}

// Complete reports whether the parameters describe a quotable trade: a valid
// pair and a positive amount.
func (p Parameters) Complete() bool {
	return p.PairSelected() && p.ScaledAmount().Sign() > 0
}

// Fingerprint identifies the (from, to, amount) triple a quote was issued
// for. A quote is valid only while its fingerprint matches the current
// parameters.
type Fingerprint struct {
	From   string
	To     string
	Amount string
}

// Fingerprint derives the quote fingerprint for the current parameters.
func (p Parameters) Fingerprint() Fingerprint {
	return Fingerprint{
		From:   p.From.Address,
		To:     p.To.Address,
		Amount: p.ScaledAmount().String(),
	}
}
