package types

// SwapRequest represents a user's swap command
type SwapRequest struct {
	Amount     string
	FromSymbol string
	ToSymbol   string
}

// QuoteDisplay holds formatted quote information for display
type QuoteDisplay struct {
	AmountIn   string
	FromSymbol string
	AmountOut  string
	ToSymbol   string
	MinimumOut string
	Slippage   string
}
