package token

import (
	"math/big"
	"strings"
)

// Token describes a tradable asset from the registry. A token is uniquely
// identified by its contract address together with the chain it lives on.
type Token struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	Decimals uint8  `json:"decimals"`
	ChainID  int64  `json:"chainId"`
}

// IsZero reports whether the token has not been set.
func (t Token) IsZero() bool {
	return t.Address == ""
}

// Equal compares tokens by their unique key (address + chain).
func (t Token) Equal(other Token) bool {
	return strings.EqualFold(t.Address, other.Address) && t.ChainID == other.ChainID
}

// ParseAmount converts a human-typed decimal string into the token's smallest
// unit (scaled by 10^decimals). Malformed input is not an error: it parses to
// zero, the "no amount" value. Negative amounts and fractions with more digits
// than the token supports also parse to zero.
func ParseAmount(text string, decimals uint8) *big.Int {
	text = strings.TrimSpace(text)
	if text == "" {
		return new(big.Int)
	}

	intPart := text
	fracPart := ""
	if i := strings.IndexByte(text, '.'); i >= 0 {
		intPart = text[:i]
		fracPart = text[i+1:]
	}

	if intPart == "" && fracPart == "" {
		return new(big.Int)
	}
	if !isDigits(intPart) || !isDigits(fracPart) {
		return new(big.Int)
	}
	if len(fracPart) > int(decimals) {
		return new(big.Int)
	}

	// Pad the fraction out to the full precision and join the digits.
	padded := fracPart + strings.Repeat("0", int(decimals)-len(fracPart))
	digits := intPart + padded
	if digits == "" {
		return new(big.Int)
	}

	amount, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return new(big.Int)
	}
	return amount
}

// FormatAmount renders a scaled amount back into a human-readable decimal
// string, trimming trailing fractional zeros.
func FormatAmount(amount *big.Int, decimals uint8) string {
	if amount == nil || amount.Sign() == 0 {
		return "0"
	}

	digits := amount.String()
	if len(digits) <= int(decimals) {
		digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
	}

	cut := len(digits) - int(decimals)
	intPart := digits[:cut]
	fracPart := strings.TrimRight(digits[cut:], "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
