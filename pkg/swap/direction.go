package swap

import (
	"fmt"
	"strings"

	"amm-swap/pkg/token"
)

// Direction derives the AMM's boolean trade-direction flag from the token
// pair: true iff the input token's address sorts strictly before the output
// token's under case-insensitive lexicographic order. The comparison must
// match the pool's own asset ordering exactly, or quotes silently price the
// wrong side.
func Direction(from, to token.Token) (bool, error) {
	if from.IsZero() || to.IsZero() {
		return false, fmt.Errorf("direction: both token addresses must be set")
	}
	return strings.ToLower(from.Address) < strings.ToLower(to.Address), nil
}
