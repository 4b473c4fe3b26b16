package swap

import (
	"math"
	"math/big"
)

const bpsDenominator = 10000

// ToleranceBps converts a decimal percentage tolerance into integer basis
// points, truncating toward zero. The truncation is part of the contract:
// 0.5% becomes exactly 50 bps.
func ToleranceBps(percent float64) int64 {
	if percent <= 0 {
		return 0
	}
	bps := int64(math.Floor(percent * 100))
	if bps > bpsDenominator {
		return bpsDenominator
	}
	return bps
}

// MinimumOut computes the smallest acceptable output for a quoted amount at
// the given tolerance: floor(out * (10000 - bps) / 10000). An absent or zero
// quote yields zero, which downstream means "swap not executable", never
// "accept any output".
func MinimumOut(quotedOut *big.Int, toleranceBps int64) *big.Int {
	if quotedOut == nil || quotedOut.Sign() <= 0 {
		return new(big.Int)
	}
	if toleranceBps < 0 {
		toleranceBps = 0
	}
	if toleranceBps > bpsDenominator {
		toleranceBps = bpsDenominator
	}

	minOut := new(big.Int).Mul(quotedOut, big.NewInt(bpsDenominator-toleranceBps))
	return minOut.Div(minOut, big.NewInt(bpsDenominator))
}
