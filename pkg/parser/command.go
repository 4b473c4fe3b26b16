package parser

import (
	"fmt"
	"regexp"
	"strings"

	"amm-swap/pkg/types"
)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 WETH to USDC"
//   - "1.5 WETH to DAI"
//   - "100 USDC to WETH"
func ParseSwapCommand(command string) (*types.SwapRequest, error) {
	// Normalize the command
	command = strings.TrimSpace(strings.ToUpper(command))

	// Remove the word "SWAP" if present at the beginning
	command = strings.TrimPrefix(command, "SWAP ")

	// Pattern: <amount> <from_token> TO <to_token>
	// Matches: "1 WETH TO USDC", "1.5 WETH TO DAI", "100.25 USDC TO WETH"
	pattern := regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9]+)\s+TO\s+([A-Z0-9]+)$`)

	matches := pattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid swap command format. Expected: '<amount> <token> to <token>' (e.g., '1 WETH to USDC')")
	}

	return &types.SwapRequest{
		Amount:     matches[1],
		FromSymbol: matches[2],
		ToSymbol:   matches[3],
	}, nil
}

// ValidateSwapRequest validates that a swap request has all required fields
func ValidateSwapRequest(req *types.SwapRequest) error {
	if req.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if req.FromSymbol == "" {
		return fmt.Errorf("source token is required")
	}
	if req.ToSymbol == "" {
		return fmt.Errorf("destination token is required")
	}
	if req.FromSymbol == req.ToSymbol {
		return fmt.Errorf("source and destination tokens must differ")
	}
	return nil
}
