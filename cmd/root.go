package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "amm-swap",
	Short: "A CLI for slippage-protected swaps against a two-asset AMM pool",
	Long: `amm-swap is a command-line client for a deployed two-asset AMM contract.
It loads the tradable token catalog, fetches live quotes from the pool, applies
your slippage tolerance, and submits protected swap transactions.

Examples:
  amm-swap list-tokens
  amm-swap quote 2.5 WETH to USDC
  amm-swap swap 2.5 WETH to USDC --slippage 0.5
  amm-swap status <tx-hash>
  amm-swap watch 1 WETH to USDC`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
