package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"amm-swap/config"
	"amm-swap/pkg/token"
)

var filterSymbol string

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List all tradable tokens",
	Long: `List the tokens loaded from the registry for the configured chain.

You can filter tokens by symbol.

Examples:
  amm-swap list-tokens
  amm-swap list-tokens --symbol USDC`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	catalog := token.NewCatalog(cfg.TokenListURL, cfg.ChainID, cfg.MaxTokens)

	// Fetch the registry with spinner
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching token registry..."
		s.Start()
	}

	tokens, err := catalog.Load(context.Background())
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		// An unavailable registry is a displayable state, not a crash
		if errors.Is(err, token.ErrCatalogUnavailable) {
			color.Yellow("\nToken registry is unavailable: %v", err)
			fmt.Println("No tokens loaded. Retry later or check token_list_url in your config.")
			return
		}
		printError(err)
		os.Exit(1)
	}

	// Apply filter
	filtered := tokens
	if filterSymbol != "" {
		var temp []token.Token
		for _, t := range filtered {
			if strings.Contains(strings.ToUpper(t.Symbol), strings.ToUpper(filterSymbol)) {
				temp = append(temp, t)
			}
		}
		filtered = temp
	}

	// Output
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(filtered, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayTokens(filtered, cfg.ChainID)
	}
}

func displayTokens(tokens []token.Token, chainID int64) {
	if len(tokens) == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            TRADABLE TOKENS (chain %d)", chainID)
	fmt.Println(strings.Repeat("=", 90))

	for _, t := range tokens {
		address := t.Address
		if len(address) > 44 {
			address = address[:41] + "..."
		}

		fmt.Printf("  %-10s  %2d decimals  %s  %s\n",
			color.YellowString(t.Symbol),
			t.Decimals,
			color.HiBlackString(address),
			t.Name)
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens\n\n", len(tokens))
}
